package lock

import (
	"context"

	"coordex/core/timespan"
)

// NoOp is the backend-free Adapter that serves as the canonical
// mock: every mutating call succeeds, every query reports nothing held
type NoOp struct{}

// Acquire always succeeds
func (NoOp) Acquire(context.Context, string, string, *timespan.TimeSpan) (bool, error) {
	return true, nil
}

// Release always succeeds
func (NoOp) Release(context.Context, string, string) (bool, error) { return true, nil }

// ForceRelease always succeeds
func (NoOp) ForceRelease(context.Context, string) error { return nil }

// Refresh always reports success
func (NoOp) Refresh(context.Context, string, string, *timespan.TimeSpan) (RefreshResult, error) {
	return Refreshed, nil
}

// Find always reports nothing held
func (NoOp) Find(context.Context, string) (*Record, error) { return nil, nil }

var _ Adapter = NoOp{}
