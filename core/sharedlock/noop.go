package sharedlock

import (
	"context"
	"time"
)

// NoOp is the backend-free Adapter that serves as the canonical
// mock: every mutating call succeeds, every query reports nothing held
type NoOp struct{}

func (NoOp) AcquireWriter(context.Context, string, string, *time.Time) (bool, error) {
	return true, nil
}
func (NoOp) AcquireReader(context.Context, string, string, *time.Time) (bool, error) {
	return true, nil
}
func (NoOp) ReleaseWriter(context.Context, string, string) (bool, error) { return true, nil }
func (NoOp) ReleaseReader(context.Context, string, string) (bool, error) { return true, nil }

func (NoOp) RefreshWriter(context.Context, string, string, *time.Time) (RefreshResult, error) {
	return Refreshed, nil
}

func (NoOp) RefreshReader(context.Context, string, string, *time.Time) (RefreshResult, error) {
	return Refreshed, nil
}

func (NoOp) ForceRelease(context.Context, string) error { return nil }

func (NoOp) GetState(context.Context, string) (State, error) { return State{}, nil }

var _ Adapter = NoOp{}
