package semaphore

import (
	"context"
	"time"
)

// NoOp is the backend-free Adapter that serves as the canonical
// mock: every mutating call succeeds, every query reports an empty state
type NoOp struct{}

func (NoOp) Acquire(context.Context, string, string, int, *time.Time) (bool, error) { return true, nil }
func (NoOp) Release(context.Context, string, string) (bool, error)                  { return true, nil }

func (NoOp) Refresh(context.Context, string, string, *time.Time) (RefreshResult, error) {
	return Refreshed, nil
}

func (NoOp) GetState(context.Context, string) (State, error) {
	return State{AcquiredSlots: map[string]*time.Time{}}, nil
}

var _ Adapter = NoOp{}
