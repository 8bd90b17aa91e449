package cache

import (
	"context"
	"time"
)

// NoOp is the backend-free Adapter that serves as the canonical
// mock: every mutating call succeeds, every read reports a miss
type NoOp struct{}

func (NoOp) Get(context.Context, string) (*Entry, error)                { return nil, nil }
func (NoOp) Add(context.Context, string, any, *time.Time) (bool, error) { return true, nil }
func (NoOp) Update(context.Context, string, any) (bool, error)          { return true, nil }
func (NoOp) Put(context.Context, string, any, *time.Time) (bool, error) { return true, nil }
func (NoOp) Increment(context.Context, string, float64) (bool, error)   { return true, nil }
func (NoOp) Remove(context.Context, string) (bool, error)               { return true, nil }
func (NoOp) Clear(context.Context, string) error                        { return nil }

var _ Adapter = NoOp{}
