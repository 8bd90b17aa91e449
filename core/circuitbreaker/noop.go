package circuitbreaker

import (
	"context"
	"errors"
)

var errNoPolicy = errors.New("no tripping policy supplied")

// NoOp is the backend-free Adapter that serves as the canonical
// mock: nothing is persisted, so every key stays in its initial (CLOSED)
// state forever
type NoOp struct{}

// AtomicUpdate applies update to an absent blob and discards the result
func (NoOp) AtomicUpdate(_ context.Context, _ string, update func(cur []byte) ([]byte, error)) error {
	_, err := update(nil)
	return err
}

// Find always reports absent
func (NoOp) Find(context.Context, string) ([]byte, error) { return nil, nil }

// Remove always succeeds
func (NoOp) Remove(context.Context, string) error { return nil }

var _ Adapter = NoOp{}
