package circuitbreaker

import (
	"context"
	"encoding/json"
	"time"

	"coordex/internal/platform/clock"
)

// Transition is the before/after pair AtomicUpdate reports
type Transition struct {
	From State
	To   State
}

// Changed reports whether the update actually moved the state
func (t Transition) Changed() bool { return !t.From.Equal(t.To) }

// Storage wraps an Adapter with the state-blob (de)serialization, the
// policy's initial-state default, and the write-iff-changed gate that
// keeps no-op updates from touching the backend.
type Storage struct {
	adapter Adapter
	policy  Policy
	clock   clock.Clock
}

// StorageOption customizes a Storage
type StorageOption func(*Storage)

// WithClock injects a deterministic clock for tests
func WithClock(c clock.Clock) StorageOption {
	return func(s *Storage) { s.clock = c }
}

// NewStorage builds a Storage over adapter, defaulting absent keys to
// policy.InitialState()
func NewStorage(adapter Adapter, policy Policy, opts ...StorageOption) *Storage {
	s := &Storage{adapter: adapter, policy: policy, clock: clock.Real()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func decodeState(raw []byte, policy Policy) (State, error) {
	if len(raw) == 0 {
		return policy.InitialState(), nil
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, err
	}
	return s, nil
}

// AtomicUpdate reads the current state (initial when absent), applies fn,
// and persists the result iff the policy reports a change; it returns the
// observed Transition either way.
func (s *Storage) AtomicUpdate(ctx context.Context, key string, fn func(cur State, now time.Time) State) (Transition, error) {
	var tr Transition
	err := s.adapter.AtomicUpdate(ctx, key, func(raw []byte) ([]byte, error) {
		cur, err := decodeState(raw, s.policy)
		if err != nil {
			return nil, err
		}
		next := fn(cur, s.clock.Now())
		tr = Transition{From: cur, To: next}
		if s.policy.IsEqual(cur, next) {
			return nil, nil
		}
		return json.Marshal(next)
	})
	if err != nil {
		return Transition{}, err
	}
	return tr, nil
}

// Find returns key's current state, defaulting to the policy's initial
// state when absent
func (s *Storage) Find(ctx context.Context, key string) (State, error) {
	raw, err := s.adapter.Find(ctx, key)
	if err != nil {
		return State{}, err
	}
	return decodeState(raw, s.policy)
}

// Remove deletes key's state; the next read observes the initial state
func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.adapter.Remove(ctx, key)
}
