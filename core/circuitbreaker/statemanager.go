package circuitbreaker

import (
	"context"
	"time"

	"coordex/core/observability"
)

// StateManager dispatches updateState/trackFailure/trackSuccess/isolate to
// the correct policy method based on the current state tag. ISOLATED is
// sticky: only Reset leaves it.
type StateManager struct {
	storage *Storage
	policy  Policy
	tracer  observability.Tracer
}

// NewStateManager builds a StateManager over storage; construction order is
// Policy → Storage → StateManager (the policy here must be the one storage
// was built with). tracer may be nil.
func NewStateManager(storage *Storage, policy Policy, tracer observability.Tracer) *StateManager {
	return &StateManager{storage: storage, policy: policy, tracer: tracer}
}

func (m *StateManager) emit(ctx context.Context, op, key string, tr Transition) {
	if !tr.Changed() {
		return
	}
	observability.Emit(ctx, m.tracer, observability.Event{
		Component: component,
		Op:        op,
		Key:       key,
		From:      string(tr.From.Phase),
		To:        string(tr.To.Phase),
	})
}

// UpdateState advances key's state by wall-clock alone (OPEN → HALF_OPEN
// once the reopen backoff elapses) and returns the resulting state; it is
// called before every guarded operation.
func (m *StateManager) UpdateState(ctx context.Context, key string) (State, error) {
	tr, err := m.storage.AtomicUpdate(ctx, key, func(cur State, now time.Time) State {
		switch cur.Phase {
		case Closed:
			return m.policy.WhenClosed(cur, now)
		case Open:
			return m.policy.WhenOpened(cur, now)
		case HalfOpen:
			return m.policy.WhenHalfOpened(cur, now)
		default:
			return cur
		}
	})
	if err != nil {
		return State{}, err
	}
	m.emit(ctx, "updateState", key, tr)
	return tr.To, nil
}

// TrackFailure records a failed guarded call against key's state
func (m *StateManager) TrackFailure(ctx context.Context, key string) error {
	tr, err := m.storage.AtomicUpdate(ctx, key, func(cur State, now time.Time) State {
		switch cur.Phase {
		case Closed:
			return m.policy.TrackFailureWhenClosed(cur, now)
		case HalfOpen:
			return m.policy.TrackFailureWhenHalfOpened(cur, now)
		default:
			return cur
		}
	})
	if err != nil {
		return err
	}
	m.emit(ctx, "trackFailure", key, tr)
	return nil
}

// TrackSuccess records a successful guarded call against key's state
func (m *StateManager) TrackSuccess(ctx context.Context, key string) error {
	tr, err := m.storage.AtomicUpdate(ctx, key, func(cur State, now time.Time) State {
		switch cur.Phase {
		case Closed:
			return m.policy.TrackSuccessWhenClosed(cur, now)
		case HalfOpen:
			return m.policy.TrackSuccessWhenHalfOpened(cur, now)
		default:
			return cur
		}
	})
	if err != nil {
		return err
	}
	m.emit(ctx, "trackSuccess", key, tr)
	return nil
}

// Isolate forces key into ISOLATED, rejecting every guarded call until
// Reset
func (m *StateManager) Isolate(ctx context.Context, key string) error {
	tr, err := m.storage.AtomicUpdate(ctx, key, func(State, time.Time) State {
		return State{Phase: Isolated}
	})
	if err != nil {
		return err
	}
	m.emit(ctx, "isolate", key, tr)
	return nil
}

// Reset drops key's state entirely; the next read observes the policy's
// initial (CLOSED) state
func (m *StateManager) Reset(ctx context.Context, key string) error {
	return m.storage.Remove(ctx, key)
}

// Find returns key's current state without advancing it
func (m *StateManager) Find(ctx context.Context, key string) (State, error) {
	return m.storage.Find(ctx, key)
}
