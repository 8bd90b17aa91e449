package circuitbreaker

import (
	"time"

	"github.com/go-playground/validator/v10"

	"coordex/core/backoff"
	"coordex/core/timespan"
)

// validate checks policy option structs at construction: fail fast on a
// bad configuration instead of tripping over it at runtime
var validate = validator.New(validator.WithRequiredStructEnabled())

// Policy decides what the next state is for each (current state, event)
// pair. Implementations own the Metrics blob inside
// CLOSED states; everything outside CLOSED is shared mechanics provided by
// basePolicy.
type Policy interface {
	// InitialState is the state a key has before its first update
	InitialState() State
	// IsEqual gates Storage writes: a no-change update is not persisted
	IsEqual(a, b State) bool
	// WhenClosed is consulted before a guarded call while CLOSED
	WhenClosed(s State, now time.Time) State
	// WhenOpened is consulted before a guarded call while OPEN; it moves
	// to HALF_OPEN once the reopen backoff has elapsed
	WhenOpened(s State, now time.Time) State
	// WhenHalfOpened is consulted before a guarded call while HALF_OPEN
	WhenHalfOpened(s State, now time.Time) State
	// TrackFailureWhenClosed records a failed call while CLOSED
	TrackFailureWhenClosed(s State, now time.Time) State
	// TrackFailureWhenHalfOpened records a failed probe
	TrackFailureWhenHalfOpened(s State, now time.Time) State
	// TrackSuccessWhenClosed records a successful call while CLOSED
	TrackSuccessWhenClosed(s State, now time.Time) State
	// TrackSuccessWhenHalfOpened records a successful probe
	TrackSuccessWhenHalfOpened(s State, now time.Time) State
}

// DefaultReopenBackoff spaces OPEN → HALF_OPEN probes when a policy is
// built without an explicit backoff: MinDelay 1s scaled by 2^attempt with
// the first trip as attempt 1, so 2s, 4s, 8s, … capped at 30s, no jitter so
// the transition instant stays deterministic.
var DefaultReopenBackoff = backoff.Exponential(backoff.ExponentialOptions{
	MinDelay: backoff.Const(timespan.FromSeconds(1)),
	MaxDelay: backoff.Const(timespan.FromSeconds(30)),
	Jitter:   backoff.Const(0.0),
})

// basePolicy supplies the phase mechanics every tripping policy shares;
// concrete policies embed it and implement only the CLOSED-phase metrics.
type basePolicy struct {
	backoff backoff.Policy
}

func newBasePolicy(pol backoff.Policy) basePolicy {
	if pol == nil {
		pol = DefaultReopenBackoff
	}
	return basePolicy{backoff: pol}
}

// trip builds the OPEN state for a fresh trip or a failed probe
func trip(now time.Time, attempt int) State {
	at := now
	return State{Phase: Open, OpenedAt: &at, Attempt: attempt}
}

func (b basePolicy) IsEqual(a, s State) bool { return a.Equal(s) }

func (b basePolicy) WhenOpened(s State, now time.Time) State {
	if s.OpenedAt == nil {
		return s
	}
	wait := b.backoff(s.Attempt, nil)
	if now.Before(s.OpenedAt.Add(wait.ToDuration())) {
		return s
	}
	return State{Phase: HalfOpen, Attempt: s.Attempt}
}

func (b basePolicy) WhenHalfOpened(s State, _ time.Time) State { return s }

func (b basePolicy) TrackFailureWhenHalfOpened(s State, now time.Time) State {
	return trip(now, s.Attempt+1)
}
