// Package circuitbreaker implements an OPEN/HALF_OPEN/
// CLOSED/ISOLATED state machine driven by three inner services — a
// pluggable tripping Policy, a Storage wrapping an atomic-update adapter,
// and a StateManager dispatching on the current state tag.
package circuitbreaker

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// Phase tags the CircuitBreakerState sum type. The names are
// cross-process stable: they appear verbatim in persisted state blobs.
type Phase string

const (
	Closed   Phase = "CLOSED"
	Open     Phase = "OPEN"
	HalfOpen Phase = "HALF_OPEN"
	Isolated Phase = "ISOLATED"
)

// State is one breaker key's persisted state. Which fields are meaningful
// depends on Phase: CLOSED carries policy-owned Metrics, OPEN carries
// OpenedAt and Attempt, HALF_OPEN carries the Attempt of the OPEN phase it
// probes for, ISOLATED carries nothing.
type State struct {
	Phase Phase `json:"phase"`
	// Metrics is the tripping policy's private bookkeeping for the CLOSED
	// phase; its shape differs per policy (a consecutive-failures counter,
	// a rolling outcome window, time-sampled buckets)
	Metrics json.RawMessage `json:"metrics,omitempty"`
	// OpenedAt is when the breaker last tripped (OPEN only)
	OpenedAt *time.Time `json:"openedAt,omitempty"`
	// Attempt counts OPEN episodes since the last CLOSED, driving the
	// reopen backoff (OPEN and HALF_OPEN)
	Attempt int `json:"attempt,omitempty"`
}

// Equal reports structural equality, including a byte-compare of Metrics
func (s State) Equal(other State) bool {
	if s.Phase != other.Phase || s.Attempt != other.Attempt {
		return false
	}
	if (s.OpenedAt == nil) != (other.OpenedAt == nil) {
		return false
	}
	if s.OpenedAt != nil && !s.OpenedAt.Equal(*other.OpenedAt) {
		return false
	}
	return bytes.Equal(s.Metrics, other.Metrics)
}

// Adapter is the backend contract Storage drives. The read+write inside
// AtomicUpdate must be atomic with respect to concurrent updates of the
// same key (a mutex in memory, SELECT FOR UPDATE in SQL, WATCH/MULTI in
// Redis).
type Adapter interface {
	// AtomicUpdate reads the current raw state blob (nil when absent),
	// applies update, and writes the returned blob. A nil return from
	// update means "unchanged": the adapter must skip the write.
	AtomicUpdate(ctx context.Context, key string, update func(cur []byte) ([]byte, error)) error
	// Find returns the raw state blob for key, or nil when absent
	Find(ctx context.Context, key string) ([]byte, error)
	// Remove deletes key's state
	Remove(ctx context.Context, key string) error
}
