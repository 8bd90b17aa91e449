// Package resilience implements the middleware family retry, timeout,
// hedging, and abortable, composed over core/hook's pipeline, plus the
// cross-process-stable error taxonomy they surface.
package resilience

import (
	"errors"
	"fmt"

	"coordex/core/timespan"
)

// ResilienceError is the base wrapper surfaced when retry exhausts its
// attempts; it preserves the full per-attempt history alongside the final
// cause
type ResilienceError struct {
	Op       string
	Cause    error
	Attempts int
	History  []error
}

func (e *ResilienceError) Error() string {
	return fmt.Sprintf("resilience: %s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Cause)
}

// Unwrap exposes the final attempt's cause to errors.Is/errors.As
func (e *ResilienceError) Unwrap() error { return e.Cause }

// TimeoutResilienceError is raised when a guarded call exceeds its waitTime
type TimeoutResilienceError struct {
	WaitTime timespan.TimeSpan
}

func (e *TimeoutResilienceError) Error() string {
	return fmt.Sprintf("resilience: timed out after %s", e.WaitTime)
}

// HedgingResilienceError is raised when every hedged attempt failed
type HedgingResilienceError struct {
	Errors []error
}

func (e *HedgingResilienceError) Error() string {
	return fmt.Sprintf("resilience: all %d hedged attempts failed", len(e.Errors))
}

// Unwrap exposes the joined set of per-attempt errors to errors.Is/As
func (e *HedgingResilienceError) Unwrap() []error { return e.Errors }

// CapacityFullResilienceError is raised by bounded middleware (e.g. a
// concurrency-limiting hedging pool) when no slot is available
type CapacityFullResilienceError struct {
	Capacity int
}

func (e *CapacityFullResilienceError) Error() string {
	return fmt.Sprintf("resilience: capacity %d exhausted", e.Capacity)
}

// AbortError is raised when a guarded call is canceled via its ambient
// AbortSignal (ctx); Reason is whatever reason the aborting party supplied
type AbortError struct {
	Reason error
}

func (e *AbortError) Error() string {
	if e.Reason == nil {
		return "resilience: aborted"
	}
	return fmt.Sprintf("resilience: aborted: %v", e.Reason)
}

// Unwrap exposes Reason to errors.Is/errors.As
func (e *AbortError) Unwrap() error { return e.Reason }

// IsTimeout reports whether err is (or wraps) a TimeoutResilienceError
func IsTimeout(err error) bool {
	var t *TimeoutResilienceError
	return errors.As(err, &t)
}

// IsAbort reports whether err is (or wraps) an AbortError
func IsAbort(err error) bool {
	var a *AbortError
	return errors.As(err, &a)
}

// IsHedgingExhausted reports whether err is (or wraps) a HedgingResilienceError
func IsHedgingExhausted(err error) bool {
	var h *HedgingResilienceError
	return errors.As(err, &h)
}
