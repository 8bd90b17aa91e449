// Package taxonomy holds the small set of error types shared across every
// coordination primitive — adapter resolution and
// unexpected-backend failures — so core/lock, core/cache, core/sharedlock,
// core/semaphore, and core/circuitbreaker don't each redefine them.
package taxonomy

import "fmt"

// UnexpectedError wraps any adapter-level failure that isn't a modeled
// domain outcome (contention, a miss, …) — a backend outage, a
// serialization mismatch, anything the caller should treat as terminal.
type UnexpectedError struct {
	Component string
	Op        string
	Cause     error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("%s: unexpected error during %s: %v", e.Component, e.Op, e.Cause)
}

// Unwrap exposes Cause to errors.Is/errors.As
func (e *UnexpectedError) Unwrap() error { return e.Cause }

// Wrap builds an UnexpectedError, or returns nil if cause is nil
func Wrap(component, op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &UnexpectedError{Component: component, Op: op, Cause: cause}
}

// DefaultAdapterNotDefinedError is raised when a Provider is constructed
// with a nil adapter and no default adapter is configured
type DefaultAdapterNotDefinedError struct {
	Component string
}

func (e *DefaultAdapterNotDefinedError) Error() string {
	return fmt.Sprintf("%s: no adapter supplied and no default adapter defined", e.Component)
}

// UnregisteredAdapterError is raised when a Provider receives a value that
// satisfies neither the primitive's full adapter contract nor its
// simpler database-CRUD contract
type UnregisteredAdapterError struct {
	Component string
	Adapter   any
}

func (e *UnregisteredAdapterError) Error() string {
	return fmt.Sprintf("%s: value of type %T does not implement a recognized adapter contract", e.Component, e.Adapter)
}
