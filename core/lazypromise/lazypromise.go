// Package lazypromise implements LazyPromise: a deferred
// computation that executes its producing function at most once, on first
// await, memoizing success or failure for every later caller. It is the
// return type of every I/O-producing provider operation in this toolkit so
// that resilience middleware (core/resilience) can wrap the call *before*
// it starts running.
package lazypromise

import (
	"context"
	"sync"

	"coordex/core/hook"
)

// Thunk produces the eventual value. It receives the ctx active when the
// promise is first awaited/deferred
type Thunk[T any] func(ctx context.Context) (T, error)

// LazyPromise wraps a Thunk, running it exactly once across any number of
// Await/Defer calls
type LazyPromise[T any] struct {
	pipeline *hook.Pipeline[T]

	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// New builds a LazyPromise around thunk. Middlewares (retry/timeout/
// hedging/abortable from core/resilience) may be attached at construction
// so they run before the thunk's first execution, not after
func New[T any](thunk Thunk[T], mws ...hook.Middleware[T]) *LazyPromise[T] {
	return &LazyPromise[T]{
		pipeline: hook.New(hook.Func[T](thunk), mws...),
		done:     make(chan struct{}),
	}
}

// start launches the thunk exactly once, regardless of how many goroutines
// call it concurrently
func (p *LazyPromise[T]) start(ctx context.Context) {
	p.once.Do(func() {
		go func() {
			p.value, p.err = p.pipeline.Run(ctx)
			close(p.done)
		}()
	})
}

// Await starts the thunk if not already started, then blocks until it
// completes or ctx is canceled. A canceled Await does not stop the
// underlying execution for other waiters; it only stops waiting for this
// caller, preserving the executes-at-most-once guarantee (the memoized
// outcome is still whatever the thunk itself produces).
func (p *LazyPromise[T]) Await(ctx context.Context) (T, error) {
	p.start(ctx)
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Defer starts execution in the background and discards the eventual
// result; useful for fire-and-forget warm-up or prefetch
func (p *LazyPromise[T]) Defer() {
	p.start(context.Background())
}

// Done reports whether the thunk has finished (successfully or not)
func (p *LazyPromise[T]) Done() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Resolved returns a LazyPromise that is already complete with value v
func Resolved[T any](v T) *LazyPromise[T] {
	p := &LazyPromise[T]{done: make(chan struct{}), value: v}
	close(p.done)
	p.once.Do(func() {})
	return p
}

// Rejected returns a LazyPromise that is already complete with err
func Rejected[T any](err error) *LazyPromise[T] {
	p := &LazyPromise[T]{done: make(chan struct{}), err: err}
	close(p.done)
	p.once.Do(func() {})
	return p
}
