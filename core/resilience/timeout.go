package resilience

import (
	"context"

	"coordex/core/hook"
	"coordex/core/timespan"
)

// TimeoutOptions configures Timeout
type TimeoutOptions struct {
	// WaitTime bounds how long the guarded call may run
	WaitTime timespan.TimeSpan
	// OnTimeout is invoked once, just before the TimeoutResilienceError is
	// returned
	OnTimeout func()
}

type timeoutResult[T any] struct {
	v   T
	err error
}

// Timeout returns a middleware implementing the timeout
// semantics: it derives a child ctx that is canceled after WaitTime, and
// races the wrapped call against it. The underlying call keeps running
// after a timeout fires (its own ctx carries the cancellation, so any call
// that itself respects ctx still unwinds promptly) but this middleware
// stops waiting for it and returns immediately.
func Timeout[T any](opts TimeoutOptions) hook.Middleware[T] {
	return func(ctx context.Context, next hook.Func[T]) (T, error) {
		cause := &TimeoutResilienceError{WaitTime: opts.WaitTime}
		tctx, cancel := context.WithTimeoutCause(ctx, opts.WaitTime.ToDuration(), cause)
		defer cancel()

		resCh := make(chan timeoutResult[T], 1)
		go func() {
			v, err := next(tctx)
			resCh <- timeoutResult[T]{v: v, err: err}
		}()

		select {
		case r := <-resCh:
			return r.v, r.err
		case <-tctx.Done():
			if opts.OnTimeout != nil {
				opts.OnTimeout()
			}
			var zero T
			return zero, cause
		}
	}
}
