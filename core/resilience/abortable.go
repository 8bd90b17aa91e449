package resilience

import (
	"context"

	"coordex/core/hook"
)

type abortableResult[T any] struct {
	v   T
	err error
}

// Abortable races the wrapped call against an external signal (ctx),
// returning an AbortError carrying the signal's cause the instant it fires.
// Unlike Timeout, the signal here is caller-supplied rather than derived
// from a fixed wait budget — typically another ctx whose cancellation means
// "I no longer want this result" (e.g. an HTTP request context).
func Abortable[T any](signal context.Context) hook.Middleware[T] {
	return func(ctx context.Context, next hook.Func[T]) (T, error) {
		merged, cancel := hook.MergeSignals(ctx, signal)
		defer cancel()

		resCh := make(chan abortableResult[T], 1)
		go func() {
			v, err := next(merged)
			resCh <- abortableResult[T]{v: v, err: err}
		}()

		select {
		case r := <-resCh:
			return r.v, r.err
		case <-merged.Done():
			var zero T
			return zero, &AbortError{Reason: context.Cause(merged)}
		}
	}
}
