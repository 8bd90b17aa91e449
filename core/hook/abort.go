package hook

import "context"

// AbortController pairs a cancelable context (the "signal") with a callable
// Abort, mirroring the JS AbortController/AbortSignal pair. Any middleware
// holding the controller can abort the remaining pipeline; anything holding
// just ctx can observe it via ctx.Done()/context.Cause(ctx).
type AbortController struct {
	cancel context.CancelCauseFunc
}

// NewAbortController derives a cancelable child of parent and returns it
// alongside the controller that can cancel it
func NewAbortController(parent context.Context) (context.Context, *AbortController) {
	ctx, cancel := context.WithCancelCause(parent)
	return ctx, &AbortController{cancel: cancel}
}

// Abort cancels the signal with reason as its Cause
func (a *AbortController) Abort(reason error) { a.cancel(reason) }

// MergeSignals returns a context done as soon as either a or b is done,
// with Cause reflecting whichever fired first. Since context.Context
// already is the argument slot a bound signal would occupy, merging two of
// them propagates cancellation without a separate binder type. The
// returned cancel must be called once the merged context is no longer
// needed, to release the background goroutine.
func MergeSignals(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(a)
	stop := make(chan struct{})
	go func() {
		select {
		case <-b.Done():
			cancel(context.Cause(b))
		case <-ctx.Done():
		case <-stop:
		}
	}()
	return ctx, func() {
		close(stop)
		cancel(nil)
	}
}
