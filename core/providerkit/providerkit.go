// Package providerkit is the shared substrate every Provider (Lock,
// SharedLock, Semaphore, Cache) is built from: resilience middleware
// attachment and group/key-prefixer composition, so each primitive's
// provider only implements its own domain operations.
package providerkit

import (
	"context"

	"coordex/core/hook"
	"coordex/core/lazypromise"
	"coordex/core/resilience"
)

// Resilience configures the optional middleware every provider operation is
// wrapped with, outer-to-inner in the order listed here: Timeout first
// (bounds the whole retried operation when composed [timeout, retry]) then
// Retry, so a configured timeout bounds the whole retried operation.
// Leave a field nil to skip that middleware.
type Resilience struct {
	Timeout *resilience.TimeoutOptions
	Retry   *resilience.RetryOptions
}

// Attach wraps fn as a LazyPromise with the middleware Resilience describes
func Attach[T any](res Resilience, fn hook.Func[T]) *lazypromise.LazyPromise[T] {
	var mws []hook.Middleware[T]
	if res.Timeout != nil {
		mws = append(mws, resilience.Timeout[T](*res.Timeout))
	}
	if res.Retry != nil {
		mws = append(mws, resilience.Retry[T](*res.Retry))
	}
	return lazypromise.New(lazypromise.Thunk[T](fn), mws...)
}

// Await is sugar for constructing and immediately awaiting a resilient
// operation, for call sites that don't need the deferred-execution benefit
// of a bare LazyPromise
func Await[T any](ctx context.Context, res Resilience, fn hook.Func[T]) (T, error) {
	return Attach(res, fn).Await(ctx)
}
