package resilience

import (
	"context"
	"time"

	"coordex/core/backoff"
	"coordex/core/hook"
	"coordex/core/timespan"
)

// DefaultMaxAttempts is used when RetryOptions.MaxAttempts is unset
const DefaultMaxAttempts = 4

// ErrorPolicy decides whether an error should trigger a retry. The default
// policy (nil) retries on any error; production configs should scope it to
// specific infrastructure errors in production use.
type ErrorPolicy func(error) bool

// RetryOptions configures Retry
type RetryOptions struct {
	// MaxAttempts caps total attempts (first try + retries). Default 4.
	MaxAttempts int
	// BackoffPolicy computes the wait before each retry. Required for any
	// meaningful delay; nil means retry immediately.
	BackoffPolicy backoff.Policy
	// ErrorPolicy decides which errors are retried. Default: retry any error.
	ErrorPolicy ErrorPolicy
	// OnRetry is invoked before each wait, with the 1-based attempt number
	// that just failed and the delay about to be taken
	OnRetry func(attempt int, err error, delay timespan.TimeSpan)
	// OnFailure is invoked once, when attempts are exhausted or the error
	// policy rejects further retries
	OnFailure func(err error, attempts int)
}

// Retry returns a middleware implementing the retry semantics:
// on an error matching ErrorPolicy, wait BackoffPolicy(attempt, err) then
// retry, up to MaxAttempts; the final error is wrapped in a ResilienceError
// carrying the full attempt history. Cancellation of ctx short-circuits the
// wait.
func Retry[T any](opts RetryOptions) hook.Middleware[T] {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	errorPolicy := opts.ErrorPolicy
	if errorPolicy == nil {
		errorPolicy = func(error) bool { return true }
	}

	return func(ctx context.Context, next hook.Func[T]) (T, error) {
		var history []error
		var zero T

		for attempt := 1; ; attempt++ {
			v, err := next(ctx)
			if err == nil {
				return v, nil
			}
			history = append(history, err)

			if !errorPolicy(err) || attempt >= maxAttempts {
				if opts.OnFailure != nil {
					opts.OnFailure(err, attempt)
				}
				return zero, &ResilienceError{Op: "retry", Cause: err, Attempts: attempt, History: history}
			}

			delay := timespan.Zero
			if opts.BackoffPolicy != nil {
				delay = opts.BackoffPolicy(attempt, err)
			}
			if opts.OnRetry != nil {
				opts.OnRetry(attempt, err, delay)
			}

			if delay.Milliseconds() <= 0 {
				continue
			}
			timer := time.NewTimer(delay.ToDuration())
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, &AbortError{Reason: context.Cause(ctx)}
			}
		}
	}
}
