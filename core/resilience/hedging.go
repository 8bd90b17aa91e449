package resilience

import (
	"context"
	"sync"
	"time"

	"coordex/core/hook"
	"coordex/core/timespan"
)

// HedgingOptions configures Hedging
type HedgingOptions struct {
	// Attempts is the number of staggered parallel calls; default 1 (no
	// hedging)
	Attempts int
	// Delay separates the start of each successive attempt
	Delay timespan.TimeSpan
	// ErrorPolicy decides whether an attempt's failure counts toward the
	// final HedgingResilienceError, or should be surfaced immediately.
	// Default: every failure counts.
	ErrorPolicy ErrorPolicy
}

type hedgeResult[T any] struct {
	v   T
	err error
}

// Hedging returns a middleware implementing the hedging
// semantics: it launches Attempts staggered parallel invocations of next,
// separated by Delay, and resolves with the first success, aborting the
// remaining siblings via ctx cancellation. If every attempt fails, it
// rejects with a HedgingResilienceError carrying every error.
func Hedging[T any](opts HedgingOptions) hook.Middleware[T] {
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}
	errorPolicy := opts.ErrorPolicy
	if errorPolicy == nil {
		errorPolicy = func(error) bool { return true }
	}

	return func(ctx context.Context, next hook.Func[T]) (T, error) {
		siblings, cancel := context.WithCancel(ctx)
		defer cancel()

		resCh := make(chan hedgeResult[T], attempts)
		var wg sync.WaitGroup

		for i := 0; i < attempts; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				if i > 0 {
					timer := time.NewTimer(opts.Delay.ToDuration() * time.Duration(i))
					defer timer.Stop()
					select {
					case <-timer.C:
					case <-siblings.Done():
						return
					}
				}
				v, err := next(siblings)
				select {
				case resCh <- hedgeResult[T]{v: v, err: err}:
				case <-siblings.Done():
				}
			}()
		}

		go func() {
			wg.Wait()
			close(resCh)
		}()

		var errs []error
		var zero T
		for r := range resCh {
			if r.err == nil {
				cancel()
				return r.v, nil
			}
			if !errorPolicy(r.err) {
				cancel()
				return zero, r.err
			}
			errs = append(errs, r.err)
		}
		return zero, &HedgingResilienceError{Errors: errs}
	}
}
