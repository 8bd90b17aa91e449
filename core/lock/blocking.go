package lock

import (
	"context"
	"errors"
	"time"

	"coordex/core/backoff"
	"coordex/core/timespan"
)

// DefaultBlockingBackoff is used when BlockingOptions.Backoff is unset
var DefaultBlockingBackoff = backoff.Constant(backoff.ConstantOptions{
	Delay: backoff.Const(timespan.FromMilliseconds(50)),
})

// BlockingOptions configures AcquireBlocking
type BlockingOptions struct {
	// TTL is passed through to each Acquire attempt; nil never expires
	TTL *timespan.TimeSpan
	// Timeout bounds the total time spent retrying; zero means no deadline
	Timeout timespan.TimeSpan
	// Backoff computes the wait between attempts. Defaults to
	// DefaultBlockingBackoff.
	Backoff backoff.Policy
}

// AcquireBlocking retries Acquire until it succeeds, ctx is canceled, or
// Timeout elapses. It returns
// KeyAlreadyAcquiredLockError on timeout, never a bare (false, nil).
func (p *Provider) AcquireBlocking(ctx context.Context, key, owner string, opts BlockingOptions) error {
	pol := opts.Backoff
	if pol == nil {
		pol = DefaultBlockingBackoff
	}

	if opts.Timeout.Milliseconds() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout.ToDuration())
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		ok, err := p.Acquire(ctx, key, owner, opts.TTL)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		delay := pol(attempt, nil)
		timer := time.NewTimer(delay.ToDuration())
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return &KeyAlreadyAcquiredLockError{Key: key}
			}
			return ctx.Err()
		}
	}
}
