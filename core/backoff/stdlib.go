package backoff

import (
	"time"

	cenkalti "github.com/cenkalti/backoff/v4"
)

// PolicyBackOff adapts a Policy into cenkalti/backoff/v4's BackOff
// interface, so a caller can drive Policy delays through that library's
// loop/ctx helpers (backoff.WithContext, backoff.WithMaxRetries).
// core/resilience.Retry does not use it; it calls the Policy directly.
type PolicyBackOff struct {
	policy  Policy
	attempt int
	lastErr error
}

// NewPolicyBackOff wraps policy as a cenkalti backoff.BackOff
func NewPolicyBackOff(policy Policy) *PolicyBackOff {
	return &PolicyBackOff{policy: policy}
}

// SetError records the error that triggered the next NextBackOff call, so
// error-sensitive policies (built via FromError) see it
func (b *PolicyBackOff) SetError(err error) { b.lastErr = err }

// NextBackOff implements cenkalti/backoff.BackOff
func (b *PolicyBackOff) NextBackOff() time.Duration {
	b.attempt++
	d := b.policy(b.attempt, b.lastErr)
	if d.Milliseconds() < 0 {
		return cenkalti.Stop
	}
	return d.ToDuration()
}

// Reset implements cenkalti/backoff.BackOff, restarting the attempt counter
func (b *PolicyBackOff) Reset() {
	b.attempt = 0
	b.lastErr = nil
}

var _ cenkalti.BackOff = (*PolicyBackOff)(nil)
