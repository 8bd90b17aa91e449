// Package backoff implements the backoff-policy contract: a pure
// function (attempt, error) → delay, with constant/linear/exponential/
// polynomial variants, all jittered. Policies are pure and reusable; the
// PolicyBackOff shim in stdlib.go adapts one into github.com/cenkalti/backoff/v4's
// BackOff interface for callers that want that library's loop.
// core/resilience.Retry and core/lock's Provider.AcquireBlocking call Policy
// values directly.
package backoff

import (
	"math"
	"math/rand/v2"

	"coordex/core/timespan"
)

// Policy is a pure function mapping the 1-based attempt number and the
// triggering error to a jittered delay
type Policy func(attempt int, err error) timespan.TimeSpan

// Setting is either a constant value or a function of the observed error,
// enabling per-error tuning. The zero value is
// "unset", distinct from an explicitly supplied zero constant.
type Setting[T any] struct {
	constant T
	fn       func(error) T
	set      bool
}

// Const wraps a constant setting value
func Const[T any](v T) Setting[T] { return Setting[T]{constant: v, set: true} }

// FromError wraps a per-error setting function
func FromError[T any](fn func(error) T) Setting[T] { return Setting[T]{fn: fn, set: true} }

// Resolve evaluates the setting for the given error
func (s Setting[T]) Resolve(err error) T {
	if s.fn != nil {
		return s.fn(err)
	}
	return s.constant
}

// IsSet reports whether the setting carries an explicit constant or function
func (s Setting[T]) IsSet() bool { return s.set }

// DefaultJitter is applied by every built-in policy unless overridden
const DefaultJitter = 0.5

// DefaultMultiplier is the exponential policy's default growth base
const DefaultMultiplier = 2.0

// jitter multiplies d by (1 - j*r) for r uniformly drawn from [0,1)
func jitter(d timespan.TimeSpan, j float64) timespan.TimeSpan {
	if j <= 0 {
		return d
	}
	r := rand.Float64()
	factor := 1 - j*r
	return d.Scale(factor)
}

// ConstantOptions configures Constant
type ConstantOptions struct {
	Delay  Setting[timespan.TimeSpan]
	Jitter Setting[float64]
}

// Constant returns a policy that always uses the same nominal delay
func Constant(opts ConstantOptions) Policy {
	return func(_ int, err error) timespan.TimeSpan {
		d := opts.Delay.Resolve(err)
		return jitter(d, resolveJitter(opts.Jitter, err))
	}
}

// LinearOptions configures Linear
type LinearOptions struct {
	MinDelay Setting[timespan.TimeSpan]
	MaxDelay Setting[timespan.TimeSpan]
	Jitter   Setting[float64]
}

// Linear returns a policy computing min(maxDelay, minDelay*attempt)
func Linear(opts LinearOptions) Policy {
	return func(attempt int, err error) timespan.TimeSpan {
		minD := opts.MinDelay.Resolve(err)
		maxD := resolveMaxDelay(opts.MaxDelay, err)
		d := minD.Scale(float64(attempt))
		if maxD.Milliseconds() > 0 {
			d = timespan.Min(d, maxD)
		}
		return jitter(d, resolveJitter(opts.Jitter, err))
	}
}

// ExponentialOptions configures Exponential
type ExponentialOptions struct {
	MinDelay   Setting[timespan.TimeSpan]
	MaxDelay   Setting[timespan.TimeSpan]
	Multiplier Setting[float64]
	Jitter     Setting[float64]
}

// Exponential returns a policy computing min(maxDelay, minDelay*multiplier^attempt)
func Exponential(opts ExponentialOptions) Policy {
	return func(attempt int, err error) timespan.TimeSpan {
		minD := opts.MinDelay.Resolve(err)
		maxD := resolveMaxDelay(opts.MaxDelay, err)
		mult := DefaultMultiplier
		if opts.Multiplier.IsSet() {
			mult = opts.Multiplier.Resolve(err)
		}
		d := minD.Scale(math.Pow(mult, float64(attempt)))
		if maxD.Milliseconds() > 0 {
			d = timespan.Min(d, maxD)
		}
		return jitter(d, resolveJitter(opts.Jitter, err))
	}
}

// PolynomialOptions configures Polynomial
type PolynomialOptions struct {
	MinDelay Setting[timespan.TimeSpan]
	MaxDelay Setting[timespan.TimeSpan]
	Degree   Setting[float64]
	Jitter   Setting[float64]
}

// Polynomial returns a policy computing min(maxDelay, minDelay*attempt^degree)
func Polynomial(opts PolynomialOptions) Policy {
	return func(attempt int, err error) timespan.TimeSpan {
		minD := opts.MinDelay.Resolve(err)
		maxD := resolveMaxDelay(opts.MaxDelay, err)
		degree := 2.0
		if opts.Degree.IsSet() {
			degree = opts.Degree.Resolve(err)
		}
		d := minD.Scale(math.Pow(float64(attempt), degree))
		if maxD.Milliseconds() > 0 {
			d = timespan.Min(d, maxD)
		}
		return jitter(d, resolveJitter(opts.Jitter, err))
	}
}

func resolveJitter(s Setting[float64], err error) float64 {
	if !s.IsSet() {
		return DefaultJitter
	}
	return s.Resolve(err)
}

func resolveMaxDelay(s Setting[timespan.TimeSpan], err error) timespan.TimeSpan {
	return s.Resolve(err)
}
