// Package hook implements an ordered async middleware pipeline: a wrapped
// function `fn(ctx) (T, error)` run through an
// ordered list of middlewares, each able to observe/replace the result,
// short-circuit, or cancel the remaining chain.
//
// Cancellation rides on context.Context: the "signal" *is* the ctx argument
// middlewares receive and pass to `next`, so no separate binder type is
// needed to read or write it. A typed, mutable side-channel (a per-call
// bag, distinct from ctx's immutable values) rides alongside via Bag,
// attached to ctx with WithBag/BagFrom.
package hook

import "context"

// Func is the signature every wrapped operation and every middleware's
// `next` parameter share
type Func[T any] func(ctx context.Context) (T, error)

// Middleware observes or transforms a call to next, the remainder of the
// pipeline (either the next middleware or the wrapped Func)
type Middleware[T any] func(ctx context.Context, next Func[T]) (T, error)

// Pipeline wraps a Func with an ordered chain of Middleware. Middlewares run
// outer-to-inner in array order: Use'd (or constructor-supplied) middleware
// at index 0 is outermost.
type Pipeline[T any] struct {
	fn  Func[T]
	mws []Middleware[T]
}

// New builds a Pipeline around fn with the given middlewares, outermost first
func New[T any](fn Func[T], mws ...Middleware[T]) *Pipeline[T] {
	return &Pipeline[T]{fn: fn, mws: append([]Middleware[T](nil), mws...)}
}

// Use appends another middleware as the new innermost layer (still outside fn)
func (p *Pipeline[T]) Use(mw Middleware[T]) *Pipeline[T] {
	p.mws = append(p.mws, mw)
	return p
}

// Run executes the pipeline: each middleware wraps the next, with p.fn at
// the core
func (p *Pipeline[T]) Run(ctx context.Context) (T, error) {
	next := p.fn
	for i := len(p.mws) - 1; i >= 0; i-- {
		mw := p.mws[i]
		inner := next
		next = func(ctx context.Context) (T, error) { return mw(ctx, inner) }
	}
	return next(ctx)
}
