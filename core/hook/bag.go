package hook

import (
	"context"
	"sync"
)

// Bag is the user-visible, mutable side-channel middlewares use to pass
// data to each other and to the wrapped function, distinct from the
// immutable key/value store on context.Context itself
type Bag struct {
	mu sync.RWMutex
	m  map[string]any
}

// NewBag returns an empty Bag
func NewBag() *Bag { return &Bag{m: make(map[string]any)} }

// Set stores a value under key
func (b *Bag) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[key] = value
}

// Get retrieves the value stored under key
func (b *Bag) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.m[key]
	return v, ok
}

type bagKey struct{}

// WithBag attaches b to ctx, returning a derived context
func WithBag(ctx context.Context, b *Bag) context.Context {
	return context.WithValue(ctx, bagKey{}, b)
}

// BagFrom returns the Bag attached to ctx, or a fresh empty one if none is
// present
func BagFrom(ctx context.Context) *Bag {
	if b, ok := ctx.Value(bagKey{}).(*Bag); ok && b != nil {
		return b
	}
	return NewBag()
}
