// Package cache implements a TTL-scoped key/value store with
// atomic-ish add/update/put/increment, group isolation, and derivation of a
// full Adapter from a simpler DatabaseCacheAdapter CRUD contract.
package cache

import (
	"context"
	"time"
)

// Entry is the persisted state of one cache key
type Entry struct {
	Value      any
	Expiration *time.Time
}

// Adapter is the full backend contract a Provider drives directly, mirroring
// the provider operations 1:1
type Adapter interface {
	// Get returns the live entry for key, or nil if absent/expired
	Get(ctx context.Context, key string) (*Entry, error)
	// Add inserts value iff key is absent (including expired); returns true
	// iff inserted
	Add(ctx context.Context, key string, value any, expiration *time.Time) (bool, error)
	// Update replaces value iff key is present and unexpired, preserving
	// the stored expiration; returns true iff updated
	Update(ctx context.Context, key string, value any) (bool, error)
	// Put upserts value with the given expiration; returns true iff a
	// previously live entry was replaced
	Put(ctx context.Context, key string, value any, expiration *time.Time) (bool, error)
	// Increment adds delta to a numeric stored value iff key is live;
	// returns TypeCacheError if the stored value is not numeric
	Increment(ctx context.Context, key string, delta float64) (bool, error)
	// Remove deletes key iff it holds a live entry; returns true iff removed
	Remove(ctx context.Context, key string) (bool, error)
	// Clear drops every entry under the given key prefix (a provider's group)
	Clear(ctx context.Context, keyPrefix string) error
}

// DatabaseAdapter is the finer-grained CRUD contract a relational/document
// backend implements; Derive wraps one into a full Adapter
type DatabaseAdapter interface {
	// Find returns the raw row for key regardless of expiration (callers
	// filter by expiration themselves)
	Find(ctx context.Context, key string) (*Entry, error)
	// Insert creates the row unconditionally, overwriting any existing one
	Insert(ctx context.Context, key string, value any, expiration *time.Time) error
	// Upsert creates or replaces the row unconditionally
	Upsert(ctx context.Context, key string, value any, expiration *time.Time) error
	// UpdateExpired replaces the row iff the stored one is expired; returns
	// false (no error) if the stored row is live
	UpdateExpired(ctx context.Context, key string, value any, expiration *time.Time) (bool, error)
	// UpdateUnexpired replaces value (preserving expiration) iff the stored
	// row is live
	UpdateUnexpired(ctx context.Context, key string, value any) (bool, error)
	// IncrementUnexpired adds delta to a live, numeric stored value
	IncrementUnexpired(ctx context.Context, key string, delta float64) (bool, error)
	// RemoveExpiredMany deletes every expired row under keyPrefix
	RemoveExpiredMany(ctx context.Context, keyPrefix string) error
	// RemoveUnexpiredMany deletes every live row under keyPrefix
	RemoveUnexpiredMany(ctx context.Context, keyPrefix string) error
	// RemoveAll deletes every row under keyPrefix regardless of expiration
	RemoveAll(ctx context.Context, keyPrefix string) error
	// Remove deletes the single row at key, returning whether one existed
	Remove(ctx context.Context, key string) (bool, error)
}
