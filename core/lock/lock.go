// Package lock implements a mutually exclusive, owner-scoped,
// refreshable-lease distributed lock over a pluggable adapter.
package lock

import (
	"context"
	"errors"
	"time"

	"coordex/core/timespan"
)

// Record is the persisted state of a lock key: who holds it and when that
// hold expires (nil expiration means "never expires")
type Record struct {
	Owner      string
	Expiration *time.Time
}

// RefreshResult enumerates the outcomes of Refresh
type RefreshResult int

const (
	// Refreshed means the caller owned the lock and its expiration was
	// extended
	Refreshed RefreshResult = iota
	// UnownedRefresh means the caller's owner string did not match the
	// current holder (or the lock had already expired)
	UnownedRefresh
	// UnexpirableKey means the lock exists with no expiration and cannot
	// be refreshed
	UnexpirableKey
)

// String renders the result for logs
func (r RefreshResult) String() string {
	switch r {
	case Refreshed:
		return "REFRESHED"
	case UnownedRefresh:
		return "UNOWNED_REFRESH"
	case UnexpirableKey:
		return "UNEXPIRABLE_KEY"
	default:
		return "UNKNOWN"
	}
}

// ErrRowExists is returned by DatabaseAdapter.Insert when the key is
// already present, signaling the Derived adapter to fall back to
// UpdateIfExpired
var ErrRowExists = errors.New("lock: row already exists")

// Adapter is the full backend contract a Provider drives directly
type Adapter interface {
	// Acquire creates Held{owner,ttl.ToEndDate()} if the key is Absent, or
	// atomically reclaims it if the current holder has expired. Returns
	// false (not an error) on contention with a live holder.
	Acquire(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) (bool, error)
	// Release removes the key iff owner currently holds it unexpired
	Release(ctx context.Context, key, owner string) (bool, error)
	// ForceRelease removes the key regardless of ownership
	ForceRelease(ctx context.Context, key string) error
	// Refresh extends an owned, unexpired key's expiration
	Refresh(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) (RefreshResult, error)
	// Find returns the live record for key, or nil if absent/expired
	Find(ctx context.Context, key string) (*Record, error)
}

// DatabaseAdapter is the simpler CRUD contract a relational/document backend
// implements; Derive wraps one into a full Adapter
type DatabaseAdapter interface {
	// Insert creates the row, returning ErrRowExists if key is already
	// present (expired or not) — the Derived adapter then tries
	// UpdateIfExpired
	Insert(ctx context.Context, key, owner string, expiration *time.Time) error
	// UpdateIfExpired replaces the row's owner/expiration iff the current
	// row is expired; returns false (no error) on live contention
	UpdateIfExpired(ctx context.Context, key, owner string, expiration *time.Time) (bool, error)
	// RemoveIfOwner deletes the row iff owner matches and it is unexpired
	RemoveIfOwner(ctx context.Context, key, owner string) (bool, error)
	// Remove deletes the row unconditionally
	Remove(ctx context.Context, key string) error
	// UpdateExpirationIfOwner updates only the expiration iff owner
	// matches and the row is unexpired
	UpdateExpirationIfOwner(ctx context.Context, key, owner string, expiration *time.Time) (bool, error)
	// Find returns the live record for key, or nil if absent/expired
	Find(ctx context.Context, key string) (*Record, error)
}
