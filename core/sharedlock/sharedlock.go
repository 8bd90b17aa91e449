// Package sharedlock implements a writer-XOR-N-readers lock over a
// pluggable adapter, following the same provider/adapter/derivation shape
// as core/lock.
package sharedlock

import (
	"context"
	"time"
)

// Reader is one live reader's lease
type Reader struct {
	Owner      string
	Expiration *time.Time
}

// State is the live view of a shared lock key: at most one of Writer or a
// non-empty Readers set holds, never both
type State struct {
	Writer  *Reader
	Readers []Reader
}

// RefreshResult enumerates the outcomes of a per-role refresh
type RefreshResult int

const (
	Refreshed RefreshResult = iota
	UnownedRefresh
	UnexpirableKey
)

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

// Adapter is the full backend contract a Provider drives directly
type Adapter interface {
	// AcquireWriter succeeds iff no writer and no live reader holds key
	AcquireWriter(ctx context.Context, key, owner string, expiration *time.Time) (bool, error)
	// AcquireReader succeeds iff no writer holds key; readers coexist
	AcquireReader(ctx context.Context, key, owner string, expiration *time.Time) (bool, error)
	// ReleaseWriter removes the writer iff owner currently holds that role
	ReleaseWriter(ctx context.Context, key, owner string) (bool, error)
	// ReleaseReader removes one reader lease iff owner currently holds it
	ReleaseReader(ctx context.Context, key, owner string) (bool, error)
	// RefreshWriter extends the writer's expiration iff owner holds it
	RefreshWriter(ctx context.Context, key, owner string, expiration *time.Time) (RefreshResult, error)
	// RefreshReader extends one reader's expiration iff owner holds it
	RefreshReader(ctx context.Context, key, owner string, expiration *time.Time) (RefreshResult, error)
	// ForceRelease clears both the writer and every reader, regardless of ownership
	ForceRelease(ctx context.Context, key string) error
	// GetState returns the live writer/readers for key
	GetState(ctx context.Context, key string) (State, error)
}
