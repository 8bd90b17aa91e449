package memory

import (
	"context"
	"sync"
	"time"

	"coordex/core/lock"
	"coordex/core/timespan"
	"coordex/internal/platform/clock"
)

// Lock is the in-memory lock.Adapter
type Lock struct {
	mu    sync.Mutex
	rows  map[string]lock.Record
	clock clock.Clock
}

// NewLock returns an empty in-memory lock backend
func NewLock() *Lock { return NewLockWithClock(clock.Real()) }

// NewLockWithClock is NewLock with an injectable clock, for deterministic
// tests
func NewLockWithClock(c clock.Clock) *Lock {
	return &Lock{rows: map[string]lock.Record{}, clock: c}
}

func (l *Lock) expirationOf(ttl *timespan.TimeSpan) *time.Time {
	if ttl == nil {
		return nil
	}
	e := ttl.ToEndDateFrom(l.clock)
	return &e
}

// Acquire takes the lock if the key is absent or its holder has expired
func (l *Lock) Acquire(_ context.Context, key, owner string, ttl *timespan.TimeSpan) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()

	if rec, ok := l.rows[key]; ok && live(rec.Expiration, now) {
		return false, nil
	}
	l.rows[key] = lock.Record{Owner: owner, Expiration: l.expirationOf(ttl)}
	return true, nil
}

// Release removes the key iff owner holds it unexpired; an expired lease
// reads as already released
func (l *Lock) Release(_ context.Context, key, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()

	rec, ok := l.rows[key]
	if !ok || rec.Owner != owner || !live(rec.Expiration, now) {
		return false, nil
	}
	delete(l.rows, key)
	return true, nil
}

// ForceRelease removes the key regardless of ownership
func (l *Lock) ForceRelease(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rows, key)
	return nil
}

// Refresh extends an owned, unexpired key's expiration
func (l *Lock) Refresh(_ context.Context, key, owner string, ttl *timespan.TimeSpan) (lock.RefreshResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()

	rec, ok := l.rows[key]
	if !ok || rec.Owner != owner || !live(rec.Expiration, now) {
		return lock.UnownedRefresh, nil
	}
	if rec.Expiration == nil {
		return lock.UnexpirableKey, nil
	}
	exp := l.expirationOf(ttl)
	if exp == nil {
		return lock.UnexpirableKey, nil
	}
	rec.Expiration = exp
	l.rows[key] = rec
	return lock.Refreshed, nil
}

// Find returns the live record for key, or nil if absent/expired
func (l *Lock) Find(_ context.Context, key string) (*lock.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()

	rec, ok := l.rows[key]
	if !ok || !live(rec.Expiration, now) {
		return nil, nil
	}
	out := rec
	return &out, nil
}

var _ lock.Adapter = (*Lock)(nil)
