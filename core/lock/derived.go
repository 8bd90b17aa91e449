package lock

import (
	"context"
	"errors"
	"time"

	"coordex/core/timespan"
	"coordex/internal/platform/clock"
)

// derived adapts a DatabaseAdapter into the full Adapter contract: Acquire
// tries Insert first and falls back to UpdateIfExpired on conflict,
// expressing the classic `INSERT … ON CONFLICT DO UPDATE WHERE expiration
// <= now()` pattern as two adapter calls instead of relying on driver-specific
// upsert syntax.
type derived struct {
	db    DatabaseAdapter
	clock clock.Clock
}

// Derive builds the full Adapter contract from a simpler DatabaseAdapter
func Derive(db DatabaseAdapter) Adapter {
	return &derived{db: db, clock: clock.Real()}
}

// DeriveWithClock is Derive with an injectable clock, for deterministic tests
func DeriveWithClock(db DatabaseAdapter, c clock.Clock) Adapter {
	return &derived{db: db, clock: c}
}

func (d *derived) Acquire(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) (bool, error) {
	exp := d.expirationOf(ttl)
	err := d.db.Insert(ctx, key, owner, exp)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrRowExists) {
		return d.db.UpdateIfExpired(ctx, key, owner, exp)
	}
	return false, &Error{Op: "acquire", Key: key, Cause: err}
}

func (d *derived) Release(ctx context.Context, key, owner string) (bool, error) {
	ok, err := d.db.RemoveIfOwner(ctx, key, owner)
	if err != nil {
		return false, &Error{Op: "release", Key: key, Cause: err}
	}
	return ok, nil
}

func (d *derived) ForceRelease(ctx context.Context, key string) error {
	if err := d.db.Remove(ctx, key); err != nil {
		return &Error{Op: "forceRelease", Key: key, Cause: err}
	}
	return nil
}

func (d *derived) Refresh(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) (RefreshResult, error) {
	rec, err := d.db.Find(ctx, key)
	if err != nil {
		return 0, &Error{Op: "refresh", Key: key, Cause: err}
	}
	if rec == nil || rec.Owner != owner {
		return UnownedRefresh, nil
	}
	if rec.Expiration == nil {
		return UnexpirableKey, nil
	}
	exp := d.expirationOf(ttl)
	if exp == nil {
		return UnexpirableKey, nil
	}
	ok, err := d.db.UpdateExpirationIfOwner(ctx, key, owner, exp)
	if err != nil {
		return 0, &Error{Op: "refresh", Key: key, Cause: err}
	}
	if !ok {
		return UnownedRefresh, nil
	}
	return Refreshed, nil
}

func (d *derived) Find(ctx context.Context, key string) (*Record, error) {
	rec, err := d.db.Find(ctx, key)
	if err != nil {
		return nil, &Error{Op: "find", Key: key, Cause: err}
	}
	return rec, nil
}

func (d *derived) expirationOf(ttl *timespan.TimeSpan) *time.Time {
	if ttl == nil {
		return nil
	}
	e := ttl.ToEndDateFrom(d.clock)
	return &e
}

var _ Adapter = (*derived)(nil)
