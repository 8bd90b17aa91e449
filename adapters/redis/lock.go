package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"coordex/core/lock"
	"coordex/core/timespan"
	"coordex/internal/platform/clock"
)

// Lock is the Redis lock.Adapter: the lock row is a string key holding the
// owner, with the lease TTL carried by the key's own expiry, so expired
// leases vanish without a sweeper
type Lock struct {
	client Cmdable
	clock  clock.Clock
}

// NewLock binds a lock adapter to client
func NewLock(client Cmdable) *Lock { return &Lock{client: client, clock: clock.Real()} }

// Acquire takes the lock via SET NX; Redis expiry makes the
// expired-reclaim case indistinguishable from a fresh acquire
func (l *Lock) Acquire(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) (bool, error) {
	var d time.Duration
	if ttl != nil {
		d = ttl.ToDuration()
	}
	return l.client.SetNX(ctx, key, owner, d).Result()
}

// Release removes the key iff owner holds it; GET and DEL run under WATCH
// so a lease that changes hands mid-release is not clobbered
func (l *Lock) Release(ctx context.Context, key, owner string) (bool, error) {
	released := false
	err := withWatch(ctx, l.client, func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return nil
			}
			return err
		}
		if cur != owner {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		released = true
		return nil
	}, key)
	return released, err
}

// ForceRelease removes the key regardless of ownership
func (l *Lock) ForceRelease(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}

// Refresh extends an owned key's expiry
func (l *Lock) Refresh(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) (lock.RefreshResult, error) {
	result := lock.UnownedRefresh
	err := withWatch(ctx, l.client, func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return nil
			}
			return err
		}
		if cur != owner {
			return nil
		}
		pttl, err := tx.PTTL(ctx, key).Result()
		if err != nil {
			return err
		}
		if pttl < 0 || ttl == nil {
			result = lock.UnexpirableKey
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.PExpire(ctx, key, ttl.ToDuration())
			return nil
		})
		if err != nil {
			return err
		}
		result = lock.Refreshed
		return nil
	}, key)
	if err != nil {
		return 0, err
	}
	return result, nil
}

// Find returns the live record for key, or nil if absent
func (l *Lock) Find(ctx context.Context, key string) (*lock.Record, error) {
	owner, err := l.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	pttl, err := l.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return &lock.Record{Owner: owner, Expiration: pttlToExpiration(pttl, l.clock.Now())}, nil
}

var _ lock.Adapter = (*Lock)(nil)
