// Package redis provides Redis-backed adapters for every coordination
// primitive over go-redis. Compound check-then-write operations use
// optimistic concurrency (WATCH + MULTI/EXEC) instead of server-side
// scripts, retrying a bounded number of times when a concurrent writer
// invalidates the watched keys.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cmdable is the client seam every adapter binds to; both *redis.Client
// and *redis.ClusterClient satisfy it
type Cmdable interface {
	goredis.Cmdable
	Watch(ctx context.Context, fn func(*goredis.Tx) error, keys ...string) error
}

// watchAttempts bounds the optimistic retry loop; past this the contention
// is pathological and surfacing TxFailedErr beats spinning
const watchAttempts = 16

// withWatch runs fn under WATCH on keys, retrying while concurrent writers
// keep invalidating the transaction
func withWatch(ctx context.Context, c Cmdable, fn func(tx *goredis.Tx) error, keys ...string) error {
	var err error
	for range watchAttempts {
		err = c.Watch(ctx, fn, keys...)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	return err
}

// expirationToTTL converts an absolute expiration into the relative TTL
// redis expects; (0, false) means "no expiration"
func expirationToTTL(expiration *time.Time, now time.Time) (time.Duration, bool) {
	if expiration == nil {
		return 0, false
	}
	return expiration.Sub(now), true
}

// pttlToExpiration converts a PTTL reply into an absolute expiration;
// nil for persistent keys (PTTL = -1)
func pttlToExpiration(pttl time.Duration, now time.Time) *time.Time {
	if pttl < 0 {
		return nil
	}
	e := now.Add(pttl)
	return &e
}
