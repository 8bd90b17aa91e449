package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"coordex/core/cache"
	"coordex/core/serde"
	"coordex/internal/platform/clock"
)

// Cache is the Redis cache.Adapter. Values pass through a serde.Serializer;
// numbers serialize to bare numeric strings, which keeps INCRBYFLOAT
// applicable for Increment without a separate encoding.
type Cache struct {
	client     Cmdable
	serializer serde.Serializer
	clock      clock.Clock
}

// NewCache binds a cache adapter to client. serializer may be nil,
// defaulting to a fresh Flexible serializer.
func NewCache(client Cmdable, serializer serde.Serializer) *Cache {
	if serializer == nil {
		serializer = serde.NewFlexible()
	}
	return &Cache{client: client, serializer: serializer, clock: clock.Real()}
}

func (c *Cache) encode(value any) (string, error) {
	b, err := c.serializer.Serialize(value)
	return string(b), err
}

func ttlArg(expiration *time.Time, now time.Time) time.Duration {
	d, ok := expirationToTTL(expiration, now)
	if !ok {
		return 0
	}
	return d
}

// Get returns the live entry for key, or nil if absent (expired keys are
// gone from Redis by definition)
func (c *Cache) Get(ctx context.Context, key string) (*cache.Entry, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var entry cache.Entry
	if err := c.serializer.Deserialize(serde.Encoded(raw), &entry.Value); err != nil {
		return nil, err
	}
	pttl, err := c.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	entry.Expiration = pttlToExpiration(pttl, c.clock.Now())
	return &entry, nil
}

// Add inserts value iff key is absent
func (c *Cache) Add(ctx context.Context, key string, value any, expiration *time.Time) (bool, error) {
	raw, err := c.encode(value)
	if err != nil {
		return false, err
	}
	return c.client.SetNX(ctx, key, raw, ttlArg(expiration, c.clock.Now())).Result()
}

// Update replaces value iff key is present, preserving its TTL
func (c *Cache) Update(ctx context.Context, key string, value any) (bool, error) {
	raw, err := c.encode(value)
	if err != nil {
		return false, err
	}
	res, err := c.client.SetArgs(ctx, key, raw, goredis.SetArgs{Mode: "XX", KeepTTL: true}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, err
	}
	return res == "OK", nil
}

// Put upserts value; the GET variant of SET reveals whether a live entry
// was replaced
func (c *Cache) Put(ctx context.Context, key string, value any, expiration *time.Time) (bool, error) {
	raw, err := c.encode(value)
	if err != nil {
		return false, err
	}
	args := goredis.SetArgs{Get: true}
	if d, ok := expirationToTTL(expiration, c.clock.Now()); ok {
		args.TTL = d
	}
	_, err = c.client.SetArgs(ctx, key, raw, args).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Increment adds delta to a live numeric value; the numeric check and the
// INCRBYFLOAT run under WATCH so the type cannot change in between
func (c *Cache) Increment(ctx context.Context, key string, delta float64) (bool, error) {
	incremented := false
	err := withWatch(ctx, c.client, func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return nil
			}
			return err
		}
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			var value any
			if derr := c.serializer.Deserialize(serde.Encoded(raw), &value); derr != nil {
				value = raw
			}
			return &cache.TypeCacheError{Key: key, Value: value}
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.IncrByFloat(ctx, key, delta)
			return nil
		})
		if err != nil {
			return err
		}
		incremented = true
		return nil
	}, key)
	return incremented, err
}

// Remove deletes key iff present
func (c *Cache) Remove(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Clear drops every key under keyPrefix via SCAN, so large groups don't
// block the server the way KEYS would
func (c *Cache) Clear(ctx context.Context, keyPrefix string) error {
	iter := c.client.Scan(ctx, 0, globEscape(keyPrefix)+"*", 256).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 256 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}

// globEscape neutralizes MATCH metacharacters in a literal key prefix
func globEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

var _ cache.Adapter = (*Cache)(nil)
