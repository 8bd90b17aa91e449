package sql

import (
	"context"
	"errors"
	"time"

	"coordex/core/cache"
	"coordex/core/serde"
	"coordex/internal/modkit/repokit"

	"github.com/jackc/pgx/v5"
)

// Cache implements cache.DatabaseAdapter over Postgres, persisting values
// through a serde.Serializer; wrap it with cache.Derive (or hand it to
// cache.Options.Database) to get the full contract
type Cache struct {
	db         repokit.TxRunner
	serializer serde.Serializer
}

// NewCache binds a cache adapter to db. serializer may be nil, defaulting
// to a fresh Flexible serializer.
func NewCache(db repokit.TxRunner, serializer serde.Serializer) *Cache {
	if serializer == nil {
		serializer = serde.NewFlexible()
	}
	return &Cache{db: db, serializer: serializer}
}

func (c *Cache) encode(value any) ([]byte, error) {
	b, err := c.serializer.Serialize(value)
	return []byte(b), err
}

// Find returns the raw row for key regardless of expiration
func (c *Cache) Find(ctx context.Context, key string) (*cache.Entry, error) {
	var blob []byte
	var entry cache.Entry
	err := c.db.QueryRow(ctx,
		`SELECT value, expiration FROM coordex_cache WHERE key = $1`,
		key).Scan(&blob, &entry.Expiration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := c.serializer.Deserialize(serde.Encoded(blob), &entry.Value); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Insert creates the row, overwriting any existing one
func (c *Cache) Insert(ctx context.Context, key string, value any, expiration *time.Time) error {
	return c.Upsert(ctx, key, value, expiration)
}

// Upsert creates or replaces the row unconditionally
func (c *Cache) Upsert(ctx context.Context, key string, value any, expiration *time.Time) error {
	blob, err := c.encode(value)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(ctx,
		`INSERT INTO coordex_cache (key, value, expiration) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expiration = EXCLUDED.expiration`,
		key, blob, expiration)
	return err
}

// UpdateExpired replaces the row iff the stored one is expired
func (c *Cache) UpdateExpired(ctx context.Context, key string, value any, expiration *time.Time) (bool, error) {
	blob, err := c.encode(value)
	if err != nil {
		return false, err
	}
	tag, err := c.db.Exec(ctx,
		`UPDATE coordex_cache
		    SET value = $2, expiration = $3
		  WHERE key = $1 AND expiration IS NOT NULL AND expiration <= now()`,
		key, blob, expiration)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateUnexpired replaces value (preserving expiration) iff the stored
// row is live
func (c *Cache) UpdateUnexpired(ctx context.Context, key string, value any) (bool, error) {
	blob, err := c.encode(value)
	if err != nil {
		return false, err
	}
	tag, err := c.db.Exec(ctx,
		`UPDATE coordex_cache
		    SET value = $2
		  WHERE key = $1 AND (expiration IS NULL OR expiration > now())`,
		key, blob)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementUnexpired adds delta to a live numeric value. The
// read-check-write runs in one transaction with the row locked, so
// concurrent increments serialize.
func (c *Cache) IncrementUnexpired(ctx context.Context, key string, delta float64) (bool, error) {
	var updated bool
	err := c.db.Tx(ctx, func(q repokit.Queryer) error {
		var blob []byte
		err := q.QueryRow(ctx,
			`SELECT value FROM coordex_cache
			  WHERE key = $1 AND (expiration IS NULL OR expiration > now())
			  FOR UPDATE`,
			key).Scan(&blob)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}

		var value any
		if err := c.serializer.Deserialize(serde.Encoded(blob), &value); err != nil {
			return err
		}
		num, ok := value.(float64)
		if !ok {
			return &cache.TypeCacheError{Key: key, Value: value}
		}

		next, err := c.encode(num + delta)
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, `UPDATE coordex_cache SET value = $2 WHERE key = $1`, key, next); err != nil {
			return err
		}
		updated = true
		return nil
	})
	return updated, err
}

// RemoveExpiredMany deletes every expired row under keyPrefix
func (c *Cache) RemoveExpiredMany(ctx context.Context, keyPrefix string) error {
	_, err := c.db.Exec(ctx,
		`DELETE FROM coordex_cache
		  WHERE starts_with(key, $1) AND expiration IS NOT NULL AND expiration <= now()`,
		keyPrefix)
	return err
}

// RemoveUnexpiredMany deletes every live row under keyPrefix
func (c *Cache) RemoveUnexpiredMany(ctx context.Context, keyPrefix string) error {
	_, err := c.db.Exec(ctx,
		`DELETE FROM coordex_cache
		  WHERE starts_with(key, $1) AND (expiration IS NULL OR expiration > now())`,
		keyPrefix)
	return err
}

// RemoveAll deletes every row under keyPrefix regardless of expiration
func (c *Cache) RemoveAll(ctx context.Context, keyPrefix string) error {
	_, err := c.db.Exec(ctx, `DELETE FROM coordex_cache WHERE starts_with(key, $1)`, keyPrefix)
	return err
}

// Remove deletes the single row at key, returning whether one existed
func (c *Cache) Remove(ctx context.Context, key string) (bool, error) {
	tag, err := c.db.Exec(ctx, `DELETE FROM coordex_cache WHERE key = $1`, key)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

var _ cache.DatabaseAdapter = (*Cache)(nil)
