package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"coordex/core/circuitbreaker"
)

// CircuitBreaker is the Redis circuitbreaker.Adapter: the state blob lives
// in a string key, with AtomicUpdate's read-compute-write serialized by
// optimistic WATCH
type CircuitBreaker struct {
	client Cmdable
}

// NewCircuitBreaker binds a breaker state adapter to client
func NewCircuitBreaker(client Cmdable) *CircuitBreaker {
	return &CircuitBreaker{client: client}
}

// AtomicUpdate applies update to key's current blob; a nil return skips the
// write
func (c *CircuitBreaker) AtomicUpdate(ctx context.Context, key string, update func(cur []byte) ([]byte, error)) error {
	return withWatch(ctx, c.client, func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if !errors.Is(err, goredis.Nil) {
				return err
			}
			cur = nil
		}
		next, err := update(cur)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}, key)
}

// Find returns the raw state blob for key, or nil when absent
func (c *CircuitBreaker) Find(ctx context.Context, key string) ([]byte, error) {
	blob, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return blob, nil
}

// Remove deletes key's state
func (c *CircuitBreaker) Remove(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

var _ circuitbreaker.Adapter = (*CircuitBreaker)(nil)
