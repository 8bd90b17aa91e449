package memory

import (
	"context"
	"sync"

	"coordex/core/circuitbreaker"
)

// CircuitBreaker is the in-memory circuitbreaker.Adapter; the mutex makes
// each AtomicUpdate's read+write atomic
type CircuitBreaker struct {
	mu   sync.Mutex
	rows map[string][]byte
}

// NewCircuitBreaker returns an empty in-memory breaker state backend
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{rows: map[string][]byte{}}
}

// AtomicUpdate applies update to key's current blob under the lock; a nil
// return skips the write
func (c *CircuitBreaker) AtomicUpdate(_ context.Context, key string, update func(cur []byte) ([]byte, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := update(c.rows[key])
	if err != nil {
		return err
	}
	if next != nil {
		c.rows[key] = next
	}
	return nil
}

// Find returns the raw state blob for key, or nil when absent
func (c *CircuitBreaker) Find(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows[key], nil
}

// Remove deletes key's state
func (c *CircuitBreaker) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, key)
	return nil
}

var _ circuitbreaker.Adapter = (*CircuitBreaker)(nil)
