package sql

import (
	"context"
	"errors"

	"coordex/core/circuitbreaker"
	"coordex/internal/modkit/repokit"

	"github.com/jackc/pgx/v5"
)

// CircuitBreaker implements circuitbreaker.Adapter over Postgres. Each
// AtomicUpdate is a transaction serialized per key, so the read-compute-
// write of the state blob never interleaves.
type CircuitBreaker struct {
	db repokit.TxRunner
}

// NewCircuitBreaker binds a breaker state adapter to db
func NewCircuitBreaker(db repokit.TxRunner) *CircuitBreaker {
	return &CircuitBreaker{db: db}
}

// AtomicUpdate applies update to key's current blob inside a transaction;
// a nil return skips the write
func (c *CircuitBreaker) AtomicUpdate(ctx context.Context, key string, update func(cur []byte) ([]byte, error)) error {
	return c.db.Tx(ctx, func(q repokit.Queryer) error {
		if err := lockKey(ctx, q, key); err != nil {
			return err
		}

		var cur []byte
		err := q.QueryRow(ctx,
			`SELECT state FROM coordex_circuit_breakers WHERE key = $1 FOR UPDATE`,
			key).Scan(&cur)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		next, err := update(cur)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		_, err = q.Exec(ctx,
			`INSERT INTO coordex_circuit_breakers (key, state) VALUES ($1, $2)
			 ON CONFLICT (key) DO UPDATE SET state = EXCLUDED.state`,
			key, next)
		return err
	})
}

// Find returns the raw state blob for key, or nil when absent
func (c *CircuitBreaker) Find(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := c.db.QueryRow(ctx,
		`SELECT state FROM coordex_circuit_breakers WHERE key = $1`,
		key).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return blob, nil
}

// Remove deletes key's state
func (c *CircuitBreaker) Remove(ctx context.Context, key string) error {
	_, err := c.db.Exec(ctx, `DELETE FROM coordex_circuit_breakers WHERE key = $1`, key)
	return err
}

var _ circuitbreaker.Adapter = (*CircuitBreaker)(nil)
