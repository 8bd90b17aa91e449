package sql

import (
	"context"
	"errors"
	"time"

	"coordex/core/semaphore"
	"coordex/internal/modkit/repokit"

	"github.com/jackc/pgx/v5"
)

// Semaphore implements semaphore.Adapter over Postgres. Acquire runs its
// find+count+insert check in one transaction serialized per key, so the
// slot limit is enforced transactionally.
type Semaphore struct {
	db repokit.TxRunner
}

// NewSemaphore binds a semaphore adapter to db
func NewSemaphore(db repokit.TxRunner) *Semaphore { return &Semaphore{db: db} }

// Acquire creates the key with limit on first use, or adds slotID iff the
// stored limit matches and fewer than limit slots are live
func (s *Semaphore) Acquire(ctx context.Context, key, slotID string, limit int, expiration *time.Time) (bool, error) {
	var acquired bool
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		if err := lockKey(ctx, q, key); err != nil {
			return err
		}

		var stored int
		err := q.QueryRow(ctx,
			`SELECT slot_limit FROM coordex_semaphores WHERE key = $1 LIMIT 1`,
			key).Scan(&stored)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// first slot on this key
		case err != nil:
			return err
		case stored != limit:
			return &semaphore.LimitMismatchError{Key: key, Stored: stored, Requested: limit}
		}

		var held bool
		err = q.QueryRow(ctx,
			`SELECT (expiration IS NULL OR expiration > now())
			   FROM coordex_semaphores WHERE key = $1 AND slot_id = $2`,
			key, slotID).Scan(&held)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if held {
			return nil
		}

		var liveCount int
		if err := q.QueryRow(ctx,
			`SELECT count(*) FROM coordex_semaphores
			  WHERE key = $1 AND (expiration IS NULL OR expiration > now())`,
			key).Scan(&liveCount); err != nil {
			return err
		}
		if liveCount >= limit {
			return nil
		}

		if _, err := q.Exec(ctx,
			`INSERT INTO coordex_semaphores (key, slot_id, slot_limit, expiration)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (key, slot_id) DO UPDATE SET expiration = EXCLUDED.expiration`,
			key, slotID, limit, expiration); err != nil {
			return err
		}
		acquired = true
		return nil
	})
	return acquired, err
}

// Release removes slotID; the key's record disappears with its last row
func (s *Semaphore) Release(ctx context.Context, key, slotID string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM coordex_semaphores WHERE key = $1 AND slot_id = $2`,
		key, slotID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Refresh updates only slotID's expiration
func (s *Semaphore) Refresh(ctx context.Context, key, slotID string, expiration *time.Time) (semaphore.RefreshResult, error) {
	var cur *time.Time
	err := s.db.QueryRow(ctx,
		`SELECT expiration FROM coordex_semaphores
		  WHERE key = $1 AND slot_id = $2 AND (expiration IS NULL OR expiration > now())`,
		key, slotID).Scan(&cur)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return semaphore.UnownedRefresh, nil
		}
		return 0, err
	}
	if cur == nil || expiration == nil {
		return semaphore.UnexpirableKey, nil
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE coordex_semaphores SET expiration = $3
		  WHERE key = $1 AND slot_id = $2 AND (expiration IS NULL OR expiration > now())`,
		key, slotID, expiration)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() != 1 {
		return semaphore.UnownedRefresh, nil
	}
	return semaphore.Refreshed, nil
}

// GetState returns the live limit/slots for key
func (s *Semaphore) GetState(ctx context.Context, key string) (semaphore.State, error) {
	st := semaphore.State{AcquiredSlots: map[string]*time.Time{}}
	rows, err := s.db.Query(ctx,
		`SELECT slot_id, slot_limit, expiration FROM coordex_semaphores
		  WHERE key = $1 AND (expiration IS NULL OR expiration > now())`,
		key)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var slot string
		var exp *time.Time
		if err := rows.Scan(&slot, &st.Limit, &exp); err != nil {
			return st, err
		}
		st.AcquiredSlots[slot] = exp
	}
	return st, rows.Err()
}

var _ semaphore.Adapter = (*Semaphore)(nil)
