package sql

import (
	"context"
	"errors"
	"time"

	"coordex/core/sharedlock"
	"coordex/internal/modkit/repokit"

	"github.com/jackc/pgx/v5"
)

// SharedLock implements sharedlock.Adapter over Postgres. Acquisition runs
// the role-exclusion check and insert in one transaction serialized per
// key.
type SharedLock struct {
	db repokit.TxRunner
}

// NewSharedLock binds a shared lock adapter to db
func NewSharedLock(db repokit.TxRunner) *SharedLock { return &SharedLock{db: db} }

// AcquireWriter succeeds iff no live writer and no live reader holds key
func (s *SharedLock) AcquireWriter(ctx context.Context, key, owner string, expiration *time.Time) (bool, error) {
	var acquired bool
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		if err := lockKey(ctx, q, key); err != nil {
			return err
		}
		// expired holders are dead weight for the exclusion check
		if _, err := q.Exec(ctx,
			`DELETE FROM coordex_shared_locks
			  WHERE key = $1 AND expiration IS NOT NULL AND expiration <= now()`,
			key); err != nil {
			return err
		}

		var holders int
		if err := q.QueryRow(ctx,
			`SELECT count(*) FROM coordex_shared_locks WHERE key = $1`,
			key).Scan(&holders); err != nil {
			return err
		}
		if holders > 0 {
			return nil
		}

		if _, err := q.Exec(ctx,
			`INSERT INTO coordex_shared_locks (key, role, owner, expiration)
			 VALUES ($1, 'writer', $2, $3)`,
			key, owner, expiration); err != nil {
			return err
		}
		acquired = true
		return nil
	})
	return acquired, err
}

// AcquireReader succeeds iff no live writer holds key; readers coexist
func (s *SharedLock) AcquireReader(ctx context.Context, key, owner string, expiration *time.Time) (bool, error) {
	var acquired bool
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		if err := lockKey(ctx, q, key); err != nil {
			return err
		}

		var writers int
		if err := q.QueryRow(ctx,
			`SELECT count(*) FROM coordex_shared_locks
			  WHERE key = $1 AND role = 'writer'
			    AND (expiration IS NULL OR expiration > now())`,
			key).Scan(&writers); err != nil {
			return err
		}
		if writers > 0 {
			return nil
		}

		if _, err := q.Exec(ctx,
			`INSERT INTO coordex_shared_locks (key, role, owner, expiration)
			 VALUES ($1, 'reader', $2, $3)
			 ON CONFLICT (key, role, owner) DO UPDATE SET expiration = EXCLUDED.expiration`,
			key, owner, expiration); err != nil {
			return err
		}
		acquired = true
		return nil
	})
	return acquired, err
}

func (s *SharedLock) release(ctx context.Context, key, role, owner string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM coordex_shared_locks
		  WHERE key = $1 AND role = $2 AND owner = $3
		    AND (expiration IS NULL OR expiration > now())`,
		key, role, owner)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseWriter removes the writer iff owner currently holds that role
func (s *SharedLock) ReleaseWriter(ctx context.Context, key, owner string) (bool, error) {
	return s.release(ctx, key, "writer", owner)
}

// ReleaseReader removes one reader lease iff owner currently holds it
func (s *SharedLock) ReleaseReader(ctx context.Context, key, owner string) (bool, error) {
	return s.release(ctx, key, "reader", owner)
}

func (s *SharedLock) refresh(ctx context.Context, key, role, owner string, expiration *time.Time) (sharedlock.RefreshResult, error) {
	var cur *time.Time
	err := s.db.QueryRow(ctx,
		`SELECT expiration FROM coordex_shared_locks
		  WHERE key = $1 AND role = $2 AND owner = $3
		    AND (expiration IS NULL OR expiration > now())`,
		key, role, owner).Scan(&cur)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sharedlock.UnownedRefresh, nil
		}
		return 0, err
	}
	if cur == nil || expiration == nil {
		return sharedlock.UnexpirableKey, nil
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE coordex_shared_locks SET expiration = $4
		  WHERE key = $1 AND role = $2 AND owner = $3
		    AND (expiration IS NULL OR expiration > now())`,
		key, role, owner, expiration)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() != 1 {
		return sharedlock.UnownedRefresh, nil
	}
	return sharedlock.Refreshed, nil
}

// RefreshWriter extends the writer's expiration iff owner holds it
func (s *SharedLock) RefreshWriter(ctx context.Context, key, owner string, expiration *time.Time) (sharedlock.RefreshResult, error) {
	return s.refresh(ctx, key, "writer", owner, expiration)
}

// RefreshReader extends one reader's expiration iff owner holds it
func (s *SharedLock) RefreshReader(ctx context.Context, key, owner string, expiration *time.Time) (sharedlock.RefreshResult, error) {
	return s.refresh(ctx, key, "reader", owner, expiration)
}

// ForceRelease clears both roles regardless of ownership
func (s *SharedLock) ForceRelease(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM coordex_shared_locks WHERE key = $1`, key)
	return err
}

// GetState returns the live writer/readers for key
func (s *SharedLock) GetState(ctx context.Context, key string) (sharedlock.State, error) {
	var st sharedlock.State
	rows, err := s.db.Query(ctx,
		`SELECT role, owner, expiration FROM coordex_shared_locks
		  WHERE key = $1 AND (expiration IS NULL OR expiration > now())`,
		key)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		var holder sharedlock.Reader
		if err := rows.Scan(&role, &holder.Owner, &holder.Expiration); err != nil {
			return st, err
		}
		if role == "writer" {
			w := holder
			st.Writer = &w
		} else {
			st.Readers = append(st.Readers, holder)
		}
	}
	return st, rows.Err()
}

var _ sharedlock.Adapter = (*SharedLock)(nil)
