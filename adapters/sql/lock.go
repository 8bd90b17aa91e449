package sql

import (
	"context"
	"errors"
	"time"

	"coordex/core/lock"
	"coordex/internal/modkit/repokit"
	platformerrors "coordex/internal/platform/errors"

	"github.com/jackc/pgx/v5"
)

// Lock implements lock.DatabaseAdapter over Postgres; wrap it with
// lock.Derive (or hand it to lock.Options.Database) to get the full
// contract
type Lock struct {
	db repokit.TxRunner
}

// NewLock binds a lock adapter to db
func NewLock(db repokit.TxRunner) *Lock { return &Lock{db: db} }

// Insert creates the row, reporting lock.ErrRowExists on a present key so
// the derived adapter falls back to UpdateIfExpired
func (l *Lock) Insert(ctx context.Context, key, owner string, expiration *time.Time) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO coordex_locks (key, owner, expiration) VALUES ($1, $2, $3)`,
		key, owner, expiration)
	if err != nil {
		if platformerrors.IsDuplicateKey(err) {
			return lock.ErrRowExists
		}
		return err
	}
	return nil
}

// UpdateIfExpired replaces the row's owner/expiration iff the stored one
// has expired
func (l *Lock) UpdateIfExpired(ctx context.Context, key, owner string, expiration *time.Time) (bool, error) {
	tag, err := l.db.Exec(ctx,
		`UPDATE coordex_locks
		    SET owner = $2, expiration = $3
		  WHERE key = $1 AND expiration IS NOT NULL AND expiration <= now()`,
		key, owner, expiration)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveIfOwner deletes the row iff owner matches and it is unexpired
func (l *Lock) RemoveIfOwner(ctx context.Context, key, owner string) (bool, error) {
	tag, err := l.db.Exec(ctx,
		`DELETE FROM coordex_locks
		  WHERE key = $1 AND owner = $2
		    AND (expiration IS NULL OR expiration > now())`,
		key, owner)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Remove deletes the row unconditionally
func (l *Lock) Remove(ctx context.Context, key string) error {
	_, err := l.db.Exec(ctx, `DELETE FROM coordex_locks WHERE key = $1`, key)
	return err
}

// UpdateExpirationIfOwner updates only the expiration iff owner matches
// and the row is unexpired
func (l *Lock) UpdateExpirationIfOwner(ctx context.Context, key, owner string, expiration *time.Time) (bool, error) {
	tag, err := l.db.Exec(ctx,
		`UPDATE coordex_locks
		    SET expiration = $3
		  WHERE key = $1 AND owner = $2
		    AND (expiration IS NULL OR expiration > now())`,
		key, owner, expiration)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Find returns the live record for key, or nil if absent/expired
func (l *Lock) Find(ctx context.Context, key string) (*lock.Record, error) {
	var rec lock.Record
	err := l.db.QueryRow(ctx,
		`SELECT owner, expiration FROM coordex_locks
		  WHERE key = $1 AND (expiration IS NULL OR expiration > now())`,
		key).Scan(&rec.Owner, &rec.Expiration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

var _ lock.DatabaseAdapter = (*Lock)(nil)
