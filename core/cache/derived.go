package cache

import (
	"context"
	"time"
)

// derived adapts a DatabaseAdapter into the full Adapter contract by
// composing Find with the appropriate conditional write
type derived struct {
	db DatabaseAdapter
}

// Derive builds the full Adapter contract from a simpler DatabaseAdapter
func Derive(db DatabaseAdapter) Adapter {
	return &derived{db: db}
}

func isLive(e *Entry, now time.Time) bool {
	return e != nil && (e.Expiration == nil || e.Expiration.After(now))
}

func (d *derived) Get(ctx context.Context, key string) (*Entry, error) {
	e, err := d.db.Find(ctx, key)
	if err != nil {
		return nil, &Error{Op: "get", Key: key, Cause: err}
	}
	if !isLive(e, time.Now()) {
		return nil, nil
	}
	return e, nil
}

func (d *derived) Add(ctx context.Context, key string, value any, expiration *time.Time) (bool, error) {
	cur, err := d.db.Find(ctx, key)
	if err != nil {
		return false, &Error{Op: "add", Key: key, Cause: err}
	}
	if isLive(cur, time.Now()) {
		return false, nil
	}
	if err := d.db.Upsert(ctx, key, value, expiration); err != nil {
		return false, &Error{Op: "add", Key: key, Cause: err}
	}
	return true, nil
}

func (d *derived) Update(ctx context.Context, key string, value any) (bool, error) {
	ok, err := d.db.UpdateUnexpired(ctx, key, value)
	if err != nil {
		return false, &Error{Op: "update", Key: key, Cause: err}
	}
	return ok, nil
}

func (d *derived) Put(ctx context.Context, key string, value any, expiration *time.Time) (bool, error) {
	cur, err := d.db.Find(ctx, key)
	if err != nil {
		return false, &Error{Op: "put", Key: key, Cause: err}
	}
	wasLive := isLive(cur, time.Now())
	if err := d.db.Upsert(ctx, key, value, expiration); err != nil {
		return false, &Error{Op: "put", Key: key, Cause: err}
	}
	return wasLive, nil
}

func (d *derived) Increment(ctx context.Context, key string, delta float64) (bool, error) {
	cur, err := d.db.Find(ctx, key)
	if err != nil {
		return false, &Error{Op: "increment", Key: key, Cause: err}
	}
	if !isLive(cur, time.Now()) {
		return false, nil
	}
	switch cur.Value.(type) {
	case int, int32, int64, float32, float64:
	default:
		return false, &TypeCacheError{Key: key, Value: cur.Value}
	}
	ok, err := d.db.IncrementUnexpired(ctx, key, delta)
	if err != nil {
		return false, &Error{Op: "increment", Key: key, Cause: err}
	}
	return ok, nil
}

func (d *derived) Remove(ctx context.Context, key string) (bool, error) {
	cur, err := d.db.Find(ctx, key)
	if err != nil {
		return false, &Error{Op: "remove", Key: key, Cause: err}
	}
	if !isLive(cur, time.Now()) {
		return false, nil
	}
	ok, err := d.db.Remove(ctx, key)
	if err != nil {
		return false, &Error{Op: "remove", Key: key, Cause: err}
	}
	return ok, nil
}

func (d *derived) Clear(ctx context.Context, keyPrefix string) error {
	if err := d.db.RemoveAll(ctx, keyPrefix); err != nil {
		return &Error{Op: "clear", Key: keyPrefix, Cause: err}
	}
	return nil
}

var _ Adapter = (*derived)(nil)
