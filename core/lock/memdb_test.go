package lock

import (
	"context"
	"sync"
	"time"
)

// memDB is an in-memory DatabaseAdapter test double exercising Derive's
// insert-then-update-if-expired fallback
type memDB struct {
	mu   sync.Mutex
	rows map[string]Record
}

func newMemDB() *memDB { return &memDB{rows: map[string]Record{}} }

func (m *memDB) expired(rec Record, now time.Time) bool {
	return rec.Expiration != nil && !rec.Expiration.After(now)
}

func (m *memDB) Insert(_ context.Context, key, owner string, expiration *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[key]; ok {
		return ErrRowExists
	}
	m.rows[key] = Record{Owner: owner, Expiration: expiration}
	return nil
}

func (m *memDB) UpdateIfExpired(_ context.Context, key, owner string, expiration *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[key]
	if !ok || m.expired(rec, time.Now()) {
		m.rows[key] = Record{Owner: owner, Expiration: expiration}
		return true, nil
	}
	return false, nil
}

func (m *memDB) RemoveIfOwner(_ context.Context, key, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[key]
	if !ok || rec.Owner != owner || m.expired(rec, time.Now()) {
		return false, nil
	}
	delete(m.rows, key)
	return true, nil
}

func (m *memDB) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key)
	return nil
}

func (m *memDB) UpdateExpirationIfOwner(_ context.Context, key, owner string, expiration *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[key]
	if !ok || rec.Owner != owner || m.expired(rec, time.Now()) {
		return false, nil
	}
	rec.Expiration = expiration
	m.rows[key] = rec
	return true, nil
}

func (m *memDB) Find(_ context.Context, key string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[key]
	if !ok || m.expired(rec, time.Now()) {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}
