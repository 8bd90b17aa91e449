package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// memDB is an in-memory DatabaseAdapter test double
type memDB struct {
	mu   sync.Mutex
	rows map[string]Entry
}

func newMemDB() *memDB { return &memDB{rows: map[string]Entry{}} }

func (m *memDB) Find(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[key]
	if !ok {
		return nil, nil
	}
	cp := e
	return &cp, nil
}

func (m *memDB) Insert(_ context.Context, key string, value any, expiration *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key] = Entry{Value: value, Expiration: expiration}
	return nil
}

func (m *memDB) Upsert(_ context.Context, key string, value any, expiration *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key] = Entry{Value: value, Expiration: expiration}
	return nil
}

func (m *memDB) UpdateExpired(_ context.Context, key string, value any, expiration *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[key]
	if ok && isLive(&e, time.Now()) {
		return false, nil
	}
	m.rows[key] = Entry{Value: value, Expiration: expiration}
	return true, nil
}

func (m *memDB) UpdateUnexpired(_ context.Context, key string, value any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[key]
	if !ok || !isLive(&e, time.Now()) {
		return false, nil
	}
	e.Value = value
	m.rows[key] = e
	return true, nil
}

func (m *memDB) IncrementUnexpired(_ context.Context, key string, delta float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[key]
	if !ok || !isLive(&e, time.Now()) {
		return false, nil
	}
	switch v := e.Value.(type) {
	case int:
		e.Value = float64(v) + delta
	case float64:
		e.Value = v + delta
	default:
		return false, fmt.Errorf("non-numeric stored value %T", e.Value)
	}
	m.rows[key] = e
	return true, nil
}

func (m *memDB) RemoveExpiredMany(_ context.Context, keyPrefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.rows {
		if strings.HasPrefix(k, keyPrefix) && !isLive(&e, time.Now()) {
			delete(m.rows, k)
		}
	}
	return nil
}

func (m *memDB) RemoveUnexpiredMany(_ context.Context, keyPrefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.rows {
		if strings.HasPrefix(k, keyPrefix) && isLive(&e, time.Now()) {
			delete(m.rows, k)
		}
	}
	return nil
}

func (m *memDB) RemoveAll(_ context.Context, keyPrefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.rows {
		if strings.HasPrefix(k, keyPrefix) {
			delete(m.rows, k)
		}
	}
	return nil
}

func (m *memDB) Remove(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[key]; !ok {
		return false, nil
	}
	delete(m.rows, key)
	return true, nil
}
