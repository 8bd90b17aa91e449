package circuitbreaker

import (
	"context"
	"sync"
)

// memAdapter is an in-memory Adapter test double: the mutex stands in for
// the atomic read+write AtomicUpdate requires
type memAdapter struct {
	mu     sync.Mutex
	rows   map[string][]byte
	writes int
}

func newMemAdapter() *memAdapter { return &memAdapter{rows: map[string][]byte{}} }

func (m *memAdapter) AtomicUpdate(_ context.Context, key string, update func(cur []byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := update(m.rows[key])
	if err != nil {
		return err
	}
	if next != nil {
		m.rows[key] = next
		m.writes++
	}
	return nil
}

func (m *memAdapter) Find(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[key], nil
}

func (m *memAdapter) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key)
	return nil
}

var _ Adapter = (*memAdapter)(nil)
