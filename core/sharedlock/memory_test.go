package sharedlock

import (
	"context"
	"sync"
	"time"
)

// memAdapter is an in-memory Adapter test double
type memAdapter struct {
	mu   sync.Mutex
	rows map[string]*State
}

func newMemAdapter() *memAdapter { return &memAdapter{rows: map[string]*State{}} }

func live(exp *time.Time, now time.Time) bool { return exp == nil || exp.After(now) }

func (m *memAdapter) state(key string) *State {
	st, ok := m.rows[key]
	if !ok {
		st = &State{}
		m.rows[key] = st
	}
	return st
}

func (m *memAdapter) pruneLocked(key string, now time.Time) {
	st := m.state(key)
	if st.Writer != nil && !live(st.Writer.Expiration, now) {
		st.Writer = nil
	}
	readers := st.Readers[:0]
	for _, r := range st.Readers {
		if live(r.Expiration, now) {
			readers = append(readers, r)
		}
	}
	st.Readers = readers
}

func (m *memAdapter) AcquireWriter(_ context.Context, key, owner string, expiration *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.pruneLocked(key, now)
	st := m.state(key)
	if st.Writer != nil || len(st.Readers) > 0 {
		return false, nil
	}
	st.Writer = &Reader{Owner: owner, Expiration: expiration}
	return true, nil
}

func (m *memAdapter) AcquireReader(_ context.Context, key, owner string, expiration *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.pruneLocked(key, now)
	st := m.state(key)
	if st.Writer != nil {
		return false, nil
	}
	st.Readers = append(st.Readers, Reader{Owner: owner, Expiration: expiration})
	return true, nil
}

func (m *memAdapter) ReleaseWriter(_ context.Context, key, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(key, time.Now())
	st := m.state(key)
	if st.Writer == nil || st.Writer.Owner != owner {
		return false, nil
	}
	st.Writer = nil
	return true, nil
}

func (m *memAdapter) ReleaseReader(_ context.Context, key, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(key, time.Now())
	st := m.state(key)
	for i, r := range st.Readers {
		if r.Owner == owner {
			st.Readers = append(st.Readers[:i], st.Readers[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memAdapter) RefreshWriter(_ context.Context, key, owner string, expiration *time.Time) (RefreshResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(key, time.Now())
	st := m.state(key)
	if st.Writer == nil || st.Writer.Owner != owner {
		return UnownedRefresh, nil
	}
	if st.Writer.Expiration == nil {
		return UnexpirableKey, nil
	}
	if expiration == nil {
		return UnexpirableKey, nil
	}
	st.Writer.Expiration = expiration
	return Refreshed, nil
}

func (m *memAdapter) RefreshReader(_ context.Context, key, owner string, expiration *time.Time) (RefreshResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(key, time.Now())
	st := m.state(key)
	for i, r := range st.Readers {
		if r.Owner == owner {
			if r.Expiration == nil || expiration == nil {
				return UnexpirableKey, nil
			}
			st.Readers[i].Expiration = expiration
			return Refreshed, nil
		}
	}
	return UnownedRefresh, nil
}

func (m *memAdapter) ForceRelease(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key)
	return nil
}

func (m *memAdapter) GetState(_ context.Context, key string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(key, time.Now())
	st := m.state(key)
	cp := State{Readers: append([]Reader(nil), st.Readers...)}
	if st.Writer != nil {
		w := *st.Writer
		cp.Writer = &w
	}
	return cp, nil
}
