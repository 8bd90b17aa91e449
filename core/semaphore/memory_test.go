package semaphore

import (
	"context"
	"sync"
	"time"
)

// memAdapter is an in-memory Adapter test double: the mutex stands in for
// the transaction/row-lock the limit check requires
type memAdapter struct {
	mu   sync.Mutex
	rows map[string]*State
}

func newMemAdapter() *memAdapter { return &memAdapter{rows: map[string]*State{}} }

func liveCount(st *State, now time.Time) int {
	n := 0
	for _, exp := range st.AcquiredSlots {
		if exp == nil || exp.After(now) {
			n++
		}
	}
	return n
}

func (m *memAdapter) Acquire(_ context.Context, key, slotID string, limit int, expiration *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()

	st, ok := m.rows[key]
	if !ok {
		st = &State{Limit: limit, AcquiredSlots: map[string]*time.Time{}}
		m.rows[key] = st
	}
	if st.Limit != limit {
		return false, &LimitMismatchError{Key: key, Stored: st.Limit, Requested: limit}
	}
	if _, held := st.AcquiredSlots[slotID]; held {
		st.AcquiredSlots[slotID] = expiration
		return true, nil
	}
	if liveCount(st, now) >= st.Limit {
		return false, nil
	}
	st.AcquiredSlots[slotID] = expiration
	return true, nil
}

func (m *memAdapter) Release(_ context.Context, key, slotID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.rows[key]
	if !ok {
		return false, nil
	}
	if _, held := st.AcquiredSlots[slotID]; !held {
		return false, nil
	}
	delete(st.AcquiredSlots, slotID)
	if len(st.AcquiredSlots) == 0 {
		delete(m.rows, key)
	}
	return true, nil
}

func (m *memAdapter) Refresh(_ context.Context, key, slotID string, expiration *time.Time) (RefreshResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.rows[key]
	if !ok {
		return UnownedRefresh, nil
	}
	exp, held := st.AcquiredSlots[slotID]
	if !held {
		return UnownedRefresh, nil
	}
	if exp == nil || expiration == nil {
		return UnexpirableKey, nil
	}
	st.AcquiredSlots[slotID] = expiration
	return Refreshed, nil
}

func (m *memAdapter) GetState(_ context.Context, key string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.rows[key]
	if !ok {
		return State{AcquiredSlots: map[string]*time.Time{}}, nil
	}
	cp := State{Limit: st.Limit, AcquiredSlots: map[string]*time.Time{}}
	for k, v := range st.AcquiredSlots {
		cp.AcquiredSlots[k] = v
	}
	return cp, nil
}
