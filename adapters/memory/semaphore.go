package memory

import (
	"context"
	"sync"
	"time"

	"coordex/core/semaphore"
	"coordex/internal/platform/clock"
)

type semaphoreRecord struct {
	limit int
	slots map[string]*time.Time
}

// Semaphore is the in-memory semaphore.Adapter; the mutex makes the
// find+count+insert check transactional
type Semaphore struct {
	mu    sync.Mutex
	rows  map[string]*semaphoreRecord
	clock clock.Clock
}

// NewSemaphore returns an empty in-memory semaphore backend
func NewSemaphore() *Semaphore { return NewSemaphoreWithClock(clock.Real()) }

// NewSemaphoreWithClock is NewSemaphore with an injectable clock
func NewSemaphoreWithClock(c clock.Clock) *Semaphore {
	return &Semaphore{rows: map[string]*semaphoreRecord{}, clock: c}
}

func (s *Semaphore) liveCount(rec *semaphoreRecord, now time.Time) int {
	n := 0
	for _, exp := range rec.slots {
		if live(exp, now) {
			n++
		}
	}
	return n
}

// Acquire creates the key with limit on first use, or adds slotID iff the
// stored limit matches and fewer than limit slots are live
func (s *Semaphore) Acquire(_ context.Context, key, slotID string, limit int, expiration *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()

	rec, ok := s.rows[key]
	if !ok {
		rec = &semaphoreRecord{limit: limit, slots: map[string]*time.Time{}}
		s.rows[key] = rec
	}
	if rec.limit != limit {
		return false, &semaphore.LimitMismatchError{Key: key, Stored: rec.limit, Requested: limit}
	}
	if exp, held := rec.slots[slotID]; held && live(exp, now) {
		return false, nil
	}
	if s.liveCount(rec, now) >= rec.limit {
		return false, nil
	}
	rec.slots[slotID] = expiration
	return true, nil
}

// Release removes slotID; the record disappears with its last slot
func (s *Semaphore) Release(_ context.Context, key, slotID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rows[key]
	if !ok {
		return false, nil
	}
	if _, held := rec.slots[slotID]; !held {
		return false, nil
	}
	delete(rec.slots, slotID)
	if len(rec.slots) == 0 {
		delete(s.rows, key)
	}
	return true, nil
}

// Refresh updates only slotID's expiration
func (s *Semaphore) Refresh(_ context.Context, key, slotID string, expiration *time.Time) (semaphore.RefreshResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()

	rec, ok := s.rows[key]
	if !ok {
		return semaphore.UnownedRefresh, nil
	}
	cur, held := rec.slots[slotID]
	if !held || !live(cur, now) {
		return semaphore.UnownedRefresh, nil
	}
	if cur == nil || expiration == nil {
		return semaphore.UnexpirableKey, nil
	}
	rec.slots[slotID] = expiration
	return semaphore.Refreshed, nil
}

// GetState returns the live limit/slots for key
func (s *Semaphore) GetState(_ context.Context, key string) (semaphore.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()

	rec, ok := s.rows[key]
	if !ok {
		return semaphore.State{AcquiredSlots: map[string]*time.Time{}}, nil
	}
	st := semaphore.State{Limit: rec.limit, AcquiredSlots: map[string]*time.Time{}}
	for slot, exp := range rec.slots {
		if live(exp, now) {
			st.AcquiredSlots[slot] = exp
		}
	}
	return st, nil
}

var _ semaphore.Adapter = (*Semaphore)(nil)
