package memory

import (
	"context"
	"sync"
	"time"

	"coordex/core/sharedlock"
	"coordex/internal/platform/clock"
)

type sharedRecord struct {
	writer  *sharedlock.Reader
	readers map[string]*time.Time
}

// SharedLock is the in-memory sharedlock.Adapter
type SharedLock struct {
	mu    sync.Mutex
	rows  map[string]*sharedRecord
	clock clock.Clock
}

// NewSharedLock returns an empty in-memory shared lock backend
func NewSharedLock() *SharedLock { return NewSharedLockWithClock(clock.Real()) }

// NewSharedLockWithClock is NewSharedLock with an injectable clock
func NewSharedLockWithClock(c clock.Clock) *SharedLock {
	return &SharedLock{rows: map[string]*sharedRecord{}, clock: c}
}

func (s *SharedLock) row(key string) *sharedRecord {
	rec, ok := s.rows[key]
	if !ok {
		rec = &sharedRecord{readers: map[string]*time.Time{}}
		s.rows[key] = rec
	}
	return rec
}

// prune drops expired holders so the writer-XOR-readers check sees only
// live leases
func (rec *sharedRecord) prune(now time.Time) {
	if rec.writer != nil && !live(rec.writer.Expiration, now) {
		rec.writer = nil
	}
	for owner, exp := range rec.readers {
		if !live(exp, now) {
			delete(rec.readers, owner)
		}
	}
}

// AcquireWriter succeeds iff no live writer and no live reader holds key
func (s *SharedLock) AcquireWriter(_ context.Context, key, owner string, expiration *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.row(key)
	rec.prune(s.clock.Now())
	if rec.writer != nil || len(rec.readers) > 0 {
		return false, nil
	}
	rec.writer = &sharedlock.Reader{Owner: owner, Expiration: expiration}
	return true, nil
}

// AcquireReader succeeds iff no live writer holds key
func (s *SharedLock) AcquireReader(_ context.Context, key, owner string, expiration *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.row(key)
	rec.prune(s.clock.Now())
	if rec.writer != nil {
		return false, nil
	}
	rec.readers[owner] = expiration
	return true, nil
}

// ReleaseWriter removes the writer iff owner holds that role unexpired
func (s *SharedLock) ReleaseWriter(_ context.Context, key, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.row(key)
	rec.prune(s.clock.Now())
	if rec.writer == nil || rec.writer.Owner != owner {
		return false, nil
	}
	rec.writer = nil
	return true, nil
}

// ReleaseReader removes one reader lease iff owner holds it unexpired
func (s *SharedLock) ReleaseReader(_ context.Context, key, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.row(key)
	rec.prune(s.clock.Now())
	if _, ok := rec.readers[owner]; !ok {
		return false, nil
	}
	delete(rec.readers, owner)
	return true, nil
}

// RefreshWriter extends the writer's expiration iff owner holds it
func (s *SharedLock) RefreshWriter(_ context.Context, key, owner string, expiration *time.Time) (sharedlock.RefreshResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.row(key)
	rec.prune(s.clock.Now())
	if rec.writer == nil || rec.writer.Owner != owner {
		return sharedlock.UnownedRefresh, nil
	}
	if rec.writer.Expiration == nil || expiration == nil {
		return sharedlock.UnexpirableKey, nil
	}
	rec.writer.Expiration = expiration
	return sharedlock.Refreshed, nil
}

// RefreshReader extends one reader's expiration iff owner holds it
func (s *SharedLock) RefreshReader(_ context.Context, key, owner string, expiration *time.Time) (sharedlock.RefreshResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.row(key)
	rec.prune(s.clock.Now())
	cur, ok := rec.readers[owner]
	if !ok {
		return sharedlock.UnownedRefresh, nil
	}
	if cur == nil || expiration == nil {
		return sharedlock.UnexpirableKey, nil
	}
	rec.readers[owner] = expiration
	return sharedlock.Refreshed, nil
}

// ForceRelease clears both roles regardless of ownership
func (s *SharedLock) ForceRelease(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, key)
	return nil
}

// GetState returns the live writer/readers for key
func (s *SharedLock) GetState(_ context.Context, key string) (sharedlock.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rows[key]
	if !ok {
		return sharedlock.State{}, nil
	}
	rec.prune(s.clock.Now())

	var st sharedlock.State
	if rec.writer != nil {
		w := *rec.writer
		st.Writer = &w
	}
	for owner, exp := range rec.readers {
		st.Readers = append(st.Readers, sharedlock.Reader{Owner: owner, Expiration: exp})
	}
	return st, nil
}

var _ sharedlock.Adapter = (*SharedLock)(nil)
