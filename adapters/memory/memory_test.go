package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coordex/core/cache"
	"coordex/core/lock"
	"coordex/core/namespace"
	"coordex/core/semaphore"
	"coordex/core/sharedlock"
	"coordex/core/timespan"
)

// stepClock is a hand-advanced clock shared by an adapter and a test
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock { return &stepClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)} }

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func ttl(ms int64) *timespan.TimeSpan {
	t := timespan.FromMilliseconds(ms)
	return &t
}

func (c *stepClock) expIn(ms int64) *time.Time {
	e := c.Now().Add(time.Duration(ms) * time.Millisecond)
	return &e
}

// The expired-lock reclaim scenario: A's 100ms lease lapses, B takes over,
// A's release is rejected
func TestLockExpiredReclaim(t *testing.T) {
	clk := newStepClock()
	p, err := lock.New(lock.Options{Adapter: NewLockWithClock(clk), Namespace: namespace.New("test")})
	if err != nil {
		t.Fatalf("lock.New: %v", err)
	}
	ctx := context.Background()

	if ok, _ := p.Acquire(ctx, "job/7", "A", ttl(100)); !ok {
		t.Fatalf("A failed to acquire a free lock")
	}
	clk.Advance(150 * time.Millisecond)
	if ok, _ := p.Acquire(ctx, "job/7", "B", ttl(1000)); !ok {
		t.Fatalf("B failed to reclaim an expired lock")
	}
	if ok, _ := p.Release(ctx, "job/7", "A"); ok {
		t.Fatalf("A released a lock it no longer holds")
	}
	if ok, _ := p.Release(ctx, "job/7", "B"); !ok {
		t.Fatalf("B failed to release its own lock")
	}
}

func TestLockMutualExclusionAndRefresh(t *testing.T) {
	clk := newStepClock()
	adapter := NewLockWithClock(clk)
	ctx := context.Background()

	if ok, _ := adapter.Acquire(ctx, "k", "A", ttl(500)); !ok {
		t.Fatalf("acquire failed")
	}
	if ok, _ := adapter.Acquire(ctx, "k", "B", ttl(500)); ok {
		t.Fatalf("two live holders for one key")
	}

	if r, _ := adapter.Refresh(ctx, "k", "B", ttl(500)); r != lock.UnownedRefresh {
		t.Fatalf("non-owner refresh = %v", r)
	}
	if r, _ := adapter.Refresh(ctx, "k", "A", ttl(500)); r != lock.Refreshed {
		t.Fatalf("owner refresh = %v", r)
	}

	// refreshed lease outlives the original ttl
	clk.Advance(400 * time.Millisecond)
	rec, _ := adapter.Find(ctx, "k")
	if rec == nil || rec.Owner != "A" {
		t.Fatalf("refreshed lock vanished: %+v", rec)
	}
}

func TestLockUnexpirableRefresh(t *testing.T) {
	adapter := NewLock()
	ctx := context.Background()

	if ok, _ := adapter.Acquire(ctx, "k", "A", nil); !ok {
		t.Fatalf("acquire failed")
	}
	if r, _ := adapter.Refresh(ctx, "k", "A", ttl(500)); r != lock.UnexpirableKey {
		t.Fatalf("refresh of unexpirable key = %v, want UnexpirableKey", r)
	}
}

func TestSharedLockWriterXorReaders(t *testing.T) {
	clk := newStepClock()
	adapter := NewSharedLockWithClock(clk)
	ctx := context.Background()

	if ok, _ := adapter.AcquireReader(ctx, "k", "r1", clk.expIn(1000)); !ok {
		t.Fatalf("first reader rejected")
	}
	if ok, _ := adapter.AcquireReader(ctx, "k", "r2", clk.expIn(1000)); !ok {
		t.Fatalf("readers must coexist")
	}
	if ok, _ := adapter.AcquireWriter(ctx, "k", "w", clk.expIn(1000)); ok {
		t.Fatalf("writer acquired over live readers")
	}

	if ok, _ := adapter.ReleaseReader(ctx, "k", "r1"); !ok {
		t.Fatalf("reader release failed")
	}
	if ok, _ := adapter.ReleaseReader(ctx, "k", "r2"); !ok {
		t.Fatalf("reader release failed")
	}
	if ok, _ := adapter.AcquireWriter(ctx, "k", "w", clk.expIn(1000)); !ok {
		t.Fatalf("writer rejected on a free key")
	}
	if ok, _ := adapter.AcquireReader(ctx, "k", "r3", clk.expIn(1000)); ok {
		t.Fatalf("reader acquired under a live writer")
	}

	st, _ := adapter.GetState(ctx, "k")
	if st.Writer == nil || st.Writer.Owner != "w" || len(st.Readers) != 0 {
		t.Fatalf("state = %+v, want writer w and no readers", st)
	}
}

func TestSharedLockExpiredWriterYields(t *testing.T) {
	clk := newStepClock()
	adapter := NewSharedLockWithClock(clk)
	ctx := context.Background()

	if ok, _ := adapter.AcquireWriter(ctx, "k", "w", clk.expIn(100)); !ok {
		t.Fatalf("writer rejected")
	}
	clk.Advance(150 * time.Millisecond)
	if ok, _ := adapter.AcquireReader(ctx, "k", "r", clk.expIn(1000)); !ok {
		t.Fatalf("reader rejected after writer expired")
	}
}

// The semaphore bound scenario: limit 3, five acquirers, exactly 3 admitted
func TestSemaphoreBound(t *testing.T) {
	clk := newStepClock()
	p, err := semaphore.New(semaphore.Options{Adapter: NewSemaphoreWithClock(clk), Namespace: namespace.New("test")})
	if err != nil {
		t.Fatalf("semaphore.New: %v", err)
	}
	ctx := context.Background()

	slots := []string{"s1", "s2", "s3", "s4", "s5"}
	granted := 0
	for _, slot := range slots {
		ok, err := p.Acquire(ctx, "k", slot, 3, ttl(1000))
		if err != nil {
			t.Fatalf("Acquire(%s): %v", slot, err)
		}
		if ok {
			granted++
		}
	}
	if granted != 3 {
		t.Fatalf("granted %d slots, want 3", granted)
	}

	if ok, _ := p.Release(ctx, "k", "s1"); !ok {
		t.Fatalf("release failed")
	}
	if ok, _ := p.Acquire(ctx, "k", "s4", 3, ttl(1000)); !ok {
		t.Fatalf("freed slot not reusable")
	}
}

func TestSemaphoreLimitMismatch(t *testing.T) {
	adapter := NewSemaphore()
	ctx := context.Background()

	if ok, _ := adapter.Acquire(ctx, "k", "s1", 3, nil); !ok {
		t.Fatalf("acquire failed")
	}
	_, err := adapter.Acquire(ctx, "k", "s2", 5, nil)
	var mismatch *semaphore.LimitMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("got %v, want LimitMismatchError", err)
	}
	if mismatch.Stored != 3 || mismatch.Requested != 5 {
		t.Fatalf("mismatch = %+v", mismatch)
	}
}

func TestSemaphoreExpiredSlotFreesCapacity(t *testing.T) {
	clk := newStepClock()
	adapter := NewSemaphoreWithClock(clk)
	ctx := context.Background()

	if ok, _ := adapter.Acquire(ctx, "k", "s1", 1, clk.expIn(100)); !ok {
		t.Fatalf("acquire failed")
	}
	if ok, _ := adapter.Acquire(ctx, "k", "s2", 1, clk.expIn(1000)); ok {
		t.Fatalf("limit exceeded")
	}
	clk.Advance(150 * time.Millisecond)
	if ok, _ := adapter.Acquire(ctx, "k", "s2", 1, clk.expIn(1000)); !ok {
		t.Fatalf("expired slot still counted against the limit")
	}
}

// The cache TTL and type-check scenario
func TestCacheTTLAndTypeCheck(t *testing.T) {
	clk := newStepClock()
	adapter := NewCache(CacheOptions{Clock: clk})
	ctx := context.Background()

	if ok, _ := adapter.Add(ctx, "n", 1, clk.expIn(1000)); !ok {
		t.Fatalf("add failed")
	}
	if ok, _ := adapter.Increment(ctx, "n", 2); !ok {
		t.Fatalf("increment failed")
	}
	e, _ := adapter.Get(ctx, "n")
	if e == nil || e.Value.(float64) != 3 {
		t.Fatalf("get = %+v, want 3", e)
	}

	clk.Advance(1100 * time.Millisecond)
	if e, _ := adapter.Get(ctx, "n"); e != nil {
		t.Fatalf("expired key still readable: %+v", e)
	}

	if ok, _ := adapter.Add(ctx, "s", "x", nil); !ok {
		t.Fatalf("add failed")
	}
	_, err := adapter.Increment(ctx, "s", 1)
	var typeErr *cache.TypeCacheError
	if !errors.As(err, &typeErr) {
		t.Fatalf("got %v, want TypeCacheError", err)
	}
}

func TestCacheIncrementAbsentKeyReturnsFalse(t *testing.T) {
	adapter := NewCache(CacheOptions{})
	ok, err := adapter.Increment(context.Background(), "missing", 1)
	if err != nil || ok {
		t.Fatalf("got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestCachePutReportsReplacement(t *testing.T) {
	clk := newStepClock()
	adapter := NewCache(CacheOptions{Clock: clk})
	ctx := context.Background()

	if replaced, _ := adapter.Put(ctx, "k", 1, clk.expIn(100)); replaced {
		t.Fatalf("first put reported a replaced entry")
	}
	if replaced, _ := adapter.Put(ctx, "k", 2, clk.expIn(100)); !replaced {
		t.Fatalf("second put did not report the live entry it replaced")
	}
	clk.Advance(150 * time.Millisecond)
	if replaced, _ := adapter.Put(ctx, "k", 3, nil); replaced {
		t.Fatalf("put over an expired entry reported a replacement")
	}
}

func TestCacheGroupsAreIsolated(t *testing.T) {
	p, _ := cache.New(cache.Options{Adapter: NewCache(CacheOptions{}), Namespace: namespace.New("test")})
	ctx := context.Background()

	a := p.WithGroup("a")
	b := p.WithGroup("b")
	if _, err := a.Put(ctx, "k", "va", nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := b.Put(ctx, "k", "vb", nil); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if v, _ := a.Get(ctx, "k"); v != nil {
		t.Fatalf("clear missed group a")
	}
	if v, _ := b.Get(ctx, "k"); v != "vb" {
		t.Fatalf("clear crossed the group boundary: %v", v)
	}
}

func TestCacheSweeperDeletesExpiredRows(t *testing.T) {
	clk := newStepClock()
	adapter := NewCache(CacheOptions{Clock: clk})
	ctx := context.Background()

	_, _ = adapter.Put(ctx, "dead", 1, clk.expIn(50))
	_, _ = adapter.Put(ctx, "alive", 2, nil)
	clk.Advance(100 * time.Millisecond)

	adapter.RemoveExpiredKeys()

	adapter.mu.Lock()
	_, deadStays := adapter.rows["dead"]
	_, aliveStays := adapter.rows["alive"]
	adapter.mu.Unlock()
	if deadStays {
		t.Fatalf("sweeper left an expired row behind")
	}
	if !aliveStays {
		t.Fatalf("sweeper deleted a live row")
	}
}

func TestCacheSweeperLifecycle(t *testing.T) {
	adapter := NewCache(CacheOptions{ExpiredKeysRemovalInterval: timespan.FromMilliseconds(10)})
	adapter.Init()
	ctx := context.Background()

	exp := time.Now().Add(20 * time.Millisecond)
	_, _ = adapter.Put(ctx, "dead", 1, &exp)

	deadline := time.Now().Add(2 * time.Second)
	for {
		adapter.mu.Lock()
		_, stays := adapter.rows["dead"]
		adapter.mu.Unlock()
		if !stays {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sweeper never removed the expired row")
		}
		time.Sleep(10 * time.Millisecond)
	}
	adapter.DeInit()
	// idempotent
	adapter.DeInit()
}

func TestSharedLockProviderOverMemory(t *testing.T) {
	p, err := sharedlock.New(sharedlock.Options{Adapter: NewSharedLock(), Namespace: namespace.New("test")})
	if err != nil {
		t.Fatalf("sharedlock.New: %v", err)
	}
	ctx := context.Background()

	if ok, _ := p.AcquireWriter(ctx, "doc", "w", nil); !ok {
		t.Fatalf("writer rejected")
	}
	if ok, _ := p.AcquireReader(ctx, "doc", "r", nil); ok {
		t.Fatalf("reader acquired under a writer")
	}
	if err := p.ForceRelease(ctx, "doc"); err != nil {
		t.Fatalf("ForceRelease: %v", err)
	}
	if ok, _ := p.AcquireReader(ctx, "doc", "r", nil); !ok {
		t.Fatalf("reader rejected after force release")
	}
}
