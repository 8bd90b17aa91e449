package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"coordex/core/cache"
	"coordex/core/timespan"
	"coordex/internal/platform/clock"
)

// CacheOptions configures NewCache
type CacheOptions struct {
	// ExpiredKeysRemovalInterval enables the background sweeper when
	// positive; correctness never depends on it (reads filter expiration
	// themselves), it only bounds memory held by dead rows
	ExpiredKeysRemovalInterval timespan.TimeSpan
	// Clock overrides the wall clock, for deterministic tests
	Clock clock.Clock
}

// Cache is the in-memory cache.Adapter, with an optional periodic
// expired-key sweep started by Init and stopped by DeInit
type Cache struct {
	mu    sync.Mutex
	rows  map[string]cache.Entry
	clock clock.Clock

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewCache returns an empty in-memory cache backend
func NewCache(opts CacheOptions) *Cache {
	c := opts.Clock
	if c == nil {
		c = clock.Real()
	}
	return &Cache{
		rows:     map[string]cache.Entry{},
		clock:    c,
		interval: opts.ExpiredKeysRemovalInterval.ToDuration(),
	}
}

// Init starts the sweeper when an interval is configured; calling it is
// optional
func (m *Cache) Init() {
	if m.interval <= 0 || m.stop != nil {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		defer close(m.done)
		for {
			select {
			case <-ticker.C:
				m.RemoveExpiredKeys()
			case <-m.stop:
				return
			}
		}
	}()
}

// DeInit stops the sweeper, waiting for an in-flight sweep to finish
func (m *Cache) DeInit() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.stop = nil
	m.done = nil
}

// RemoveExpiredKeys physically deletes every expired row
func (m *Cache) RemoveExpiredKeys() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	for key, e := range m.rows {
		if !live(e.Expiration, now) {
			delete(m.rows, key)
		}
	}
}

// Get returns the live entry for key, or nil if absent/expired
func (m *Cache) Get(_ context.Context, key string) (*cache.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.rows[key]
	if !ok || !live(e.Expiration, m.clock.Now()) {
		return nil, nil
	}
	out := e
	return &out, nil
}

// Add inserts value iff key is absent or expired
func (m *Cache) Add(_ context.Context, key string, value any, expiration *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.rows[key]; ok && live(e.Expiration, m.clock.Now()) {
		return false, nil
	}
	m.rows[key] = cache.Entry{Value: value, Expiration: expiration}
	return true, nil
}

// Update replaces value iff key is live, preserving its expiration
func (m *Cache) Update(_ context.Context, key string, value any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.rows[key]
	if !ok || !live(e.Expiration, m.clock.Now()) {
		return false, nil
	}
	e.Value = value
	m.rows[key] = e
	return true, nil
}

// Put upserts value; returns true iff a previously live entry was replaced
func (m *Cache) Put(_ context.Context, key string, value any, expiration *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.rows[key]
	wasLive := ok && live(prev.Expiration, m.clock.Now())
	m.rows[key] = cache.Entry{Value: value, Expiration: expiration}
	return wasLive, nil
}

// Increment adds delta to a live numeric value; non-numeric values raise
// TypeCacheError, absent/expired keys report false
func (m *Cache) Increment(_ context.Context, key string, delta float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.rows[key]
	if !ok || !live(e.Expiration, m.clock.Now()) {
		return false, nil
	}
	switch v := e.Value.(type) {
	case int:
		e.Value = float64(v) + delta
	case int32:
		e.Value = float64(v) + delta
	case int64:
		e.Value = float64(v) + delta
	case float32:
		e.Value = float64(v) + delta
	case float64:
		e.Value = v + delta
	default:
		return false, &cache.TypeCacheError{Key: key, Value: e.Value}
	}
	m.rows[key] = e
	return true, nil
}

// Remove deletes key iff it holds a live entry
func (m *Cache) Remove(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.rows[key]
	if !ok || !live(e.Expiration, m.clock.Now()) {
		return false, nil
	}
	delete(m.rows, key)
	return true, nil
}

// Clear drops every entry under keyPrefix
func (m *Cache) Clear(_ context.Context, keyPrefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.rows {
		if strings.HasPrefix(key, keyPrefix) {
			delete(m.rows, key)
		}
	}
	return nil
}

var _ cache.Adapter = (*Cache)(nil)
