package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache implements Cache using in-memory storage. It is safe for
// concurrent use.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]Entry
	now   func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *MemoryCache) { m.now = now }
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache(opts ...Option) *MemoryCache {
	m := &MemoryCache{
		items: make(map[string]Entry),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get retrieves a value from the cache.
func (m *MemoryCache) Get(_ context.Context, key string) (any, bool) {
	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || entry.ExpiredAt(m.now()) {
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return entry.Value, true
}

// Set stores a value in the cache with the given TTL.
func (m *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = Entry{
		Value:     value,
		ExpiresAt: m.now().Add(ttl),
	}
}

// Len returns the number of items in the cache (including expired).
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

// Cleanup removes expired entries and reports how many were dropped.
func (m *MemoryCache) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	dropped := 0
	for key, entry := range m.items {
		if entry.ExpiredAt(now) {
			delete(m.items, key)
			dropped++
		}
	}
	return dropped
}

// Stats reports lookup hits and misses since creation.
func (m *MemoryCache) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}

var _ Cache = (*MemoryCache)(nil)
