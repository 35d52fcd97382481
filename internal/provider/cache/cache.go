package cache

import (
	"sync"
	"time"
)

// Entry is a cached value and the time it was stored.
type Entry[V any] struct {
	Key       string
	Value     V
	FetchedAt time.Time
}

// Fresh reports whether the entry is younger than ttl at now.
func (e Entry[V]) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Cache maps composite request keys to the last fetched value.
// Entries are never evicted: a stale entry is ignored by Get and replaced by
// the next Set. Memory grows with the number of distinct keys.
type Cache[V any] struct {
	now func() time.Time

	mu    sync.RWMutex
	items map[string]Entry[V]
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New[V any](opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{now: o.now, items: make(map[string]Entry[V])}
}

// Get returns the entry for key when it is younger than ttl.
func (c *Cache[V]) Get(key string, ttl time.Duration) (Entry[V], bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || !e.Fresh(c.now(), ttl) {
		return Entry[V]{}, false
	}
	return e, true
}

// Peek returns the entry for key regardless of its age.
func (c *Cache[V]) Peek(key string) (Entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	return e, ok
}

// Set stores value under key stamped with the current time, overwriting any
// previous entry.
func (c *Cache[V]) Set(key string, value V) Entry[V] {
	e := Entry[V]{Key: key, Value: value, FetchedAt: c.now()}
	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
	return e
}

// Len returns the number of stored entries, fresh or stale.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Now exposes the cache clock so owners can stamp related data consistently.
func (c *Cache[V]) Now() time.Time { return c.now() }
