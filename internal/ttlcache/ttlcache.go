// Package ttlcache holds values for a fixed time after they were stored.
package ttlcache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value   T
	expires time.Time
}

// Cache is safe for concurrent use. A non-positive ttl disables it: Put is
// dropped and Get always misses.
type Cache[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	items map[string]entry[T]
}

func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]entry[T]),
	}
}

// WithNowFunc replaces the clock, for tests.
func (c *Cache[T]) WithNowFunc(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get returns the value stored under key while it is still live.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	if c.ttl <= 0 {
		return zero, false
	}

	c.mu.RLock()
	e, ok := c.items[key]
	live := ok && c.now().Before(e.expires)
	c.mu.RUnlock()
	if !live {
		return zero, false
	}
	return e.value, true
}

// Put stores value under key and drops whatever has already expired.
func (c *Cache[T]) Put(key string, value T) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.items {
		if !now.Before(e.expires) {
			delete(c.items, k)
		}
	}
	c.items[key] = entry[T]{value: value, expires: now.Add(c.ttl)}
}

func (c *Cache[T]) Forget(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len counts stored entries, expired ones included until the next Put.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
