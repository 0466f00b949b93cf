package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	createdAt time.Time
}

// Cache is an in-memory response cache keyed by request. Entries older
// than the TTL are dropped by a background loop. It is safe for concurrent
// use.
type Cache[T any] struct {
	mu         sync.RWMutex
	store      map[string]*entry[T]
	maxEntries int
	ttl        time.Duration
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates a Cache holding at most maxEntries values for at most ttl.
func New[T any](maxEntries int, ttl time.Duration) *Cache[T] {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &Cache[T]{
		store:      make(map[string]*entry[T]),
		maxEntries: maxEntries,
		ttl:        ttl,
		done:       make(chan struct{}),
	}
	go c.cleanupLoop(5 * time.Minute)
	return c
}

// Key derives a cache key from the operation name, the page URL and the
// extra request headers. Header order does not matter.
func Key(op, url string, headers map[string]string) string {
	h := sha256.New()
	h.Write([]byte(op))
	h.Write([]byte("|"))
	h.Write([]byte(url))

	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		h.Write([]byte("|"))
		h.Write([]byte(k))
		h.Write([]byte("="))
		h.Write([]byte(headers[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the value stored under key if it is younger than maxAgeMs
// milliseconds. maxAgeMs <= 0 disables the lookup.
func (c *Cache[T]) Get(key string, maxAgeMs int) (T, bool) {
	var zero T
	if maxAgeMs <= 0 {
		return zero, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}

	age := time.Since(e.createdAt)
	if age > time.Duration(maxAgeMs)*time.Millisecond || age > c.ttl {
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. At capacity an arbitrary entry is evicted.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		// Map iteration order is random.
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry[T]{value: value, createdAt: time.Now()}
}

func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup loop.
func (c *Cache[T]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache[T]) evictExpired(now time.Time) {
	cutoff := now.Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}

func (c *Cache[T]) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.evictExpired(now)
		}
	}
}
