package cache

import "sync"

// Cache is a generic thread-safe cache with a soft entry limit.
// When the cache exceeds its limit, the least recently used quarter of
// entries is evicted.
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*cacheEntry[V]
	softLimit int
	tick      int64 // monotonic access counter

	hits, misses uint64
}

// cacheEntry holds a cached value with its last access tick.
type cacheEntry[V any] struct {
	value V
	atime int64
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the soft limit (0 means unlimited).
	Capacity int
	// Hits and Misses count GetOrCreate and Get lookups.
	Hits, Misses uint64
}

// New creates a new cache with the given soft limit.
// A softLimit of 0 means unlimited.
func New[K comparable, V any](softLimit int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:   make(map[K]*cacheEntry[V]),
		softLimit: softLimit,
	}
}

// Get retrieves a value from the cache.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.tick++
	entry.atime = c.tick
	return entry.value, true
}

// GetOrCreate returns the cached value for key, calling create on a miss.
// create runs under the lock, so concurrent callers never build the same
// value twice.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if entry, ok := c.entries[key]; ok {
		c.hits++
		entry.atime = c.tick
		return entry.value
	}

	c.misses++
	value := create()
	c.entries[key] = &cacheEntry[V]{value: value, atime: c.tick}
	if c.softLimit > 0 && len(c.entries) > c.softLimit {
		c.evictOldest()
	}
	return value
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Len:      len(c.entries),
		Capacity: c.softLimit,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}

// evictOldest drops the least recently used entries until the cache is at
// three quarters of its soft limit. Caller must hold c.mu.
func (c *Cache[K, V]) evictOldest() {
	target := max(c.softLimit*3/4, 1)
	for len(c.entries) > target {
		var (
			oldestKey K
			oldest    int64 = -1
		)
		for key, e := range c.entries {
			if oldest < 0 || e.atime < oldest {
				oldestKey, oldest = key, e.atime
			}
		}
		delete(c.entries, oldestKey)
	}
}
