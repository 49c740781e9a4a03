// Package lru provides a generic LRU map with an optional entry limit and an
// eviction callback. A zero limit keeps every entry.
//
// Cache is not safe for concurrent use; callers that share one across
// goroutines must serialize access.
package lru

// entry is a doubly-linked list node holding a key-value pair.
type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

// Cache is a generic LRU cache.
type Cache[K comparable, V any] struct {
	entries map[K]*entry[K, V]
	head    *entry[K, V] // Most recently used.
	tail    *entry[K, V] // Least recently used.

	maxEntries int
	onEvict    func(K, V)

	hits      int64
	misses    int64
	evictions int64
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithMaxEntries sets the maximum number of entries. Zero or negative means
// unbounded.
func WithMaxEntries[K comparable, V any](n int) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.maxEntries = max(n, 0)
	}
}

// WithOnEvict registers a callback invoked for entries dropped by the entry
// limit. Remove and Clear do not invoke it.
func WithOnEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// New creates a new LRU cache.
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		entries: make(map[K]*entry[K, V]),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	return len(c.entries)
}

// MaxEntries returns the entry limit, 0 when unbounded.
func (c *Cache[K, V]) MaxEntries() int {
	return c.maxEntries
}
