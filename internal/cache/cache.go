// Package cache provides a byte-bounded LRU cache. The tile compositor
// keeps display-transformed tiles in it so that panning over already
// adjusted tiles does not re-run the transform.
package cache

import "sync"

// Cache is a thread-safe LRU cache bounded by the total size of its
// values rather than their count.
//
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*node[K, V]
	head    *node[K, V] // most recently used
	tail    *node[K, V]

	sizeOf func(V) int64
	limit  int64
	used   int64

	hits, misses, evictions uint64
}

type node[K comparable, V any] struct {
	key        K
	value      V
	size       int64
	prev, next *node[K, V]
}

// New creates a cache holding at most limit bytes, where sizeOf reports
// the size of a value. A limit of 0 disables caching.
func New[K comparable, V any](limit int64, sizeOf func(V) int64) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*node[K, V]),
		sizeOf:  sizeOf,
		limit:   limit,
	}
}

// Get retrieves a value and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.unlink(n)
	c.pushFront(n)
	return n.value, true
}

// Set stores a value, evicting least recently used entries until the
// cache fits its limit. A value larger than the whole limit is not stored.
func (c *Cache[K, V]) Set(key K, value V) {
	size := c.sizeOf(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.remove(old)
	}
	if size > c.limit {
		return
	}
	for c.used+size > c.limit && c.tail != nil {
		c.remove(c.tail)
		c.evictions++
	}
	n := &node[K, V]{key: key, value: value, size: size}
	c.entries[key] = n
	c.pushFront(n)
	c.used += size
}

// Delete removes an entry and reports whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.entries[key]
	if ok {
		c.remove(n)
	}
	return ok
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*node[K, V])
	c.head, c.tail = nil, nil
	c.used = 0
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Bytes     int64
	Limit     int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Stats returns current statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Len:       len(c.entries),
		Bytes:     c.used,
		Limit:     c.limit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// remove unlinks n and drops it from the index. Caller must hold c.mu.
func (c *Cache[K, V]) remove(n *node[K, V]) {
	c.unlink(n)
	delete(c.entries, n.key)
	c.used -= n.size
}

func (c *Cache[K, V]) pushFront(n *node[K, V]) {
	n.prev, n.next = nil, c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *Cache[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
