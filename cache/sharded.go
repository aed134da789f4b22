// Package cache provides the concurrency-safe cache used for derived
// region geometry.
//
// ShardedCache spreads keys over 16 independently locked shards, each with
// its own LRU list and hard capacity. Values are computed outside the
// shard lock: two goroutines missing on the same key may both compute, and
// the last one to finish wins. That is only correct for pure,
// deterministic computations, which is what the renderer caches
// (simplified or cropped geometry of immutable regions).
package cache

import (
	"sync"
	"sync/atomic"
)

const (
	// DefaultShardCount is the number of shards for reduced lock contention.
	// Must be a power of 2 for fast modulo via bitwise AND.
	DefaultShardCount = 16

	// DefaultCapacity is the default maximum entries per shard.
	DefaultCapacity = 1024

	shardMask = DefaultShardCount - 1
)

// Hasher computes a hash for a key. Used for shard selection.
type Hasher[K any] func(K) uint64

// Uint64Hasher mixes a uint64 key with the splitmix64 finalizer so that
// sequential IDs spread evenly across shards.
func Uint64Hasher(u uint64) uint64 {
	u ^= u >> 30
	u *= 0xbf58476d1ce4e5b9
	u ^= u >> 27
	u *= 0x94d049bb133111eb
	u ^= u >> 31
	return u
}

// ShardedCache is a thread-safe, sharded LRU cache.
type ShardedCache[K comparable, V any] struct {
	shards   [DefaultShardCount]*shard[K, V]
	hasher   Hasher[K]
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	// onEvict, if set, is called for entries dropped by capacity pressure.
	// It runs with the shard lock held and must not call back into the cache.
	onEvict func(K, V)
}

// shard holds its entries in a map and, for recency, in a circular list
// threaded through the entries themselves. root is the list sentinel:
// root.next is the most recently used entry, root.prev the least.
type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[K, V]
	root    entry[K, V]
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	prev, next *entry[K, V]
}

func newShard[K comparable, V any]() *shard[K, V] {
	s := &shard[K, V]{entries: make(map[K]*entry[K, V])}
	s.reset()
	return s
}

func (s *shard[K, V]) reset() {
	s.root.prev, s.root.next = &s.root, &s.root
}

func (s *shard[K, V]) pushFront(e *entry[K, V]) {
	e.prev, e.next = &s.root, s.root.next
	s.root.next.prev = e
	s.root.next = e
}

func (s *shard[K, V]) unlink(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
}

func (s *shard[K, V]) touch(e *entry[K, V]) {
	if s.root.next == e {
		return
	}
	s.unlink(e)
	s.pushFront(e)
}

// remove drops e from both the list and the map.
func (s *shard[K, V]) remove(e *entry[K, V]) {
	s.unlink(e)
	delete(s.entries, e.key)
}

// NewSharded creates a cache holding at most capacity entries per shard.
// If capacity <= 0, DefaultCapacity is used.
func NewSharded[K comparable, V any](capacity int, hasher Hasher[K]) *ShardedCache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &ShardedCache[K, V]{
		hasher:   hasher,
		capacity: capacity,
	}
	for i := range c.shards {
		c.shards[i] = newShard[K, V]()
	}
	return c
}

// OnEvict registers a callback for capacity evictions. It must be set
// before the cache is shared between goroutines.
func (c *ShardedCache[K, V]) OnEvict(fn func(K, V)) {
	c.onEvict = fn
}

func (c *ShardedCache[K, V]) shardFor(key K) *shard[K, V] {
	return c.shards[c.hasher(key)&shardMask]
}

// Get retrieves a cached value and marks it most recently used.
func (c *ShardedCache[K, V]) Get(key K) (V, bool) {
	s := c.shardFor(key)

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.touch(e)
	v := e.value
	s.mu.Unlock()

	c.hits.Add(1)
	return v, true
}

// Peek retrieves a cached value without touching LRU order or statistics.
func (c *ShardedCache[K, V]) Peek(key K) (V, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[key]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Set stores a value, replacing any existing one, and evicts the least
// recently used entries of the shard if it is over capacity.
func (c *ShardedCache[K, V]) Set(key K, value V) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.setLocked(s, key, value)
}

func (c *ShardedCache[K, V]) setLocked(s *shard[K, V], key K, value V) {
	if e, ok := s.entries[key]; ok {
		e.value = value
		s.touch(e)
		return
	}
	for len(s.entries) >= c.capacity {
		oldest := s.root.prev
		s.remove(oldest)
		c.evictions.Add(1)
		if c.onEvict != nil {
			c.onEvict(oldest.key, oldest.value)
		}
	}
	e := &entry[K, V]{key: key, value: value}
	s.entries[key] = e
	s.pushFront(e)
}

// GetOrCompute returns the cached value for key, or calls compute and
// stores its result. compute runs without any lock held; concurrent
// callers missing on the same key may each compute, and the last result
// stored wins. The second result reports whether the value was cached.
func (c *ShardedCache[K, V]) GetOrCompute(key K, compute func() V) (V, bool) {
	if v, ok := c.Get(key); ok {
		return v, true
	}
	v := compute()
	c.Set(key, v)
	return v, false
}

// Delete removes an entry. It reports whether the key was present.
func (c *ShardedCache[K, V]) Delete(key K) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	s.remove(e)
	return true
}

// DeleteFunc removes every entry for which del returns true and returns
// how many were removed.
func (c *ShardedCache[K, V]) DeleteFunc(del func(K, V) bool) int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if del(k, e.value) {
				s.remove(e)
				n++
			}
		}
		s.mu.Unlock()
	}
	return n
}

// Clear removes all entries.
func (c *ShardedCache[K, V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		clear(s.entries)
		s.reset()
		s.mu.Unlock()
	}
}

// Len returns the total number of entries across all shards.
func (c *ShardedCache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

// Capacity returns the per-shard capacity.
func (c *ShardedCache[K, V]) Capacity() int {
	return c.capacity
}

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Capacity  int // per shard
	Hits      uint64
	Misses    uint64
	HitRate   float64
	Evictions uint64
}

// Stats returns current cache statistics.
func (c *ShardedCache[K, V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{
		Len:       c.Len(),
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate,
		Evictions: c.evictions.Load(),
	}
}

// ResetStats resets all statistics counters to zero.
func (c *ShardedCache[K, V]) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}
