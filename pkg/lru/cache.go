// Package lru implements a generic, thread-safe LRU cache with an optional
// eviction callback. All operations except Keys are O(1): a hash map gives
// key lookup, a doubly linked list with sentinel nodes gives eviction order.
package lru

import "sync"

// EvictFunc is called with the evicted key and value when capacity is
// exceeded. It runs while the cache lock is held; it must not call back into
// the cache.
type EvictFunc[K comparable, V any] func(key K, val V)

type entry[K comparable, V any] struct {
	key  K
	val  V
	prev *entry[K, V]
	next *entry[K, V]
}

// Cache is a generic, thread-safe LRU cache.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*entry[K, V]
	head     *entry[K, V] // most recently used (sentinel)
	tail     *entry[K, V] // least recently used (sentinel)
	onEvict  EvictFunc[K, V]
}

// New creates an LRU cache with the given capacity. Panics if capacity < 1.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		panic("lru: capacity must be >= 1")
	}

	head := &entry[K, V]{}
	tail := &entry[K, V]{}
	head.next = tail
	tail.prev = head

	return &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*entry[K, V], capacity),
		head:     head,
		tail:     tail,
	}
}

// OnEvict registers a callback invoked for every capacity eviction.
func (c *Cache[K, V]) OnEvict(fn EvictFunc[K, V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get retrieves a value by key, marking it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}

	c.moveToFront(e)
	return e.val, true
}

// Put inserts or updates a key-value pair, evicting the least recently used
// entry when at capacity.
func (c *Cache[K, V]) Put(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.val = val
		c.moveToFront(e)
		return
	}

	if len(c.items) >= c.capacity {
		victim := c.tail.prev
		c.unlink(victim)
		delete(c.items, victim.key)
		if c.onEvict != nil {
			c.onEvict(victim.key, victim.val)
		}
	}

	e := &entry[K, V]{key: key, val: val}
	c.items[key] = e
	c.pushFront(e)
}

// Delete removes a key. Returns true if the key existed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}

	c.unlink(e)
	delete(c.items, key)
	return true
}

// Peek retrieves a value without updating access order.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.val, true
}

// Len returns the current number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// --- linked list operations (caller must hold lock) ---

func (c *Cache[K, V]) unlink(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}

func (c *Cache[K, V]) pushFront(e *entry[K, V]) {
	e.next = c.head.next
	e.prev = c.head
	c.head.next.prev = e
	c.head.next = e
}

func (c *Cache[K, V]) moveToFront(e *entry[K, V]) {
	c.unlink(e)
	c.pushFront(e)
}
