// Copyright (C) 2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"sync"
)

// FIFOCache is a thread-safe bounded map that evicts in insertion order.
type FIFOCache[K comparable, V any] struct {
	lk       sync.RWMutex
	cache    map[K]V
	queue    []K
	capacity int
}

// NewFIFOCache creates a new FIFO cache with the given capacity
func NewFIFOCache[K comparable, V any](capacity int) *FIFOCache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &FIFOCache[K, V]{
		cache:    make(map[K]V),
		queue:    make([]K, 0, capacity),
		capacity: capacity,
	}
}

// Put stores val under key. Overwriting a key keeps its original position.
func (c *FIFOCache[K, V]) Put(key K, val V) {
	c.lk.Lock()
	defer c.lk.Unlock()

	if _, exists := c.cache[key]; exists {
		c.cache[key] = val
		return
	}

	// Evict oldest if at capacity
	if len(c.queue) >= c.capacity {
		oldest := c.queue[0]
		c.queue = c.queue[1:]
		delete(c.cache, oldest)
	}

	c.cache[key] = val
	c.queue = append(c.queue, key)
}

// Peek returns the value stored under key.
func (c *FIFOCache[K, V]) Peek(key K) (V, bool) {
	c.lk.RLock()
	defer c.lk.RUnlock()
	val, ok := c.cache[key]
	return val, ok
}

// Recent returns up to n values, newest first.
func (c *FIFOCache[K, V]) Recent(n int) []V {
	c.lk.RLock()
	defer c.lk.RUnlock()
	if n <= 0 || n > len(c.queue) {
		n = len(c.queue)
	}
	out := make([]V, 0, n)
	for i := len(c.queue) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, c.cache[c.queue[i]])
	}
	return out
}

// Len returns the current number of items in the cache
func (c *FIFOCache[K, V]) Len() int {
	c.lk.RLock()
	defer c.lk.RUnlock()
	return len(c.cache)
}
