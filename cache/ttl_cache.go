// Copyright (C) 2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type TTLCacheItem[V any] struct {
	value     V
	timestamp time.Time
}

// Cache with per-key TTL tracking and single-flight fetch
type TTLCache[K comparable, V any] struct {
	data    map[K]TTLCacheItem[V]
	ttl     time.Duration
	now     func() time.Time
	lock    sync.RWMutex
	sfGroup singleflight.Group
	// generation advances on every Invalidate and Purge. Fetches are keyed by
	// it, and one started under an older generation is returned to its
	// callers but not stored.
	generation uint64
}

func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		data: make(map[K]TTLCacheItem[V]),
		ttl:  ttl,
		now:  time.Now,
	}
}

// WithClock replaces the time source used for freshness checks.
func (c *TTLCache[K, V]) WithClock(now func() time.Time) *TTLCache[K, V] {
	c.now = now
	return c
}

// Get checks if the cached value is fresh for a given key, otherwise fetches
// the value using fetchFunc. Concurrent fetches for the same key are deduplicated.
// If [invalidate] is true, the value will be cleared from the cache prior to fetching
// This is done explicitly instead of just overwriting the value to prevent other threads from reading the
// already stale value. Any other requests fetching the same data will be deduplicated and get the same return value.
func (c *TTLCache[K, V]) Get(key K, fetchFunc func(K) (V, error), invalidate bool) (V, error) {
	if invalidate {
		c.Invalidate(key)
	} else if value, ok := c.Peek(key); ok {
		return value, nil
	}

	c.lock.RLock()
	generation := c.generation
	c.lock.RUnlock()
	flightKey := fmt.Sprintf("%s/%d", keyToString(key), generation)

	v, err, _ := c.sfGroup.Do(flightKey, func() (interface{}, error) {
		newValue, fetchErr := fetchFunc(key)
		if fetchErr != nil {
			return *new(V), fetchErr
		}

		c.lock.Lock()
		if c.generation == generation {
			c.data[key] = TTLCacheItem[V]{
				value:     newValue,
				timestamp: c.now(),
			}
		}
		c.lock.Unlock()

		return newValue, nil
	})

	if err != nil {
		return *new(V), err
	}

	return v.(V), nil
}

// Peek returns the cached value for key if it is still fresh.
func (c *TTLCache[K, V]) Peek(key K) (V, bool) {
	c.lock.RLock()
	item, exists := c.data[key]
	c.lock.RUnlock()
	if exists && c.now().Sub(item.timestamp) < c.ttl {
		return item.value, true
	}
	return *new(V), false
}

// Invalidate drops key so the next Get fetches it. A fetch already in flight
// for key is not joined by later callers and does not repopulate the cache.
func (c *TTLCache[K, V]) Invalidate(key K) {
	c.lock.Lock()
	c.generation++
	delete(c.data, key)
	c.lock.Unlock()
}

// Purge drops every entry. Fetches in flight do not repopulate the cache.
func (c *TTLCache[K, V]) Purge() {
	c.lock.Lock()
	c.generation++
	clear(c.data)
	c.lock.Unlock()
}

// keyToString is defined to allow for both fmt.Stringer and primitive string types.
func keyToString[K comparable](key K) string {
	if s, ok := any(key).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", key)
}
