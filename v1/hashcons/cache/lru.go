// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/open-policy-agent/hashcons/v1/hashcons"
)

// LRU is a Cache bounded to a fixed number of entries. When full, inserting
// evicts the least recently used entry and releases its key and value.
type LRU[T hashcons.Value[T], V any] struct {
	lru *lru.Cache[hashcons.ID, item[T, V]]
}

// NewLRU returns an empty LRU holding at most size entries.
func NewLRU[T hashcons.Value[T], V any](size int) (*LRU[T, V], error) {
	c, err := lru.NewWithEvict(size, func(_ hashcons.ID, it item[T, V]) {
		it.release()
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &LRU[T, V]{lru: c}, nil
}

// Insert associates v with the entry h refers to, replacing any previous
// value. It reports whether another entry was evicted to make room.
func (c *LRU[T, V]) Insert(h *hashcons.Hc[T], v V) bool {
	return c.InsertWeak(h.Downgrade(), v)
}

// InsertWeak is like Insert but takes ownership of an existing weak handle.
// Passing the weak handle the cache already holds as key only replaces the
// value.
func (c *LRU[T, V]) InsertWeak(w *hashcons.Weak[T], v V) bool {
	// Add replaces in place without running the eviction callback.
	if old, ok := c.lru.Peek(w.ID()); ok && old.key == w {
		old.releaseValue()
		return c.lru.Add(w.ID(), item[T, V]{key: w, value: v})
	}
	c.lru.Remove(w.ID())
	return c.lru.Add(w.ID(), item[T, V]{key: w, value: v})
}

// Get returns the value cached for h and marks it recently used.
func (c *LRU[T, V]) Get(h *hashcons.Hc[T]) (V, bool) {
	it, ok := c.lru.Get(h.ID())
	if !ok || !it.key.Observes(h) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// GetWeak returns the value cached for the entry w observes.
func (c *LRU[T, V]) GetWeak(w *hashcons.Weak[T]) (V, bool) {
	it, ok := c.lru.Get(w.ID())
	if !ok || !it.key.Equal(w) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// Remove drops the entry for h and reports whether one existed.
func (c *LRU[T, V]) Remove(h *hashcons.Hc[T]) bool {
	it, ok := c.lru.Peek(h.ID())
	if !ok || !it.key.Observes(h) {
		return false
	}
	return c.lru.Remove(h.ID())
}

// Len returns the number of entries.
func (c *LRU[T, V]) Len() int {
	return c.lru.Len()
}

// Range calls fn for every entry from oldest to newest until fn returns
// false. It does not change recency.
func (c *LRU[T, V]) Range(fn func(*hashcons.Weak[T], V) bool) {
	for _, id := range c.lru.Keys() {
		it, ok := c.lru.Peek(id)
		if !ok {
			continue
		}
		if !fn(it.key, it.value) {
			return
		}
	}
}

// Collect removes every entry whose key can no longer be upgraded and
// returns how many were removed.
func (c *LRU[T, V]) Collect() int {
	var n int
	for _, id := range c.lru.Keys() {
		it, ok := c.lru.Peek(id)
		if !ok || it.key.Alive() {
			continue
		}
		if c.lru.Remove(id) {
			n++
		}
	}
	return n
}

// Clear removes every entry.
func (c *LRU[T, V]) Clear() {
	c.lru.Purge()
}
