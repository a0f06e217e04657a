// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package cache provides side tables keyed by the identity of interned values.
//
// A cache holds weak handles to its keys, so caching a result never keeps the
// key resident. Entries whose keys have been reclaimed are dropped by Collect.
// Keys are matched by entry identity, never structurally, and a cache must
// only be used with handles from a single Scope.
package cache

import (
	"github.com/open-policy-agent/hashcons/v1/hashcons"
)

type item[T hashcons.Value[T], V any] struct {
	key   *hashcons.Weak[T]
	value V
}

// release gives up the key and, if it owns handles, the value.
func (it item[T, V]) release() {
	it.key.Release()
	it.releaseValue()
}

func (it item[T, V]) releaseValue() {
	if r, ok := any(it.value).(hashcons.Releaser); ok {
		r.Release()
	}
}

// Cache maps interned keys to values. Values implementing hashcons.Releaser
// are owned by the cache and released when their entry is replaced or
// removed. Like the table it serves, a Cache is confined to one goroutine.
type Cache[T hashcons.Value[T], V any] struct {
	items map[hashcons.ID]item[T, V]
}

// New returns an empty cache.
func New[T hashcons.Value[T], V any]() *Cache[T, V] {
	return WithCapacity[T, V](0)
}

// WithCapacity returns an empty cache with room for n entries.
func WithCapacity[T hashcons.Value[T], V any](n int) *Cache[T, V] {
	return &Cache[T, V]{items: make(map[hashcons.ID]item[T, V], n)}
}

// Insert associates v with the entry h refers to, replacing any previous
// value. The cache does not take ownership of h.
func (c *Cache[T, V]) Insert(h *hashcons.Hc[T], v V) {
	c.InsertWeak(h.Downgrade(), v)
}

// InsertWeak is like Insert but takes ownership of an existing weak handle.
// Passing the weak handle the cache already holds as key only replaces the
// value.
func (c *Cache[T, V]) InsertWeak(w *hashcons.Weak[T], v V) {
	if old, ok := c.items[w.ID()]; ok {
		if old.key == w {
			old.releaseValue()
		} else {
			old.release()
		}
	}
	c.items[w.ID()] = item[T, V]{key: w, value: v}
}

// Get returns the value cached for h.
func (c *Cache[T, V]) Get(h *hashcons.Hc[T]) (V, bool) {
	it, ok := c.items[h.ID()]
	if !ok || !it.key.Observes(h) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// GetWeak returns the value cached for the entry w observes.
func (c *Cache[T, V]) GetWeak(w *hashcons.Weak[T]) (V, bool) {
	it, ok := c.items[w.ID()]
	if !ok || !it.key.Equal(w) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// Remove drops the entry for h and reports whether one existed.
func (c *Cache[T, V]) Remove(h *hashcons.Hc[T]) bool {
	it, ok := c.items[h.ID()]
	if !ok || !it.key.Observes(h) {
		return false
	}
	delete(c.items, h.ID())
	it.release()
	return true
}

// Len returns the number of entries, including entries whose keys have been
// reclaimed but not yet collected.
func (c *Cache[T, V]) Len() int {
	return len(c.items)
}

// Range calls fn for every entry in unspecified order until fn returns false.
// fn must not modify c.
func (c *Cache[T, V]) Range(fn func(*hashcons.Weak[T], V) bool) {
	for _, it := range c.items {
		if !fn(it.key, it.value) {
			return
		}
	}
}

// Collect removes every entry whose key can no longer be upgraded and
// returns how many were removed.
func (c *Cache[T, V]) Collect() int {
	var n int
	for id, it := range c.items {
		if it.key.Alive() {
			continue
		}
		delete(c.items, id)
		it.release()
		n++
	}
	return n
}

// Clear removes every entry.
func (c *Cache[T, V]) Clear() {
	for id, it := range c.items {
		delete(c.items, id)
		it.release()
	}
}
