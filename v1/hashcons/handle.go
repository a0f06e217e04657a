// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package hashcons

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// entry is the shared state behind every handle to one interned value.
//
// strong counts owning handles, including the table's canonical one, so a
// resident entry with no external owners has strong == 1. weak counts live
// Weak handles, including those sitting in the pending-collection queue.
type entry[T Value[T]] struct {
	table     *Table[T]
	canonical *Hc[T]
	value     T
	id        ID
	hash      uint64
	strong    int
	weak      int
	resident  bool
}

// drop runs once the last owning handle is gone.
func (e *entry[T]) drop() {
	v := e.value
	var zero T
	e.value = zero
	if r, ok := any(v).(Releaser); ok {
		r.Release()
	}
}

// Hc is an owning handle to an interned value. Handles are cheap to clone and
// compare by identifier only. Every handle obtained from Create, Clone or
// Upgrade must be released exactly once. Once released, every method except
// Equal and String panics with ReleasedHandleErr.
type Hc[T Value[T]] struct {
	e        *entry[T]
	released bool
}

func (h *Hc[T]) live() *entry[T] {
	if h.released {
		fatalf(ReleasedHandleErr, "use of released handle %v", h.e.id)
	}
	return h.e
}

// ID returns the identifier of the entry h refers to.
func (h *Hc[T]) ID() ID {
	return h.live().id
}

// Value returns the interned value. The result must be treated as read-only.
func (h *Hc[T]) Value() T {
	return h.live().value
}

// Clone returns a new owning handle to the same entry.
func (h *Hc[T]) Clone() *Hc[T] {
	e := h.live()
	e.strong++
	return &Hc[T]{e: e}
}

// Downgrade returns a weak handle to the same entry.
func (h *Hc[T]) Downgrade() *Weak[T] {
	return h.live().newWeak()
}

// StrongCount returns the number of owning handles to the entry, counting the
// table's own.
func (h *Hc[T]) StrongCount() int {
	return h.live().strong
}

// WeakCount returns the number of live weak handles to the entry.
func (h *Hc[T]) WeakCount() int {
	return h.live().weak
}

// Equal reports whether h and other refer to the same entry. Two nil handles
// are equal.
func (h *Hc[T]) Equal(other *Hc[T]) bool {
	if h == nil || other == nil {
		return h == other
	}
	return h.e == other.e
}

// WriteHash writes the identity of h to d. Values embedding handles call this
// from their Hash method instead of hashing the child value.
func (h *Hc[T]) WriteHash(d *xxhash.Digest) {
	if h == nil {
		WriteUint64(d, 0)
		return
	}
	WriteUint64(d, uint64(h.live().id))
}

// Release gives up h. When only the table and h own the entry, h queues the
// entry for the next Collect, unless the table is poisoned. Release never
// removes the entry itself.
func (h *Hc[T]) Release() {
	e := h.live()
	h.released = true

	// This handle and the table's canonical one.
	if e.strong == 2 && !e.table.Poisoned() {
		e.table.enqueue(e.newWeak())
	}

	e.strong--
	if e.strong == 0 {
		e.drop()
	}
}

func (h *Hc[T]) String() string {
	if h.released {
		return fmt.Sprintf("Hc{id: %v, released}", h.e.id)
	}
	return fmt.Sprintf("Hc{id: %v, value: %v}", h.e.id, h.e.value)
}

// Weak is a non-owning handle. It does not keep its entry resident. Like Hc,
// a released Weak panics on use except through Equal, Observes and String.
type Weak[T Value[T]] struct {
	e        *entry[T]
	released bool
}

func (e *entry[T]) newWeak() *Weak[T] {
	e.weak++
	return &Weak[T]{e: e}
}

func (w *Weak[T]) live() *entry[T] {
	if w.released {
		fatalf(ReleasedHandleErr, "use of released weak handle %v", w.e.id)
	}
	return w.e
}

// ID returns the identifier of the entry w observes.
func (w *Weak[T]) ID() ID {
	return w.live().id
}

// Upgrade returns an owning handle if the entry is still resident. A false
// result is expected for reclaimed entries and is not an error.
func (w *Weak[T]) Upgrade() (*Hc[T], bool) {
	e := w.live()
	if e.strong == 0 {
		return nil, false
	}
	e.strong++
	return &Hc[T]{e: e}, true
}

// Alive reports whether Upgrade would succeed, without touching ownership.
func (w *Weak[T]) Alive() bool {
	return w.live().strong > 0
}

// Observes reports whether w and h refer to the same entry.
func (w *Weak[T]) Observes(h *Hc[T]) bool {
	return h != nil && w.e == h.e
}

// WeakCount returns the number of live weak handles to the entry.
func (w *Weak[T]) WeakCount() int {
	return w.live().weak
}

// Equal reports whether w and other observe the same entry.
func (w *Weak[T]) Equal(other *Weak[T]) bool {
	if w == nil || other == nil {
		return w == other
	}
	return w.e == other.e
}

// Release gives up w.
func (w *Weak[T]) Release() {
	e := w.live()
	w.released = true
	e.weak--
}

func (w *Weak[T]) String() string {
	return fmt.Sprintf("Weak{id: %v, alive: %v}", w.e.id, w.e.strong > 0)
}
