// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package hashcons

import (
	"sync/atomic"

	"github.com/open-policy-agent/hashcons/v1/logging"
)

// Table is the canonical store for one value type within a Scope. It holds
// at most one resident entry per distinct value, the queue of entries that
// may have become collectable, and the identifier counter.
//
// A Table is confined to the goroutine that owns its Scope. Stats is the only
// method that may be called from elsewhere.
type Table[T Value[T]] struct {
	scope  *Scope
	name   string
	logger logging.Logger

	// buckets maps a value hash to the entries sharing it.
	buckets map[uint64][]*entry[T]
	entries int

	// queue holds weak handles to entries that dropped to table-only
	// ownership since the last Collect.
	queue []*Weak[T]

	nextID ID

	mapBorrow   borrow
	queueBorrow borrow

	// poisoned is set once a fatal Error escapes Create or Collect.
	poisoned atomic.Bool

	stats tableStats
}

type tableStats struct {
	entries     atomic.Int64
	pending     atomic.Int64
	created     atomic.Uint64
	hits        atomic.Uint64
	examined    atomic.Uint64
	collected   atomic.Uint64
	resurrected atomic.Uint64
}

// Stats is a point-in-time snapshot of table counters.
type Stats struct {
	Entries     int    `json:"entries"`
	Pending     int    `json:"pending"`
	Created     uint64 `json:"created"`
	Hits        uint64 `json:"hits"`
	Examined    uint64 `json:"examined"`
	Collected   uint64 `json:"collected"`
	Resurrected uint64 `json:"resurrected"`
}

func newTable[T Value[T]](s *Scope, name string, opts ...Option) *Table[T] {
	cfg := tableConfig{
		name:     name,
		logger:   s.logger,
		capacity: s.capacity,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	t := &Table[T]{
		scope:   s,
		name:    cfg.name,
		logger:  cfg.logger.WithFields(map[string]any{"table": cfg.name}),
		buckets: make(map[uint64][]*entry[T], cfg.capacity),
		nextID:  1,
	}
	t.mapBorrow.what = "entry map"
	t.queueBorrow.what = "collection queue"
	return t
}

// Name returns the name the table was registered under.
func (t *Table[T]) Name() string {
	return t.name
}

// Create returns an owning handle to the canonical entry for v, inserting v
// if no structurally equal value is resident. A fresh identifier is assigned
// only on insertion.
//
// Create takes ownership of v. If an equal value was already resident and v
// is a Releaser, v's handles are released before Create returns.
func (t *Table[T]) Create(v T) *Hc[T] {
	defer t.poisonOnPanic()

	h := hashOf(v)
	out, inserted := t.lookupOrInsert(h, v)
	if !inserted {
		t.stats.hits.Add(1)
		if r, ok := any(v).(Releaser); ok {
			r.Release()
		}
	}
	return out
}

func (t *Table[T]) lookupOrInsert(h uint64, v T) (*Hc[T], bool) {
	t.mapBorrow.lock(t.name)
	defer t.mapBorrow.unlock()

	bucket := t.buckets[h]
	for _, e := range bucket {
		if e.value.Equal(v) {
			e.strong++
			return &Hc[T]{e: e}, false
		}
	}

	e := &entry[T]{
		table:    t,
		value:    v,
		id:       t.allocate(),
		hash:     h,
		strong:   2,
		resident: true,
	}
	e.canonical = &Hc[T]{e: e}
	t.buckets[h] = append(bucket, e)
	t.entries++
	t.stats.entries.Store(int64(t.entries))
	t.stats.created.Add(1)
	return &Hc[T]{e: e}, true
}

// Len returns the number of resident entries.
func (t *Table[T]) Len() int {
	t.mapBorrow.rlock(t.name)
	defer t.mapBorrow.runlock()
	return t.entries
}

// Pending returns the number of weak handles waiting in the collection queue.
func (t *Table[T]) Pending() int {
	t.queueBorrow.rlock(t.name)
	defer t.queueBorrow.runlock()
	return len(t.queue)
}

// ForEach calls fn for every resident value in unspecified order. fn must not
// create values in t.
func (t *Table[T]) ForEach(fn func(T)) {
	t.mapBorrow.rlock(t.name)
	defer t.mapBorrow.runlock()
	for _, bucket := range t.buckets {
		for _, e := range bucket {
			fn(e.value)
		}
	}
}

// Reserve makes room for n more entries.
func (t *Table[T]) Reserve(n int) {
	if n <= 0 {
		return
	}
	t.mapBorrow.lock(t.name)
	defer t.mapBorrow.unlock()

	buckets := make(map[uint64][]*entry[T], len(t.buckets)+n)
	for h, bucket := range t.buckets {
		buckets[h] = bucket
	}
	t.buckets = buckets
}

// Poisoned reports whether a fatal failure escaped one of t's operations.
// Releases of handles into a poisoned table stop queueing entries, so a
// table left inconsistent by the failure is never collected again. Other
// tables of the scope are unaffected.
func (t *Table[T]) Poisoned() bool {
	return t.poisoned.Load()
}

// poisonOnPanic must be deferred directly by table operations.
func (t *Table[T]) poisonOnPanic() {
	if r := recover(); r != nil {
		t.poisoned.Store(true)
		panic(r)
	}
}

// Stats returns a snapshot of the table counters. It is safe to call from any
// goroutine.
func (t *Table[T]) Stats() Stats {
	return Stats{
		Entries:     int(t.stats.entries.Load()),
		Pending:     int(t.stats.pending.Load()),
		Created:     t.stats.created.Load(),
		Hits:        t.stats.hits.Load(),
		Examined:    t.stats.examined.Load(),
		Collected:   t.stats.collected.Load(),
		Resurrected: t.stats.resurrected.Load(),
	}
}

func (t *Table[T]) enqueue(w *Weak[T]) {
	t.queueBorrow.lock(t.name)
	defer t.queueBorrow.unlock()
	t.queue = append(t.queue, w)
	t.stats.pending.Store(int64(len(t.queue)))
}

func (t *Table[T]) pop() (*Weak[T], bool) {
	t.queueBorrow.lock(t.name)
	defer t.queueBorrow.unlock()

	n := len(t.queue)
	if n == 0 {
		return nil, false
	}
	w := t.queue[n-1]
	t.queue[n-1] = nil
	t.queue = t.queue[:n-1]
	t.stats.pending.Store(int64(len(t.queue)))
	return w, true
}

// remove unlinks e from its bucket and hands back the canonical handle.
// Callers hold mapBorrow.
func (t *Table[T]) remove(e *entry[T]) *Hc[T] {
	bucket := t.buckets[e.hash]
	for i, other := range bucket {
		if other != e {
			continue
		}
		last := len(bucket) - 1
		bucket[i] = bucket[last]
		bucket[last] = nil
		if last == 0 {
			delete(t.buckets, e.hash)
		} else {
			t.buckets[e.hash] = bucket[:last]
		}
		t.entries--
		t.stats.entries.Store(int64(t.entries))

		canonical := e.canonical
		e.canonical = nil
		e.resident = false
		return canonical
	}
	fatalf(MissingEntryErr, "table %v: entry %v queued for collection is not resident", t.name, e.id)
	return nil
}

// Collect removes every queued entry that is still owned by the table alone
// and returns how many were removed. Entries that were resurrected after
// being queued are skipped. Removing an entry releases the handles its value
// holds, so children that become collectable in t are removed by the same
// call; children in other tables are queued for their own Collect.
func (t *Table[T]) Collect() int {
	defer t.poisonOnPanic()

	t.mapBorrow.lock(t.name)
	defer t.mapBorrow.unlock()

	var examined, collected, resurrected int
	for {
		// The queue borrow is dropped inside pop, before any release below
		// can cascade back into enqueue.
		w, ok := t.pop()
		if !ok {
			break
		}
		examined++

		e := w.e
		if e.strong != 1 {
			if e.strong > 1 {
				resurrected++
			}
			w.Release()
			continue
		}
		if !e.resident {
			fatalf(MissingEntryErr, "table %v: entry %v owned only by the table but not resident", t.name, e.id)
		}

		// Verification above only peeked through the weak handle, so the
		// canonical handle is the last owner here. Releasing it takes the
		// count to zero without re-queueing, and drops the value.
		canonical := t.remove(e)
		w.Release()
		canonical.Release()
		collected++
	}

	t.stats.examined.Add(uint64(examined))
	t.stats.collected.Add(uint64(collected))
	t.stats.resurrected.Add(uint64(resurrected))

	if examined > 0 {
		t.logger.WithFields(map[string]any{
			"examined":  examined,
			"collected": collected,
			"entries":   t.entries,
		}).Debug("Collection pass finished.")
	}
	return collected
}
