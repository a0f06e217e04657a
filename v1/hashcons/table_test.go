// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package hashcons

import (
	"math"
	"sort"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

func TestCreateDeduplicates(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	a := tab.Create(val(1))
	b := tab.Create(val(1))
	defer a.Release()
	defer b.Release()

	if a.ID() != b.ID() {
		t.Fatalf("Expected equal ids, got %v and %v", a.ID(), b.ID())
	}
	if !a.Equal(b) {
		t.Fatal("Expected handles to be equal")
	}
	// The table's canonical handle plus a and b.
	if a.StrongCount() != 3 {
		t.Fatalf("Expected strong count 3, got %d", a.StrongCount())
	}
	if tab.Len() != 1 {
		t.Fatalf("Expected len 1, got %d", tab.Len())
	}
}

func TestCreateDistinctValues(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	seen := map[ID]int64{}
	var handles []*Hc[lang]
	for i := range int64(100) {
		h := tab.Create(val(i))
		handles = append(handles, h)
		if prev, ok := seen[h.ID()]; ok {
			t.Fatalf("Values %d and %d share id %v", prev, i, h.ID())
		}
		seen[h.ID()] = i
	}
	if tab.Len() != 100 {
		t.Fatalf("Expected len 100, got %d", tab.Len())
	}
	for _, h := range handles {
		h.Release()
	}
	if n := tab.Collect(); n != 100 {
		t.Fatalf("Expected 100 collected, got %d", n)
	}
}

func TestCreateHashCollisions(t *testing.T) {
	s := NewScope()
	tab := TableOf[collider](s)

	a := tab.Create(collider(1))
	b := tab.Create(collider(2))
	c := tab.Create(collider(1))

	if a.Equal(b) {
		t.Fatal("Distinct colliding values share an entry")
	}
	if !a.Equal(c) {
		t.Fatal("Equal colliding values got distinct entries")
	}
	if tab.Len() != 2 {
		t.Fatalf("Expected len 2, got %d", tab.Len())
	}

	b.Release()
	if n := tab.Collect(); n != 1 {
		t.Fatalf("Expected 1 collected, got %d", n)
	}
	if got := a.Value(); got != 1 {
		t.Fatalf("Surviving collider corrupted: %v", got)
	}

	a.Release()
	c.Release()
	if n := tab.Collect(); n != 1 {
		t.Fatalf("Expected 1 collected, got %d", n)
	}
	if tab.Len() != 0 {
		t.Fatalf("Expected empty table, got %d", tab.Len())
	}
}

func TestIDsAreMonotonicAndNotReused(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	a := tab.Create(val(1))
	first := a.ID()
	a.Release()
	tab.Collect()

	b := tab.Create(val(1))
	defer b.Release()
	if b.ID() <= first {
		t.Fatalf("Expected id greater than %v after collection, got %v", first, b.ID())
	}
}

func TestCollectRemovesDeadEntry(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	keep := tab.Create(val(0))
	defer keep.Release()

	a := tab.Create(val(1))
	b := a.Clone()
	before := tab.Len()

	a.Release()
	if tab.Pending() != 0 {
		t.Fatalf("Entry queued while still owned externally")
	}
	b.Release()
	if tab.Pending() != 1 {
		t.Fatalf("Expected 1 pending, got %d", tab.Pending())
	}
	if tab.Len() != before {
		t.Fatal("Release must not remove entries")
	}

	if n := tab.Collect(); n != 1 {
		t.Fatalf("Expected 1 collected, got %d", n)
	}
	if tab.Len() != before-1 {
		t.Fatalf("Expected len %d, got %d", before-1, tab.Len())
	}
}

func TestCollectSkipsResurrected(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	a := tab.Create(val(7))
	a.Release()

	// Resurrect before collection runs.
	b := tab.Create(val(7))

	if n := tab.Collect(); n != 0 {
		t.Fatalf("Expected 0 collected, got %d", n)
	}
	if tab.Len() != 1 {
		t.Fatalf("Expected len 1, got %d", tab.Len())
	}
	if got := tab.Stats().Resurrected; got != 1 {
		t.Fatalf("Expected 1 resurrection, got %d", got)
	}

	b.Release()
	if n := tab.Collect(); n != 1 {
		t.Fatalf("Expected 1 collected, got %d", n)
	}
}

func TestCollectSkipsUpgraded(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	a := tab.Create(val(7))
	w := a.Downgrade()
	defer w.Release()
	a.Release()

	b, ok := w.Upgrade()
	if !ok {
		t.Fatal("Expected upgrade of resident entry to succeed")
	}
	if n := tab.Collect(); n != 0 {
		t.Fatalf("Expected 0 collected, got %d", n)
	}

	b.Release()
	if n := tab.Collect(); n != 1 {
		t.Fatalf("Expected 1 collected, got %d", n)
	}
	if _, ok := w.Upgrade(); ok {
		t.Fatal("Expected upgrade of collected entry to fail")
	}
}

func TestCollectDuplicateQueueEntries(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	a := tab.Create(val(1))
	a.Release()
	b := tab.Create(val(1))
	b.Release()

	if tab.Pending() != 2 {
		t.Fatalf("Expected 2 pending, got %d", tab.Pending())
	}
	if n := tab.Collect(); n != 1 {
		t.Fatalf("Expected 1 collected, got %d", n)
	}
	if tab.Len() != 0 {
		t.Fatalf("Expected empty table, got %d", tab.Len())
	}
}

func TestCollectEmptyQueue(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	h := tab.Create(val(1))
	defer h.Release()

	for range 3 {
		if n := tab.Collect(); n != 0 {
			t.Fatalf("Expected 0 collected, got %d", n)
		}
	}
	if tab.Len() != 1 {
		t.Fatalf("Expected len 1, got %d", tab.Len())
	}
}

func TestCollectCascade(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	build := func() *Hc[lang] {
		return tab.Create(add(tab.Create(val(3)), tab.Create(val(4))))
	}

	term1 := build()
	if tab.Len() != 3 {
		t.Fatalf("Expected len 3 after first build, got %d", tab.Len())
	}
	term2 := build()
	if tab.Len() != 3 {
		t.Fatalf("Expected len 3 after second build, got %d", tab.Len())
	}
	if !term1.Equal(term2) {
		t.Fatal("Expected structurally equal terms to share an entry")
	}

	term1.Release()
	if tab.Len() != 3 {
		t.Fatalf("Expected len 3 after first release, got %d", tab.Len())
	}
	tab.Collect()
	if tab.Len() != 3 {
		t.Fatalf("Expected len 3 after first collect, got %d", tab.Len())
	}

	term2.Release()
	if tab.Len() != 3 {
		t.Fatalf("Expected len 3 before second collect, got %d", tab.Len())
	}
	if n := tab.Collect(); n != 3 {
		t.Fatalf("Expected parent and both children collected, got %d", n)
	}
	if tab.Len() != 0 {
		t.Fatalf("Expected empty table, got %d", tab.Len())
	}
}

func TestCollectCascadeKeepsSharedChildren(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	three := tab.Create(val(3))
	sum := tab.Create(add(three.Clone(), tab.Create(val(4))))

	sum.Release()
	if n := tab.Collect(); n != 2 {
		t.Fatalf("Expected sum and val(4) collected, got %d", n)
	}
	if got := three.Value().val; got != 3 {
		t.Fatalf("Shared child corrupted: %v", got)
	}
	if three.StrongCount() != 2 {
		t.Fatalf("Expected strong count 2, got %d", three.StrongCount())
	}
	three.Release()
	if n := tab.Collect(); n != 1 {
		t.Fatalf("Expected 1 collected, got %d", n)
	}
}

func TestCollectDeepChain(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	h := tab.Create(val(0))
	for i := range int64(1000) {
		h = tab.Create(add(h, tab.Create(val(i))))
	}
	// val(0) is both the seed and the first right child.
	if tab.Len() != 2000 {
		t.Fatalf("Expected len 2000, got %d", tab.Len())
	}
	h.Release()
	if n := tab.Collect(); n != 2000 {
		t.Fatalf("Expected 2000 collected, got %d", n)
	}
}

func TestForEachAndReserve(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)
	tab.Reserve(16)

	var handles []*Hc[lang]
	for i := range int64(5) {
		handles = append(handles, tab.Create(val(i)))
	}
	tab.Reserve(100)

	var got []int64
	tab.ForEach(func(x lang) {
		got = append(got, x.val)
	})
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	if diff := cmp.Diff([]int64{0, 1, 2, 3, 4}, got); diff != "" {
		t.Fatalf("Unexpected values (-want, +got):\n%s", diff)
	}
	for _, h := range handles {
		if h.StrongCount() != 2 {
			t.Fatalf("ForEach or Reserve changed ownership: %d", h.StrongCount())
		}
		h.Release()
	}
}

func TestStats(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	a := tab.Create(val(1))
	b := tab.Create(val(1))
	c := tab.Create(val(2))
	a.Release()
	b.Release()
	c.Release()

	want := Stats{Entries: 2, Pending: 2, Created: 2, Hits: 1}
	if diff := cmp.Diff(want, tab.Stats()); diff != "" {
		t.Fatalf("Unexpected stats before collect (-want, +got):\n%s", diff)
	}

	tab.Collect()
	want = Stats{Entries: 0, Pending: 0, Created: 2, Hits: 1, Examined: 2, Collected: 2}
	if diff := cmp.Diff(want, tab.Stats()); diff != "" {
		t.Fatalf("Unexpected stats after collect (-want, +got):\n%s", diff)
	}
}

func TestConflictingAccess(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)
	h := tab.Create(val(1))

	expectPanic(t, ConflictingAccessErr, func() {
		tab.ForEach(func(lang) {
			tab.Create(val(2))
		})
	})

	// The shared borrow was released on the way out.
	if tab.Len() != 1 {
		t.Fatalf("Expected len 1, got %d", tab.Len())
	}
	h.Release()
}

// reentrant creates a value in its own table when released, which is not
// allowed while a collection holds the table.
type reentrant struct {
	n   int64
	tab *Table[reentrant]
}

func (r reentrant) Hash(d *xxhash.Digest) {
	WriteInt64(d, r.n)
}

func (r reentrant) Equal(o reentrant) bool {
	return r.n == o.n
}

func (r reentrant) Release() {
	r.tab.Create(reentrant{n: r.n + 1, tab: r.tab})
}

func TestCollectReentrantCreate(t *testing.T) {
	s := NewScope()
	tab := TableOf[reentrant](s)

	tab.Create(reentrant{n: 1, tab: tab}).Release()
	expectPanic(t, ConflictingAccessErr, func() {
		tab.Collect()
	})
	if !tab.Poisoned() {
		t.Fatal("Expected table to be poisoned")
	}
}

func TestCollectMissingEntry(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	h := tab.Create(val(1))
	e := h.e
	h.Release()

	// Corrupt the table behind the collector's back.
	delete(tab.buckets, e.hash)

	expectPanic(t, MissingEntryErr, func() {
		tab.Collect()
	})
}

func TestIDOverflow(t *testing.T) {
	s := NewScope()
	tab := TableOf[lang](s)

	h := tab.Create(val(1))
	tab.nextID = math.MaxUint64

	expectPanic(t, IDOverflowErr, func() {
		tab.Create(val(2))
	})
	if !tab.Poisoned() {
		t.Fatal("Expected table to be poisoned")
	}

	// Releases into a poisoned table do not queue anything.
	e := h.e
	h.Release()
	if tab.Pending() != 0 {
		t.Fatalf("Expected no pending entries in a poisoned table, got %d", tab.Pending())
	}
	if e.strong != 1 {
		t.Fatalf("Expected strong count 1, got %d", e.strong)
	}
}

func TestPoisonIsConfinedToFailingTable(t *testing.T) {
	s := NewScope()
	exprs := TableOf[lang](s)
	leaves := TableOf[leaf](s)

	h := exprs.Create(val(1))
	expectPanic(t, ConflictingAccessErr, func() {
		exprs.ForEach(func(lang) {
			exprs.Create(val(2))
		})
	})
	if !exprs.Poisoned() || leaves.Poisoned() {
		t.Fatalf("Expected only the failing table poisoned, got %v and %v", exprs.Poisoned(), leaves.Poisoned())
	}

	leaves.Create("7").Release()
	if leaves.Pending() != 1 {
		t.Fatalf("Expected release queued in the healthy table, got %d pending", leaves.Pending())
	}
	if n := s.CollectAll(); n != 1 {
		t.Fatalf("Expected 1 collected, got %d", n)
	}
	if leaves.Len() != 0 {
		t.Fatalf("Expected healthy table emptied, got %d", leaves.Len())
	}
	h.Release()
}

func TestUseAfterRelease(t *testing.T) {
	s := NewScope()
	h := Create(s, val(1))
	w := h.Downgrade()
	h.Release()
	w.Release()

	tests := []struct {
		note string
		f    func()
	}{
		{"ID", func() { h.ID() }},
		{"StrongCount", func() { h.StrongCount() }},
		{"WeakCount", func() { h.WeakCount() }},
		{"WriteHash", func() { h.WriteHash(xxhash.New()) }},
		{"Weak.ID", func() { w.ID() }},
		{"Weak.WeakCount", func() { w.WeakCount() }},
		{"Weak.Alive", func() { w.Alive() }},
	}
	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			expectPanic(t, ReleasedHandleErr, tc.f)
		})
	}
}
