// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package hashcons

import "sync/atomic"

const exclusive = -1

// borrow is a runtime exclusive-access check over a piece of table state.
// It never blocks: a conflicting acquisition panics instead. Any number of
// shared borrows may overlap; an exclusive borrow overlaps with nothing.
type borrow struct {
	what  string
	state atomic.Int32
}

func (b *borrow) lock(table string) {
	if !b.state.CompareAndSwap(0, exclusive) {
		fatalf(ConflictingAccessErr, "table %v: %v already borrowed", table, b.what)
	}
}

func (b *borrow) unlock() {
	b.state.Store(0)
}

func (b *borrow) rlock(table string) {
	for {
		s := b.state.Load()
		if s == exclusive {
			fatalf(ConflictingAccessErr, "table %v: %v already mutably borrowed", table, b.what)
		}
		if b.state.CompareAndSwap(s, s+1) {
			return
		}
	}
}

func (b *borrow) runlock() {
	b.state.Add(-1)
}
