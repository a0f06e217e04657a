// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package hashcons_test

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/open-policy-agent/hashcons/v1/hashcons"
)

// expr is either a literal or the sum of two interned expressions.
type expr struct {
	lit  int64
	l, r *hashcons.Hc[expr]
}

func (e expr) Hash(d *xxhash.Digest) {
	hashcons.WriteInt64(d, e.lit)
	e.l.WriteHash(d)
	e.r.WriteHash(d)
}

func (e expr) Equal(o expr) bool {
	return e.lit == o.lit && e.l.Equal(o.l) && e.r.Equal(o.r)
}

func (e expr) Release() {
	if e.l != nil {
		e.l.Release()
		e.r.Release()
	}
}

func ExampleTable_Collect() {
	s := hashcons.NewScope()
	tab := hashcons.TableOf[expr](s)

	build := func() *hashcons.Hc[expr] {
		return tab.Create(expr{l: tab.Create(expr{lit: 3}), r: tab.Create(expr{lit: 4})})
	}

	a := build()
	b := build()
	fmt.Println(a.Equal(b), tab.Len())

	a.Release()
	fmt.Println(tab.Collect(), tab.Len())

	b.Release()
	fmt.Println(tab.Collect(), tab.Len())

	// Output:
	// true 3
	// 0 3
	// 3 0
}

func ExampleWeak_Upgrade() {
	s := hashcons.NewScope()
	h := hashcons.Create(s, expr{lit: 42})
	w := h.Downgrade()
	defer w.Release()

	if x, ok := w.Upgrade(); ok {
		fmt.Println(x.Value().lit)
		x.Release()
	}

	h.Release()
	hashcons.TableOf[expr](s).Collect()

	_, ok := w.Upgrade()
	fmt.Println(ok)

	// Output:
	// 42
	// false
}
