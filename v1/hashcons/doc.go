// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package hashcons implements hash-consing: interning tables that keep at most
// one canonical instance of each distinct immutable value, reached through
// handles whose equality and hashing only look at an identifier.
//
// Values are built bottom-up. A value that refers to other interned values
// embeds owning handles to them and implements Releaser, so the interned
// graph is acyclic and reference counting is enough to find dead entries:
//
//	s := hashcons.NewScope()
//	x := hashcons.Create(s, lit(3))
//	y := hashcons.Create(s, lit(4))
//	sum := hashcons.Create(s, add(x, y)) // takes ownership of x and y
//
//	sum.Release()
//	hashcons.TableOf[node](s).Collect() // removes sum, then x and y
//
// Go has no destructors, so every owning handle obtained from Create, Clone
// or Weak.Upgrade must be released explicitly. Releasing never mutates the
// table. It only queues the entry when the table becomes its sole owner, and
// entries are removed exclusively by Collect, which re-checks ownership first
// so entries resurrected in the meantime survive.
//
// Tables are not safe for concurrent use. Each Scope, with its tables and
// handles, belongs to a single goroutine. Overlapping access is detected and
// panics with ConflictingAccessErr rather than corrupting state.
package hashcons
