// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package term implements a small symbolic arithmetic language on top of
// hashcons. Every term is interned, so structurally equal terms built in the
// same scope share one node and compare in constant time.
package term

import (
	"github.com/cespare/xxhash/v2"

	"github.com/open-policy-agent/hashcons/v1/hashcons"
)

// Op identifies the kind of a node.
type Op uint8

const (
	// OpVal is an integer literal.
	OpVal Op = iota
	// OpVar is a variable reference.
	OpVar
	// OpAdd is the sum of two terms.
	OpAdd
	// OpMul is the product of two terms.
	OpMul
	// OpNeg is the negation of a term.
	OpNeg
)

func (op Op) String() string {
	switch op {
	case OpVal:
		return "val"
	case OpVar:
		return "var"
	case OpAdd:
		return "add"
	case OpMul:
		return "mul"
	case OpNeg:
		return "neg"
	}
	return "unknown"
}

// Node is the interned representation of a term. Nodes own the handles to
// their arguments.
type Node struct {
	op   Op
	val  int64
	sym  Symbol
	args []Term
}

// Hash implements hashcons.Value.
func (n Node) Hash(d *xxhash.Digest) {
	hashcons.WriteUint64(d, uint64(n.op))
	switch n.op {
	case OpVal:
		hashcons.WriteInt64(d, n.val)
	case OpVar:
		_, _ = d.WriteString(n.sym.Value())
	default:
		for _, a := range n.args {
			a.hc.WriteHash(d)
		}
	}
}

// Equal implements hashcons.Value. Arguments compare by identity.
func (n Node) Equal(other Node) bool {
	if n.op != other.op || n.val != other.val || n.sym != other.sym || len(n.args) != len(other.args) {
		return false
	}
	for i := range n.args {
		if !n.args[i].Equal(other.args[i]) {
			return false
		}
	}
	return true
}

// Release implements hashcons.Releaser.
func (n Node) Release() {
	for _, a := range n.args {
		a.Release()
	}
}

// Term is an owning reference to an interned node. The zero Term is invalid.
type Term struct {
	hc *hashcons.Hc[Node]
}

// Handle returns the underlying handle. It remains owned by t.
func (t Term) Handle() *hashcons.Hc[Node] {
	return t.hc
}

// ID returns the identifier of the node.
func (t Term) ID() hashcons.ID {
	return t.hc.ID()
}

// Op returns the kind of the node.
func (t Term) Op() Op {
	return t.hc.Value().op
}

// Int returns the literal of an OpVal term.
func (t Term) Int() int64 {
	return t.hc.Value().val
}

// Name returns the variable name of an OpVar term.
func (t Term) Name() string {
	return t.hc.Value().sym.Value()
}

// Args returns the arguments of t. They are borrowed from t and must be
// cloned to outlive it.
func (t Term) Args() []Term {
	return t.hc.Value().args
}

// Clone returns another owning reference to the same node.
func (t Term) Clone() Term {
	return Term{hc: t.hc.Clone()}
}

// Release gives up t.
func (t Term) Release() {
	t.hc.Release()
}

// Equal reports whether t and other are the same node.
func (t Term) Equal(other Term) bool {
	return t.hc.Equal(other.hc)
}

// is reports whether t is the literal v.
func (t Term) is(v int64) bool {
	n := t.hc.Value()
	return n.op == OpVal && n.val == v
}

// DAGSize returns the number of distinct nodes reachable from t.
func DAGSize(t Term) int {
	seen := map[hashcons.ID]struct{}{}
	var walk func(Term)
	walk = func(t Term) {
		if _, ok := seen[t.ID()]; ok {
			return
		}
		seen[t.ID()] = struct{}{}
		for _, a := range t.Args() {
			walk(a)
		}
	}
	walk(t)
	return len(seen)
}

// TreeSize returns the number of nodes t would have without sharing.
func TreeSize(t Term) uint64 {
	sizes := map[hashcons.ID]uint64{}
	var walk func(Term) uint64
	walk = func(t Term) uint64 {
		if n, ok := sizes[t.ID()]; ok {
			return n
		}
		n := uint64(1)
		for _, a := range t.Args() {
			n += walk(a)
		}
		sizes[t.ID()] = n
		return n
	}
	return walk(t)
}
