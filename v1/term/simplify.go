// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package term

import (
	"github.com/open-policy-agent/hashcons/v1/hashcons"
	"github.com/open-policy-agent/hashcons/v1/hashcons/cache"
)

// Simplifier rewrites terms by folding constants and removing identities:
// x+0, 0+x, x*1, 1*x and --x become x, and x*0, 0*x become 0.
//
// Results are memoized in a bounded cache holding weak references to both
// the input and the result, so the memo never keeps terms resident.
type Simplifier struct {
	b    *Builder
	memo *cache.LRU[Node, *hashcons.Weak[Node]]
}

// NewSimplifier returns a simplifier building results with b and remembering
// at most size rewrites.
func NewSimplifier(b *Builder, size int) (*Simplifier, error) {
	memo, err := cache.NewLRU[Node, *hashcons.Weak[Node]](size)
	if err != nil {
		return nil, err
	}
	return &Simplifier{b: b, memo: memo}, nil
}

// Simplify returns the simplified form of t. t remains owned by the caller;
// the result is owned by the caller too.
func (s *Simplifier) Simplify(t Term) Term {
	if w, ok := s.memo.Get(t.hc); ok {
		if h, ok := w.Upgrade(); ok {
			return Term{hc: h}
		}
	}
	out := s.simplify(t)
	s.memo.Insert(t.hc, out.hc.Downgrade())
	return out
}

func (s *Simplifier) simplify(t Term) Term {
	n := t.hc.Value()
	switch n.op {
	case OpNeg:
		x := s.Simplify(n.args[0])
		xn := x.hc.Value()
		switch xn.op {
		case OpVal:
			v := xn.val
			x.Release()
			return s.b.Val(-v)
		case OpNeg:
			inner := xn.args[0].Clone()
			x.Release()
			return inner
		}
		return s.b.Neg(x)
	case OpAdd, OpMul:
		l := s.Simplify(n.args[0])
		r := s.Simplify(n.args[1])
		return s.combine(n.op, l, r)
	}
	return t.Clone()
}

// combine takes ownership of l and r.
func (s *Simplifier) combine(op Op, l, r Term) Term {
	if l.Op() == OpVal && r.Op() == OpVal {
		lv, rv := l.Int(), r.Int()
		l.Release()
		r.Release()
		if op == OpAdd {
			return s.b.Val(lv + rv)
		}
		return s.b.Val(lv * rv)
	}

	if op == OpAdd {
		switch {
		case l.is(0):
			l.Release()
			return r
		case r.is(0):
			r.Release()
			return l
		}
		return s.b.Add(l, r)
	}

	switch {
	case l.is(0) || r.is(0):
		l.Release()
		r.Release()
		return s.b.Val(0)
	case l.is(1):
		l.Release()
		return r
	case r.is(1):
		r.Release()
		return l
	}
	return s.b.Mul(l, r)
}

// Memoized returns the number of remembered rewrites.
func (s *Simplifier) Memoized() int {
	return s.memo.Len()
}

// Collect drops rewrites whose input has been reclaimed.
func (s *Simplifier) Collect() int {
	return s.memo.Collect()
}

// Close drops every remembered rewrite.
func (s *Simplifier) Close() {
	s.memo.Clear()
}
