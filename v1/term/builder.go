// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package term

import (
	"github.com/open-policy-agent/hashcons/v1/hashcons"
)

// Builder constructs terms in one scope. Constructors taking terms take
// ownership of them; the caller owns every returned term.
type Builder struct {
	tab *hashcons.Table[Node]
}

// NewBuilder returns a builder for the node table of s.
func NewBuilder(s *hashcons.Scope) *Builder {
	return &Builder{tab: hashcons.TableOf[Node](s)}
}

// Val returns the literal v.
func (b *Builder) Val(v int64) Term {
	return b.make(Node{op: OpVal, val: v})
}

// Var returns a reference to the variable name.
func (b *Builder) Var(name string) Term {
	return b.make(Node{op: OpVar, sym: Intern(name)})
}

// Add returns l + r.
func (b *Builder) Add(l, r Term) Term {
	return b.make(Node{op: OpAdd, args: []Term{l, r}})
}

// Mul returns l * r.
func (b *Builder) Mul(l, r Term) Term {
	return b.make(Node{op: OpMul, args: []Term{l, r}})
}

// Neg returns -x.
func (b *Builder) Neg(x Term) Term {
	return b.make(Node{op: OpNeg, args: []Term{x}})
}

func (b *Builder) make(n Node) Term {
	return Term{hc: b.tab.Create(n)}
}

// Len returns the number of resident nodes.
func (b *Builder) Len() int {
	return b.tab.Len()
}

// Collect reclaims nodes no longer referenced outside the table.
func (b *Builder) Collect() int {
	return b.tab.Collect()
}
