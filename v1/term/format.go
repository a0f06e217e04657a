// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package term

import (
	"strconv"
	"strings"
	"sync"
)

// builders recycles the buffers terms and nodes are rendered into.
var builders = sync.Pool{
	New: func() any {
		return &strings.Builder{}
	},
}

// render runs write against a pooled builder and returns what it wrote.
func render(write func(sb *strings.Builder)) string {
	sb := builders.Get().(*strings.Builder)
	defer func() {
		sb.Reset()
		builders.Put(sb)
	}()
	write(sb)
	return sb.String()
}

// String renders t in fully parenthesized infix form. Shared subterms are
// printed at every occurrence.
func (t Term) String() string {
	return render(t.format)
}

func (t Term) format(sb *strings.Builder) {
	n := t.hc.Value()
	switch n.op {
	case OpVal:
		sb.WriteString(strconv.FormatInt(n.val, 10))
	case OpVar:
		sb.WriteString(n.sym.Value())
	case OpNeg:
		sb.WriteByte('-')
		n.args[0].format(sb)
	case OpAdd, OpMul:
		sb.WriteByte('(')
		n.args[0].format(sb)
		if n.op == OpAdd {
			sb.WriteString(" + ")
		} else {
			sb.WriteString(" * ")
		}
		n.args[1].format(sb)
		sb.WriteByte(')')
	}
}

// String renders the node itself, with arguments shown by identifier.
func (n Node) String() string {
	switch n.op {
	case OpVal:
		return strconv.FormatInt(n.val, 10)
	case OpVar:
		return n.sym.Value()
	}
	return render(func(sb *strings.Builder) {
		sb.WriteString(n.op.String())
		sb.WriteByte('(')
		for i, a := range n.args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.ID().String())
		}
		sb.WriteByte(')')
	})
}
