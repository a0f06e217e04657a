// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package term

import (
	"errors"
	"fmt"

	"github.com/open-policy-agent/hashcons/v1/hashcons/cache"
)

// ErrUnbound is returned when a term references a variable with no binding.
var ErrUnbound = errors.New("unbound variable")

// Evaluator computes integer values of terms under fixed bindings. Results
// are memoized per node, so shared subterms are evaluated once. Arithmetic
// wraps on overflow.
type Evaluator struct {
	env  map[Symbol]int64
	memo *cache.Cache[Node, int64]
}

// NewEvaluator returns an evaluator for the given bindings.
func NewEvaluator(bindings map[string]int64) *Evaluator {
	env := make(map[Symbol]int64, len(bindings))
	for k, v := range bindings {
		env[Intern(k)] = v
	}
	return &Evaluator{env: env, memo: cache.New[Node, int64]()}
}

// Eval returns the value of t. t remains owned by the caller.
func (e *Evaluator) Eval(t Term) (int64, error) {
	if v, ok := e.memo.Get(t.hc); ok {
		return v, nil
	}

	n := t.hc.Value()
	var v int64
	switch n.op {
	case OpVal:
		v = n.val
	case OpVar:
		x, ok := e.env[n.sym]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnbound, n.sym.Value())
		}
		v = x
	case OpNeg:
		x, err := e.Eval(n.args[0])
		if err != nil {
			return 0, err
		}
		v = -x
	case OpAdd, OpMul:
		l, err := e.Eval(n.args[0])
		if err != nil {
			return 0, err
		}
		r, err := e.Eval(n.args[1])
		if err != nil {
			return 0, err
		}
		if n.op == OpAdd {
			v = l + r
		} else {
			v = l * r
		}
	default:
		return 0, fmt.Errorf("unknown op %v", n.op)
	}

	e.memo.Insert(t.hc, v)
	return v, nil
}

// Memoized returns the number of memoized results.
func (e *Evaluator) Memoized() int {
	return e.memo.Len()
}

// Collect drops results for reclaimed nodes.
func (e *Evaluator) Collect() int {
	return e.memo.Collect()
}

// Close drops every memoized result.
func (e *Evaluator) Close() {
	e.memo.Clear()
}
