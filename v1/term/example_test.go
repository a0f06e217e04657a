// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package term_test

import (
	"fmt"

	"github.com/open-policy-agent/hashcons/v1/hashcons"
	"github.com/open-policy-agent/hashcons/v1/term"
)

func ExampleSimplifier() {
	b := term.NewBuilder(hashcons.NewScope())
	s, err := term.NewSimplifier(b, 128)
	if err != nil {
		panic(err)
	}
	defer s.Close()

	x := b.Add(b.Mul(b.Var("x"), b.Val(1)), b.Neg(b.Neg(b.Add(b.Val(2), b.Val(3)))))
	y := s.Simplify(x)
	fmt.Println(x)
	fmt.Println(y)

	e := term.NewEvaluator(map[string]int64{"x": 10})
	defer e.Close()
	v, _ := e.Eval(y)
	fmt.Println(v)

	x.Release()
	y.Release()
	// Output:
	// ((x * 1) + --(2 + 3))
	// (x + 5)
	// 15
}
