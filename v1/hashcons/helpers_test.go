// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package hashcons

import (
	"testing"

	"github.com/cespare/xxhash/v2"
)

const (
	opVal byte = iota
	opAdd
)

// lang is a two-constructor expression language: Val(n) and Add(l, r).
type lang struct {
	op   byte
	val  int64
	l, r *Hc[lang]
}

func val(n int64) lang {
	return lang{op: opVal, val: n}
}

func add(l, r *Hc[lang]) lang {
	return lang{op: opAdd, l: l, r: r}
}

func (x lang) Hash(d *xxhash.Digest) {
	_, _ = d.Write([]byte{x.op})
	WriteInt64(d, x.val)
	x.l.WriteHash(d)
	x.r.WriteHash(d)
}

func (x lang) Equal(y lang) bool {
	return x.op == y.op && x.val == y.val && x.l.Equal(y.l) && x.r.Equal(y.r)
}

func (x lang) Release() {
	if x.l != nil {
		x.l.Release()
	}
	if x.r != nil {
		x.r.Release()
	}
}

// leaf and pair live in different tables.
type leaf string

func (x leaf) Hash(d *xxhash.Digest) {
	_, _ = d.WriteString(string(x))
}

func (x leaf) Equal(y leaf) bool {
	return x == y
}

type pair struct {
	a, b *Hc[leaf]
}

func (p pair) Hash(d *xxhash.Digest) {
	p.a.WriteHash(d)
	p.b.WriteHash(d)
}

func (p pair) Equal(q pair) bool {
	return p.a.Equal(q.a) && p.b.Equal(q.b)
}

func (p pair) Release() {
	p.a.Release()
	p.b.Release()
}

// collider hashes every value to the same bucket.
type collider int

func (collider) Hash(d *xxhash.Digest) {
	_, _ = d.WriteString("same")
}

func (x collider) Equal(y collider) bool {
	return x == y
}

func expectPanic(t *testing.T, code string, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("Expected panic with %v, got none", code)
		}
		if !IsErrCode(r, code) {
			t.Fatalf("Expected panic with %v, got %v", code, r)
		}
	}()
	f()
}
