// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package hashcons

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Value is the contract for types stored in a Table. Hash must write
// everything Equal compares, and values must not change after they are
// interned. Handles embedded in a value take part through Hc.WriteHash and
// Hc.Equal, which only look at identifiers.
type Value[T any] interface {
	Hash(d *xxhash.Digest)
	Equal(other T) bool
}

// Releaser is implemented by values that own handles to other interned
// values. Release must release every owned handle. The table calls it when it
// drops a value, which is what lets a collection cascade to children.
type Releaser interface {
	Release()
}

// digestPool recycles digests used to bucket values on Create.
var digestPool = sync.Pool{
	New: func() any {
		return xxhash.New()
	},
}

func getDigest() *xxhash.Digest {
	return digestPool.Get().(*xxhash.Digest)
}

func putDigest(d *xxhash.Digest) {
	d.Reset()
	digestPool.Put(d)
}

func hashOf[T Value[T]](v T) uint64 {
	d := getDigest()
	defer putDigest(d)
	v.Hash(d)
	return d.Sum64()
}

// WriteUint64 writes x to d in a fixed-width encoding.
func WriteUint64(d *xxhash.Digest, x uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], x)
	_, _ = d.Write(buf[:])
}

// WriteInt64 writes x to d in a fixed-width encoding.
func WriteInt64(d *xxhash.Digest, x int64) {
	WriteUint64(d, uint64(x))
}
