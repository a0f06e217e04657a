// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package hashcons

import (
	"math"
	"strconv"
)

// ID names a resident table entry. IDs are handed out by a per-table counter
// and are never reused, so an ID held by a stale Weak can never alias a newer
// entry. The zero ID is never assigned.
type ID uint64

func (id ID) String() string {
	return "id" + strconv.FormatUint(uint64(id), 10)
}

// allocate returns the next unused identifier.
func (t *Table[T]) allocate() ID {
	if t.nextID == math.MaxUint64 {
		fatalf(IDOverflowErr, "table %v: identifier space exhausted", t.name)
	}
	id := t.nextID
	t.nextID++
	return id
}
