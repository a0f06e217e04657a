// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package term

import "unique"

// Symbol is an interned variable name. Symbols compare by pointer.
type Symbol = unique.Handle[string]

// Intern returns the symbol for name.
func Intern(name string) Symbol {
	return unique.Make(name)
}
