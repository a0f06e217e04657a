// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package hashcons

import (
	"errors"
	"fmt"
)

const (
	// IDOverflowErr indicates a table exhausted its identifier space.
	IDOverflowErr = "hashcons_id_overflow_error"

	// DoubleRegistrationErr indicates a second table was bound to a value
	// type that already has one in the same scope.
	DoubleRegistrationErr = "hashcons_double_registration_error"

	// MissingEntryErr indicates an entry queued for collection was not
	// found in its table. The hash-consing invariant was broken earlier.
	MissingEntryErr = "hashcons_missing_entry_error"

	// ConflictingAccessErr indicates overlapping access to table state,
	// either re-entrant or from another goroutine.
	ConflictingAccessErr = "hashcons_conflicting_access_error"

	// ReleasedHandleErr indicates a handle was used after Release.
	ReleasedHandleErr = "hashcons_released_handle_error"
)

// Error is the value every fatal hashcons failure panics with. A table whose
// Create or Collect raised one is poisoned (see Table.Poisoned): its handles
// no longer queue entries on release, so its entries are never collected.
// Other tables in the same scope keep working.
type Error struct {
	Code    string
	Message string
}

func (err *Error) Error() string {
	return fmt.Sprintf("%v: %v", err.Code, err.Message)
}

// IsErrCode returns true if v is an *Error with the given code. v is usually
// the result of recover().
func IsErrCode(v any, code string) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var hcErr *Error
	if errors.As(err, &hcErr) {
		return hcErr.Code == code
	}
	return false
}

func fatalf(code string, f string, a ...any) {
	panic(&Error{
		Code:    code,
		Message: fmt.Sprintf(f, a...),
	})
}
