package resource

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange reports an index that reaches past the end of a table.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrInconsistentInvariant reports derived data that no longer matches its source,
	// such as a camera inverse that is not the inverse of proj_view.
	ErrInconsistentInvariant = errors.New("inconsistent invariant")
	// ErrMissingResource reports a reference to a table, handle or binding that does not exist.
	ErrMissingResource = errors.New("missing resource")
)

// BindingError describes a single failed check against a bound table.
// It wraps one of the sentinel errors, so errors.Is(err, ErrIndexOutOfRange) works on it.
type BindingError struct {
	// Kind is the sentinel this error wraps.
	Kind error
	// Table names the table that was checked, e.g. "meshes".
	Table string
	// Field names the offending field, e.g. "material_id".
	Field string
	// Index is the offending index value.
	Index int
	// Len is the table length the index was checked against.
	Len int
}

func (e *BindingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v: index %d, len %d", e.Table, e.Kind, e.Index, e.Len)
	}
	return fmt.Sprintf("%s.%s: %v: index %d, len %d", e.Table, e.Field, e.Kind, e.Index, e.Len)
}

func (e *BindingError) Unwrap() error {
	return e.Kind
}

// outOfRange builds an ErrIndexOutOfRange BindingError.
func outOfRange(table, field string, index, length int) *BindingError {
	return &BindingError{Kind: ErrIndexOutOfRange, Table: table, Field: field, Index: index, Len: length}
}

// CheckIndex returns an ErrIndexOutOfRange BindingError unless 0 <= index < length.
//
// Parameters:
//   - table: table name used in the error
//   - field: field name used in the error
//   - index: the index to check
//   - length: the table length
//
// Returns:
//   - error: nil if the index is in range
func CheckIndex(table, field string, index, length int) error {
	if index < 0 || index >= length {
		return outOfRange(table, field, index, length)
	}
	return nil
}
