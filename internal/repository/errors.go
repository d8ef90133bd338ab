// Package repository implements the database access layer for the control
// harmonization engine. This file defines the error taxonomy shared by all
// repositories so handlers can map failures to HTTP statuses with errors.As.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation targets a row that does not exist.
var ErrNotFound = errors.New("record not found")

// ErrControlReferenced is returned when deleting a control that is still
// referenced by mappings. Mappings must be removed first; the catalog never
// cascade-deletes the mapping graph.
var ErrControlReferenced = errors.New("control is referenced by existing mappings")

// ValidationError reports malformed input: self-mapping, missing required
// ids, an unknown mapping type. Surfaced immediately to the caller; never
// retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConflictError reports a duplicate mapping on the single-create path.
// ExistingID carries the id of the mapping already covering the unordered
// pair so the caller can reference it.
type ConflictError struct {
	ExistingID int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("mapping already exists for this control pair (id=%d)", e.ExistingID)
}
