// Package apperr defines the error taxonomy shared by the service layer.
// Stores wrap driver errors with fmt.Errorf; services translate them into
// these types so handlers and retry logic can branch on errors.As/Is.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports missing or malformed caller input. Never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Msg
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// Validation builds a ValidationError for the given field.
func Validation(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// NotFoundError reports that a referenced id does not resolve. Never retried.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidStateError reports an operation attempted from a disallowed
// lifecycle state. Never retried.
type InvalidStateError struct {
	Entity string
	State  string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s in state %q", e.Op, e.Entity, e.State)
}

// InvalidState builds an InvalidStateError.
func InvalidState(entity, state, op string) error {
	return &InvalidStateError{Entity: entity, State: state, Op: op}
}

// TransientStoreError wraps a store failure classified as retryable.
type TransientStoreError struct {
	Err error
}

func (e *TransientStoreError) Error() string { return "transient store error: " + e.Err.Error() }
func (e *TransientStoreError) Unwrap() error { return e.Err }

// IndexMissingError reports that a query needs an index that does not exist.
// Read paths with a fallback work around it; others surface it to the caller.
type IndexMissingError struct {
	Err error
}

func (e *IndexMissingError) Error() string { return "missing index: " + e.Err.Error() }
func (e *IndexMissingError) Unwrap() error { return e.Err }

// transientPatterns are matched case-insensitively against the error chain.
// SQLITE_BUSY and SQLITE_LOCKED surface as "database is locked"/"busy" from
// the driver; "network", "unavailable", "deadline" and "internal" cover the
// remote-store shapes.
var transientPatterns = []string{
	"database is locked",
	"database table is locked",
	"busy",
	"network",
	"unavailable",
	"deadline",
	"internal error",
}

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientStoreError
	if errors.As(err, &te) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsIndexMissing reports whether err indicates a missing index, either typed
// or by message pattern.
func IsIndexMissing(err error) bool {
	if err == nil {
		return false
	}
	var ie *IndexMissingError
	if errors.As(err, &ie) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such index") || strings.Contains(msg, "requires an index")
}
