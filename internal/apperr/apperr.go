// Package apperr defines the error taxonomy shared across the engine:
// sentinel errors for lookup/ownership failures and typed errors for
// validation and transient persistence problems.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested routine or session does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized indicates the entity exists but belongs to another user.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError is a user-correctable input problem. It blocks the
// operation but needs no retry beyond fixing the input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Validation builds a ValidationError for the given field.
func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PersistenceError is a transient write failure. Local state is preserved
// and the operation may be retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError for the given operation.
func Persistence(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
