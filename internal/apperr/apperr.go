// Package apperr defines the error taxonomy shared by the repository,
// service and HTTP layers. Handlers translate these values into status codes
// in a single place; every other layer only wraps and returns them.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound reports a missing entity or a missing parent hero. The two
	// cases are deliberately indistinguishable to callers.
	ErrNotFound = errors.New("not found")
	// ErrForbidden reports an authenticated principal acting on a hero it does not own.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated reports a request without a valid session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrConflict reports a uniqueness clash (duplicate username, import target exists).
	ErrConflict = errors.New("conflict")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field-level problems found in a request payload.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Err returns e when at least one field error was recorded and nil otherwise,
// so validators can build the error unconditionally and return e.Err().
func (e *ValidationError) Err() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Invalid is a shorthand for a single-field ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// ConflictError is returned by hero import when the target hero already
// exists for the importing user and replacement was not requested.
type ConflictError struct {
	HeroID   int64
	HeroName string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("hero %d (%q) already exists; retry with replaceIfExists=true", e.HeroID, e.HeroName)
}

// Unwrap lets errors.Is(err, ErrConflict) match.
func (e *ConflictError) Unwrap() error { return ErrConflict }
