// Package apperr defines the error kinds shared by services and the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthenticated means the caller could not be identified.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the caller is identified but not allowed to act on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock means the requested quantity exceeds the product's recorded stock.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// NotFound wraps ErrNotFound with the missing entity.
func NotFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

// ValidationError collects field-level violations. Every violated field is reported,
// not just the first one.
type ValidationError struct {
	Fields map[string][]string
}

// Add records a message for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Has reports whether field has at least one violation.
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// OrNil returns e when it holds violations and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a ValidationError with a single field violation.
func Invalid(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// AsValidation extracts a *ValidationError from err's chain.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
