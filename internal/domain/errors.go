package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced store does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreIDMismatch is returned when a promotion payload names a different
	// store than the one it is being created under.
	ErrStoreIDMismatch = errors.New("store_id in payload does not match store in path")
)

// FieldError describes one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
	cause  error
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.cause }

// HasField reports whether name is among the offending fields.
func (e *ValidationError) HasField(name string) bool {
	for _, f := range e.Fields {
		if f.Field == name {
			return true
		}
	}
	return false
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func mismatchError() *ValidationError {
	return &ValidationError{
		Fields: []FieldError{{Field: "store_id", Message: ErrStoreIDMismatch.Error()}},
		cause:  ErrStoreIDMismatch,
	}
}

// fieldErrors accumulates field failures; err returns nil when there are none.
type fieldErrors []FieldError

func (f *fieldErrors) add(field, message string) {
	*f = append(*f, FieldError{Field: field, Message: message})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}
