package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for missing entities and for entities owned by
	// another user. Callers never learn which of the two it was.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a transaction fingerprint already exists.
	ErrDuplicate = errors.New("duplicate transaction")

	// ErrInvalidState is returned when an import step runs out of order.
	ErrInvalidState = errors.New("invalid import state")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
