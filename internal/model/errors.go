package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input at the API boundary.
	ErrValidation = errors.New("validation failed")
	// ErrAmountZero is returned for a mutation with a zero amount.
	ErrAmountZero = errors.New("amount must not be zero")
	// ErrNotFound is returned for an unknown transaction id.
	ErrNotFound = errors.New("transaction not found")
	// ErrConflict is returned when creating a profile that already exists.
	ErrConflict = errors.New("profile already exists")
	// ErrBackendUnavailable wraps a single backend failure. The storage chain
	// recovers from it and never returns it on its own.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrPersistence means every configured backend failed to save. In-memory
	// state still holds the change, but it is not durable.
	ErrPersistence = errors.New("persistence failure: change is not durable")
)

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid returns a *ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
