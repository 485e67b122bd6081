package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidTaskKind is returned when a task kind is not one of the known kinds.
	ErrInvalidTaskKind = errors.New("invalid task kind")

	// ErrInvalidInterval is returned when an interval magnitude or unit is not valid.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrInvalidChannel is returned when a delivery channel is not valid.
	ErrInvalidChannel = errors.New("invalid delivery channel")

	// ErrInvalidNotificationKind is returned when a notification kind is not valid.
	ErrInvalidNotificationKind = errors.New("invalid notification kind")

	// ErrInvalidPlatform is returned when a device platform is not valid.
	ErrInvalidPlatform = errors.New("invalid device platform")

	// ErrInvalidTimezone is returned when a timezone name cannot be loaded.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrInvalidSendTime is returned when a configured hour or minute is out of range.
	ErrInvalidSendTime = errors.New("invalid send time")
)

// ValidationError describes a single invalid field.
// It wraps one of the sentinel errors above so callers can use errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports every ValidationError as an ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
