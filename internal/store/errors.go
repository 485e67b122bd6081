package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would violate a uniqueness
	// constraint. For the delivery ledger this is ordinary control flow: the
	// slot was already claimed.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInternal is returned for unexpected storage failures.
	ErrInternal = errors.New("internal store error")

	// Entity-specific "not found" errors

	// ErrRuleNotFound indicates that the requested schedule rule does not exist.
	ErrRuleNotFound = fmt.Errorf("%w: schedule rule", ErrNotFound)

	// ErrOccurrenceNotFound indicates that the requested task occurrence does not exist.
	ErrOccurrenceNotFound = fmt.Errorf("%w: task occurrence", ErrNotFound)

	// ErrPreferenceNotFound indicates that the owner has no stored preference row.
	ErrPreferenceNotFound = fmt.Errorf("%w: notification preference", ErrNotFound)

	// ErrRecipientNotFound indicates that the owner's contact data is missing.
	ErrRecipientNotFound = fmt.Errorf("%w: recipient", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrRuleExists indicates a rule already exists for the subject and kind.
	ErrRuleExists = fmt.Errorf("%w: schedule rule", ErrDuplicate)

	// ErrAlreadyClaimed indicates the delivery slot already has a ledger record.
	ErrAlreadyClaimed = fmt.Errorf("%w: delivery record", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "schedule_rule", "device_token")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
