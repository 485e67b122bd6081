package schedule

import (
	"errors"
	"fmt"
)

// Common error types for the schedule service
var (
	// ErrRuleNotFound indicates that the schedule rule does not exist.
	ErrRuleNotFound = errors.New("schedule rule not found")

	// ErrRuleNotOwned indicates that the rule belongs to another owner.
	ErrRuleNotOwned = errors.New("unauthorized access: schedule rule not owned by user")

	// ErrOccurrenceNotFound indicates that the occurrence does not exist.
	ErrOccurrenceNotFound = errors.New("task occurrence not found")

	// ErrOccurrenceNotOwned indicates that the occurrence belongs to another owner.
	ErrOccurrenceNotOwned = errors.New("unauthorized access: task occurrence not owned by user")

	// ErrNoPendingOccurrence indicates that a rule currently has no pending occurrence.
	ErrNoPendingOccurrence = errors.New("no pending occurrence")
)

// ServiceError wraps unexpected failures of the schedule service with the
// operation that failed.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "complete_occurrence")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
