package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the tasko library

var (
	// ErrClosed indicates that an operation was attempted on a closed registry
	ErrClosed = errors.New("resource is closed")

	// ErrCapacityExceeded indicates that every slot of a bounded registry is occupied
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidID indicates a task id that is out of range or not occupied
	ErrInvalidID = errors.New("invalid task id")

	// ErrResourceCreation indicates that the runtime refused to create an
	// execution context or timer
	ErrResourceCreation = errors.New("resource creation failed")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ValidationError describes a rejected configuration or task field.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError records which registry operation failed and why.
type OperationError struct {
	Module    string
	Operation string
	ID        int
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError for the given id.
func NewOperationError(module, operation string, id int, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		ID:        id,
		Cause:     cause,
	}
}

// WithContext attaches extra detail and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s(id=%d) failed: %v", e.Module, e.Operation, e.ID, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// IsTemporary returns true if the error indicates a condition that may clear
// once other tasks finish and free their slots
func IsTemporary(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) || errors.Is(err, ErrResourceCreation)
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
