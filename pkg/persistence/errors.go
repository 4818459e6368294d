// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrPointerNotFound indicates a pointer was not found by the given identifier.
	ErrPointerNotFound = errors.New("pointer not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrUserNotFound indicates no user has the given identifier.
	ErrUserNotFound = errors.New("user not found")
)

// RecordError wraps a failed repository operation with the record it was
// performed on.
type RecordError struct {
	Op   string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	Kind string // Kind of record ("pointer", "execution", "user")
	ID   string // Record identifier
	Err  error  // Underlying error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for record errors.
func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewPointerError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Kind: "pointer", ID: id, Err: err}
}

func NewExecutionError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Kind: "execution", ID: id, Err: err}
}

func NewUserError(op, identifier string, err error) *RecordError {
	return &RecordError{Op: op, Kind: "user", ID: identifier, Err: err}
}

// IsPointerNotFound checks if an error indicates a pointer was not found.
func IsPointerNotFound(err error) bool {
	return errors.Is(err, ErrPointerNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsUserNotFound checks if an error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}
