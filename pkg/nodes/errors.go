package nodes

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError is one offending form field. Field is empty when the problem
// concerns the whole form.
type FieldError struct {
	Form   string `json:"form"`
	Field  string `json:"field,omitempty"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func (e FieldError) String() string {
	where := e.Form
	if e.Field != "" {
		where += "." + e.Field
	}

	return where + ": " + e.Detail
}

// ValidationError reports every field that failed validation in one step.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	details := make([]string, 0, len(e.Errors))
	for _, fieldError := range e.Errors {
		details = append(details, fieldError.String())
	}

	return "validation failed: " + strings.Join(details, "; ")
}

// CannotMoveError reports that no next node could be resolved, such as a
// rejection pointing at a node that cannot be rewound to or a condition
// that failed to evaluate.
type CannotMoveError struct {
	NodeID string
	Reason string
	Err    error
}

func (e *CannotMoveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot move from node %s: %s: %v", e.NodeID, e.Reason, e.Err)
	}

	return fmt.Sprintf("cannot move from node %s: %s", e.NodeID, e.Reason)
}

func (e *CannotMoveError) Unwrap() error {
	return e.Err
}

func IsValidationError(err error) bool {
	var target *ValidationError

	return errors.As(err, &target)
}

func IsCannotMove(err error) bool {
	var target *CannotMoveError

	return errors.As(err, &target)
}
