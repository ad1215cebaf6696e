// Package errs holds error types shared across packages, so callers can tell
// input problems apart from remote failures without string matching.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError indicates invalid user input. The operation never started;
// retrying without correcting the input will fail the same way.
type ValidationError struct {
	Field   string // the input that failed validation
	Value   string // the offending value, may be empty
	Message string // why validation failed
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Required is the ValidationError for a missing field.
func Required(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "is required"}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
