// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the marketplace. Callers branch on them with errors.Is.
var (
	// ErrValidation is returned when a domain entity or request fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or empty.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnauthenticated is returned when a credential is missing, malformed or expired.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrAccountInactive is returned when a credential resolves to a deactivated account.
	ErrAccountInactive = errors.New("account is inactive")

	// ErrForbidden is returned when an account may not act on an existing resource.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState is returned when a task transition precondition is violated.
	ErrInvalidState = errors.New("invalid task state")

	// ErrSelfClaimForbidden is returned when a creator tries to claim their own task.
	ErrSelfClaimForbidden = errors.New("cannot claim own task")

	// ErrInsufficientFunds is returned when a balance cannot cover a task price.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTransport is returned when delivery to a connected peer fails.
	ErrTransport = errors.New("transport error")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError. A nil err defaults to ErrValidation.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Field, e.Message, e.Err)
}

// Unwrap supports errors.Is against the wrapped sentinel. ErrInvalidID is
// itself a validation failure, so both are reported.
func (e *ValidationError) Unwrap() []error {
	if errors.Is(e.Err, ErrValidation) {
		return []error{e.Err}
	}
	return []error{e.Err, ErrValidation}
}
