package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/store"
)

// expectedErrors are returned to callers unwrapped so that the API layer
// can map them without inspecting service context.
var expectedErrors = []error{
	domain.ErrValidation,
	domain.ErrInvalidID,
	domain.ErrUnauthenticated,
	domain.ErrAccountInactive,
	domain.ErrForbidden,
	domain.ErrInvalidState,
	domain.ErrSelfClaimForbidden,
	domain.ErrInsufficientFunds,
	store.ErrNotFound,
	store.ErrDuplicate,
}

// IsExpected reports whether err is one of the typed rejections callers
// branch on, as opposed to an infrastructure fault.
func IsExpected(err error) bool {
	for _, target := range expectedErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ServiceError wraps an unexpected failure with the service and operation
// that observed it.
type ServiceError struct {
	Service   string
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err in a ServiceError. Expected errors are returned
// directly without wrapping, and a nil err yields nil.
func NewServiceError(service, operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if IsExpected(err) {
		return err
	}
	return &ServiceError{
		Service:   service,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
