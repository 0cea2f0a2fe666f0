package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/questboard-api/internal/api/shared"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/store"
)

// Stable error kinds carried in the "code" field of error responses.
const (
	CodeUnauthenticated    = "Unauthenticated"
	CodeAccountInactive    = "AccountInactive"
	CodeNotFound           = "NotFound"
	CodeForbidden          = "Forbidden"
	CodeInvalidState       = "InvalidState"
	CodeSelfClaimForbidden = "SelfClaimForbidden"
	CodeInsufficientFunds  = "InsufficientFunds"
	CodeValidation         = "ValidationError"
	CodeConflict           = "Conflict"
	CodeInternal           = "Internal"
)

// ErrorCode returns the stable error kind for err.
func ErrorCode(err error) string {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, domain.ErrAccountInactive):
		return CodeAccountInactive
	case errors.Is(err, domain.ErrSelfClaimForbidden):
		return CodeSelfClaimForbidden
	case errors.Is(err, domain.ErrForbidden):
		return CodeForbidden
	case errors.Is(err, domain.ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, domain.ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, store.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, store.ErrDuplicate):
		return CodeConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, shared.ErrEmptyBody),
		errors.As(err, &verrs):
		return CodeValidation
	}
	return CodeInternal
}

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch ErrorCode(err) {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeAccountInactive, CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState, CodeConflict:
		return http.StatusConflict
	case CodeInsufficientFunds, CodeSelfClaimForbidden, CodeValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var ve *domain.ValidationError
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Authentication required"
	case errors.Is(err, domain.ErrAccountInactive):
		return "Account is inactive"
	case errors.Is(err, domain.ErrSelfClaimForbidden):
		return "You cannot claim your own task"
	case errors.Is(err, domain.ErrForbidden):
		return "You do not have access to this task"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "Insufficient funds"
	case errors.Is(err, domain.ErrInvalidState):
		return "Task is not in a valid state for this operation"
	case errors.Is(err, store.ErrAccountNotFound):
		return "Account not found"
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"
	case errors.Is(err, store.ErrHandleExists):
		return "Handle already exists"
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"
	case errors.As(err, &ve):
		if ve.Field == "" {
			return ve.Message
		}
		return fmt.Sprintf("Invalid %s: %s", ve.Field, ve.Message)
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, domain.ErrValidation):
		return strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	case errors.As(err, &verrs):
		return SanitizeValidationError(err)
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	}
	return "An unexpected error occurred"
}

// HandleAPIError writes the error response for err. defaultMsg replaces the
// generic message of unexpected errors when set.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		msg = defaultMsg
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, ErrorCode(err), msg, err, opts...)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min", "gte":
		return "too short"
	case "max", "lte":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gt":
		return "must be positive"
	default:
		return "validation failed"
	}
}
