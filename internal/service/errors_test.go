package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestServiceError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ServiceError
		expected string
	}{
		{
			name:     "with underlying error",
			err:      &ServiceError{Service: "task", Operation: "claim", Message: "store failed", Err: errors.New("connection reset")},
			expected: "task service claim failed: store failed: connection reset",
		},
		{
			name:     "without underlying error",
			err:      &ServiceError{Service: "account", Operation: "login", Message: "no verifier"},
			expected: "account service login failed: no verifier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestNewServiceError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.NoError(t, NewServiceError("task", "get", "x", nil))
	})

	t.Run("expected errors pass through", func(t *testing.T) {
		for _, sentinel := range []error{
			domain.ErrInsufficientFunds,
			domain.ErrInvalidState,
			store.ErrTaskNotFound,
			store.ErrHandleExists,
			fmt.Errorf("%w: only the creator can cancel a task", domain.ErrForbidden),
		} {
			got := NewServiceError("task", "complete", "failed", sentinel)
			assert.Same(t, sentinel, got)
			var serviceErr *ServiceError
			assert.False(t, errors.As(got, &serviceErr))
		}
	})

	t.Run("unexpected errors are wrapped", func(t *testing.T) {
		cause := errors.New("disk full")
		got := NewServiceError("task", "complete", "failed to complete task", cause)

		var serviceErr *ServiceError
		assert.True(t, errors.As(got, &serviceErr))
		assert.Equal(t, "task", serviceErr.Service)
		assert.Equal(t, "complete", serviceErr.Operation)
		assert.ErrorIs(t, got, cause)
		assert.False(t, IsExpected(got))
	})
}
