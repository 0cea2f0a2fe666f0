package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/service/auth"
	"github.com/phrazzld/questboard-api/internal/store"
)

// RegisterRequest defines the payload for the registration endpoint.
type RegisterRequest struct {
	Handle   string `json:"handle"              validate:"required,min=3,max=50"`
	Email    string `json:"email"               validate:"required,email"`
	Password string `json:"password"            validate:"required,min=8,max=72"`
	FullName string `json:"full_name,omitempty" validate:"max=200"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Handle   string `json:"handle"   validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Account *AccountResponse `json:"account"`
	*auth.TokenPair
}

// AccountResponse is the private view of the caller's own account.
type AccountResponse struct {
	ID         uuid.UUID         `json:"id"`
	Handle     string            `json:"handle"`
	Email      string            `json:"email"`
	FullName   string            `json:"full_name,omitempty"`
	Balance    domain.Money      `json:"balance"`
	Reputation domain.Reputation `json:"reputation"`
	Active     bool              `json:"is_active"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ProfileResponse is the public view of an account.
type ProfileResponse struct {
	ID         uuid.UUID         `json:"id"`
	Handle     string            `json:"handle"`
	FullName   string            `json:"full_name,omitempty"`
	Reputation domain.Reputation `json:"reputation"`
	CreatedAt  time.Time         `json:"created_at"`
}

func newAccountResponse(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:         a.ID,
		Handle:     a.Handle,
		Email:      a.Email,
		FullName:   a.FullName,
		Balance:    a.Balance,
		Reputation: a.Reputation,
		Active:     a.Active,
		CreatedAt:  a.CreatedAt,
	}
}

func newProfileResponse(a *domain.Account) *ProfileResponse {
	return &ProfileResponse{
		ID:         a.ID,
		Handle:     a.Handle,
		FullName:   a.FullName,
		Reputation: a.Reputation,
		CreatedAt:  a.CreatedAt,
	}
}

// CreateTaskRequest defines the payload for task creation.
type CreateTaskRequest struct {
	Title       string       `json:"title"                 validate:"required,min=5,max=200"`
	Description string       `json:"description,omitempty"`
	Price       domain.Money `json:"price"                 validate:"gt=0"`
	Category    string       `json:"category,omitempty"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
}

// CompleteTaskResponse carries the completed task and its transfer.
type CompleteTaskResponse struct {
	Task    *domain.Task   `json:"task"`
	Payment domain.Payment `json:"payment"`
}

func newCompleteTaskResponse(c *store.Completion) CompleteTaskResponse {
	return CompleteTaskResponse{Task: c.Task, Payment: c.Payment}
}

// SendMessageRequest defines the payload for posting a chat message.
type SendMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// MessageResponse is one chat message with its sender's handle.
type MessageResponse struct {
	ID             uuid.UUID `json:"id"`
	TaskID         uuid.UUID `json:"task_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderUsername string    `json:"sender_username,omitempty"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListResponse wraps a page of items.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status            string `json:"status"`
	ActiveConnections int    `json:"active_connections"`
	Conversations     int    `json:"conversations"`
}
