package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
)

// MessageStore defines persistence for chat messages.
type MessageStore interface {
	// Record persists msg if its sender is the creator or executor of the
	// task. Errors: ErrTaskNotFound, domain.ErrForbidden.
	Record(ctx context.Context, msg *domain.ChatMessage) error

	// ListByTask returns a window of the task's messages. The window is
	// counted from the newest message; the result is ordered oldest first.
	ListByTask(ctx context.Context, taskID uuid.UUID, page Page) ([]*domain.ChatMessage, error)
}

// Stores groups the store implementations selected at startup.
type Stores struct {
	Accounts AccountStore
	Tasks    TaskStore
	Messages MessageStore
	// Close releases the underlying resources.
	Close func() error
}
