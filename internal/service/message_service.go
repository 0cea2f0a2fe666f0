package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/service/auth"
	"github.com/phrazzld/questboard-api/internal/store"
)

// MessagePoster records a message and delivers it to the connected
// participants of its task, in persisted order.
type MessagePoster interface {
	Post(ctx context.Context, sender *domain.Account, msg *domain.ChatMessage) error
}

// MessageService exposes the request/response side of task chat.
type MessageService interface {
	// Send records body from sender and broadcasts it to every session of the task.
	Send(ctx context.Context, sender *domain.Account, taskID uuid.UUID, body string) (*domain.ChatMessage, error)

	// History returns a window of the task's messages, oldest first.
	History(ctx context.Context, reader *domain.Account, taskID uuid.UUID, page store.Page) ([]*domain.ChatMessage, error)
}

type messageServiceImpl struct {
	tasks    store.TaskStore
	messages store.MessageStore
	poster   MessagePoster
	logger   *slog.Logger
}

// NewMessageService creates a MessageService.
func NewMessageService(tasks store.TaskStore, messages store.MessageStore, poster MessagePoster, logger *slog.Logger) MessageService {
	return &messageServiceImpl{
		tasks:    tasks,
		messages: messages,
		poster:   poster,
		logger:   logger.With(slog.String("component", "message_service")),
	}
}

func (s *messageServiceImpl) authorize(ctx context.Context, account *domain.Account, taskID uuid.UUID, op string) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return NewServiceError("message", op, "failed to retrieve task", err)
	}
	if !auth.AuthorizeTaskAccess(account, task) {
		return fmt.Errorf("%w: not a participant of this task", domain.ErrForbidden)
	}
	return nil
}

func (s *messageServiceImpl) Send(ctx context.Context, sender *domain.Account, taskID uuid.UUID, body string) (*domain.ChatMessage, error) {
	msg, err := domain.NewChatMessage(taskID, sender.ID, body)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, sender, taskID, "send"); err != nil {
		return nil, err
	}
	if err := s.poster.Post(ctx, sender, msg); err != nil {
		return nil, NewServiceError("message", "send", "failed to post message", err)
	}
	return msg, nil
}

func (s *messageServiceImpl) History(ctx context.Context, reader *domain.Account, taskID uuid.UUID, page store.Page) ([]*domain.ChatMessage, error) {
	if err := s.authorize(ctx, reader, taskID, "history"); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTask(ctx, taskID, page.Normalize())
	if err != nil {
		return nil, NewServiceError("message", "history", "failed to list messages", err)
	}
	return msgs, nil
}
