package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMessageLength bounds a chat message body, counted in characters.
const MaxMessageLength = 2000

// Message validation errors
var (
	ErrEmptyMessage   = fmt.Errorf("%w: message cannot be empty", ErrValidation)
	ErrMessageTooLong = fmt.Errorf("%w: message must be at most %d characters", ErrValidation, MaxMessageLength)
	ErrEmptySenderID  = fmt.Errorf("%w: sender ID cannot be empty", ErrValidation)
)

// ChatMessage is one immutable utterance in a task conversation.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChatMessage trims body and creates a message. IDs are UUIDv7 so that
// ordering by ID matches creation order for ties on CreatedAt.
func NewChatMessage(taskID, senderID uuid.UUID, body string) (*ChatMessage, error) {
	m := &ChatMessage{
		ID:        uuid.Must(uuid.NewV7()),
		TaskID:    taskID,
		SenderID:  senderID,
		Body:      strings.TrimSpace(body),
		CreatedAt: time.Now().UTC(),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Stamp assigns a fresh id and creation time. Call it where the message's
// position in its conversation is decided, so id and time follow that order.
func (m *ChatMessage) Stamp(at time.Time) {
	m.ID = uuid.Must(uuid.NewV7())
	m.CreatedAt = at.UTC()
}

// Validate checks the message invariants.
func (m *ChatMessage) Validate() error {
	if m.TaskID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if m.SenderID == uuid.Nil {
		return ErrEmptySenderID
	}
	if m.Body == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(m.Body) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}
