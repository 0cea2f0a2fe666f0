package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
)

// FrameType discriminates outbound frames.
type FrameType string

const (
	FrameConnection FrameType = "connection"
	FrameMessage    FrameType = "message"
	FrameError      FrameType = "error"
)

// ConnectionFrame acknowledges a successful handshake to the new session only.
type ConnectionFrame struct {
	Type     FrameType `json:"type"`
	Message  string    `json:"message"`
	TaskID   uuid.UUID `json:"task_id"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// MessageFrame carries one persisted chat message.
type MessageFrame struct {
	Type           FrameType `json:"type"`
	ID             uuid.UUID `json:"id"`
	TaskID         uuid.UUID `json:"task_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// ErrorFrame reports a problem with an inbound frame to its sender.
type ErrorFrame struct {
	Type    FrameType `json:"type"`
	Message string    `json:"message"`
}

// InboundFrame is what clients send.
type InboundFrame struct {
	Message *string `json:"message"`
}

func newConnectionFrame(taskID uuid.UUID, account *domain.Account) ConnectionFrame {
	return ConnectionFrame{
		Type:     FrameConnection,
		Message:  "Connected to task chat",
		TaskID:   taskID,
		UserID:   account.ID,
		Username: account.Handle,
	}
}

// NewMessageFrame renders msg as sent by senderHandle.
func NewMessageFrame(msg *domain.ChatMessage, senderHandle string) MessageFrame {
	return MessageFrame{
		Type:           FrameMessage,
		ID:             msg.ID,
		TaskID:         msg.TaskID,
		SenderID:       msg.SenderID,
		SenderUsername: senderHandle,
		Message:        msg.Body,
		CreatedAt:      msg.CreatedAt,
	}
}

func newErrorFrame(message string) ErrorFrame {
	return ErrorFrame{Type: FrameError, Message: message}
}
