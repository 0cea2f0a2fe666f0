package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/api/shared"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/service"
)

// ConversationServer upgrades a request into a task conversation.
type ConversationServer interface {
	ServeTask(w http.ResponseWriter, r *http.Request, rawTaskID, token string)
}

// AccountLookup resolves account ids for message rendering.
type AccountLookup interface {
	Get(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
}

// ChatHandler serves the message history, message posting and WebSocket endpoints.
type ChatHandler struct {
	messages service.MessageService
	accounts AccountLookup
	server   ConversationServer
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(messages service.MessageService, accounts AccountLookup, server ConversationServer) *ChatHandler {
	return &ChatHandler{messages: messages, accounts: accounts, server: server}
}

// Send handles POST /api/tasks/{id}/messages.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromRequest(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	var req SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.messages.Send(r.Context(), account, taskID, req.Message)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to send message")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, newMessageResponse(msg, account.Handle))
}

// History handles GET /api/tasks/{id}/messages.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromRequest(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	page, err := parsePage(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	msgs, err := h.messages.History(r.Context(), account, taskID, page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list messages")
		return
	}

	handles := map[uuid.UUID]string{account.ID: account.Handle}
	items := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		handle, known := handles[m.SenderID]
		if !known {
			// A sender that cannot be resolved is rendered without a handle.
			if sender, err := h.accounts.Get(r.Context(), m.SenderID); err == nil {
				handle = sender.Handle
			}
			handles[m.SenderID] = handle
		}
		items = append(items, newMessageResponse(m, handle))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ListResponse[MessageResponse]{
		Items:  items,
		Offset: page.Offset,
		Limit:  page.Limit,
	})
}

// Connect handles GET /ws/tasks/{id}?token=...
func (h *ChatHandler) Connect(w http.ResponseWriter, r *http.Request) {
	h.server.ServeTask(w, r, chi.URLParam(r, "id"), r.URL.Query().Get("token"))
}

func newMessageResponse(m *domain.ChatMessage, handle string) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		TaskID:         m.TaskID,
		SenderID:       m.SenderID,
		SenderUsername: handle,
		Message:        m.Body,
		CreatedAt:      m.CreatedAt,
	}
}
