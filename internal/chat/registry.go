package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
)

type conversation struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
	// closed is set when the last session leaves; a closed conversation is
	// no longer reachable from the registry and must not gain members.
	closed bool
}

// Registry tracks the sessions connected to each task.
type Registry struct {
	mu    sync.Mutex
	convs map[uuid.UUID]*conversation

	sessions atomic.Int64
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		convs:  make(map[uuid.UUID]*conversation),
		logger: logger.With(slog.String("component", "conversation_registry")),
	}
}

func (r *Registry) lookup(taskID uuid.UUID, create bool) *conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := r.convs[taskID]
	if conv == nil && create {
		conv = &conversation{sessions: make(map[*Session]struct{})}
		r.convs[taskID] = conv
	}
	return conv
}

// Register adds s to the conversation of taskID. Registering the same
// session twice has no further effect; the result reports whether s was added.
func (r *Registry) Register(taskID uuid.UUID, s *Session) bool {
	for {
		conv := r.lookup(taskID, true)
		conv.mu.Lock()
		if conv.closed {
			conv.mu.Unlock()
			continue
		}
		if _, ok := conv.sessions[s]; ok {
			conv.mu.Unlock()
			return false
		}
		conv.sessions[s] = struct{}{}
		conv.mu.Unlock()
		r.sessions.Add(1)
		return true
	}
}

// Unregister removes s and drops the conversation when it becomes empty.
// The result reports whether s was a member.
func (r *Registry) Unregister(taskID uuid.UUID, s *Session) bool {
	conv := r.lookup(taskID, false)
	if conv == nil {
		return false
	}

	conv.mu.Lock()
	if _, ok := conv.sessions[s]; !ok {
		conv.mu.Unlock()
		return false
	}
	delete(conv.sessions, s)
	empty := len(conv.sessions) == 0
	if empty {
		conv.closed = true
	}
	conv.mu.Unlock()
	r.sessions.Add(-1)

	if empty {
		r.mu.Lock()
		if r.convs[taskID] == conv {
			delete(r.convs, taskID)
		}
		r.mu.Unlock()
	}
	return true
}

// Broadcast queues frame on every session of taskID except exclude, which
// may be nil. Sessions that cannot accept the frame are closed and
// unregistered; the rest still receive it. It returns the number of
// sessions the frame was queued on.
func (r *Registry) Broadcast(ctx context.Context, taskID uuid.UUID, frame any, exclude *Session) (int, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return 0, fmt.Errorf("failed to encode frame: %w", err)
	}

	conv := r.lookup(taskID, false)
	if conv == nil {
		return 0, nil
	}
	conv.mu.Lock()
	members := make([]*Session, 0, len(conv.sessions))
	for s := range conv.sessions {
		if s != exclude {
			members = append(members, s)
		}
	}
	conv.mu.Unlock()

	log := logger.FromContextOrDefault(ctx, r.logger)
	delivered := 0
	for _, s := range members {
		if err := s.enqueue(data); err != nil {
			log.Warn("dropping session after failed delivery",
				slog.String("task_id", taskID.String()),
				slog.String("session_id", s.ID().String()),
				slog.String("error", err.Error()))
			r.Unregister(taskID, s)
			s.Close(websocket.CloseTryAgainLater, "delivery failed")
			continue
		}
		delivered++
	}
	return delivered, nil
}

// members returns a snapshot of the sessions of taskID.
func (r *Registry) members(taskID uuid.UUID) []*Session {
	conv := r.lookup(taskID, false)
	if conv == nil {
		return nil
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	out := make([]*Session, 0, len(conv.sessions))
	for s := range conv.sessions {
		out = append(out, s)
	}
	return out
}

// hasConversation reports whether taskID has at least one session.
func (r *Registry) hasConversation(taskID uuid.UUID) bool {
	return r.lookup(taskID, false) != nil
}

// Stats returns the number of registered sessions and conversations.
func (r *Registry) Stats() (sessions, conversations int) {
	r.mu.Lock()
	conversations = len(r.convs)
	r.mu.Unlock()
	return int(r.sessions.Load()), conversations
}

// CloseAll closes every registered session with code and text.
func (r *Registry) CloseAll(code int, text string) {
	r.mu.Lock()
	convs := make([]*conversation, 0, len(r.convs))
	for _, conv := range r.convs {
		convs = append(convs, conv)
	}
	r.mu.Unlock()

	for _, conv := range convs {
		conv.mu.Lock()
		for s := range conv.sessions {
			s.Close(code, text)
		}
		conv.mu.Unlock()
	}
}
