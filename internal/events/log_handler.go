package events

import (
	"context"
	"log/slog"
)

// LogHandler records every event as a structured notification log line.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	return &LogHandler{logger: logger.With("component", "notifications")}
}

// HandleEvent implements EventHandler.
func (h *LogHandler) HandleEvent(ctx context.Context, event *Event) error {
	attrs := []any{
		"event_id", event.ID,
		"topic", event.Topic,
		"occurred_at", event.OccurredAt,
	}
	switch p := event.Payload.(type) {
	case TaskCreated:
		attrs = append(attrs, "task_id", p.TaskID, "creator", p.CreatorHandle, "price", p.Price.String())
	case TaskClaimed:
		attrs = append(attrs, "task_id", p.TaskID, "executor", p.ExecutorHandle, "creator_id", p.CreatorID)
	case TaskCompleted:
		attrs = append(attrs, "task_id", p.TaskID, "creator", p.CreatorHandle, "executor", p.ExecutorHandle, "price", p.Price.String())
	case TaskCancelled:
		attrs = append(attrs, "task_id", p.TaskID, "creator_id", p.CreatorID)
	}
	h.logger.InfoContext(ctx, "notification", attrs...)
	return nil
}
