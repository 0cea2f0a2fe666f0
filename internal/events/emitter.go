package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// InMemoryEventEmitter fans each event out to its handlers in registration
// order, on the caller's goroutine.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

// NewInMemoryEventEmitter returns an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{logger: logger.With("component", "event_emitter")}
}

// RegisterHandler subscribes h to every topic.
func (e *InMemoryEventEmitter) RegisterHandler(h EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, h)
	n := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("event handler registered", slog.Int("handlers", n))
}

// HandlerCount returns the number of subscribed handlers.
func (e *InMemoryEventEmitter) HandlerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}

// EmitEvent delivers event to every handler. A handler failure is logged and
// does not skip the remaining handlers; the first failure is returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	e.mu.RLock()
	handlers := slices.Clone(e.handlers)
	e.mu.RUnlock()

	log := e.logger.With(
		slog.String("event_id", event.ID.String()),
		slog.String("topic", string(event.Topic)))

	if len(handlers) == 0 {
		log.Warn("event dropped, nobody is subscribed")
		return nil
	}

	var first error
	for i, h := range handlers {
		err := h.HandleEvent(ctx, event)
		if err == nil {
			continue
		}
		log.Error("event handler failed", slog.Int("handler", i), slog.String("error", err.Error()))
		if first == nil {
			first = err
		}
	}
	return first
}
