package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
)

// Topic is the routing key of an event.
type Topic string

// Topics published by the task lifecycle.
const (
	TopicTaskCreated   Topic = "task.created"
	TopicTaskTaken     Topic = "task.taken"
	TopicTaskCompleted Topic = "task.completed"
	TopicTaskCancelled Topic = "task.cancelled"
)

// Payload is implemented only by the event types of this package.
type Payload interface {
	topic() Topic
}

// TaskCreated is published after a task is stored.
type TaskCreated struct {
	TaskID        uuid.UUID    `json:"task_id"`
	Title         string       `json:"title"`
	CreatorID     uuid.UUID    `json:"creator_id"`
	CreatorHandle string       `json:"creator_handle"`
	Price         domain.Money `json:"price"`
}

// TaskClaimed is published after an executor takes a task.
type TaskClaimed struct {
	TaskID         uuid.UUID `json:"task_id"`
	Title          string    `json:"title"`
	ExecutorID     uuid.UUID `json:"executor_id"`
	ExecutorHandle string    `json:"executor_handle"`
	CreatorID      uuid.UUID `json:"creator_id"`
}

// TaskCompleted is published after the completion transfer commits.
type TaskCompleted struct {
	TaskID         uuid.UUID    `json:"task_id"`
	ExecutorID     uuid.UUID    `json:"executor_id"`
	ExecutorHandle string       `json:"executor_handle"`
	CreatorID      uuid.UUID    `json:"creator_id"`
	CreatorHandle  string       `json:"creator_handle"`
	Price          domain.Money `json:"price"`
}

// TaskCancelled is published after a creator cancels an open task.
type TaskCancelled struct {
	TaskID    uuid.UUID `json:"task_id"`
	CreatorID uuid.UUID `json:"creator_id"`
}

func (TaskCreated) topic() Topic   { return TopicTaskCreated }
func (TaskClaimed) topic() Topic   { return TopicTaskTaken }
func (TaskCompleted) topic() Topic { return TopicTaskCompleted }
func (TaskCancelled) topic() Topic { return TopicTaskCancelled }

// Event is the envelope delivered to handlers.
type Event struct {
	ID         uuid.UUID `json:"event_id"`
	Topic      Topic     `json:"topic"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    Payload   `json:"payload"`
}

// New wraps payload in an envelope with a fresh id and timestamp.
func New(payload Payload) *Event {
	return &Event{
		ID:         uuid.New(),
		Topic:      payload.topic(),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Publisher accepts events for asynchronous delivery. Publish never blocks
// and never fails the caller; delivery problems are logged.
type Publisher interface {
	Publish(ctx context.Context, event *Event)
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, *Event) {}
