package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// MockEventHandler records handled events.
type MockEventHandler struct {
	mu           sync.Mutex
	Handled      []*Event
	HandlerError error
}

func (m *MockEventHandler) HandleEvent(_ context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handled = append(m.Handled, event)
	return m.HandlerError
}

func (m *MockEventHandler) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Handled)
}

type countingObserver struct {
	published, dropped, failed atomic.Int32
}

func (o *countingObserver) EventPublished(string) { o.published.Add(1) }
func (o *countingObserver) EventDropped(string)   { o.dropped.Add(1) }
func (o *countingObserver) EventFailed(string)    { o.failed.Add(1) }

func TestNewSetsTopic(t *testing.T) {
	tests := []struct {
		payload Payload
		topic   Topic
	}{
		{TaskCreated{TaskID: uuid.New()}, TopicTaskCreated},
		{TaskClaimed{TaskID: uuid.New()}, TopicTaskTaken},
		{TaskCompleted{TaskID: uuid.New()}, TopicTaskCompleted},
		{TaskCancelled{TaskID: uuid.New()}, TopicTaskCancelled},
	}
	for _, tt := range tests {
		e := New(tt.payload)
		assert.Equal(t, tt.topic, e.Topic)
		assert.NotEqual(t, uuid.Nil, e.ID)
		assert.False(t, e.OccurredAt.IsZero())
	}
}

func TestEventJSON(t *testing.T) {
	e := New(TaskCompleted{
		TaskID:         uuid.New(),
		ExecutorHandle: "bob",
		CreatorHandle:  "alice",
		Price:          domain.Money(5000),
	})

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "task.completed", decoded["topic"])
	assert.Equal(t, e.ID.String(), decoded["event_id"])
	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "bob", payload["executor_handle"])
	assert.InDelta(t, 50.0, payload["price"], 0.001)
}

func TestInMemoryEventEmitter(t *testing.T) {
	log := logger.Discard()

	t.Run("no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		assert.NoError(t, emitter.EmitEvent(context.Background(), New(TaskCancelled{})))
	})

	t.Run("failing handler does not stop the others", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		failing := &MockEventHandler{HandlerError: errors.New("boom")}
		ok := &MockEventHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(ok)

		err := emitter.EmitEvent(context.Background(), New(TaskCancelled{}))
		assert.EqualError(t, err, "boom")
		assert.Equal(t, 1, failing.Count())
		assert.Equal(t, 1, ok.Count())
		assert.Equal(t, 2, emitter.HandlerCount())
	})
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	log := logger.Discard()
	emitter := NewInMemoryEventEmitter(log)
	handler := &MockEventHandler{}
	emitter.RegisterHandler(handler)

	obs := &countingObserver{}
	d := NewDispatcher(emitter, DispatcherConfig{QueueSize: 16, WorkerCount: 3}, obs, log)
	d.Start()

	for i := 0; i < 10; i++ {
		d.Publish(context.Background(), New(TaskCreated{TaskID: uuid.New()}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))

	assert.Equal(t, 10, handler.Count())
	assert.Equal(t, int32(10), obs.published.Load())

	d.Publish(context.Background(), New(TaskCreated{}))
	assert.Equal(t, int32(1), obs.dropped.Load())
	assert.ErrorIs(t, d.Enqueue(New(TaskCreated{})), ErrQueueClosed)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	log := logger.Discard()
	emitter := NewInMemoryEventEmitter(log)
	obs := &countingObserver{}
	d := NewDispatcher(emitter, DispatcherConfig{QueueSize: 1, WorkerCount: 1}, obs, log)

	require.NoError(t, d.Enqueue(New(TaskCreated{})))
	assert.ErrorIs(t, d.Enqueue(New(TaskCreated{})), ErrQueueFull)

	d.Publish(context.Background(), New(TaskCreated{}))
	assert.Equal(t, int32(1), obs.dropped.Load())

	d.Start()
	require.NoError(t, d.Shutdown(context.Background()))
}

func TestDispatcherCountsHandlerFailures(t *testing.T) {
	log := logger.Discard()
	emitter := NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(&MockEventHandler{HandlerError: errors.New("webhook down")})

	obs := &countingObserver{}
	d := NewDispatcher(emitter, DispatcherConfig{QueueSize: 4, WorkerCount: 1}, obs, log)
	d.Start()
	d.Publish(context.Background(), New(TaskClaimed{}))
	require.NoError(t, d.Shutdown(context.Background()))

	assert.Equal(t, int32(1), obs.failed.Load())
	assert.Equal(t, int32(0), obs.published.Load())
}

func TestDispatcherShutdownWithoutStartDeliversQueued(t *testing.T) {
	log := logger.Discard()
	emitter := NewInMemoryEventEmitter(log)
	handler := &MockEventHandler{}
	emitter.RegisterHandler(handler)

	obs := &countingObserver{}
	d := NewDispatcher(emitter, DispatcherConfig{QueueSize: 8, WorkerCount: 2}, obs, log)
	for i := 0; i < 3; i++ {
		d.Publish(context.Background(), New(TaskCancelled{TaskID: uuid.New()}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))

	assert.Equal(t, 3, handler.Count())
	assert.Equal(t, int32(3), obs.published.Load())
	assert.Zero(t, obs.dropped.Load())

	d.Start()
	require.NoError(t, d.Shutdown(ctx))
	assert.Equal(t, 3, handler.Count())
}

func TestLogHandler(t *testing.T) {
	h := NewLogHandler(logger.Discard())
	for _, p := range []Payload{TaskCreated{}, TaskClaimed{}, TaskCompleted{}, TaskCancelled{}} {
		assert.NoError(t, h.HandleEvent(context.Background(), New(p)))
	}
}
