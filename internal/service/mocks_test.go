package service

import (
	"context"
	"sync"

	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/events"
	"github.com/stretchr/testify/mock"
)

// MockPublisher mocks the events.Publisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event *events.Event) {
	m.Called(ctx, event)
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, event *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingPublisher) topics() []events.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Topic, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Topic)
	}
	return out
}

// MockPoster mocks the MessagePoster interface
type MockPoster struct {
	mock.Mock
}

func (m *MockPoster) Post(ctx context.Context, sender *domain.Account, msg *domain.ChatMessage) error {
	return m.Called(ctx, sender, msg).Error(0)
}

// countingObserver counts task transitions by status
type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingObserver) TaskTransitioned(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[status]++
}
