package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/events"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait).Error(0)
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, msg).Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

func TestNewPublisherDeclaresDurableTopicExchange(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", "notifications", "topic", true, false, false, false).Return(nil)

	p, err := NewPublisher(ch, "notifications", logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, p)
	ch.AssertExpectations(t)
}

func TestNewPublisherDeclareFailure(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", "notifications", "topic", true, false, false, false).Return(errors.New("access refused"))
	ch.On("Close").Return(nil)

	_, err := NewPublisher(ch, "notifications", logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access refused")
	ch.AssertExpectations(t)
}

func TestHandleEventPublishesPersistentJSON(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", "notifications", "topic", true, false, false, false).Return(nil)

	event := events.New(events.TaskClaimed{TaskID: uuid.New(), ExecutorHandle: "bob"})
	ch.On("PublishWithContext", "notifications", "task.taken", mock.MatchedBy(func(msg amqp.Publishing) bool {
		var decoded map[string]any
		if err := json.Unmarshal(msg.Body, &decoded); err != nil {
			return false
		}
		return msg.DeliveryMode == amqp.Persistent &&
			msg.ContentType == "application/json" &&
			msg.MessageId == event.ID.String() &&
			decoded["topic"] == "task.taken"
	})).Return(nil)

	p, err := NewPublisher(ch, "notifications", logger.Discard())
	require.NoError(t, err)
	require.NoError(t, p.HandleEvent(context.Background(), event))
	ch.AssertExpectations(t)
}

func TestHandleEventAfterClose(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", "notifications", "topic", true, false, false, false).Return(nil)
	ch.On("Close").Return(nil).Once()

	p, err := NewPublisher(ch, "notifications", logger.Discard())
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err = p.HandleEvent(context.Background(), events.New(events.TaskCreated{}))
	assert.ErrorIs(t, err, ErrClosed)
	ch.AssertExpectations(t)
}
