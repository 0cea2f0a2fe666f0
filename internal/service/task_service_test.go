package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/events"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTaskServiceFixture(t *testing.T) (TaskService, store.Stores, *recordingPublisher, *countingObserver) {
	t.Helper()
	stores := newTestStores(t)
	pub := &recordingPublisher{}
	obs := &countingObserver{}
	return NewTaskService(stores.Tasks, stores.Accounts, pub, obs, logger.Discard()), stores, pub, obs
}

func TestTaskService_FixRoofScenario(t *testing.T) {
	ctx := context.Background()
	svc, stores, pub, obs := newTaskServiceFixture(t)

	alice := seedAccount(t, stores, "alice", 10000)
	bob := seedAccount(t, stores, "bob", 0)

	task, err := svc.Create(ctx, alice, CreateTaskInput{Title: "Fix roof", Price: 5000})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusOpen, task.Status)

	claimed, err := svc.Claim(ctx, bob, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, claimed.Status)
	require.NotNil(t, claimed.ExecutorID)
	assert.Equal(t, bob.ID, *claimed.ExecutorID)

	completion, err := svc.Complete(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, completion.Task.Status)
	assert.Equal(t, domain.Money(5000), completion.Creator.Balance)
	assert.Equal(t, domain.Money(5000), completion.Executor.Balance)
	assert.Equal(t, domain.MaxReputation, completion.Executor.Reputation)

	assert.Equal(t, []events.Topic{events.TopicTaskCreated, events.TopicTaskTaken, events.TopicTaskCompleted}, pub.topics())
	assert.Equal(t, 1, obs.counts["completed"])

	completed := pub.events[2].Payload.(events.TaskCompleted)
	assert.Equal(t, "alice", completed.CreatorHandle)
	assert.Equal(t, "bob", completed.ExecutorHandle)
	assert.Equal(t, domain.Money(5000), completed.Price)
}

func TestTaskService_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		balance domain.Money
		input   CreateTaskInput
		wantErr error
	}{
		{"valid", 1000, CreateTaskInput{Title: "Paint fence", Price: 1000, Category: "home"}, nil},
		{"price above balance", 999, CreateTaskInput{Title: "Paint fence", Price: 1000}, domain.ErrInsufficientFunds},
		{"short title", 1000, CreateTaskInput{Title: "abc", Price: 100}, domain.ErrValidation},
		{"zero price", 1000, CreateTaskInput{Title: "Paint fence", Price: 0}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, stores, pub, _ := newTaskServiceFixture(t)
			creator := seedAccount(t, stores, "creator", tt.balance)

			task, err := svc.Create(ctx, creator, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, task)
				assert.Empty(t, pub.topics())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, creator.ID, task.CreatorID)
			assert.Equal(t, []events.Topic{events.TopicTaskCreated}, pub.topics())
		})
	}
}

func TestTaskService_ClaimRejections(t *testing.T) {
	ctx := context.Background()
	svc, stores, pub, _ := newTaskServiceFixture(t)
	alice := seedAccount(t, stores, "alice", 10000)
	bob := seedAccount(t, stores, "bob", 0)
	carol := seedAccount(t, stores, "carol", 0)

	task, err := svc.Create(ctx, alice, CreateTaskInput{Title: "Mow the lawn", Price: 500})
	require.NoError(t, err)

	_, err = svc.Claim(ctx, alice, task.ID)
	assert.ErrorIs(t, err, domain.ErrSelfClaimForbidden)

	_, err = svc.Claim(ctx, bob, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	_, err = svc.Claim(ctx, bob, task.ID)
	require.NoError(t, err)

	_, err = svc.Claim(ctx, carol, task.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	assert.Equal(t, []events.Topic{events.TopicTaskCreated, events.TopicTaskTaken}, pub.topics())
}

func TestTaskService_CompleteInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	svc, stores, pub, _ := newTaskServiceFixture(t)
	alice := seedAccount(t, stores, "alice", 5000)
	bob := seedAccount(t, stores, "bob", 0)

	first, err := svc.Create(ctx, alice, CreateTaskInput{Title: "First chore", Price: 5000})
	require.NoError(t, err)
	second, err := svc.Create(ctx, alice, CreateTaskInput{Title: "Second chore", Price: 5000})
	require.NoError(t, err)
	_, err = svc.Claim(ctx, bob, first.ID)
	require.NoError(t, err)
	_, err = svc.Claim(ctx, bob, second.ID)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, alice, first.ID)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, alice, second.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	task, err := svc.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, task.Status)

	creator, err := stores.Accounts.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(0), creator.Balance)

	topics := pub.topics()
	assert.Equal(t, events.TopicTaskCompleted, topics[len(topics)-1])
	assert.Len(t, topics, 5)
}

func TestTaskService_CompleteByNonCreator(t *testing.T) {
	ctx := context.Background()
	svc, stores, _, _ := newTaskServiceFixture(t)
	alice := seedAccount(t, stores, "alice", 5000)
	bob := seedAccount(t, stores, "bob", 0)

	task, err := svc.Create(ctx, alice, CreateTaskInput{Title: "Walk the dog", Price: 100})
	require.NoError(t, err)
	_, err = svc.Claim(ctx, bob, task.ID)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, bob, task.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTaskService_ConcurrentComplete(t *testing.T) {
	ctx := context.Background()
	svc, stores, _, _ := newTaskServiceFixture(t)
	alice := seedAccount(t, stores, "alice", 5000)
	bob := seedAccount(t, stores, "bob", 0)

	task, err := svc.Create(ctx, alice, CreateTaskInput{Title: "Assemble desk", Price: 3000})
	require.NoError(t, err)
	_, err = svc.Claim(ctx, bob, task.ID)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Complete(ctx, alice, task.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	}
	assert.Equal(t, 1, succeeded)

	executor, err := stores.Accounts.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(3000), executor.Balance)
}

func TestTaskService_Cancel(t *testing.T) {
	ctx := context.Background()
	svc, stores, pub, _ := newTaskServiceFixture(t)
	alice := seedAccount(t, stores, "alice", 5000)
	bob := seedAccount(t, stores, "bob", 0)

	task, err := svc.Create(ctx, alice, CreateTaskInput{Title: "Clean garage", Price: 100})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, bob, task.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	cancelled, err := svc.Cancel(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, alice, task.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = svc.Claim(ctx, bob, task.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	assert.Equal(t, []events.Topic{events.TopicTaskCreated, events.TopicTaskCancelled}, pub.topics())
}

func TestTaskService_ListValidation(t *testing.T) {
	svc, _, _, _ := newTaskServiceFixture(t)
	low, high := domain.Money(500), domain.Money(100)

	_, err := svc.List(context.Background(), store.TaskFilter{MinPrice: &low, MaxPrice: &high})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTaskService_ListByAccountUnknown(t *testing.T) {
	svc, _, _, _ := newTaskServiceFixture(t)

	_, err := svc.ListByAccount(context.Background(), uuid.New(), domain.TaskRoleCreator, store.Page{})
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}

type failingTaskStore struct {
	store.TaskStore
}

func (failingTaskStore) GetByID(context.Context, uuid.UUID) (*domain.Task, error) {
	return nil, errors.New("connection refused")
}

func TestTaskService_UnexpectedErrorsAreWrapped(t *testing.T) {
	stores := newTestStores(t)
	pub := new(MockPublisher)
	svc := NewTaskService(failingTaskStore{stores.Tasks}, stores.Accounts, pub, nil, logger.Discard())

	_, err := svc.Get(context.Background(), uuid.New())
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "get", serviceErr.Operation)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
