package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/events"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/store"
)

// TransitionObserver is notified of every successful task transition.
type TransitionObserver interface {
	TaskTransitioned(status string)
}

type nopTransitionObserver struct{}

func (nopTransitionObserver) TaskTransitioned(string) {}

// CreateTaskInput carries the caller-supplied fields of a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Price       domain.Money
	Category    string
	Deadline    *time.Time
}

// TaskService drives the task lifecycle. It is stateless between calls and
// relies on the store for atomicity.
type TaskService interface {
	Create(ctx context.Context, creator *domain.Account, in CreateTaskInput) (*domain.Task, error)
	Get(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, role domain.TaskRole, page store.Page) ([]*domain.Task, error)
	Claim(ctx context.Context, claimant *domain.Account, taskID uuid.UUID) (*domain.Task, error)
	Complete(ctx context.Context, requester *domain.Account, taskID uuid.UUID) (*store.Completion, error)
	Cancel(ctx context.Context, requester *domain.Account, taskID uuid.UUID) (*domain.Task, error)
}

type taskServiceImpl struct {
	tasks     store.TaskStore
	accounts  store.AccountStore
	publisher events.Publisher
	observer  TransitionObserver
	logger    *slog.Logger
}

// NewTaskService creates a TaskService. A nil observer is allowed.
func NewTaskService(
	tasks store.TaskStore,
	accounts store.AccountStore,
	publisher events.Publisher,
	observer TransitionObserver,
	logger *slog.Logger,
) TaskService {
	if observer == nil {
		observer = nopTransitionObserver{}
	}
	return &taskServiceImpl{
		tasks:     tasks,
		accounts:  accounts,
		publisher: publisher,
		observer:  observer,
		logger:    logger.With(slog.String("component", "task_service")),
	}
}

// Create stores a new Open task for creator.
func (s *taskServiceImpl) Create(ctx context.Context, creator *domain.Account, in CreateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(creator.ID, in.Title, in.Description, in.Price, in.Category, in.Deadline)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		log.Debug("task creation rejected",
			slog.String("creator_id", creator.ID.String()),
			slog.String("error", err.Error()))
		return nil, NewServiceError("task", "create", "failed to save task", err)
	}

	s.observer.TaskTransitioned(string(domain.TaskStatusOpen))
	s.publisher.Publish(ctx, events.New(events.TaskCreated{
		TaskID:        task.ID,
		Title:         task.Title,
		CreatorID:     creator.ID,
		CreatorHandle: creator.Handle,
		Price:         task.Price,
	}))

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("creator_id", creator.ID.String()),
		slog.String("price", task.Price.String()))
	return task, nil
}

func (s *taskServiceImpl) Get(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, NewServiceError("task", "get", "failed to retrieve task", err)
	}
	return task, nil
}

func (s *taskServiceImpl) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, domain.NewValidationError("min_price", "must not exceed max_price", nil)
	}
	filter.Page = filter.Page.Normalize()
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, NewServiceError("task", "list", "failed to list tasks", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) ListByAccount(ctx context.Context, accountID uuid.UUID, role domain.TaskRole, page store.Page) ([]*domain.Task, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, NewServiceError("task", "list_by_account", "failed to resolve account", err)
	}
	tasks, err := s.tasks.ListByAccount(ctx, accountID, role, page.Normalize())
	if err != nil {
		return nil, NewServiceError("task", "list_by_account", "failed to list tasks", err)
	}
	return tasks, nil
}

// Claim assigns claimant as the executor of an Open task.
func (s *taskServiceImpl) Claim(ctx context.Context, claimant *domain.Account, taskID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.tasks.Claim(ctx, taskID, claimant.ID)
	if err != nil {
		log.Debug("claim rejected",
			slog.String("task_id", taskID.String()),
			slog.String("claimant_id", claimant.ID.String()),
			slog.String("error", err.Error()))
		return nil, NewServiceError("task", "claim", "failed to claim task", err)
	}

	s.observer.TaskTransitioned(string(task.Status))
	s.publisher.Publish(ctx, events.New(events.TaskClaimed{
		TaskID:         task.ID,
		Title:          task.Title,
		ExecutorID:     claimant.ID,
		ExecutorHandle: claimant.Handle,
		CreatorID:      task.CreatorID,
	}))

	log.Info("task claimed",
		slog.String("task_id", task.ID.String()),
		slog.String("executor_id", claimant.ID.String()))
	return task, nil
}

// Complete settles an InProgress task: the price moves from creator to
// executor and the executor gains reputation.
func (s *taskServiceImpl) Complete(ctx context.Context, requester *domain.Account, taskID uuid.UUID) (*store.Completion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	completion, err := s.tasks.Complete(ctx, taskID, requester.ID)
	if err != nil {
		log.Debug("completion rejected",
			slog.String("task_id", taskID.String()),
			slog.String("requester_id", requester.ID.String()),
			slog.String("error", err.Error()))
		return nil, NewServiceError("task", "complete", "failed to complete task", err)
	}

	s.observer.TaskTransitioned(string(completion.Task.Status))
	s.publisher.Publish(ctx, events.New(events.TaskCompleted{
		TaskID:         completion.Task.ID,
		ExecutorID:     completion.Executor.ID,
		ExecutorHandle: completion.Executor.Handle,
		CreatorID:      completion.Creator.ID,
		CreatorHandle:  completion.Creator.Handle,
		Price:          completion.Payment.Amount,
	}))

	log.Info("task completed",
		slog.String("task_id", completion.Task.ID.String()),
		slog.String("executor_id", completion.Executor.ID.String()),
		slog.String("amount", completion.Payment.Amount.String()))
	return completion, nil
}

// Cancel withdraws an Open task.
func (s *taskServiceImpl) Cancel(ctx context.Context, requester *domain.Account, taskID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.tasks.Cancel(ctx, taskID, requester.ID)
	if err != nil {
		return nil, NewServiceError("task", "cancel", "failed to cancel task", err)
	}

	s.observer.TaskTransitioned(string(task.Status))
	s.publisher.Publish(ctx, events.New(events.TaskCancelled{
		TaskID:    task.ID,
		CreatorID: task.CreatorID,
	}))

	log.Info("task cancelled", slog.String("task_id", task.ID.String()))
	return task, nil
}
