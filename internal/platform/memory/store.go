// Package memory is an in-process implementation of the store interfaces
// for local development and tests. All state lives behind one mutex, which
// makes every ledger operation trivially atomic.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/store"
)

// Store holds accounts, tasks, messages and ledger entries in maps.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]domain.Account
	handles  map[string]uuid.UUID
	emails   map[string]uuid.UUID
	tasks    map[uuid.UUID]domain.Task
	messages map[uuid.UUID][]domain.ChatMessage
	ledger   map[uuid.UUID][]domain.LedgerEntry
	logger   *slog.Logger
}

// NewStore creates an empty Store. If logger is nil, a default logger will be used.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		accounts: make(map[uuid.UUID]domain.Account),
		handles:  make(map[string]uuid.UUID),
		emails:   make(map[string]uuid.UUID),
		tasks:    make(map[uuid.UUID]domain.Task),
		messages: make(map[uuid.UUID][]domain.ChatMessage),
		ledger:   make(map[uuid.UUID][]domain.LedgerEntry),
		logger:   logger.With(slog.String("component", "memory_store")),
	}
}

// NewStores returns the store views over a fresh Store.
func NewStores(logger *slog.Logger) store.Stores {
	s := NewStore(logger)
	return store.Stores{
		Accounts: s.Accounts(),
		Tasks:    s.Tasks(),
		Messages: s.Messages(),
		Close:    func() error { return nil },
	}
}

// Accounts returns the AccountStore view.
func (s *Store) Accounts() store.AccountStore { return (*accountStore)(s) }

// Tasks returns the TaskStore view.
func (s *Store) Tasks() store.TaskStore { return (*taskStore)(s) }

// Messages returns the MessageStore view.
func (s *Store) Messages() store.MessageStore { return (*messageStore)(s) }

type (
	accountStore Store
	taskStore    Store
	messageStore Store
)

var (
	_ store.AccountStore = (*accountStore)(nil)
	_ store.TaskStore    = (*taskStore)(nil)
	_ store.MessageStore = (*messageStore)(nil)
)

func window[T any](items []T, page store.Page) []T {
	page = page.Normalize()
	out := []T{}
	if page.Offset >= len(items) {
		return out
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return append(out, items[page.Offset:end]...)
}

func cloneTask(t domain.Task) *domain.Task {
	if t.ExecutorID != nil {
		id := *t.ExecutorID
		t.ExecutorID = &id
	}
	if t.Deadline != nil {
		d := *t.Deadline
		t.Deadline = &d
	}
	return &t
}

// Create implements store.AccountStore.Create
func (a *accountStore) Create(ctx context.Context, account *domain.Account) error {
	s := (*Store)(a)
	if account.HashedPassword == "" {
		return domain.ErrEmptyHashedPassword
	}
	if err := account.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handles[account.Handle]; ok {
		return store.ErrHandleExists
	}
	if _, ok := s.emails[account.Email]; ok {
		return store.ErrEmailExists
	}
	if _, ok := s.accounts[account.ID]; ok {
		return store.ErrDuplicate
	}

	stored := *account
	stored.Password = ""
	s.accounts[account.ID] = stored
	s.handles[account.Handle] = account.ID
	s.emails[account.Email] = account.ID

	logger.FromContextOrDefault(ctx, s.logger).Info("account created successfully",
		slog.String("account_id", account.ID.String()),
		slog.String("handle", account.Handle))
	return nil
}

// GetByID implements store.AccountStore.GetByID
func (a *accountStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	s := (*Store)(a)
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return &acc, nil
}

// GetByHandle implements store.AccountStore.GetByHandle
func (a *accountStore) GetByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	s := (*Store)(a)
	s.mu.RLock()
	id, ok := s.handles[handle]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return a.GetByID(ctx, id)
}

// SetActive implements store.AccountStore.SetActive
func (a *accountStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	s := (*Store)(a)
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return store.ErrAccountNotFound
	}
	acc.Active = active
	acc.UpdatedAt = time.Now().UTC()
	s.accounts[id] = acc
	return nil
}

// ListLedgerEntries implements store.AccountStore.ListLedgerEntries
func (a *accountStore) ListLedgerEntries(_ context.Context, accountID uuid.UUID, page store.Page) ([]*domain.LedgerEntry, error) {
	s := (*Store)(a)
	s.mu.RLock()
	entries := s.ledger[accountID]
	newest := make([]*domain.LedgerEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		newest = append(newest, &e)
	}
	s.mu.RUnlock()
	return window(newest, page), nil
}

// Create implements store.TaskStore.Create
func (t *taskStore) Create(ctx context.Context, task *domain.Task) error {
	s := (*Store)(t)
	if err := task.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	creator, ok := s.accounts[task.CreatorID]
	if !ok {
		return store.ErrAccountNotFound
	}
	if !creator.Active {
		return domain.ErrAccountInactive
	}
	if creator.Balance < task.Price {
		return fmt.Errorf("%w: balance %s is below price %s",
			domain.ErrInsufficientFunds, creator.Balance, task.Price)
	}
	if _, ok := s.tasks[task.ID]; ok {
		return store.ErrDuplicate
	}
	s.tasks[task.ID] = *cloneTask(*task)

	logger.FromContextOrDefault(ctx, s.logger).Info("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("creator_id", task.CreatorID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (t *taskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s := (*Store)(t)
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return cloneTask(task), nil
}

func (t *taskStore) collect(match func(*domain.Task) bool, page store.Page) []*domain.Task {
	s := (*Store)(t)
	s.mu.RLock()
	var matched []*domain.Task
	for _, task := range s.tasks {
		if match(&task) {
			matched = append(matched, cloneTask(task))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return strings.Compare(matched[i].ID.String(), matched[j].ID.String()) > 0
	})
	return window(matched, page)
}

// List implements store.TaskStore.List
func (t *taskStore) List(_ context.Context, f store.TaskFilter) ([]*domain.Task, error) {
	return t.collect(func(task *domain.Task) bool {
		switch {
		case f.Status != "" && task.Status != f.Status:
			return false
		case f.Category != "" && task.Category != f.Category:
			return false
		case f.MinPrice != nil && task.Price < *f.MinPrice:
			return false
		case f.MaxPrice != nil && task.Price > *f.MaxPrice:
			return false
		}
		return true
	}, f.Page), nil
}

// ListByAccount implements store.TaskStore.ListByAccount
func (t *taskStore) ListByAccount(_ context.Context, accountID uuid.UUID, role domain.TaskRole, page store.Page) ([]*domain.Task, error) {
	return t.collect(func(task *domain.Task) bool {
		if role == domain.TaskRoleExecutor {
			return task.ExecutorID != nil && *task.ExecutorID == accountID
		}
		return task.CreatorID == accountID
	}, page), nil
}

// Claim implements store.TaskStore.Claim
func (t *taskStore) Claim(ctx context.Context, taskID, claimantID uuid.UUID) (*domain.Task, error) {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[taskID]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	task := cloneTask(stored)
	if err := task.Claim(claimantID, time.Now().UTC()); err != nil {
		return nil, err
	}
	s.tasks[taskID] = *cloneTask(*task)

	logger.FromContextOrDefault(ctx, s.logger).Info("task claimed",
		slog.String("task_id", taskID.String()),
		slog.String("executor_id", claimantID.String()))
	return task, nil
}

// Complete implements store.TaskStore.Complete
func (t *taskStore) Complete(ctx context.Context, taskID, requesterID uuid.UUID) (*store.Completion, error) {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[taskID]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	task := cloneTask(stored)
	if err := task.CheckCompletable(requesterID); err != nil {
		return nil, err
	}
	creator, ok := s.accounts[task.CreatorID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	executor, ok := s.accounts[*task.ExecutorID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}

	now := time.Now().UTC()
	payment, err := domain.Settle(task, &creator, &executor, now)
	if err != nil {
		return nil, err
	}

	s.accounts[creator.ID] = creator
	s.accounts[executor.ID] = executor
	s.tasks[taskID] = *cloneTask(*task)
	for _, e := range domain.TransferEntries(payment, now) {
		s.ledger[e.AccountID] = append(s.ledger[e.AccountID], e)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task completed",
		slog.String("task_id", taskID.String()),
		slog.String("amount", payment.Amount.String()))
	return &store.Completion{
		Task:     task,
		Creator:  &creator,
		Executor: &executor,
		Payment:  payment,
	}, nil
}

// Cancel implements store.TaskStore.Cancel
func (t *taskStore) Cancel(ctx context.Context, taskID, requesterID uuid.UUID) (*domain.Task, error) {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[taskID]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	task := cloneTask(stored)
	if err := task.Cancel(requesterID, time.Now().UTC()); err != nil {
		return nil, err
	}
	s.tasks[taskID] = *cloneTask(*task)

	logger.FromContextOrDefault(ctx, s.logger).Info("task cancelled",
		slog.String("task_id", taskID.String()))
	return task, nil
}

// Record implements store.MessageStore.Record
func (m *messageStore) Record(_ context.Context, msg *domain.ChatMessage) error {
	s := (*Store)(m)
	if err := msg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[msg.TaskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if !task.HasParticipant(msg.SenderID) {
		return fmt.Errorf("%w: sender is not a participant of this task", domain.ErrForbidden)
	}
	s.messages[msg.TaskID] = append(s.messages[msg.TaskID], *msg)
	return nil
}

// ListByTask implements store.MessageStore.ListByTask
func (m *messageStore) ListByTask(_ context.Context, taskID uuid.UUID, page store.Page) ([]*domain.ChatMessage, error) {
	s := (*Store)(m)
	s.mu.RLock()
	stored := s.messages[taskID]
	newest := make([]*domain.ChatMessage, 0, len(stored))
	for i := range stored {
		msg := stored[i]
		newest = append(newest, &msg)
	}
	s.mu.RUnlock()

	sort.SliceStable(newest, func(i, j int) bool {
		if !newest[i].CreatedAt.Equal(newest[j].CreatedAt) {
			return newest[i].CreatedAt.After(newest[j].CreatedAt)
		}
		return strings.Compare(newest[i].ID.String(), newest[j].ID.String()) > 0
	})

	out := window(newest, page)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
