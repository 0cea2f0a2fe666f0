package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/store"
)

const taskColumns = `id, title, description, price, status, category, deadline, creator_id, executor_id, created_at, updated_at`

// PostgresTaskStore implements the store.TaskStore interface. Every state
// change runs in a transaction that locks the task row and finishes with a
// conditional UPDATE on the expected status.
type PostgresTaskStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db *sql.DB, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t        domain.Task
		deadline sql.NullTime
		executor uuid.NullUUID
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Price,
		&t.Status,
		&t.Category,
		&deadline,
		&t.CreatorID,
		&executor,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		d := deadline.Time
		t.Deadline = &d
	}
	if executor.Valid {
		id := executor.UUID
		t.ExecutorID = &id
	}
	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]*domain.Task, error) {
	tasks := []*domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var (
			balance domain.Money
			active  bool
		)
		err := tx.QueryRowContext(ctx,
			`SELECT balance, is_active FROM accounts WHERE id = $1 FOR SHARE`,
			task.CreatorID).Scan(&balance, &active)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrAccountNotFound
			}
			return MapError(err)
		}
		if !active {
			return domain.ErrAccountInactive
		}
		if balance < task.Price {
			return fmt.Errorf("%w: balance %s is below price %s",
				domain.ErrInsufficientFunds, balance, task.Price)
		}

		var executor any
		if task.ExecutorID != nil {
			executor = *task.ExecutorID
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			task.ID,
			task.Title,
			task.Description,
			int64(task.Price),
			string(task.Status),
			task.Category,
			task.Deadline,
			task.CreatorID,
			executor,
			task.CreatedAt,
			task.UpdatedAt,
		)
		return MapError(err)
	})
	if err != nil {
		log.Warn("failed to create task",
			slog.String("task_id", task.ID.String()),
			slog.String("creator_id", task.CreatorID.String()),
			slog.String("error", err.Error()))
		return err
	}

	log.Info("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("creator_id", task.CreatorID.String()),
		slog.String("price", task.Price.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return getTask(ctx, s.db, id, false)
}

// getTask loads a task, optionally locking the row for the rest of the
// transaction.
func getTask(ctx context.Context, db store.DBTX, id uuid.UUID, forUpdate bool) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	t, err := scanTask(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, store.NewStoreError("task", "get", "query failed", MapError(err))
	}
	return t, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	page := filter.Page.Normalize()

	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.MinPrice != nil {
		add("price >= $%d", int64(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		add("price <= $%d", int64(*filter.MaxPrice))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks`)
	if len(conds) > 0 {
		b.WriteString(` WHERE ` + strings.Join(conds, " AND "))
	}
	args = append(args, page.Limit, page.Offset)
	fmt.Fprintf(&b, ` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return s.query(ctx, log, "list", b.String(), args...)
}

// ListByAccount implements store.TaskStore.ListByAccount
func (s *PostgresTaskStore) ListByAccount(
	ctx context.Context,
	accountID uuid.UUID,
	role domain.TaskRole,
	page store.Page,
) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	page = page.Normalize()

	column := "creator_id"
	if role == domain.TaskRoleExecutor {
		column = "executor_id"
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + column + ` = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	return s.query(ctx, log, "list_by_account", query, accountID, page.Limit, page.Offset)
}

func (s *PostgresTaskStore) query(ctx context.Context, log *slog.Logger, op, query string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", op, "query failed", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()
	return scanTasks(rows)
}

// Claim implements store.TaskStore.Claim
func (s *PostgresTaskStore) Claim(ctx context.Context, taskID, claimantID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var claimed *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		task, err := getTask(ctx, tx, taskID, true)
		if err != nil {
			return err
		}
		if err := task.Claim(claimantID, time.Now().UTC()); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE tasks SET status = $2, executor_id = $3, updated_at = $4
			WHERE id = $1 AND status = $5
		`, task.ID, string(task.Status), claimantID, task.UpdatedAt, string(domain.TaskStatusOpen))
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, fmt.Errorf("%w: task is no longer open", domain.ErrInvalidState)); err != nil {
			return err
		}
		claimed = task
		return nil
	})
	if err != nil {
		log.Warn("task claim rejected",
			slog.String("task_id", taskID.String()),
			slog.String("claimant_id", claimantID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Info("task claimed",
		slog.String("task_id", taskID.String()),
		slog.String("executor_id", claimantID.String()))
	return claimed, nil
}

// Complete implements store.TaskStore.Complete
func (s *PostgresTaskStore) Complete(ctx context.Context, taskID, requesterID uuid.UUID) (*store.Completion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var completion *store.Completion
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		task, err := getTask(ctx, tx, taskID, true)
		if err != nil {
			return err
		}
		if err := task.CheckCompletable(requesterID); err != nil {
			return err
		}

		creator, executor, err := lockParticipants(ctx, tx, task.CreatorID, *task.ExecutorID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		payment, err := domain.Settle(task, creator, executor, now)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = $2, updated_at = $3 WHERE id = $1`,
			creator.ID, int64(creator.Balance), now); err != nil {
			if isBalanceViolation(err) {
				return domain.ErrInsufficientFunds
			}
			return MapError(err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = $2, reputation = $3, updated_at = $4 WHERE id = $1`,
			executor.ID, int64(executor.Balance), int(executor.Reputation), now); err != nil {
			return MapError(err)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
			task.ID, string(domain.TaskStatusCompleted), now, string(domain.TaskStatusInProgress))
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, fmt.Errorf("%w: task is no longer in progress", domain.ErrInvalidState)); err != nil {
			return err
		}

		if err := insertLedgerEntries(ctx, tx, domain.TransferEntries(payment, now)); err != nil {
			return err
		}

		completion = &store.Completion{
			Task:     task,
			Creator:  creator,
			Executor: executor,
			Payment:  payment,
		}
		return nil
	})
	if err != nil {
		log.Warn("task completion rejected",
			slog.String("task_id", taskID.String()),
			slog.String("requester_id", requesterID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Info("task completed",
		slog.String("task_id", taskID.String()),
		slog.String("creator_id", completion.Payment.CreatorID.String()),
		slog.String("executor_id", completion.Payment.ExecutorID.String()),
		slog.String("amount", completion.Payment.Amount.String()))
	return completion, nil
}

// lockParticipants loads and locks both accounts in id order so that
// concurrent completions cannot deadlock on each other.
func lockParticipants(ctx context.Context, tx *sql.Tx, creatorID, executorID uuid.UUID) (*domain.Account, *domain.Account, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`,
		creatorID, executorID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var creator, executor *domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan account: %w", err)
		}
		switch a.ID {
		case creatorID:
			creator = a
		case executorID:
			executor = a
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	if creator == nil || executor == nil {
		return nil, nil, store.ErrAccountNotFound
	}
	return creator, executor, nil
}

// Cancel implements store.TaskStore.Cancel
func (s *PostgresTaskStore) Cancel(ctx context.Context, taskID, requesterID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var cancelled *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		task, err := getTask(ctx, tx, taskID, true)
		if err != nil {
			return err
		}
		if err := task.Cancel(requesterID, time.Now().UTC()); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
			task.ID, string(task.Status), task.UpdatedAt, string(domain.TaskStatusOpen))
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, fmt.Errorf("%w: task is no longer open", domain.ErrInvalidState)); err != nil {
			return err
		}
		cancelled = task
		return nil
	})
	if err != nil {
		log.Warn("task cancellation rejected",
			slog.String("task_id", taskID.String()),
			slog.String("requester_id", requesterID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Info("task cancelled", slog.String("task_id", taskID.String()))
	return cancelled, nil
}
