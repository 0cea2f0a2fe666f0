package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/store"
)

// PostgresMessageStore implements the store.MessageStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMessageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMessageStore creates a new PostgreSQL implementation of the MessageStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresMessageStore(db store.DBTX, logger *slog.Logger) *PostgresMessageStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresMessageStore{
		db:     db,
		logger: logger.With(slog.String("component", "message_store")),
	}
}

// Ensure PostgresMessageStore implements store.MessageStore interface
var _ store.MessageStore = (*PostgresMessageStore)(nil)

// Record implements store.MessageStore.Record. The participant check and the
// insert are a single statement, so a sender who is not the creator or the
// executor at write time inserts nothing.
func (s *PostgresMessageStore) Record(ctx context.Context, msg *domain.ChatMessage) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := msg.Validate(); err != nil {
		return err
	}

	var inserted bool
	err := s.db.QueryRowContext(ctx, `
		WITH task AS (
			SELECT creator_id, executor_id FROM tasks WHERE id = $2::uuid
		), ins AS (
			INSERT INTO chat_messages (id, task_id, sender_id, body, created_at)
			SELECT $1::uuid, $2::uuid, $3::uuid, $4::text, $5::timestamptz FROM task
			WHERE task.creator_id = $3::uuid OR task.executor_id = $3::uuid
			RETURNING id
		)
		SELECT EXISTS (SELECT 1 FROM ins) FROM task
	`, msg.ID, msg.TaskID, msg.SenderID, msg.Body, msg.CreatedAt).Scan(&inserted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrTaskNotFound
		}
		log.Error("failed to record message",
			slog.String("task_id", msg.TaskID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("chat_message", "record", "insert failed", MapError(err))
	}
	if !inserted {
		log.Warn("message sender is not a task participant",
			slog.String("task_id", msg.TaskID.String()),
			slog.String("sender_id", msg.SenderID.String()))
		return fmt.Errorf("%w: sender is not a participant of this task", domain.ErrForbidden)
	}

	log.Debug("message recorded",
		slog.String("message_id", msg.ID.String()),
		slog.String("task_id", msg.TaskID.String()))
	return nil
}

// ListByTask implements store.MessageStore.ListByTask
func (s *PostgresMessageStore) ListByTask(
	ctx context.Context,
	taskID uuid.UUID,
	page store.Page,
) ([]*domain.ChatMessage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	page = page.Normalize()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, sender_id, body, created_at FROM (
			SELECT id, task_id, sender_id, body, created_at
			FROM chat_messages
			WHERE task_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3
		) recent
		ORDER BY created_at ASC, id ASC
	`, taskID, page.Limit, page.Offset)
	if err != nil {
		log.Error("failed to list messages",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("chat_message", "list", "query failed", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	messages := []*domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.TaskID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
