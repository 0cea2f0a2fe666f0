package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/store"
)

const accountColumns = `id, handle, email, full_name, hashed_password, balance, reputation, is_active, created_at, updated_at`

// PostgresAccountStore implements the store.AccountStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAccountStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAccountStore creates a new PostgreSQL implementation of the AccountStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresAccountStore(db store.DBTX, logger *slog.Logger) *PostgresAccountStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAccountStore{
		db:     db,
		logger: logger.With(slog.String("component", "account_store")),
	}
}

// Ensure PostgresAccountStore implements store.AccountStore interface
var _ store.AccountStore = (*PostgresAccountStore)(nil)

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Handle,
		&a.Email,
		&a.FullName,
		&a.HashedPassword,
		&a.Balance,
		&a.Reputation,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create implements store.AccountStore.Create
func (s *PostgresAccountStore) Create(ctx context.Context, account *domain.Account) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if account.HashedPassword == "" {
		return domain.ErrEmptyHashedPassword
	}
	if err := account.Validate(); err != nil {
		log.Warn("account validation failed during create",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return err
	}

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		account.ID,
		account.Handle,
		account.Email,
		account.FullName,
		account.HashedPassword,
		int64(account.Balance),
		int(account.Reputation),
		account.Active,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if store.IsDuplicateError(mapped) {
			log.Warn("duplicate account on create",
				slog.String("account_id", account.ID.String()),
				slog.String("error", mapped.Error()))
			return mapped
		}
		log.Error("failed to create account",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return store.NewStoreError("account", "create", "insert failed", mapped)
	}

	log.Info("account created successfully",
		slog.String("account_id", account.ID.String()),
		slog.String("handle", account.Handle))
	return nil
}

// GetByID implements store.AccountStore.GetByID
func (s *PostgresAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetByHandle implements store.AccountStore.GetByHandle
func (s *PostgresAccountStore) GetByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE handle = $1`
	return s.getOne(ctx, query, handle)
}

func (s *PostgresAccountStore) getOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	a, err := scanAccount(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("account not found", slog.Any("key", arg))
			return nil, store.ErrAccountNotFound
		}
		log.Error("failed to get account",
			slog.Any("key", arg),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("account", "get", "query failed", MapError(err))
	}
	return a, nil
}

// SetActive implements store.AccountStore.SetActive
func (s *PostgresAccountStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET is_active = $2, updated_at = $3 WHERE id = $1`,
		id, active, time.Now().UTC())
	if err != nil {
		log.Error("failed to update account status",
			slog.String("account_id", id.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("account", "set_active", "update failed", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrAccountNotFound); err != nil {
		return err
	}

	log.Info("account status updated",
		slog.String("account_id", id.String()),
		slog.Bool("active", active))
	return nil
}

// ListLedgerEntries implements store.AccountStore.ListLedgerEntries
func (s *PostgresAccountStore) ListLedgerEntries(
	ctx context.Context,
	accountID uuid.UUID,
	page store.Page,
) ([]*domain.LedgerEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	page = page.Normalize()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, task_id, entry_type, amount, balance_after, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, accountID, page.Limit, page.Offset)
	if err != nil {
		log.Error("failed to list ledger entries",
			slog.String("account_id", accountID.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("ledger_entry", "list", "query failed", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	entries := []*domain.LedgerEntry{}
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.TaskID, &e.EntryType, &e.Amount, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}

// insertLedgerEntries writes entries inside the caller's transaction.
func insertLedgerEntries(ctx context.Context, tx store.DBTX, entries []domain.LedgerEntry) error {
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_entries (id, account_id, task_id, entry_type, amount, balance_after, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, e.ID, e.AccountID, e.TaskID, string(e.EntryType), int64(e.Amount), int64(e.BalanceAfter), e.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert %s ledger entry: %w", e.EntryType, MapError(err))
		}
	}
	return nil
}
