package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
)

// AccountStore defines persistence for accounts.
type AccountStore interface {
	// Create saves a new account. The account must already carry a hashed
	// password. Returns ErrHandleExists or ErrEmailExists on conflicts.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID returns ErrAccountNotFound if the account does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// GetByHandle returns ErrAccountNotFound if no account has this handle.
	GetByHandle(ctx context.Context, handle string) (*domain.Account, error)

	// SetActive activates or deactivates an account.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// ListLedgerEntries returns the account's balance movements, newest first.
	ListLedgerEntries(ctx context.Context, accountID uuid.UUID, page Page) ([]*domain.LedgerEntry, error)
}
