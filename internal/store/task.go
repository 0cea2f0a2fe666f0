package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
)

// Pagination bounds shared by list operations.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Page is an offset/limit window.
type Page struct {
	Offset int
	Limit  int
}

// Normalize clamps the window to valid bounds.
func (p Page) Normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// TaskFilter narrows a task listing. Zero values mean "no filter".
type TaskFilter struct {
	Status   domain.TaskStatus
	Category string
	MinPrice *domain.Money
	MaxPrice *domain.Money
	Page     Page
}

// Completion is the result of a successful completion transfer.
type Completion struct {
	Task     *domain.Task
	Creator  *domain.Account
	Executor *domain.Account
	Payment  domain.Payment
}

// TaskStore is the ledger: it owns task records and every balance movement.
// Claim, Complete and Cancel are atomic compare-and-set operations on the
// task status; concurrent calls against the same task succeed at most once.
type TaskStore interface {
	// Create saves an Open task after checking that the creator exists, is
	// active and can cover the price. Returns domain.ErrInsufficientFunds
	// when the creator's balance is below the price.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns tasks matching filter, newest first.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// ListByAccount returns tasks where accountID has the given role, newest first.
	ListByAccount(ctx context.Context, accountID uuid.UUID, role domain.TaskRole, page Page) ([]*domain.Task, error)

	// Claim sets status InProgress and executor to claimantID.
	// Errors: ErrTaskNotFound, domain.ErrInvalidState, domain.ErrSelfClaimForbidden.
	Claim(ctx context.Context, taskID, claimantID uuid.UUID) (*domain.Task, error)

	// Complete transfers the price from creator to executor, bumps the
	// executor's reputation and sets status Completed, all in one transaction.
	// Errors: ErrTaskNotFound, ErrAccountNotFound, domain.ErrForbidden,
	// domain.ErrInvalidState, domain.ErrInsufficientFunds.
	Complete(ctx context.Context, taskID, requesterID uuid.UUID) (*Completion, error)

	// Cancel sets an Open task to Cancelled.
	// Errors: ErrTaskNotFound, domain.ErrForbidden, domain.ErrInvalidState.
	Cancel(ctx context.Context, taskID, requesterID uuid.UUID) (*domain.Task, error)
}
