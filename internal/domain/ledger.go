package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LedgerEntryType classifies a balance movement.
type LedgerEntryType string

const (
	// LedgerEntryTaskPayment debits the creator of a completed task.
	LedgerEntryTaskPayment LedgerEntryType = "task_payment"
	// LedgerEntryTaskEarning credits the executor of a completed task.
	LedgerEntryTaskEarning LedgerEntryType = "task_earning"
)

// LedgerEntry records one side of a balance transfer. Amount is signed.
type LedgerEntry struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	TaskID       uuid.UUID       `json:"task_id"`
	EntryType    LedgerEntryType `json:"entry_type"`
	Amount       Money           `json:"amount"`
	BalanceAfter Money           `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TransferEntries builds the debit and credit entries for a completed task.
func TransferEntries(p Payment, at time.Time) []LedgerEntry {
	return []LedgerEntry{
		{
			ID:           uuid.Must(uuid.NewV7()),
			AccountID:    p.CreatorID,
			TaskID:       p.TaskID,
			EntryType:    LedgerEntryTaskPayment,
			Amount:       -p.Amount,
			BalanceAfter: p.CreatorBalance,
			CreatedAt:    at,
		},
		{
			ID:           uuid.Must(uuid.NewV7()),
			AccountID:    p.ExecutorID,
			TaskID:       p.TaskID,
			EntryType:    LedgerEntryTaskEarning,
			Amount:       p.Amount,
			BalanceAfter: p.ExecutorBalance,
			CreatedAt:    at,
		},
	}
}

// Settle applies the completion transfer to the in-memory values of task,
// creator and executor. Callers persist all three in one transaction; on
// error nothing has been modified.
func Settle(task *Task, creator, executor *Account, at time.Time) (Payment, error) {
	if err := task.CheckCompletable(creator.ID); err != nil {
		return Payment{}, err
	}
	if *task.ExecutorID != executor.ID {
		return Payment{}, fmt.Errorf("%w: executor does not match task", ErrInvalidState)
	}
	if creator.Balance < task.Price {
		return Payment{}, fmt.Errorf("%w: balance %s is below price %s",
			ErrInsufficientFunds, creator.Balance, task.Price)
	}

	creator.Balance -= task.Price
	creator.UpdatedAt = at
	executor.Balance += task.Price
	executor.Reputation = executor.Reputation.Bump(CompletionBonus)
	executor.UpdatedAt = at
	task.Status = TaskStatusCompleted
	task.UpdatedAt = at

	return Payment{
		TaskID:             task.ID,
		Amount:             task.Price,
		CreatorID:          creator.ID,
		ExecutorID:         executor.ID,
		CreatorBalance:     creator.Balance,
		ExecutorBalance:    executor.Balance,
		ExecutorReputation: executor.Reputation,
	}, nil
}
