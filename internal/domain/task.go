package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Task validation errors
var (
	ErrEmptyTaskID        = fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	ErrInvalidTitle       = fmt.Errorf("%w: title must be between 5 and 200 characters", ErrValidation)
	ErrNonPositivePrice   = fmt.Errorf("%w: price must be greater than zero", ErrValidation)
	ErrInvalidTaskStatus  = fmt.Errorf("%w: invalid task status", ErrValidation)
	ErrEmptyCreatorID     = fmt.Errorf("%w: creator ID cannot be empty", ErrValidation)
	ErrExecutorMismatch   = fmt.Errorf("%w: executor must be set exactly when the task is claimed", ErrValidation)
	ErrCreatorIsExecutor  = fmt.Errorf("%w: creator cannot be the executor", ErrValidation)
	ErrCategoryTooLong    = fmt.Errorf("%w: category must be at most 100 characters", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description must be at most 5000 characters", ErrValidation)
)

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// ParseTaskStatus converts a string into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", ErrInvalidTaskStatus
	}
	return st, nil
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusOpen:
		return next == TaskStatusInProgress || next == TaskStatusCancelled
	case TaskStatusInProgress:
		return next == TaskStatusCompleted
	}
	return false
}

// Task is a unit of paid work.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Price       Money      `json:"price"`
	Status      TaskStatus `json:"status"`
	Category    string     `json:"category,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatorID   uuid.UUID  `json:"creator_id"`
	ExecutorID  *uuid.UUID `json:"executor_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask creates an Open task owned by creatorID.
func NewTask(creatorID uuid.UUID, title, description string, price Money, category string, deadline *time.Time) (*Task, error) {
	now := time.Now().UTC()
	t := &Task{
		ID:          uuid.Must(uuid.NewV7()),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Price:       price,
		Status:      TaskStatusOpen,
		Category:    strings.TrimSpace(category),
		Deadline:    deadline,
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the task invariants.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if n := utf8.RuneCountInString(t.Title); n < 5 || n > 200 {
		return ErrInvalidTitle
	}
	if utf8.RuneCountInString(t.Description) > 5000 {
		return ErrDescriptionTooLong
	}
	if utf8.RuneCountInString(t.Category) > 100 {
		return ErrCategoryTooLong
	}
	if t.Price <= 0 {
		return ErrNonPositivePrice
	}
	if !t.Status.IsValid() {
		return ErrInvalidTaskStatus
	}
	if t.CreatorID == uuid.Nil {
		return ErrEmptyCreatorID
	}
	claimed := t.Status == TaskStatusInProgress || t.Status == TaskStatusCompleted
	if claimed != (t.ExecutorID != nil) {
		return ErrExecutorMismatch
	}
	if t.ExecutorID != nil && *t.ExecutorID == t.CreatorID {
		return ErrCreatorIsExecutor
	}
	return nil
}

// HasParticipant reports whether accountID is the creator or the executor.
func (t *Task) HasParticipant(accountID uuid.UUID) bool {
	if accountID == uuid.Nil {
		return false
	}
	if t.CreatorID == accountID {
		return true
	}
	return t.ExecutorID != nil && *t.ExecutorID == accountID
}

// Claim moves an Open task to InProgress with claimantID as executor.
func (t *Task) Claim(claimantID uuid.UUID, at time.Time) error {
	if t.Status != TaskStatusOpen {
		return fmt.Errorf("%w: task is %s, expected %s", ErrInvalidState, t.Status, TaskStatusOpen)
	}
	if claimantID == t.CreatorID {
		return ErrSelfClaimForbidden
	}
	executor := claimantID
	t.ExecutorID = &executor
	t.Status = TaskStatusInProgress
	t.UpdatedAt = at
	return nil
}

// CheckCompletable validates that requesterID may complete the task now.
func (t *Task) CheckCompletable(requesterID uuid.UUID) error {
	if requesterID != t.CreatorID {
		return fmt.Errorf("%w: only the creator can complete a task", ErrForbidden)
	}
	if t.Status != TaskStatusInProgress {
		return fmt.Errorf("%w: task is %s, expected %s", ErrInvalidState, t.Status, TaskStatusInProgress)
	}
	if t.ExecutorID == nil {
		return fmt.Errorf("%w: task has no executor", ErrInvalidState)
	}
	return nil
}

// Cancel moves an Open task to Cancelled. Only the creator may cancel.
func (t *Task) Cancel(requesterID uuid.UUID, at time.Time) error {
	if requesterID != t.CreatorID {
		return fmt.Errorf("%w: only the creator can cancel a task", ErrForbidden)
	}
	if !t.Status.CanTransitionTo(TaskStatusCancelled) {
		return fmt.Errorf("%w: task is %s, expected %s", ErrInvalidState, t.Status, TaskStatusOpen)
	}
	t.Status = TaskStatusCancelled
	t.UpdatedAt = at
	return nil
}

// TaskRole selects which side of a task an account is on.
type TaskRole string

const (
	TaskRoleCreator  TaskRole = "creator"
	TaskRoleExecutor TaskRole = "executor"
)

// ParseTaskRole converts a string into a TaskRole. Empty means creator.
func ParseTaskRole(s string) (TaskRole, error) {
	switch TaskRole(strings.ToLower(strings.TrimSpace(s))) {
	case "", TaskRoleCreator:
		return TaskRoleCreator, nil
	case TaskRoleExecutor:
		return TaskRoleExecutor, nil
	}
	return "", NewValidationError("role", "must be creator or executor", nil)
}

// Payment summarises the balance transfer of a completed task.
type Payment struct {
	TaskID             uuid.UUID  `json:"task_id"`
	Amount             Money      `json:"amount"`
	CreatorID          uuid.UUID  `json:"creator_id"`
	ExecutorID         uuid.UUID  `json:"executor_id"`
	CreatorBalance     Money      `json:"creator_balance"`
	ExecutorBalance    Money      `json:"executor_balance"`
	ExecutorReputation Reputation `json:"executor_reputation"`
}
