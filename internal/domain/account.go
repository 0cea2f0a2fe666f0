package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Account validation errors
var (
	ErrEmptyAccountID      = fmt.Errorf("%w: account ID cannot be empty", ErrValidation)
	ErrInvalidHandle       = fmt.Errorf("%w: handle must be between 3 and 50 characters", ErrValidation)
	ErrInvalidEmail        = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrPasswordTooShort    = fmt.Errorf("%w: password must be at least 8 characters long", ErrValidation)
	ErrPasswordTooLong     = fmt.Errorf("%w: password must be at most 72 characters long", ErrValidation)
	ErrEmptyHashedPassword = fmt.Errorf("%w: hashed password cannot be empty", ErrValidation)
	ErrNegativeBalance     = fmt.Errorf("%w: balance cannot be negative", ErrValidation)
	ErrReputationRange     = fmt.Errorf("%w: reputation must be between 0.0 and 5.0", ErrValidation)
)

// Reputation is a score in tenths of a point, bounded to [0, MaxReputation].
type Reputation int

const (
	// MaxReputation is 5.0.
	MaxReputation Reputation = 50
	// DefaultReputation is assigned to new accounts.
	DefaultReputation Reputation = 50
	// CompletionBonus is added to the executor on every completed task.
	CompletionBonus Reputation = 1
)

// Bump adds delta and clamps the result to the valid range.
func (r Reputation) Bump(delta Reputation) Reputation {
	v := r + delta
	if v > MaxReputation {
		return MaxReputation
	}
	if v < 0 {
		return 0
	}
	return v
}

// MarshalJSON renders the score with one decimal place.
func (r Reputation) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d.%d", r/10, r%10)), nil
}

// Account is a marketplace participant holding a balance and a reputation.
type Account struct {
	ID             uuid.UUID  `json:"id"`
	Handle         string     `json:"handle"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name,omitempty"`
	Password       string     `json:"-"` // plaintext, only present during registration
	HashedPassword string     `json:"-"`
	Balance        Money      `json:"balance"`
	Reputation     Reputation `json:"reputation"`
	Active         bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewAccount creates an active Account with the default reputation.
// The caller hashes the password before the account is stored.
func NewAccount(handle, email, fullName, password string, initialBalance Money) (*Account, error) {
	now := time.Now().UTC()
	a := &Account{
		ID:         uuid.Must(uuid.NewV7()),
		Handle:     strings.TrimSpace(handle),
		Email:      strings.ToLower(strings.TrimSpace(email)),
		FullName:   strings.TrimSpace(fullName),
		Password:   password,
		Balance:    initialBalance,
		Reputation: DefaultReputation,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the account invariants.
func (a *Account) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyAccountID
	}
	if n := utf8.RuneCountInString(a.Handle); n < 3 || n > 50 {
		return ErrInvalidHandle
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return ErrInvalidEmail
	}
	if a.Password != "" {
		if len(a.Password) < 8 {
			return ErrPasswordTooShort
		}
		if len(a.Password) > 72 {
			return ErrPasswordTooLong
		}
	} else if a.HashedPassword == "" {
		return ErrEmptyHashedPassword
	}
	if a.Balance < 0 {
		return ErrNegativeBalance
	}
	if a.Reputation < 0 || a.Reputation > MaxReputation {
		return ErrReputationRange
	}
	return nil
}
