package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewAccount(t *testing.T) {
	account, err := NewAccount("  alice ", "Alice@Example.com", "Alice A", "password123", 50000)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if account.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if account.Handle != "alice" {
		t.Errorf("Expected trimmed handle, got %q", account.Handle)
	}
	if account.Email != "alice@example.com" {
		t.Errorf("Expected lowercased email, got %q", account.Email)
	}
	if account.Balance != 50000 {
		t.Errorf("Expected balance 50000, got %d", account.Balance)
	}
	if account.Reputation != DefaultReputation {
		t.Errorf("Expected default reputation, got %d", account.Reputation)
	}
	if !account.Active {
		t.Error("Expected new account to be active")
	}
}

func TestAccountValidate(t *testing.T) {
	valid := func() Account {
		return Account{
			ID:             uuid.New(),
			Handle:         "bob",
			Email:          "bob@example.com",
			HashedPassword: "$2a$12$hash",
			Balance:        0,
			Reputation:     45,
			Active:         true,
		}
	}

	tests := []struct {
		name    string
		mutate  func(a *Account)
		wantErr error
	}{
		{"valid", func(a *Account) {}, nil},
		{"empty id", func(a *Account) { a.ID = uuid.Nil }, ErrEmptyAccountID},
		{"short handle", func(a *Account) { a.Handle = "ab" }, ErrInvalidHandle},
		{"bad email", func(a *Account) { a.Email = "not-an-email" }, ErrInvalidEmail},
		{"short password", func(a *Account) { a.Password = "short" }, ErrPasswordTooShort},
		{"no password at all", func(a *Account) { a.HashedPassword = "" }, ErrEmptyHashedPassword},
		{"negative balance", func(a *Account) { a.Balance = -1 }, ErrNegativeBalance},
		{"reputation above cap", func(a *Account) { a.Reputation = 51 }, ErrReputationRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid()
			tt.mutate(&a)
			err := a.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected %v to wrap ErrValidation", err)
			}
		})
	}
}

func TestReputationBump(t *testing.T) {
	if got := Reputation(45).Bump(CompletionBonus); got != 46 {
		t.Errorf("Expected 46, got %d", got)
	}
	if got := Reputation(50).Bump(CompletionBonus); got != MaxReputation {
		t.Errorf("Expected cap at %d, got %d", MaxReputation, got)
	}
	if got := Reputation(0).Bump(-3); got != 0 {
		t.Errorf("Expected floor at 0, got %d", got)
	}

	b, err := Reputation(47).MarshalJSON()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(b) != "4.7" {
		t.Errorf("Expected 4.7, got %s", b)
	}
}
