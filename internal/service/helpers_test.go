package service

import (
	"context"
	"testing"

	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/platform/memory"
	"github.com/phrazzld/questboard-api/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestStores(t *testing.T) store.Stores {
	t.Helper()
	return memory.NewStores(logger.Discard())
}

// seedAccount stores an active account with the given balance.
func seedAccount(t *testing.T, stores store.Stores, handle string, balance domain.Money) *domain.Account {
	t.Helper()
	account, err := domain.NewAccount(handle, handle+"@example.com", "", "password123", balance)
	require.NoError(t, err)
	account.HashedPassword = "$2a$04$placeholderhashplaceholderhashplaceholderhashpl"
	account.Password = ""
	require.NoError(t, stores.Accounts.Create(context.Background(), account))
	return account
}
