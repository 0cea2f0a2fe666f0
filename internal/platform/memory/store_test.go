package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/platform/memory"
	"github.com/phrazzld/questboard-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, s store.Stores, handle string, balance domain.Money) *domain.Account {
	t.Helper()
	a, err := domain.NewAccount(handle, handle+"@example.com", "", "password123", balance)
	require.NoError(t, err)
	a.HashedPassword = "hashed"
	require.NoError(t, s.Accounts.Create(context.Background(), a))
	return a
}

func seedTask(t *testing.T, s store.Stores, creator *domain.Account, price domain.Money) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(creator.ID, "Fix roof", "", price, "repairs", nil)
	require.NoError(t, err)
	require.NoError(t, s.Tasks.Create(context.Background(), task))
	return task
}

func TestAccounts(t *testing.T) {
	s := memory.NewStores(logger.Discard())
	ctx := context.Background()

	alice := seedAccount(t, s, "alice", 100)

	got, err := s.Accounts.GetByHandle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Empty(t, got.Password)

	dup, err := domain.NewAccount("alice", "x@example.com", "", "password123", 0)
	require.NoError(t, err)
	dup.HashedPassword = "hashed"
	assert.ErrorIs(t, s.Accounts.Create(ctx, dup), store.ErrHandleExists)

	dup, err = domain.NewAccount("alice2", "alice@example.com", "", "password123", 0)
	require.NoError(t, err)
	dup.HashedPassword = "hashed"
	assert.ErrorIs(t, s.Accounts.Create(ctx, dup), store.ErrEmailExists)

	_, err = s.Accounts.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrAccountNotFound)

	require.NoError(t, s.Accounts.SetActive(ctx, alice.ID, false))
	got, err = s.Accounts.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	task, err := domain.NewTask(alice.ID, "Fix roof", "", 50, "", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Tasks.Create(ctx, task), domain.ErrAccountInactive)
}

func TestFixRoofScenario(t *testing.T) {
	s := memory.NewStores(logger.Discard())
	ctx := context.Background()

	alice := seedAccount(t, s, "alice", 10000)
	bob := seedAccount(t, s, "bob", 0)
	task := seedTask(t, s, alice, 5000)

	_, err := s.Tasks.Claim(ctx, task.ID, bob.ID)
	require.NoError(t, err)

	completion, err := s.Tasks.Complete(ctx, task.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, completion.Task.Status)

	a, err := s.Accounts.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	b, err := s.Accounts.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(5000), a.Balance)
	assert.Equal(t, domain.Money(5000), b.Balance)
	assert.Equal(t, domain.MaxReputation, b.Reputation)

	entries, err := s.Accounts.ListLedgerEntries(ctx, bob.ID, store.Page{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.LedgerEntryTaskEarning, entries[0].EntryType)
	assert.Equal(t, domain.Money(5000), entries[0].Amount)
}

func TestCreateRequiresFunds(t *testing.T) {
	s := memory.NewStores(logger.Discard())
	alice := seedAccount(t, s, "alice", 999)

	task, err := domain.NewTask(alice.ID, "Fix roof", "", 1000, "", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Tasks.Create(context.Background(), task), domain.ErrInsufficientFunds)
}

func TestCompleteWithInsufficientFundsChangesNothing(t *testing.T) {
	s := memory.NewStores(logger.Discard())
	ctx := context.Background()

	alice := seedAccount(t, s, "alice", 5000)
	bob := seedAccount(t, s, "bob", 0)
	first := seedTask(t, s, alice, 5000)
	second := seedTask(t, s, alice, 3000)
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		_, err := s.Tasks.Claim(ctx, id, bob.ID)
		require.NoError(t, err)
	}

	_, err := s.Tasks.Complete(ctx, first.ID, alice.ID)
	require.NoError(t, err)
	_, err = s.Tasks.Complete(ctx, second.ID, alice.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	got, err := s.Tasks.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, got.Status)
	b, err := s.Accounts.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(5000), b.Balance)
}

func TestConcurrentClaimSucceedsOnce(t *testing.T) {
	s := memory.NewStores(logger.Discard())
	ctx := context.Background()

	alice := seedAccount(t, s, "alice", 10000)
	task := seedTask(t, s, alice, 100)

	const claimants = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
		losers  int
	)
	for i := 0; i < claimants; i++ {
		c := seedAccount(t, s, "worker"+string(rune('a'+i)), 0)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Tasks.Claim(ctx, task.ID, c.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, c.ID)
			} else if errors.Is(err, domain.ErrInvalidState) {
				losers++
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, claimants-1, losers)

	got, err := s.Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, winners[0], *got.ExecutorID)
}

func TestStoredTasksAreCopies(t *testing.T) {
	s := memory.NewStores(logger.Discard())
	ctx := context.Background()

	alice := seedAccount(t, s, "alice", 10000)
	task := seedTask(t, s, alice, 100)

	got, err := s.Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	got.Status = domain.TaskStatusCompleted

	again, err := s.Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusOpen, again.Status)
}

func TestListFiltersAndRoles(t *testing.T) {
	s := memory.NewStores(logger.Discard())
	ctx := context.Background()

	alice := seedAccount(t, s, "alice", 100000)
	bob := seedAccount(t, s, "bob", 0)
	cheap := seedTask(t, s, alice, 1000)
	pricey := seedTask(t, s, alice, 9000)
	_, err := s.Tasks.Claim(ctx, pricey.ID, bob.ID)
	require.NoError(t, err)

	open, err := s.Tasks.List(ctx, store.TaskFilter{Status: domain.TaskStatusOpen})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, cheap.ID, open[0].ID)

	floor := domain.Money(5000)
	expensive, err := s.Tasks.List(ctx, store.TaskFilter{MinPrice: &floor})
	require.NoError(t, err)
	require.Len(t, expensive, 1)
	assert.Equal(t, pricey.ID, expensive[0].ID)

	none, err := s.Tasks.List(ctx, store.TaskFilter{Category: "gardening"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	executing, err := s.Tasks.ListByAccount(ctx, bob.ID, domain.TaskRoleExecutor, store.Page{})
	require.NoError(t, err)
	require.Len(t, executing, 1)
	assert.Equal(t, pricey.ID, executing[0].ID)

	created, err := s.Tasks.ListByAccount(ctx, alice.ID, domain.TaskRoleCreator, store.Page{})
	require.NoError(t, err)
	assert.Len(t, created, 2)
}

func TestMessages(t *testing.T) {
	s := memory.NewStores(logger.Discard())
	ctx := context.Background()

	alice := seedAccount(t, s, "alice", 10000)
	bob := seedAccount(t, s, "bob", 0)
	carol := seedAccount(t, s, "carol", 0)
	task := seedTask(t, s, alice, 100)
	_, err := s.Tasks.Claim(ctx, task.ID, bob.ID)
	require.NoError(t, err)

	bodies := []string{"one", "two", "three", "four"}
	for i, body := range bodies {
		sender := alice.ID
		if i%2 == 1 {
			sender = bob.ID
		}
		m, err := domain.NewChatMessage(task.ID, sender, body)
		require.NoError(t, err)
		require.NoError(t, s.Messages.Record(ctx, m))
	}

	m, err := domain.NewChatMessage(task.ID, carol.ID, "hi")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Messages.Record(ctx, m), domain.ErrForbidden)

	m, err = domain.NewChatMessage(uuid.New(), alice.ID, "hi")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Messages.Record(ctx, m), store.ErrTaskNotFound)

	all, err := s.Messages.ListByTask(ctx, task.ID, store.Page{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, msg := range all {
		assert.Equal(t, bodies[i], msg.Body)
	}

	window, err := s.Messages.ListByTask(ctx, task.ID, store.Page{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "two", window[0].Body)
	assert.Equal(t, "three", window[1].Body)
}
