package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/postgres"
	"github.com/phrazzld/questboard-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		SchemaName:     "public",
		TableName:      "accounts",
		ColumnName:     "handle",
		ConstraintName: constraint,
	}
}

// MockResult implements sql.Result for testing
type MockResult struct {
	rowsAffected int64
	err          error
}

func (m MockResult) LastInsertId() (int64, error) { return 0, m.err }
func (m MockResult) RowsAffected() (int64, error) { return m.rowsAffected, m.err }

func TestMapError(t *testing.T) {
	t.Parallel()

	generic := errors.New("connection reset")

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), store.ErrNotFound},
		{"handle taken", newPgError("23505", "accounts_handle_key"), store.ErrHandleExists},
		{"email taken", newPgError("23505", "accounts_email_key"), store.ErrEmailExists},
		{"other unique", newPgError("23505", "something_key"), store.ErrDuplicate},
		{"foreign key", newPgError("23503", "tasks_creator_id_fkey"), store.ErrInvalidEntity},
		{"check", newPgError("23514", "tasks_price_check"), store.ErrInvalidEntity},
		{"not null", newPgError("23502", ""), store.ErrInvalidEntity},
		{"unmapped", generic, generic},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mapped := postgres.MapError(tt.err)
			assert.ErrorIs(t, mapped, tt.target)
		})
	}

	assert.NoError(t, postgres.MapError(nil))
	assert.NotErrorIs(t, postgres.MapError(newPgError("23505", "accounts_email_key")), store.ErrHandleExists)
}

func TestViolationPredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		check func(error) bool
		code  string
	}{
		{"unique", postgres.IsUniqueViolation, "23505"},
		{"foreign key", postgres.IsForeignKeyViolation, "23503"},
		{"check", postgres.IsCheckConstraintViolation, "23514"},
		{"not null", postgres.IsNotNullViolation, "23502"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tt.check(newPgError(tt.code, "")))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", newPgError(tt.code, ""))))
			assert.False(t, tt.check(newPgError("42P01", "")))
			assert.False(t, tt.check(errors.New("generic")))
			assert.False(t, tt.check(nil))
		})
	}
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	require.NoError(t, postgres.CheckRowsAffected(MockResult{rowsAffected: 1}, nil))

	err := postgres.CheckRowsAffected(MockResult{}, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = postgres.CheckRowsAffected(MockResult{}, domain.ErrInvalidState)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	err = postgres.CheckRowsAffected(MockResult{err: errors.New("driver")}, nil)
	assert.ErrorContains(t, err, "failed to read rows affected")

	err = postgres.CheckRowsAffected(nil, nil)
	assert.Error(t, err)
}
