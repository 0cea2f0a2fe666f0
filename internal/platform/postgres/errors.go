package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/questboard-api/internal/store"
)

// SQLSTATE codes the stores translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
)

// Constraints declared by the migrations.
const (
	constraintAccountHandle = "accounts_handle_key"
	constraintAccountEmail  = "accounts_email_key"
	constraintBalance       = "accounts_balance_check"
)

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	ok := errors.As(err, &pgErr)
	return pgErr, ok
}

func hasCode(err error, code string) bool {
	pgErr, ok := asPgError(err)
	return ok && pgErr.Code == code
}

// MapError translates driver errors into store sentinels. The original error
// stays in the message; unknown errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	pgErr, ok := asPgError(err)
	if !ok {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		target := store.ErrDuplicate
		switch pgErr.ConstraintName {
		case constraintAccountHandle:
			target = store.ErrHandleExists
		case constraintAccountEmail:
			target = store.ErrEmailExists
		}
		return fmt.Errorf("%w: %v", target, err)
	case codeForeignKeyViolation, codeCheckViolation:
		return fmt.Errorf("%w: constraint %s: %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case codeNotNullViolation:
		return fmt.Errorf("%w: column %s is required: %v", store.ErrInvalidEntity, pgErr.ColumnName, err)
	}
	return err
}

// IsUniqueViolation reports a unique constraint failure anywhere in err's chain.
func IsUniqueViolation(err error) bool { return hasCode(err, codeUniqueViolation) }

// IsForeignKeyViolation reports a foreign key failure anywhere in err's chain.
func IsForeignKeyViolation(err error) bool { return hasCode(err, codeForeignKeyViolation) }

// IsCheckConstraintViolation reports a check constraint failure anywhere in err's chain.
func IsCheckConstraintViolation(err error) bool { return hasCode(err, codeCheckViolation) }

// IsNotNullViolation reports a not-null failure anywhere in err's chain.
func IsNotNullViolation(err error) bool { return hasCode(err, codeNotNullViolation) }

// isBalanceViolation reports a debit that would take a balance below zero.
func isBalanceViolation(err error) bool {
	pgErr, ok := asPgError(err)
	return ok && pgErr.Code == codeCheckViolation && pgErr.ConstraintName == constraintBalance
}

// CheckRowsAffected returns notFound (store.ErrNotFound when nil) if the
// statement changed no rows. The stores use it to detect lost status races.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return errors.New("no result to check")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if notFound == nil {
		return store.ErrNotFound
	}
	return notFound
}
