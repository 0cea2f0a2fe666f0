//go:build integration

// Package testdb provides database helpers for integration tests.
//
// Tests skip themselves when QUESTBOARD_TEST_DATABASE_URL is unset. The
// schema is migrated once per process with the embedded goose migrations.
// Stores that only read or insert run inside WithTx and are rolled back;
// tests that exercise the task ledger, which opens its own transactions,
// call Truncate instead.
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        accounts := postgres.NewPostgresAccountStore(tx, nil)
//	        ...
//	    })
//	}
package testdb
