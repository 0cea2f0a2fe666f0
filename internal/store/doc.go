// Package store defines the persistence contracts for accounts, tasks, chat
// messages and ledger entries, the errors every implementation returns, and
// the transaction helper used by the SQL implementation.
package store
