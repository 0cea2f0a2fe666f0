// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. It also embeds the schema migrations and
// runs them with goose.
//
// Task state changes lock the task row with SELECT ... FOR UPDATE and apply a
// conditional UPDATE on the expected status, so concurrent claims or
// completions of one task succeed at most once.
package postgres
