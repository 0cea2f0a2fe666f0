// Package domain contains the marketplace entities (accounts, tasks, chat
// messages, ledger entries), the task state machine and the error kinds
// shared by every layer. It has no dependency on storage or transport.
package domain
