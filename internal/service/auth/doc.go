// Package auth issues and validates JWT access and refresh tokens, hashes
// passwords with bcrypt, and provides the Guard that turns a bearer
// credential into an active account.
package auth
