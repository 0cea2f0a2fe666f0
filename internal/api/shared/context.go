package shared

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
)

// ContextKey is the type of request context keys set by this package.
type ContextKey string

const (
	// AccountContextKey holds the authenticated *domain.Account.
	AccountContextKey ContextKey = "account"

	// TraceIDKey holds the request's trace ID string.
	TraceIDKey ContextKey = "trace_id"

	// TraceIDLength is the trace ID size in bytes before hex encoding.
	TraceIDLength = 16
)

// WithAccount stores the authenticated account in ctx.
func WithAccount(ctx context.Context, account *domain.Account) context.Context {
	return context.WithValue(ctx, AccountContextKey, account)
}

// AccountFromContext returns the authenticated account, if any.
func AccountFromContext(ctx context.Context) (*domain.Account, bool) {
	account, ok := ctx.Value(AccountContextKey).(*domain.Account)
	return account, ok && account != nil
}

// SetTraceID stores a fresh trace ID in ctx.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID returns the request's trace ID, or "" outside a traced request.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}

// generateTraceID returns a random v4 UUID as 32 hex characters.
func generateTraceID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		slog.Warn("random source unavailable, using clock-based trace id", "error", err)
		return generateFallbackTraceID()
	}
	return hex.EncodeToString(id[:])
}

// generateFallbackTraceID packs the wall clock and a process counter into
// TraceIDLength bytes so concurrent fallbacks stay distinct.
func generateFallbackTraceID() string {
	var b [TraceIDLength]byte
	binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(b[8:], fallbackSeq.Add(1))
	return hex.EncodeToString(b[:])
}

var fallbackSeq atomic.Uint64
