package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/store"
)

// AccountLookup resolves account ids. store.AccountStore satisfies it.
type AccountLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// Guard resolves bearer credentials to active accounts and decides task access.
type Guard struct {
	tokens   JWTService
	accounts AccountLookup
	logger   *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(tokens JWTService, accounts AccountLookup, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		tokens:   tokens,
		accounts: accounts,
		logger:   logger.With(slog.String("component", "access_guard")),
	}
}

// Authenticate validates an access token, with or without a "Bearer "
// prefix, and returns its account. Errors wrap domain.ErrUnauthenticated,
// or are domain.ErrAccountInactive for a deactivated account.
func (g *Guard) Authenticate(ctx context.Context, token string) (*domain.Account, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := g.tokens.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	account, err := g.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			log.Warn("token refers to unknown account",
				slog.String("account_id", claims.AccountID.String()))
			return nil, fmt.Errorf("%w: account no longer exists", ErrInvalidToken)
		}
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}
	if !account.Active {
		log.Info("rejected credential of inactive account",
			slog.String("account_id", account.ID.String()))
		return nil, domain.ErrAccountInactive
	}
	return account, nil
}

// AuthorizeTaskAccess reports whether account is the creator or the executor of task.
func AuthorizeTaskAccess(account *domain.Account, task *domain.Task) bool {
	return account != nil && task != nil && task.HasParticipant(account.ID)
}
