package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/phrazzld/questboard-api/internal/api/shared"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/redact"
)

// Authenticator resolves a bearer credential to an active account.
// *auth.Guard satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Account, error)
}

// AuthMiddleware provides bearer authentication for routes.
type AuthMiddleware struct {
	guard Authenticator
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(guard Authenticator) *AuthMiddleware {
	return &AuthMiddleware{guard: guard}
}

// Authenticate validates the Authorization header and adds the account to
// the request context for authorized requests.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Unauthenticated", "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Unauthenticated", "Invalid authorization format")
			return
		}

		account, err := m.guard.Authenticate(r.Context(), parts[1])
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrAccountInactive):
				shared.RespondWithError(w, r, http.StatusForbidden, "AccountInactive", "Account is inactive")
			case errors.Is(err, domain.ErrUnauthenticated):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Unauthenticated", "Invalid token")
			default:
				logger.FromContext(r.Context()).Error("failed to authenticate request", "error", redact.Error(err))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Internal", "Authentication error")
			}
			return
		}

		log := logger.FromContext(r.Context()).With("account_id", account.ID.String())
		ctx := logger.WithLogger(shared.WithAccount(r.Context(), account), log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAccount extracts the authenticated account from the request context.
func GetAccount(r *http.Request) (*domain.Account, bool) {
	return shared.AccountFromContext(r.Context())
}
