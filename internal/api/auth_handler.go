package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/questboard-api/internal/api/shared"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/service"
)

// AuthHandler handles account and credential requests.
type AuthHandler struct {
	accounts service.AccountService
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(accounts service.AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		logger:   logger.With(slog.String("component", "auth_handler")),
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Handle:   req.Handle,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create account")
		return
	}

	pair, err := h.accounts.IssueTokens(r.Context(), account.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		Account:   newAccountResponse(account),
		TokenPair: pair,
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, pair, err := h.accounts.Login(r.Context(), req.Handle, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to log in")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("account logged in",
		slog.String("account_id", account.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		Account:   newAccountResponse(account),
		TokenPair: pair,
	})
}

// RefreshToken handles POST /api/auth/refresh.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, pair)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromRequest(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newAccountResponse(account))
}

// Ledger handles GET /api/auth/me/ledger.
func (h *AuthHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromRequest(w, r)
	if !ok {
		return
	}
	page, err := parsePage(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	entries, err := h.accounts.Ledger(r.Context(), account.ID, page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list ledger entries")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ListResponse[*domain.LedgerEntry]{
		Items:  entries,
		Offset: page.Offset,
		Limit:  page.Limit,
	})
}

// Profile handles GET /api/accounts/{id}.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve account")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newProfileResponse(account))
}
