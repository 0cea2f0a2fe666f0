package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/service/auth"
	"github.com/phrazzld/questboard-api/internal/store"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Handle         string
	Email          string
	Password       string
	FullName       string
	InitialBalance domain.Money
}

// AccountService manages accounts and their credentials.
type AccountService interface {
	// Register creates an account. InitialBalance is only set by operators.
	Register(ctx context.Context, in RegisterInput) (*domain.Account, error)

	// Login checks credentials and issues a token pair.
	Login(ctx context.Context, handle, password string) (*domain.Account, *auth.TokenPair, error)

	// IssueTokens creates a token pair for an account.
	IssueTokens(ctx context.Context, accountID uuid.UUID) (*auth.TokenPair, error)

	// Refresh exchanges a refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)

	// Get returns an account by id.
	Get(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)

	// Ledger lists the account's balance movements, newest first.
	Ledger(ctx context.Context, accountID uuid.UUID, page store.Page) ([]*domain.LedgerEntry, error)

	// SetActive activates or deactivates an account.
	SetActive(ctx context.Context, accountID uuid.UUID, active bool) error
}

type accountServiceImpl struct {
	accounts      store.AccountStore
	tokens        auth.JWTService
	passwords     passwordHandler
	tokenLifetime time.Duration
	logger        *slog.Logger
}

type passwordHandler interface {
	auth.PasswordVerifier
	auth.PasswordHasher
}

// NewAccountService creates an AccountService.
func NewAccountService(
	accounts store.AccountStore,
	tokens auth.JWTService,
	passwords *auth.BcryptVerifier,
	tokenLifetime time.Duration,
	logger *slog.Logger,
) AccountService {
	return &accountServiceImpl{
		accounts:      accounts,
		tokens:        tokens,
		passwords:     passwords,
		tokenLifetime: tokenLifetime,
		logger:        logger.With(slog.String("component", "account_service")),
	}
}

func (s *accountServiceImpl) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	account, err := domain.NewAccount(in.Handle, in.Email, in.FullName, in.Password, in.InitialBalance)
	if err != nil {
		return nil, err
	}

	hashed, err := s.passwords.Hash(account.Password)
	if err != nil {
		return nil, NewServiceError("account", "register", "failed to hash password", err)
	}
	account.HashedPassword = hashed
	account.Password = ""

	if err := s.accounts.Create(ctx, account); err != nil {
		if store.IsDuplicateError(err) {
			log.Debug("registration conflict", slog.String("handle", account.Handle))
		}
		return nil, NewServiceError("account", "register", "failed to save account", err)
	}

	log.Info("account registered",
		slog.String("account_id", account.ID.String()),
		slog.String("handle", account.Handle))
	return account, nil
}

func (s *accountServiceImpl) Login(ctx context.Context, handle, password string) (*domain.Account, *auth.TokenPair, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	account, err := s.accounts.GetByHandle(ctx, strings.TrimSpace(handle))
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, nil, auth.ErrInvalidCredentials
		}
		return nil, nil, NewServiceError("account", "login", "failed to retrieve account", err)
	}

	if err := s.passwords.Compare(account.HashedPassword, password); err != nil {
		log.Debug("password mismatch", slog.String("account_id", account.ID.String()))
		return nil, nil, auth.ErrInvalidCredentials
	}
	if !account.Active {
		return nil, nil, domain.ErrAccountInactive
	}

	pair, err := s.IssueTokens(ctx, account.ID)
	if err != nil {
		return nil, nil, err
	}
	return account, pair, nil
}

func (s *accountServiceImpl) IssueTokens(ctx context.Context, accountID uuid.UUID) (*auth.TokenPair, error) {
	access, err := s.tokens.GenerateToken(ctx, accountID)
	if err != nil {
		return nil, NewServiceError("account", "issue_tokens", "failed to generate access token", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(ctx, accountID)
	if err != nil {
		return nil, NewServiceError("account", "issue_tokens", "failed to generate refresh token", err)
	}
	return &auth.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().UTC().Add(s.tokenLifetime),
	}, nil
}

func (s *accountServiceImpl) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, auth.ErrInvalidRefreshToken
		}
		return nil, NewServiceError("account", "refresh", "failed to retrieve account", err)
	}
	if !account.Active {
		return nil, domain.ErrAccountInactive
	}
	return s.IssueTokens(ctx, account.ID)
}

func (s *accountServiceImpl) Get(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, NewServiceError("account", "get", "failed to retrieve account", err)
	}
	return account, nil
}

func (s *accountServiceImpl) Ledger(ctx context.Context, accountID uuid.UUID, page store.Page) ([]*domain.LedgerEntry, error) {
	entries, err := s.accounts.ListLedgerEntries(ctx, accountID, page.Normalize())
	if err != nil {
		return nil, NewServiceError("account", "ledger", "failed to list ledger entries", err)
	}
	return entries, nil
}

func (s *accountServiceImpl) SetActive(ctx context.Context, accountID uuid.UUID, active bool) error {
	if err := s.accounts.SetActive(ctx, accountID, active); err != nil {
		return NewServiceError("account", "set_active", "failed to update account", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("account activity changed",
		slog.String("account_id", accountID.String()),
		slog.Bool("active", active))
	return nil
}
