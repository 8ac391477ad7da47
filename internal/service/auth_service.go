package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/rserve-session/internal/auth"
	"github.com/spec-kit/rserve-session/internal/config"
	"github.com/spec-kit/rserve-session/internal/domain"
	"github.com/spec-kit/rserve-session/internal/observability"
	"github.com/spec-kit/rserve-session/internal/repository"
)

// AuthService coordinates login, token verification and refresh.
type AuthService struct {
	accounts   repository.AccountRepository
	tokenMgr   *auth.TokenManager
	passwords  *auth.PasswordChecker
	bcryptCost int
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	// Clock overrides time.Now for token issuance and validation.
	Clock func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	tokenMgr, err := auth.NewTokenManager(cfg.SessionSecret, auth.TokenConfig{
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		RenewalWindow: cfg.RefreshRenewalWindow,
	}, auth.WithClock(deps.Clock))
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthService{
		accounts:   deps.AccountRepo,
		tokenMgr:   tokenMgr,
		passwords:  auth.NewPasswordChecker(cfg.BcryptCost),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
		metrics:    deps.Metrics,
	}, nil
}

// Authenticate reports whether password matches the account's stored hash.
// Unknown accounts and wrong passwords both yield false after the same bcrypt
// work. The error is reserved for store failures.
func (s *AuthService) Authenticate(ctx context.Context, restaurantID, password string) (bool, error) {
	_, ok, err := s.authenticate(ctx, restaurantID, password)
	return ok, err
}

func (s *AuthService) authenticate(ctx context.Context, restaurantID, password string) (*domain.Account, bool, error) {
	account, err := s.accounts.GetByRestaurantID(ctx, restaurantID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	hash := ""
	if account != nil {
		hash = account.PasswordHash
	}
	if !s.passwords.Check(hash, password) {
		return nil, false, nil
	}
	return account, true, nil
}

// Login authenticates a restaurant and issues a fresh token pair. The role in
// the tokens comes from the account record.
func (s *AuthService) Login(ctx context.Context, restaurantID, password string) (domain.Principal, domain.TokenPair, error) {
	account, ok, err := s.authenticate(ctx, restaurantID, password)
	if err != nil {
		s.metrics.RecordAuthOutcome("login", "error")
		return domain.Principal{}, domain.TokenPair{}, err
	}
	if !ok {
		s.metrics.RecordAuthOutcome("login", string(auth.KindWrongPassword))
		return domain.Principal{}, domain.TokenPair{}, auth.ErrWrongPassword
	}
	if !account.Role.Valid() {
		s.metrics.RecordAuthOutcome("login", "error")
		return domain.Principal{}, domain.TokenPair{}, fmt.Errorf("account %s has unknown role %q", account.RestaurantID, account.Role)
	}

	principal := account.Principal()
	pair, err := s.tokenMgr.IssuePair(principal)
	if err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}
	s.metrics.RecordAuthOutcome("login", "ok")
	s.logger.Info("restaurant logged in",
		zap.String("restaurant_id", principal.RestaurantID),
		zap.String("role", string(principal.Role)))
	return principal, pair, nil
}

// Verify validates an access token.
func (s *AuthService) Verify(accessToken string) (domain.Principal, error) {
	return s.tokenMgr.Verify(accessToken)
}

// Refresh exchanges a refresh token for a new access token, rotating the
// refresh token when it nears expiry.
func (s *AuthService) Refresh(refreshToken string) (domain.TokenPair, error) {
	pair, err := s.tokenMgr.Refresh(refreshToken)
	if err != nil {
		s.metrics.RecordAuthOutcome("refresh", string(auth.KindOf(err)))
		return domain.TokenPair{}, err
	}
	outcome := "ok"
	if pair.Rotated {
		outcome = "rotated"
	}
	s.metrics.RecordAuthOutcome("refresh", outcome)
	return pair, nil
}

// ProvisionAccount creates an account with a freshly hashed password.
func (s *AuthService) ProvisionAccount(ctx context.Context, restaurantID, password string, role domain.Role) (*domain.Account, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	account := &domain.Account{RestaurantID: restaurantID, PasswordHash: hash, Role: role}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, restaurantID, currentPassword, newPassword string) error {
	_, ok, err := s.authenticate(ctx, restaurantID, currentPassword)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ErrWrongPassword
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.accounts.UpdatePasswordHash(ctx, restaurantID, hash)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
