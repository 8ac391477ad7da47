package auth

import (
	"strings"
	"time"

	"github.com/spec-kit/rserve-session/internal/domain"
)

// TokenConfig sets credential lifetimes.
type TokenConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// RenewalWindow is how close to expiry a refresh token must be before
	// Refresh replaces it.
	RenewalWindow time.Duration
}

// DefaultTokenConfig returns the 15m / 30d / 7d lifecycle.
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		RenewalWindow: 7 * 24 * time.Hour,
	}
}

// TokenManager issues and verifies access and refresh tokens. It keeps no
// per-token state: a refresh token stays usable until it expires, because
// there is no server-side revocation list.
type TokenManager struct {
	codec *Codec
	now   func() time.Time
	cfg   TokenConfig
}

// Option customizes a TokenManager.
type Option func(*TokenManager)

// WithClock overrides the time source used for issuance and validation.
func WithClock(now func() time.Time) Option {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// NewTokenManager builds a new manager signing with secret.
func NewTokenManager(secret string, cfg TokenConfig, opts ...Option) (*TokenManager, error) {
	def := DefaultTokenConfig()
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = def.AccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = def.RefreshTTL
	}
	if cfg.RenewalWindow <= 0 {
		cfg.RenewalWindow = def.RenewalWindow
	}

	tm := &TokenManager{now: time.Now, cfg: cfg}
	for _, opt := range opts {
		opt(tm)
	}

	codec, err := NewCodec([]byte(secret), tm.now)
	if err != nil {
		return nil, err
	}
	tm.codec = codec
	return tm, nil
}

// IssueAccess mints a short-lived access token for p.
func (tm *TokenManager) IssueAccess(p domain.Principal) (domain.Token, error) {
	return tm.issue(p, domain.TokenKindAccess, tm.cfg.AccessTTL)
}

// IssueRefresh mints a long-lived refresh token for p.
func (tm *TokenManager) IssueRefresh(p domain.Principal) (domain.Token, error) {
	return tm.issue(p, domain.TokenKindRefresh, tm.cfg.RefreshTTL)
}

// IssuePair mints both tokens, as on login.
func (tm *TokenManager) IssuePair(p domain.Principal) (domain.TokenPair, error) {
	access, err := tm.IssueAccess(p)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := tm.IssueRefresh(p)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{Access: access, Refresh: refresh, Rotated: true}, nil
}

func (tm *TokenManager) issue(p domain.Principal, kind domain.TokenKind, ttl time.Duration) (domain.Token, error) {
	claims := Claims{Role: p.Role, Kind: kind}
	claims.Subject = p.RestaurantID

	value, err := tm.codec.sign(&claims, ttl)
	if err != nil {
		return domain.Token{}, err
	}
	return tokenFromClaims(value, &claims), nil
}

// Verify checks an access token and returns the principal it carries.
func (tm *TokenManager) Verify(tokenStr string) (domain.Principal, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return domain.Principal{}, ErrUnauthenticated
	}

	claims, err := tm.codec.Decode(tokenStr)
	if err != nil {
		return domain.Principal{}, wrap(KindInvalidCredential, err)
	}
	if claims.Subject == "" || claims.Role == "" {
		return domain.Principal{}, ErrMissingClaim
	}
	if claims.Kind != domain.TokenKindAccess || !claims.Role.Valid() {
		return domain.Principal{}, ErrInvalidCredential
	}
	return claims.Principal(), nil
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// itself is replaced only once its remaining lifetime drops below the renewal
// window; otherwise the presented string is handed back unchanged.
func (tm *TokenManager) Refresh(refreshStr string) (domain.TokenPair, error) {
	if strings.TrimSpace(refreshStr) == "" {
		return domain.TokenPair{}, ErrUnauthenticated
	}

	claims, err := tm.codec.Decode(refreshStr)
	if err != nil {
		if KindOf(err) == KindExpired {
			return domain.TokenPair{}, err
		}
		return domain.TokenPair{}, wrap(KindInvalidCredential, err)
	}
	if claims.Kind != domain.TokenKindRefresh || claims.Subject == "" || !claims.Role.Valid() {
		return domain.TokenPair{}, ErrInvalidCredential
	}

	principal := claims.Principal()
	access, err := tm.IssueAccess(principal)
	if err != nil {
		return domain.TokenPair{}, err
	}

	current := tokenFromClaims(refreshStr, claims)
	if current.ExpiresAt.Sub(tm.now()) >= tm.cfg.RenewalWindow {
		return domain.TokenPair{Access: access, Refresh: current}, nil
	}

	rotated, err := tm.IssueRefresh(principal)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{Access: access, Refresh: rotated, Rotated: true}, nil
}

func tokenFromClaims(value string, c *Claims) domain.Token {
	tok := domain.Token{
		ID:        c.ID,
		Kind:      c.Kind,
		Value:     value,
		Principal: c.Principal(),
	}
	if c.ExpiresAt != nil {
		tok.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	if c.IssuedAt != nil {
		tok.IssuedAt = c.IssuedAt.Time.UTC()
	}
	return tok
}
