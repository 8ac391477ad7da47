package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/rserve-session/internal/domain"
	"github.com/spec-kit/rserve-session/internal/observability"
	apperrors "github.com/spec-kit/rserve-session/pkg/util"
)

const principalKey = "auth_principal"

// Verifier validates an access token string.
type Verifier interface {
	Verify(token string) (domain.Principal, error)
}

// AuthMiddleware validates access tokens and stores the principal on the request.
type AuthMiddleware struct {
	tokens  Verifier
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens Verifier, logger *zap.Logger, metrics *observability.Metrics) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, logger: logger, metrics: metrics}
}

// Handle enforces authentication for protected routes. The access token is
// taken from the access cookie, falling back to a bearer header.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.tokens.Verify(accessTokenFrom(c))
	if err != nil {
		m.metrics.RecordAuthOutcome("verify", string(KindOf(err)))
		m.logger.Debug("access token rejected",
			zap.String("path", c.Path()),
			zap.String("kind", string(KindOf(err))))
		return apperrors.NewUnauthorized(Reason(err), err)
	}
	m.metrics.RecordAuthOutcome("verify", "ok")

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated restaurant.
func PrincipalFromContext(c *fiber.Ctx) (domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(domain.Principal)
	return principal, ok
}

func accessTokenFrom(c *fiber.Ctx) string {
	if tok := c.Cookies(AccessCookieName); tok != "" {
		return tok
	}
	header := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
