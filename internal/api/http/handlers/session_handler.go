package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/rserve-session/internal/auth"
	apperrors "github.com/spec-kit/rserve-session/pkg/util"
)

// SessionHandler reports who the caller is.
type SessionHandler struct{}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Current returns the principal attached by the auth middleware.
func (h *SessionHandler) Current(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.KindUnauthenticated.Message(), auth.ErrUnauthenticated)
	}
	return c.JSON(principalResponse(principal))
}
