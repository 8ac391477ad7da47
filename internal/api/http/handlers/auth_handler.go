package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/rserve-session/internal/api/dto"
	"github.com/spec-kit/rserve-session/internal/auth"
	"github.com/spec-kit/rserve-session/internal/domain"
	apperrors "github.com/spec-kit/rserve-session/pkg/util"
)

// Authenticator is the slice of the auth service the HTTP layer needs.
type Authenticator interface {
	Login(ctx context.Context, restaurantID, password string) (domain.Principal, domain.TokenPair, error)
	Refresh(refreshToken string) (domain.TokenPair, error)
	ChangePassword(ctx context.Context, restaurantID, currentPassword, newPassword string) error
}

// AuthHandler serves login, refresh and logout.
type AuthHandler struct {
	auth    Authenticator
	cookies auth.CookieWriter
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(authenticator Authenticator, cookies auth.CookieWriter) *AuthHandler {
	return &AuthHandler{auth: authenticator, cookies: cookies}
}

// Login checks the restaurant password and sets both session cookies.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	_, pair, err := h.auth.Login(c.UserContext(), req.RestaurantID, req.Password)
	if err != nil {
		return authError(err)
	}

	h.cookies.SetPair(c, pair)
	return c.JSON(sessionResponse("login successful", pair))
}

// Refresh trades the refresh cookie for a new access cookie. The refresh
// cookie is rewritten only when the token was rotated.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	pair, err := h.auth.Refresh(c.Cookies(auth.RefreshCookieName))
	if err != nil {
		return authError(err)
	}

	h.cookies.SetPair(c, pair)
	return c.JSON(sessionResponse("session refreshed", pair))
}

// Logout clears the session cookies. Issued tokens stay valid until they
// expire.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.cookies.Clear(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// ChangePassword replaces the caller's password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.KindUnauthenticated.Message(), auth.ErrUnauthenticated)
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	if err := h.auth.ChangePassword(c.UserContext(), principal.RestaurantID, req.CurrentPassword, req.NewPassword); err != nil {
		return authError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// authError renders credential failures as 401 and leaves everything else to
// the generic mapping.
func authError(err error) error {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return apperrors.NewUnauthorized(auth.Reason(err), err)
	}
	return err
}

func sessionResponse(message string, pair domain.TokenPair) dto.SessionResponse {
	return dto.SessionResponse{
		Message:          message,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
		RefreshRotated:   pair.Rotated,
	}
}

func principalResponse(p domain.Principal) dto.PrincipalResponse {
	return dto.PrincipalResponse{RestaurantID: p.RestaurantID, Role: string(p.Role)}
}
