package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/rserve-session/internal/domain"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// CookieWriter sets session cookies. Secure is dropped in debug deployments
// so the cookies work over plain http on localhost.
type CookieWriter struct {
	Secure bool
}

// SetAccess writes the access cookie.
func (w CookieWriter) SetAccess(c *fiber.Ctx, tok domain.Token) {
	c.Cookie(w.cookie(AccessCookieName, tok.Value, tok.ExpiresAt))
}

// SetRefresh writes the refresh cookie.
func (w CookieWriter) SetRefresh(c *fiber.Ctx, tok domain.Token) {
	c.Cookie(w.cookie(RefreshCookieName, tok.Value, tok.ExpiresAt))
}

// SetPair writes the access cookie, and the refresh cookie only when it changed.
func (w CookieWriter) SetPair(c *fiber.Ctx, pair domain.TokenPair) {
	w.SetAccess(c, pair.Access)
	if pair.Rotated {
		w.SetRefresh(c, pair.Refresh)
	}
}

// Clear expires both cookies on the client.
func (w CookieWriter) Clear(c *fiber.Ctx) {
	past := time.Unix(0, 0)
	c.Cookie(w.cookie(AccessCookieName, "", past))
	c.Cookie(w.cookie(RefreshCookieName, "", past))
}

func (w CookieWriter) cookie(name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   w.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
