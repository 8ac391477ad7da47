package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/rserve-session/internal/api/dto"
	"github.com/spec-kit/rserve-session/internal/events"
	"github.com/spec-kit/rserve-session/internal/service"
	apperrors "github.com/spec-kit/rserve-session/pkg/util"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

// UpdateNotifier records that a restaurant's data changed.
type UpdateNotifier interface {
	NotifyRestaurantUpdated(ctx context.Context, restaurantID string, source events.Source) error
}

// WebhookHandler accepts signed "restaurant updated" callbacks.
type WebhookHandler struct {
	updates UpdateNotifier
	secret  []byte
}

// NewWebhookHandler constructs a WebhookHandler. With an empty secret every
// request is rejected.
func NewWebhookHandler(updates UpdateNotifier, secret string) *WebhookHandler {
	return &WebhookHandler{updates: updates, secret: []byte(secret)}
}

// RestaurantUpdated marks the named restaurant as changed.
func (h *WebhookHandler) RestaurantUpdated(c *fiber.Ctx) error {
	if len(h.secret) == 0 {
		return apperrors.NewServiceUnavailable("webhook not configured")
	}

	body := c.Body()
	if !h.validSignature(body, c.Get(SignatureHeader)) {
		return apperrors.NewUnauthorized("invalid signature", nil)
	}

	var req dto.WebhookUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	err := h.updates.NotifyRestaurantUpdated(c.UserContext(), req.RestaurantID, events.SourceWebhook)
	if errors.Is(err, service.ErrMissingRestaurantID) {
		return apperrors.NewValidationError("invalid payload", map[string]any{"RestaurantID": "required"})
	}
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *WebhookHandler) validSignature(body []byte, signature string) bool {
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
