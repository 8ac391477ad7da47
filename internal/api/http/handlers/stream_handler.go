package handlers

import (
	"bufio"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/rserve-session/internal/auth"
	"github.com/spec-kit/rserve-session/internal/stream"
	apperrors "github.com/spec-kit/rserve-session/pkg/util"
)

// StreamHandler serves the server-sent update stream.
type StreamHandler struct {
	notifier *stream.Notifier
	logger   *zap.Logger
}

// NewStreamHandler constructs a StreamHandler.
func NewStreamHandler(notifier *stream.Notifier, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{notifier: notifier, logger: logger}
}

// Updates opens an update channel for the caller's restaurant and keeps the
// response open until the client leaves or the server shuts down.
func (h *StreamHandler) Updates(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.KindUnauthenticated.Message(), auth.ErrUnauthenticated)
	}

	// The body writer outlives this handler, so the channel must not hang off
	// the request context. Client disconnects surface as write errors.
	ch, err := h.notifier.Open(context.Background(), principal.RestaurantID)
	if errors.Is(err, stream.ErrRegistryClosed) {
		return apperrors.NewServiceUnavailable("server is shutting down")
	}
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := h.logger.With(zap.String("restaurant_id", principal.RestaurantID))
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		if err := ch.Run(stream.NewSSEWriter(w)); err != nil {
			logger.Debug("update stream ended", zap.Error(err))
		}
	})
	return nil
}
