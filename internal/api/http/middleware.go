package http

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/rserve-session/internal/observability"
	apperrors "github.com/spec-kit/rserve-session/pkg/util"
)

// RegisterMiddlewares installs, outermost first: request logging, request ids,
// error rendering, panic recovery and the per-request deadline.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(requestid.New())
	app.Use(errorRenderer(logger, metrics))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, r any) {
			logger.Error("panic recovered",
				zap.String("path", c.Path()),
				zap.String("panic", fmt.Sprint(r)),
				zap.ByteString("stack", debug.Stack()))
		},
	}))
	if timeout > 0 {
		app.Use(requestDeadline(timeout))
	}
}

// requestDeadline bounds the user context handed to services. Streaming
// handlers detach from it on purpose.
func requestDeadline(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorRenderer turns any error returned down the chain into the JSON error
// envelope and swallows it, so fiber's default handler never runs.
func errorRenderer(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		de := apperrors.ToDomainError(err)
		metrics.RecordError(c.Path(), c.Method(), de.Code)

		fields := []zap.Field{
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.String("code", de.Code),
			zap.Error(de),
		}
		if de.HTTPStatus >= fiber.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}

		return c.Status(de.HTTPStatus).JSON(de.Body())
	}
}
