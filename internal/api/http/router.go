package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/rserve-session/internal/api/http/handlers"
	"github.com/spec-kit/rserve-session/internal/auth"
	"github.com/spec-kit/rserve-session/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Session        *handlers.SessionHandler
	Stream         *handlers.StreamHandler
	Webhook        *handlers.WebhookHandler
	AuthMiddleware *auth.AuthMiddleware
	// Metrics serves the Prometheus exposition; nil leaves /metrics unrouted.
	Metrics fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	api := app.Group("/api")
	api.Post("/login", cfg.Auth.Login)
	api.Post("/refresh", cfg.Auth.Refresh)
	api.Post("/logout", cfg.Auth.Logout)
	api.Post("/webhook/updates", cfg.Webhook.RestaurantUpdated)

	restaurant := api.Group("/restaurant", cfg.AuthMiddleware.Handle, auth.RequireRole())
	restaurant.Get("/session", cfg.Session.Current)
	restaurant.Get("/updates", cfg.Stream.Updates)
	restaurant.Post("/password", auth.RequireRole(domain.RoleAdmin, domain.RoleOwner), cfg.Auth.ChangePassword)
}
