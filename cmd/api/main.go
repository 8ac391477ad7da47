package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/rserve-session/internal/api/http"
	"github.com/spec-kit/rserve-session/internal/api/http/handlers"
	"github.com/spec-kit/rserve-session/internal/auth"
	"github.com/spec-kit/rserve-session/internal/config"
	"github.com/spec-kit/rserve-session/internal/domain"
	"github.com/spec-kit/rserve-session/internal/events"
	"github.com/spec-kit/rserve-session/internal/observability"
	"github.com/spec-kit/rserve-session/internal/persistence"
	"github.com/spec-kit/rserve-session/internal/repository"
	"github.com/spec-kit/rserve-session/internal/service"
	"github.com/spec-kit/rserve-session/internal/stream"
	"github.com/spec-kit/rserve-session/internal/updates"
	"github.com/spec-kit/rserve-session/internal/worker"
	"github.com/spec-kit/rserve-session/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	natsConn, err := persistence.NewNATS(cfg.NATS, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect nats", zap.Error(err))
	}
	defer natsConn.Close()

	accountRepo := repository.NewAccountRepository(pg.PoolHandle())
	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		AccountRepo: accountRepo,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	if cfg.Seed.Enabled() {
		seedAccount(ctx, authService, accountRepo, cfg.Seed, logger)
	}

	flags := updates.NewRedisStore(redis.Client)
	dispatcher := events.NewDispatcher(logger)
	updateService := service.NewUpdateService(dispatcher, flags, logger)
	worker.StartUpdateWorker(updateService)
	defer updateService.Close()

	if natsConn.Enabled() {
		sub, err := worker.StartNATSConsumer(natsConn.Conn, cfg.NATS.Subject, updateService, logger)
		if err != nil {
			logger.Fatal("failed to subscribe nats", zap.Error(err))
		}
		defer sub.Unsubscribe() //nolint:errcheck
	}

	streams := stream.NewRegistry()
	notifier := stream.NewNotifier(streams, flags, stream.Config{
		PollInterval:      cfg.Stream.PollInterval,
		KeepAliveInterval: cfg.Stream.KeepAliveInterval,
	}, logger, metrics)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: !cfg.App.Debug,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	checks := []handlers.DependencyCheck{
		{Name: "postgres", Ping: pg.Ping},
		{Name: "redis", Ping: redis.Ping},
	}
	if natsConn.Enabled() {
		checks = append(checks, handlers.DependencyCheck{
			Name: "nats",
			Ping: func(context.Context) error { return natsConn.Ping() },
		})
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...),
		Auth:           handlers.NewAuthHandler(authService, auth.CookieWriter{Secure: !cfg.App.Debug}),
		Session:        handlers.NewSessionHandler(),
		Stream:         handlers.NewStreamHandler(notifier, logger),
		Webhook:        handlers.NewWebhookHandler(updateService, cfg.Webhook.Secret),
		AuthMiddleware: auth.NewAuthMiddleware(authService, logger, metrics),
		Metrics:        adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	// Streams hold their connections open, so they are drained before the
	// server stops accepting.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Stream.ShutdownTimeout)
	defer shutdownCancel()
	if err := streams.Shutdown(shutdownCtx); err != nil {
		logger.Warn("update streams did not stop in time", zap.Error(err))
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func seedAccount(ctx context.Context, authService *service.AuthService, accounts repository.AccountRepository, seed config.SeedConfig, logger *zap.Logger) {
	_, err := accounts.GetByRestaurantID(ctx, seed.RestaurantID)
	if err == nil {
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		logger.Fatal("failed to look up seed account", zap.Error(err))
	}
	if _, err := authService.ProvisionAccount(ctx, seed.RestaurantID, seed.Password, domain.Role(seed.Role)); err != nil {
		logger.Fatal("failed to provision seed account", zap.Error(err))
	}
	logger.Info("seed account provisioned", zap.String("restaurant_id", seed.RestaurantID), zap.String("role", seed.Role))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
