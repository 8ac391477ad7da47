package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingSessionSecret is returned when SESSION_SECRET is not set.
var ErrMissingSessionSecret = errors.New("SESSION_SECRET is required")

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Stream   StreamConfig
	Webhook  WebhookConfig
	Seed     SeedConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	Debug                 bool
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. OpTimeout bounds each command
// so a slow Redis cannot stall a poll tick.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	PoolSize  int
	OpTimeout time.Duration
}

// NATSConfig configures the optional tenant-update consumer.
type NATSConfig struct {
	URL     string
	Subject string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string
	Encoding string
}

// AuthConfig defines session credential parameters.
type AuthConfig struct {
	SessionSecret        string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	RefreshRenewalWindow time.Duration
	BcryptCost           int
}

// StreamConfig tunes the update notification stream.
type StreamConfig struct {
	PollInterval      time.Duration
	KeepAliveInterval time.Duration
	ShutdownTimeout   time.Duration
}

// WebhookConfig holds the shared secret used to sign inbound webhooks.
type WebhookConfig struct {
	Secret string
}

// SeedConfig names an account to provision at startup when it is missing.
type SeedConfig struct {
	RestaurantID string
	Password     string
	Role         string
}

// Enabled reports whether a seed account was configured.
func (s SeedConfig) Enabled() bool {
	return s.RestaurantID != "" && s.Password != ""
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		return nil, ErrMissingSessionSecret
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "rserve-session"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			Debug:                 getEnvAsBool("DEBUG", false),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			PoolSize:  getEnvAsInt("REDIS_POOL_SIZE", 0),
			OpTimeout: getEnvAsDuration("REDIS_OP_TIMEOUT", 500*time.Millisecond),
		},
		NATS: NATSConfig{
			URL:     os.Getenv("NATS_URL"),
			Subject: getEnv("NATS_UPDATES_SUBJECT", "reservations.updated"),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Auth: AuthConfig{
			SessionSecret:        secret,
			AccessTokenTTL:       getEnvAsDuration("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL:      getEnvAsDuration("AUTH_REFRESH_TOKEN_TTL", 30*24*time.Hour),
			RefreshRenewalWindow: getEnvAsDuration("AUTH_REFRESH_RENEWAL_WINDOW", 7*24*time.Hour),
			BcryptCost:           getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Stream: StreamConfig{
			PollInterval:      getEnvAsDuration("STREAM_POLL_INTERVAL", time.Second),
			KeepAliveInterval: getEnvAsDuration("STREAM_KEEPALIVE_INTERVAL", 15*time.Second),
			ShutdownTimeout:   getEnvAsDuration("STREAM_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("WEBHOOK_SECRET"),
		},
		Seed: SeedConfig{
			RestaurantID: os.Getenv("SEED_RESTAURANT_ID"),
			Password:     os.Getenv("SEED_PASSWORD"),
			Role:         getEnv("SEED_ROLE", "owner"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
