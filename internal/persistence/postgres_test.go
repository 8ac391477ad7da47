package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rserve-session/internal/config"
)

func TestPoolConfig(t *testing.T) {
	_, err := poolConfig(config.PostgresConfig{})
	require.ErrorIs(t, err, ErrPostgresNotConfigured)

	_, err = poolConfig(config.PostgresConfig{DSN: "postgres://%zz"})
	require.Error(t, err)

	cfg, err := poolConfig(config.PostgresConfig{
		DSN:            "postgres://rserve:pw@db:5432/rserve",
		MaxConns:       8,
		MinConns:       1,
		ConnMaxIdleSec: 30,
		ConnMaxLifeSec: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, "db", cfg.ConnConfig.Host)
	assert.Equal(t, "rserve", cfg.ConnConfig.Database)
	assert.EqualValues(t, 8, cfg.MaxConns)
	assert.EqualValues(t, 1, cfg.MinConns)
	assert.Equal(t, 30*time.Second, cfg.MaxConnIdleTime)
	assert.Equal(t, 5*time.Minute, cfg.MaxConnLifetime)
}
