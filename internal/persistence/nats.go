package persistence

import (
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/rserve-session/internal/config"
)

// NATS wraps an optional connection used to receive restaurant update signals.
type NATS struct {
	Conn *nats.Conn
}

// NewNATS connects when a URL is configured. Without one it returns an empty
// wrapper and the consumer is not started.
func NewNATS(cfg config.NATSConfig, appName string, logger *zap.Logger) (*NATS, error) {
	if cfg.URL == "" {
		logger.Info("NATS_URL not provided; restaurant updates arrive via webhook only")
		return &NATS{}, nil
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(appName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("connected to nats", zap.String("url", conn.ConnectedUrl()))
	return &NATS{Conn: conn}, nil
}

// Enabled reports whether a connection exists.
func (n *NATS) Enabled() bool {
	return n != nil && n.Conn != nil
}

// Close drains the connection so in-flight messages finish.
func (n *NATS) Close() {
	if n.Enabled() {
		_ = n.Conn.Drain()
	}
}

// Ping reports whether the connection is currently up.
func (n *NATS) Ping() error {
	if !n.Enabled() {
		return errors.New("nats not configured")
	}
	if !n.Conn.IsConnected() {
		return errors.New("nats not connected")
	}
	return nil
}
