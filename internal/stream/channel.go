// Package stream pushes "your data changed" notifications to connected
// restaurants over long-lived event streams.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/rserve-session/internal/observability"
	"github.com/spec-kit/rserve-session/internal/updates"
)

// State is where a channel is in its lifecycle.
type State int32

const (
	StateOpen State = iota
	StatePolling
	StateEmitting
	StateIdle
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StatePolling:
		return "polling"
	case StateEmitting:
		return "emitting"
	case StateIdle:
		return "idle"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config tunes channel timing.
type Config struct {
	PollInterval time.Duration
	// KeepAliveInterval is how long a channel may stay silent before it sends
	// a keepalive frame; zero disables keepalives.
	KeepAliveInterval time.Duration
}

// Notifier opens channels against a shared flag store and registry.
type Notifier struct {
	registry *Registry
	flags    updates.FlagStore
	cfg      Config
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewNotifier builds a notifier.
func NewNotifier(registry *Registry, flags updates.FlagStore, cfg Config, logger *zap.Logger, metrics *observability.Metrics) *Notifier {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{registry: registry, flags: flags, cfg: cfg, logger: logger, metrics: metrics}
}

// Channel is one client's update stream.
type Channel struct {
	restaurantID string
	handle       *Handle
	flags        updates.FlagStore
	cfg          Config
	logger       *zap.Logger
	metrics      *observability.Metrics
	state        atomic.Int32
	closed       atomic.Bool
}

// Open registers a channel for restaurantID. ctx ending (client gone) stops
// the channel just like a shutdown does, minus the farewell frame.
func (n *Notifier) Open(ctx context.Context, restaurantID string) (*Channel, error) {
	handle, err := n.registry.Register(ctx)
	if err != nil {
		return nil, err
	}
	n.metrics.StreamOpened()

	ch := &Channel{
		restaurantID: restaurantID,
		handle:       handle,
		flags:        n.flags,
		cfg:          n.cfg,
		logger:       n.logger.With(zap.String("restaurant_id", restaurantID)),
		metrics:      n.metrics,
	}
	ch.logger.Debug("update stream opened")
	return ch, nil
}

// State returns the channel's current state.
func (c *Channel) State() State {
	return State(c.state.Load())
}

func (c *Channel) setState(s State) {
	c.state.Store(int32(s))
}

// Run polls the flag store until the channel is cancelled or sink fails.
// It always deregisters the channel before returning. A nil error means the
// channel was cancelled; otherwise the transport failed.
func (c *Channel) Run(sink Sink) error {
	defer c.Close()

	ctx := c.handle.Context()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	lastSent := time.Now()
	for {
		c.setState(StatePolling)
		updated, err := c.flags.Take(ctx, c.restaurantID)
		if err != nil && ctx.Err() == nil {
			c.logger.Warn("update flag poll failed", zap.Error(err))
		}

		if updated {
			c.setState(StateEmitting)
			if err := sink.Send(EventUpdate); err != nil {
				return fmt.Errorf("stream: send update: %w", err)
			}
			c.metrics.UpdateEmitted()
			lastSent = time.Now()
		} else {
			c.setState(StateIdle)
			idle := EventPing
			if c.cfg.KeepAliveInterval > 0 && time.Since(lastSent) >= c.cfg.KeepAliveInterval {
				idle = EventKeepAlive
			}
			// Writing on every idle tick bounds disconnect detection to about
			// one poll interval, so a dead channel stops taking flags.
			if err := sink.Send(idle); err != nil {
				return fmt.Errorf("stream: send %s: %w", idle, err)
			}
			if idle == EventKeepAlive {
				lastSent = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(context.Cause(ctx), ErrShutdown) {
				// Best effort; the client may already be gone.
				_ = sink.Send(EventShutdown)
			}
			return nil
		case <-ticker.C:
		}
	}
}

// Close deregisters the channel. Run calls it; callers that Open but never
// Run must call it themselves.
func (c *Channel) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.setState(StateClosed)
	c.handle.Close()
	c.metrics.StreamClosed()
	c.logger.Debug("update stream closed")
}
