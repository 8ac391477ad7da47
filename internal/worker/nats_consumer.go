package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/rserve-session/internal/events"
)

// UpdatePublisher accepts restaurant-updated signals.
type UpdatePublisher interface {
	NotifyRestaurantUpdated(ctx context.Context, restaurantID string, source events.Source) error
}

type updateMessage struct {
	RestaurantID string `json:"restaurant_id"`
}

// ParseUpdateMessage accepts either {"restaurant_id": "..."} or a bare id.
func ParseUpdateMessage(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", fmt.Errorf("empty update message")
	}
	if data[0] != '{' {
		return string(data), nil
	}
	var msg updateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("decode update message: %w", err)
	}
	if msg.RestaurantID == "" {
		return "", fmt.Errorf("update message without restaurant_id")
	}
	return msg.RestaurantID, nil
}

// HandleUpdateMessage publishes the restaurant named in data.
func HandleUpdateMessage(ctx context.Context, publisher UpdatePublisher, data []byte) error {
	restaurantID, err := ParseUpdateMessage(data)
	if err != nil {
		return err
	}
	return publisher.NotifyRestaurantUpdated(ctx, restaurantID, events.SourceNATS)
}

// StartNATSConsumer subscribes to subject and forwards every message to publisher.
func StartNATSConsumer(conn *nats.Conn, subject string, publisher UpdatePublisher, logger *zap.Logger) (*nats.Subscription, error) {
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := HandleUpdateMessage(ctx, publisher, msg.Data); err != nil {
			logger.Warn("dropping update message", zap.String("subject", msg.Subject), zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	logger.Info("listening for restaurant updates", zap.String("subject", subject))
	return sub, nil
}
