package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/rserve-session/internal/events"
	"github.com/spec-kit/rserve-session/internal/updates"
)

// ErrMissingRestaurantID is returned when an update names no restaurant.
var ErrMissingRestaurantID = errors.New("restaurant id required")

// UpdateService turns "restaurant data changed" signals into update flags
// that open notification streams pick up.
type UpdateService struct {
	dispatcher  events.Dispatcher
	flags       updates.FlagStore
	logger      *zap.Logger
	unsubscribe func()
}

// NewUpdateService creates the service.
func NewUpdateService(dispatcher events.Dispatcher, flags updates.FlagStore, logger *zap.Logger) *UpdateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateService{dispatcher: dispatcher, flags: flags, logger: logger}
}

// RegisterHandlers subscribes the flag writer to restaurant-updated events.
// Calling it again is a no-op.
func (u *UpdateService) RegisterHandlers() {
	if u.dispatcher == nil || u.unsubscribe != nil {
		return
	}
	u.unsubscribe = u.dispatcher.Subscribe(events.EventRestaurantUpdated, u.handleRestaurantUpdated)
}

// Close detaches the flag writer; later events are dropped.
func (u *UpdateService) Close() {
	if u.unsubscribe != nil {
		u.unsubscribe()
	}
}

// NotifyRestaurantUpdated publishes a restaurant-updated event.
func (u *UpdateService) NotifyRestaurantUpdated(ctx context.Context, restaurantID string, source events.Source) error {
	restaurantID = strings.TrimSpace(restaurantID)
	if restaurantID == "" {
		return ErrMissingRestaurantID
	}
	return u.dispatcher.Publish(ctx, events.Event{
		ID:           uuid.NewString(),
		Type:         events.EventRestaurantUpdated,
		RestaurantID: restaurantID,
		Source:       source,
		Timestamp:    time.Now().UTC(),
	})
}

func (u *UpdateService) handleRestaurantUpdated(ctx context.Context, event events.Event) error {
	if err := u.flags.Set(ctx, event.RestaurantID); err != nil {
		u.logger.Error("set update flag failed",
			zap.String("restaurant_id", event.RestaurantID),
			zap.String("source", string(event.Source)),
			zap.Error(err))
		return err
	}
	u.logger.Debug("update flag set",
		zap.String("restaurant_id", event.RestaurantID),
		zap.String("event_id", event.ID),
		zap.String("source", string(event.Source)))
	return nil
}
