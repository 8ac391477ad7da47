package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrUntypedEvent is returned when an event is published without a type.
var ErrUntypedEvent = errors.New("events: event has no type")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans events out to in-process subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe registers handler and returns a func that removes it.
	Subscribe(eventType EventType, handler EventHandler) (unsubscribe func())
}

type subscription struct {
	id      uint64
	handler EventHandler
}

// syncDispatcher runs handlers on the publishing goroutine, so Publish
// returns only after every flag write has happened.
type syncDispatcher struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[EventType][]subscription
	logger *zap.Logger
}

// NewDispatcher creates a synchronous dispatcher.
func NewDispatcher(logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &syncDispatcher{subs: make(map[EventType][]subscription), logger: logger}
}

// Publish invokes every handler for event.Type even if some fail; failures
// are joined.
func (d *syncDispatcher) Publish(ctx context.Context, event Event) error {
	if event.Type == "" {
		return ErrUntypedEvent
	}

	d.mu.RLock()
	subs := d.subs[event.Type]
	d.mu.RUnlock()

	if len(subs) == 0 {
		d.logger.Debug("event has no subscribers", zap.String("type", string(event.Type)))
		return nil
	}

	var errs []error
	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler for event %s: %w", event.Type, event.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (d *syncDispatcher) Subscribe(eventType EventType, handler EventHandler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	// Copy on write: Publish iterates a snapshot without holding the lock.
	subs := make([]subscription, 0, len(d.subs[eventType])+1)
	subs = append(subs, d.subs[eventType]...)
	d.subs[eventType] = append(subs, subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { d.unsubscribe(eventType, id) })
	}
}

func (d *syncDispatcher) unsubscribe(eventType EventType, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.subs[eventType]
	kept := make([]subscription, 0, len(current))
	for _, sub := range current {
		if sub.id != id {
			kept = append(kept, sub)
		}
	}
	if len(kept) == 0 {
		delete(d.subs, eventType)
		return
	}
	d.subs[eventType] = kept
}
