package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	// EventRestaurantUpdated signals that data backing a restaurant changed.
	EventRestaurantUpdated EventType = "restaurant_updated"
)

// Source identifies where an event came from.
type Source string

const (
	SourceWebhook Source = "webhook"
	SourceNATS    Source = "nats"
)

// Event represents a change notification flowing through the dispatcher.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	RestaurantID string    `json:"restaurant_id"`
	Source       Source    `json:"source"`
	Timestamp    time.Time `json:"timestamp"`
}
