package models

import (
	"encoding/json"
	"time"
)

// EventType categorizes events in the system.
type EventType string

const (
	// Connection events
	EventTypeStatusChanged EventType = "connection.status_changed"

	// Cache events
	EventTypeCacheInvalidate EventType = "cache.invalidate"

	// Unread events
	EventTypeUnreadChanged EventType = "unread.changed"
)

// Event is an in-process notification tied to a channel.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// ChannelID is the channel the event relates to.
	ChannelID string `json:"channel_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StatusChangedPayload is the payload for connection.status_changed events.
type StatusChangedPayload struct {
	OldStatus ConnectionStatus `json:"old_status"`
	NewStatus ConnectionStatus `json:"new_status"`
	Attempt   int              `json:"attempt"`
}

// UnreadChangedPayload is the payload for unread.changed events.
type UnreadChangedPayload struct {
	Count int `json:"count"`
}
