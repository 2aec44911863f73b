// Package models defines the core domain types shared across chancore.
package models

import (
	"strings"
	"time"
)

// SenderKind identifies who produced a message.
type SenderKind string

const (
	SenderKindAgent  SenderKind = "agent"
	SenderKindUser   SenderKind = "user"
	SenderKindSystem SenderKind = "system"
)

// MessageType categorizes a message on the wire.
type MessageType string

const (
	MessageTypeChat   MessageType = "chat"
	MessageTypeSystem MessageType = "system"
	MessageTypeDM     MessageType = "dm"
)

// Message is a single entry in a channel's message list.
//
// Server-confirmed messages carry a durable ID. Optimistic messages carry a
// locally generated placeholder ID and IsOptimistic=true; they are retired
// only by a full-list refresh, never by in-place reconciliation.
type Message struct {
	// ID is the durable server ID, or a local placeholder for optimistic entries.
	ID string `json:"id"`

	// ChannelID is the channel this message belongs to.
	ChannelID string `json:"channel_id"`

	// Content is the message text.
	Content string `json:"content"`

	// Type categorizes the message (chat, system, dm).
	Type MessageType `json:"message_type"`

	// SenderKind identifies the sender class.
	SenderKind SenderKind `json:"sender_kind"`

	// SenderID identifies the sender (agent ID or client identifier).
	SenderID string `json:"sender_id"`

	// CreatedAt is when the message was created.
	CreatedAt time.Time `json:"created_at"`

	// IsOptimistic marks a locally inserted, not yet server-confirmed entry.
	IsOptimistic bool `json:"is_optimistic,omitempty"`
}

// ValidateContent reports whether content is sendable.
func ValidateContent(content string) bool {
	return strings.TrimSpace(content) != ""
}

// ValidMessageType reports whether t is a known message type.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageTypeChat, MessageTypeSystem, MessageTypeDM:
		return true
	}
	return false
}
