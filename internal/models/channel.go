package models

import "time"

// ChannelType categorizes a channel.
type ChannelType string

const (
	ChannelTypeShared  ChannelType = "shared"
	ChannelTypeDirect  ChannelType = "direct"
	ChannelTypeProject ChannelType = "project"
	ChannelTypeTask    ChannelType = "task"
)

// Channel is a logical message stream identified by a stable ID.
type Channel struct {
	// ID is the stable channel identifier.
	ID string `json:"id"`

	// Name is the human-readable channel name.
	Name string `json:"name"`

	// Type categorizes the channel.
	Type ChannelType `json:"channel_type"`

	// CreatedAt is when the channel was created.
	CreatedAt time.Time `json:"created_at"`
}

// RetrySchedule is an ordered sequence of reconnect delays indexed by attempt
// count. Attempts beyond the table length clamp to the last entry.
type RetrySchedule []time.Duration

// DefaultRetrySchedule returns the standard backoff table.
func DefaultRetrySchedule() RetrySchedule {
	return RetrySchedule{
		1 * time.Second,
		2 * time.Second,
		5 * time.Second,
		10 * time.Second,
		30 * time.Second,
	}
}

// Delay returns the delay before the reconnect attempt with the given
// zero-based attempt count, clamped to the last table entry.
func (r RetrySchedule) Delay(attempt int) time.Duration {
	if len(r) == 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(r) {
		attempt = len(r) - 1
	}
	return r[attempt]
}
