// Package unread polls unread counts for channels the user is not looking at.
package unread

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chancore/chancore/internal/events"
	"github.com/chancore/chancore/internal/logging"
	"github.com/chancore/chancore/internal/models"
)

// Tracker errors.
var (
	ErrTrackerAlreadyRunning = errors.New("unread tracker already running")
	ErrTrackerNotRunning     = errors.New("unread tracker not running")
)

const defaultInterval = 15 * time.Second

// Counter fetches the unread count for a channel.
type Counter interface {
	FetchUnreadCount(ctx context.Context, channelID string) (int, error)
}

// Tracker periodically polls every tracked channel except the active one.
// Channels are polled sequentially within a cycle; a failing channel is
// skipped for that cycle and the cycle continues.
type Tracker struct {
	counter   Counter
	publisher events.Publisher
	interval  time.Duration
	logger    zerolog.Logger

	mu       sync.RWMutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	channels []string
	active   string
	counts   map[string]int
}

// NewTracker creates an unread tracker.
func NewTracker(counter Counter, publisher events.Publisher, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Tracker{
		counter:   counter,
		publisher: publisher,
		interval:  interval,
		logger:    logging.Component("unread-tracker"),
		counts:    make(map[string]int),
	}
}

// SetChannels replaces the set of tracked channels. Takes effect on the next
// polling cycle.
func (t *Tracker) SetChannels(channelIDs []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels = append([]string(nil), channelIDs...)
}

// SetActive marks the channel the user is currently viewing. The active
// channel is excluded from polling starting with the next cycle.
func (t *Tracker) SetActive(channelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = channelID
}

// Clear zeroes the stored count for a channel, typically after a mark-read.
func (t *Tracker) Clear(channelID string) {
	t.mu.Lock()
	changed := t.counts[channelID] != 0
	t.counts[channelID] = 0
	t.mu.Unlock()

	if changed {
		t.publishCount(channelID, 0)
	}
}

// Counts returns a snapshot of the last known unread counts.
func (t *Tracker) Counts() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int, len(t.counts))
	for id, n := range t.counts {
		out[id] = n
	}
	return out
}

// Start begins the polling loop.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrTrackerAlreadyRunning
	}

	t.ctx, t.cancel = context.WithCancel(ctx)
	t.running = true

	t.logger.Info().Dur("interval", t.interval).Msg("unread tracker starting")

	t.wg.Add(1)
	go t.runLoop()

	return nil
}

// Stop halts the polling loop and waits for the current cycle to finish.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return ErrTrackerNotRunning
	}
	t.cancel()
	t.running = false
	t.mu.Unlock()

	t.wg.Wait()
	t.logger.Info().Msg("unread tracker stopped")
	return nil
}

// IsRunning reports whether the polling loop is active.
func (t *Tracker) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

func (t *Tracker) runLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			t.pollCycle()
		}
	}
}

// pollCycle polls every tracked channel except the active one, using a
// point-in-time snapshot of the channel set taken at cycle start.
func (t *Tracker) pollCycle() {
	t.mu.RLock()
	channels := append([]string(nil), t.channels...)
	active := t.active
	ctx := t.ctx
	t.mu.RUnlock()

	for _, channelID := range channels {
		if channelID == active {
			continue
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		count, err := t.counter.FetchUnreadCount(ctx, channelID)
		if err != nil {
			chLogger := logging.WithChannel(t.logger, channelID)
			chLogger.Warn().Err(err).Msg("unread poll failed")
			continue
		}

		t.mu.Lock()
		changed := t.counts[channelID] != count
		t.counts[channelID] = count
		t.mu.Unlock()

		if changed {
			t.publishCount(channelID, count)
		}
	}
}

func (t *Tracker) publishCount(channelID string, count int) {
	if t.publisher == nil {
		return
	}
	payload, _ := json.Marshal(models.UnreadChangedPayload{Count: count})
	t.publisher.Publish(context.Background(), &models.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      models.EventTypeUnreadChanged,
		ChannelID: channelID,
		Payload:   payload,
	})
}
