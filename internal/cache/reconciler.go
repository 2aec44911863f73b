// Package cache maintains the per-channel message list.
//
// The Reconciler is the single writer for message lists. Optimistic entries
// are inserted locally for instant feedback and retired only when an
// authoritative refresh replaces the whole list. Other components never
// mutate the cache; the connection manager publishes invalidation events and
// the reconciler turns them into refreshes.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chancore/chancore/internal/api"
	"github.com/chancore/chancore/internal/events"
	"github.com/chancore/chancore/internal/logging"
	"github.com/chancore/chancore/internal/models"
)

const subscriptionID = "cache-reconciler"

// ErrEmptyContent is returned when a send is attempted with blank content.
var ErrEmptyContent = errors.New("message content is empty")

// Fetcher retrieves authoritative message history.
type Fetcher interface {
	FetchMessages(ctx context.Context, channelID, cursor string, pageSize int) (*api.MessagePage, error)
}

// Sender delivers a message over the REST path.
type Sender interface {
	SendMessage(ctx context.Context, channelID, content string, messageType models.MessageType) (*models.Message, error)
}

// channelState holds one channel's newest-first message list. The loaded flag
// distinguishes an empty channel from one that was never fetched.
type channelState struct {
	messages []models.Message
	loaded   bool
}

// Reconciler owns message lists for all channels the client has touched.
type Reconciler struct {
	fetcher   Fetcher
	sender    Sender
	publisher events.Publisher
	pageSize  int
	senderID  string
	logger    zerolog.Logger

	mu       sync.Mutex
	channels map[string]*channelState
}

// NewReconciler creates a reconciler. senderID attributes optimistic entries
// to the local user.
func NewReconciler(fetcher Fetcher, sender Sender, publisher events.Publisher, senderID string, pageSize int) *Reconciler {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Reconciler{
		fetcher:   fetcher,
		sender:    sender,
		publisher: publisher,
		pageSize:  pageSize,
		senderID:  senderID,
		logger:    logging.Component("cache"),
		channels:  make(map[string]*channelState),
	}
}

// Start subscribes the reconciler to cache-invalidation events. Each event
// triggers a refresh of the named channel in the background; ctx bounds those
// refreshes and is released by Stop.
func (r *Reconciler) Start(ctx context.Context) error {
	if r.publisher == nil {
		return nil
	}
	return r.publisher.Subscribe(subscriptionID, events.Filter{
		EventTypes: []models.EventType{models.EventTypeCacheInvalidate},
	}, func(event *models.Event) {
		if event.ChannelID == "" {
			return
		}
		go func() {
			if err := r.Refresh(ctx, event.ChannelID); err != nil {
				chLogger := logging.WithChannel(r.logger, event.ChannelID)
				chLogger.Warn().Err(err).Msg("invalidation refresh failed")
			}
		}()
	})
}

// Stop removes the invalidation subscription.
func (r *Reconciler) Stop() {
	if r.publisher == nil {
		return
	}
	_ = r.publisher.Unsubscribe(subscriptionID)
}

// AppendOptimistic inserts a locally-echoed message at the head of the list
// and returns its placeholder ID. The entry survives until the next
// successful refresh replaces the list.
func (r *Reconciler) AppendOptimistic(channelID, content string) string {
	id := uuid.NewString()
	msg := models.Message{
		ID:           id,
		ChannelID:    channelID,
		Content:      content,
		Type:         models.MessageTypeChat,
		SenderKind:   models.SenderKindUser,
		SenderID:     r.senderID,
		CreatedAt:    time.Now().UTC(),
		IsOptimistic: true,
	}

	r.mu.Lock()
	state := r.stateLocked(channelID)
	state.messages = append([]models.Message{msg}, state.messages...)
	r.mu.Unlock()

	return id
}

// Refresh replaces the channel's list with the newest page from the server.
// On failure the previous list is kept untouched. Concurrent refreshes are
// tolerated; the last one to complete wins.
func (r *Reconciler) Refresh(ctx context.Context, channelID string) error {
	page, err := r.fetcher.FetchMessages(ctx, channelID, "", r.pageSize)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", channelID, err)
	}

	r.mu.Lock()
	state := r.stateLocked(channelID)
	state.messages = append([]models.Message(nil), page.Messages...)
	state.loaded = true
	r.mu.Unlock()

	return nil
}

// PendingSend is an optimistic entry waiting for REST delivery. It carries
// the rollback snapshot taken before the insert.
type PendingSend struct {
	channelID string
	content   string
	snapshot  []models.Message
}

// BeginSend validates the content, appends the optimistic entry, and returns
// a pending send for CompleteSend. The split lets callers show the local echo
// before the REST round trip starts.
func (r *Reconciler) BeginSend(channelID, content string) (*PendingSend, error) {
	if !models.ValidateContent(content) {
		return nil, ErrEmptyContent
	}

	r.mu.Lock()
	state := r.stateLocked(channelID)
	snapshot := append([]models.Message(nil), state.messages...)
	r.mu.Unlock()

	r.AppendOptimistic(channelID, content)

	return &PendingSend{channelID: channelID, content: content, snapshot: snapshot}, nil
}

// CompleteSend delivers a pending send over REST and refreshes on success. On
// failure the list is rolled back to the snapshot taken before the optimistic
// insert.
func (r *Reconciler) CompleteSend(ctx context.Context, pending *PendingSend) error {
	if _, err := r.sender.SendMessage(ctx, pending.channelID, pending.content, models.MessageTypeChat); err != nil {
		r.mu.Lock()
		r.stateLocked(pending.channelID).messages = pending.snapshot
		r.mu.Unlock()
		return fmt.Errorf("send to %s: %w", pending.channelID, err)
	}

	if err := r.Refresh(ctx, pending.channelID); err != nil {
		// The optimistic entry stays until the next invalidation refresh.
		chLogger := logging.WithChannel(r.logger, pending.channelID)
		chLogger.Debug().Err(err).Msg("post-send refresh failed")
	}
	return nil
}

// SendAndConfirm appends an optimistic entry, sends the message over REST,
// and refreshes on success. On send failure the list is rolled back to the
// snapshot taken before the optimistic insert.
func (r *Reconciler) SendAndConfirm(ctx context.Context, channelID, content string) error {
	pending, err := r.BeginSend(channelID, content)
	if err != nil {
		return err
	}
	return r.CompleteSend(ctx, pending)
}

// Messages returns a copy of the channel's newest-first list.
func (r *Reconciler) Messages(channelID string) []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.channels[channelID]
	if !ok {
		return nil
	}
	return append([]models.Message(nil), state.messages...)
}

// Loaded reports whether the channel has completed at least one refresh.
// An empty list from a loaded channel means the channel really is empty.
func (r *Reconciler) Loaded(channelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.channels[channelID]
	return ok && state.loaded
}

func (r *Reconciler) stateLocked(channelID string) *channelState {
	state, ok := r.channels[channelID]
	if !ok {
		state = &channelState{}
		r.channels[channelID] = state
	}
	return state
}
