package events

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chancore/chancore/internal/models"
)

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		event  *models.Event
		want   bool
	}{
		{
			name:   "empty filter matches any event",
			filter: Filter{},
			event: &models.Event{
				Type:      models.EventTypeCacheInvalidate,
				ChannelID: "ch-1",
			},
			want: true,
		},
		{
			name:   "nil event returns false",
			filter: Filter{},
			event:  nil,
			want:   false,
		},
		{
			name: "event type filter matches",
			filter: Filter{
				EventTypes: []models.EventType{models.EventTypeCacheInvalidate},
			},
			event: &models.Event{
				Type:      models.EventTypeCacheInvalidate,
				ChannelID: "ch-1",
			},
			want: true,
		},
		{
			name: "event type filter rejects non-matching",
			filter: Filter{
				EventTypes: []models.EventType{models.EventTypeCacheInvalidate},
			},
			event: &models.Event{
				Type:      models.EventTypeStatusChanged,
				ChannelID: "ch-1",
			},
			want: false,
		},
		{
			name: "multiple event types - matches any",
			filter: Filter{
				EventTypes: []models.EventType{
					models.EventTypeCacheInvalidate,
					models.EventTypeStatusChanged,
				},
			},
			event: &models.Event{
				Type:      models.EventTypeStatusChanged,
				ChannelID: "ch-1",
			},
			want: true,
		},
		{
			name: "channel filter matches",
			filter: Filter{
				ChannelID: "ch-1",
			},
			event: &models.Event{
				Type:      models.EventTypeCacheInvalidate,
				ChannelID: "ch-1",
			},
			want: true,
		},
		{
			name: "channel filter rejects non-matching",
			filter: Filter{
				ChannelID: "ch-1",
			},
			event: &models.Event{
				Type:      models.EventTypeCacheInvalidate,
				ChannelID: "ch-2",
			},
			want: false,
		},
		{
			name: "combined filters - all must match",
			filter: Filter{
				EventTypes: []models.EventType{models.EventTypeUnreadChanged},
				ChannelID:  "ch-1",
			},
			event: &models.Event{
				Type:      models.EventTypeUnreadChanged,
				ChannelID: "ch-1",
			},
			want: true,
		},
		{
			name: "combined filters - channel mismatch",
			filter: Filter{
				EventTypes: []models.EventType{models.EventTypeUnreadChanged},
				ChannelID:  "ch-1",
			},
			event: &models.Event{
				Type:      models.EventTypeUnreadChanged,
				ChannelID: "ch-2",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Matches(tt.event)
			if got != tt.want {
				t.Errorf("Filter.Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInMemoryPublisher_Subscribe(t *testing.T) {
	pub := NewInMemoryPublisher()

	handler := func(event *models.Event) {}

	// Subscribe successfully
	err := pub.Subscribe("sub-1", Filter{}, handler)
	if err != nil {
		t.Errorf("Subscribe() error = %v, want nil", err)
	}

	if pub.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", pub.SubscriberCount())
	}

	// Duplicate subscription should fail
	err = pub.Subscribe("sub-1", Filter{}, handler)
	if err != ErrSubscriptionExists {
		t.Errorf("Subscribe() duplicate error = %v, want %v", err, ErrSubscriptionExists)
	}

	// Empty ID should fail
	err = pub.Subscribe("", Filter{}, handler)
	if err != ErrInvalidSubscriptionID {
		t.Errorf("Subscribe() empty ID error = %v, want %v", err, ErrInvalidSubscriptionID)
	}

	// Nil handler should fail
	err = pub.Subscribe("sub-2", Filter{}, nil)
	if err != ErrNilHandler {
		t.Errorf("Subscribe() nil handler error = %v, want %v", err, ErrNilHandler)
	}
}

func TestInMemoryPublisher_Unsubscribe(t *testing.T) {
	pub := NewInMemoryPublisher()

	handler := func(event *models.Event) {}

	_ = pub.Subscribe("sub-1", Filter{}, handler)

	err := pub.Unsubscribe("sub-1")
	if err != nil {
		t.Errorf("Unsubscribe() error = %v, want nil", err)
	}

	if pub.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", pub.SubscriberCount())
	}

	// Unsubscribe non-existent should fail
	err = pub.Unsubscribe("sub-1")
	if err != ErrSubscriptionNotFound {
		t.Errorf("Unsubscribe() non-existent error = %v, want %v", err, ErrSubscriptionNotFound)
	}
}

func TestInMemoryPublisher_Publish(t *testing.T) {
	pub := NewInMemoryPublisher()
	ctx := context.Background()

	var received []*models.Event
	var mu sync.Mutex

	handler := func(event *models.Event) {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
	}

	_ = pub.Subscribe("sub-1", Filter{}, handler)

	event := &models.Event{
		ID:        "event-1",
		Type:      models.EventTypeCacheInvalidate,
		ChannelID: "ch-1",
	}

	pub.Publish(ctx, event)

	mu.Lock()
	if len(received) != 1 {
		t.Errorf("received %d events, want 1", len(received))
	}
	if len(received) > 0 && received[0].ID != event.ID {
		t.Errorf("received event ID = %s, want %s", received[0].ID, event.ID)
	}
	mu.Unlock()
}

func TestInMemoryPublisher_PublishWithFilter(t *testing.T) {
	pub := NewInMemoryPublisher()
	ctx := context.Background()

	var invalidates, statusChanges int
	var mu sync.Mutex

	_ = pub.Subscribe("cache-sub", Filter{
		EventTypes: []models.EventType{models.EventTypeCacheInvalidate},
	}, func(event *models.Event) {
		mu.Lock()
		invalidates++
		mu.Unlock()
	})

	_ = pub.Subscribe("status-sub", Filter{
		EventTypes: []models.EventType{models.EventTypeStatusChanged},
	}, func(event *models.Event) {
		mu.Lock()
		statusChanges++
		mu.Unlock()
	})

	pub.Publish(ctx, &models.Event{
		Type:      models.EventTypeCacheInvalidate,
		ChannelID: "ch-1",
	})

	pub.Publish(ctx, &models.Event{
		Type:      models.EventTypeStatusChanged,
		ChannelID: "ch-1",
	})

	mu.Lock()
	if invalidates != 1 {
		t.Errorf("invalidates = %d, want 1", invalidates)
	}
	if statusChanges != 1 {
		t.Errorf("statusChanges = %d, want 1", statusChanges)
	}
	mu.Unlock()
}

func TestInMemoryPublisher_PublishNilEvent(t *testing.T) {
	pub := NewInMemoryPublisher()
	ctx := context.Background()

	called := false
	_ = pub.Subscribe("sub-1", Filter{}, func(event *models.Event) {
		called = true
	})

	pub.Publish(ctx, nil)

	if called {
		t.Error("handler was called for nil event")
	}
}

func TestInMemoryPublisher_PublishAsync(t *testing.T) {
	pub := NewInMemoryPublisher()
	ctx := context.Background()

	var count int64

	_ = pub.Subscribe("sub-1", Filter{}, func(event *models.Event) {
		atomic.AddInt64(&count, 1)
	})

	pub.PublishAsync(ctx, &models.Event{
		Type:      models.EventTypeCacheInvalidate,
		ChannelID: "ch-1",
	})

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt64(&count) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if atomic.LoadInt64(&count) != 1 {
		t.Errorf("count = %d, want 1", atomic.LoadInt64(&count))
	}
}

func TestInMemoryPublisher_Close(t *testing.T) {
	pub := NewInMemoryPublisher()

	_ = pub.Subscribe("sub-1", Filter{}, func(event *models.Event) {})
	_ = pub.Subscribe("sub-2", Filter{}, func(event *models.Event) {})

	pub.Close()

	if pub.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() after Close = %d, want 0", pub.SubscriberCount())
	}
}
