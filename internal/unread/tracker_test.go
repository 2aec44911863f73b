package unread

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chancore/chancore/internal/events"
	"github.com/chancore/chancore/internal/models"
)

// fakeCounter serves unread counts from a map; channels listed in failing
// always error.
type fakeCounter struct {
	mu      sync.Mutex
	counts  map[string]int
	failing map[string]bool
	polled  []string
}

func (f *fakeCounter) FetchUnreadCount(ctx context.Context, channelID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polled = append(f.polled, channelID)
	if f.failing[channelID] {
		return 0, errors.New("backend unavailable")
	}
	return f.counts[channelID], nil
}

func (f *fakeCounter) polledChannels() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int)
	for _, id := range f.polled {
		out[id]++
	}
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestPollSkipsActiveChannel(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{"a": 1, "b": 2, "c": 3}}
	tr := NewTracker(counter, nil, 10*time.Millisecond)
	tr.SetChannels([]string{"a", "b", "c"})
	tr.SetActive("a")

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = tr.Stop() }()

	if !waitFor(t, 2*time.Second, func() bool {
		counts := tr.Counts()
		return counts["b"] == 2 && counts["c"] == 3
	}) {
		t.Fatalf("counts = %v, want b=2 c=3", tr.Counts())
	}

	if polled := counter.polledChannels(); polled["a"] != 0 {
		t.Errorf("active channel was polled %d times", polled["a"])
	}
}

func TestChannelFailureDoesNotStopCycle(t *testing.T) {
	counter := &fakeCounter{
		counts:  map[string]int{"b": 0, "c": 7},
		failing: map[string]bool{"b": true},
	}
	tr := NewTracker(counter, nil, 10*time.Millisecond)
	tr.SetChannels([]string{"b", "c"})

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = tr.Stop() }()

	// c comes after b in the channel list, so c's count appearing proves the
	// cycle survived b's failure.
	if !waitFor(t, 2*time.Second, func() bool { return tr.Counts()["c"] == 7 }) {
		t.Fatalf("counts = %v, want c=7 despite b failing", tr.Counts())
	}
	if _, ok := tr.Counts()["b"]; ok {
		t.Errorf("failing channel got a stored count: %v", tr.Counts())
	}
}

func TestUnreadChangedEventPublished(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{"chan-1": 4}}
	pub := events.NewInMemoryPublisher()

	type received struct {
		channelID string
		count     int
	}
	var mu sync.Mutex
	var got []received
	err := pub.Subscribe("ui", events.Filter{
		EventTypes: []models.EventType{models.EventTypeUnreadChanged},
	}, func(event *models.Event) {
		var payload models.UnreadChangedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		mu.Lock()
		got = append(got, received{event.ChannelID, payload.Count})
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	tr := NewTracker(counter, pub, 10*time.Millisecond)
	tr.SetChannels([]string{"chan-1"})

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = tr.Stop() }()

	if !waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 1
	}) {
		t.Fatal("no unread change event received")
	}
	mu.Lock()
	first := got[0]
	mu.Unlock()
	if first.channelID != "chan-1" || first.count != 4 {
		t.Errorf("event = %+v, want chan-1/4", first)
	}

	// The count did not change, so no further events should arrive.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	total := len(got)
	mu.Unlock()
	if total != 1 {
		t.Errorf("received %d events for an unchanged count, want 1", total)
	}
}

func TestClearZeroesCount(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{"chan-1": 9}}
	tr := NewTracker(counter, nil, 10*time.Millisecond)
	tr.SetChannels([]string{"chan-1"})

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if !waitFor(t, 2*time.Second, func() bool { return tr.Counts()["chan-1"] == 9 }) {
		t.Fatalf("counts = %v, want chan-1=9", tr.Counts())
	}

	// Stop before clearing so the next cycle cannot re-populate the count.
	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	tr.Clear("chan-1")
	if got := tr.Counts()["chan-1"]; got != 0 {
		t.Errorf("count after Clear = %d, want 0", got)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	tr := NewTracker(&fakeCounter{}, nil, time.Hour)

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tr.Start(context.Background()); !errors.Is(err, ErrTrackerAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrTrackerAlreadyRunning", err)
	}
	if !tr.IsRunning() {
		t.Error("IsRunning = false while started")
	}
	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := tr.Stop(); !errors.Is(err, ErrTrackerNotRunning) {
		t.Errorf("second Stop = %v, want ErrTrackerNotRunning", err)
	}
}
