// Package conn manages the websocket transport for the active channel.
//
// A Manager owns at most one live transport at a time. Every lifecycle
// callback (dial result, read-loop exit, retry timer) carries the generation
// it was started under; callbacks whose generation no longer matches the
// manager's are discarded, so rapid channel switches never let a superseded
// connection report status or schedule retries.
package conn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chancore/chancore/internal/events"
	"github.com/chancore/chancore/internal/logging"
	"github.com/chancore/chancore/internal/models"
)

const (
	defaultDialTimeout  = 10 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// Options configures a Manager.
type Options struct {
	// WebSocketURL is the base ws:// or wss:// URL of the server.
	WebSocketURL string

	// ClientID identifies this client on the wire.
	ClientID string

	// Schedule is the reconnect delay schedule. Defaults to
	// models.DefaultRetrySchedule when empty.
	Schedule models.RetrySchedule

	// DialTimeout bounds the websocket handshake.
	DialTimeout time.Duration

	// WriteTimeout bounds each outbound write.
	WriteTimeout time.Duration

	// Publisher receives status-change and cache-invalidation events.
	Publisher events.Publisher
}

// Manager maintains one websocket connection to the active channel and
// reconnects it with backoff after unexpected closes.
type Manager struct {
	wsBaseURL    string
	clientID     string
	schedule     models.RetrySchedule
	writeTimeout time.Duration
	dialer       *websocket.Dialer
	publisher    events.Publisher
	logger       zerolog.Logger

	mu         sync.Mutex
	generation uint64
	channelID  string
	status     models.ConnectionStatus
	ws         *websocket.Conn
	attempts   int
	retryTimer *time.Timer
}

// outboundFrame is the wire shape of a client-sent chat message.
type outboundFrame struct {
	Type        string `json:"type"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
}

// inboundFrame is the subset of server frames the manager inspects.
type inboundFrame struct {
	Type string `json:"type"`
}

// NewManager creates a connection manager. It performs no I/O until Open.
func NewManager(opts Options) *Manager {
	schedule := opts.Schedule
	if len(schedule) == 0 {
		schedule = models.DefaultRetrySchedule()
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Manager{
		wsBaseURL:    strings.TrimRight(opts.WebSocketURL, "/"),
		clientID:     opts.ClientID,
		schedule:     schedule,
		writeTimeout: writeTimeout,
		dialer:       &websocket.Dialer{HandshakeTimeout: dialTimeout},
		publisher:    opts.Publisher,
		logger:       logging.WithClient(logging.Component("conn"), opts.ClientID),
		status:       models.StatusDisconnected,
	}
}

// Open switches the manager to the given channel. Any existing transport is
// closed synchronously and any pending retry is cancelled before the new dial
// starts. The dial itself runs in the background; progress is reported via
// status events.
func (m *Manager) Open(channelID string) {
	m.mu.Lock()
	m.cancelRetryLocked()
	m.closeTransportLocked()
	m.generation++
	gen := m.generation
	m.channelID = channelID
	m.attempts = 0
	pending := m.transitionLocked(models.StatusConnecting)
	m.mu.Unlock()

	m.publish(pending)
	go m.dial(gen, channelID)
}

// Close tears the connection down and suppresses any scheduled retry.
// Calling it again, or without a prior Open, is a no-op.
func (m *Manager) Close() {
	m.mu.Lock()
	m.generation++
	m.cancelRetryLocked()
	m.closeTransportLocked()
	m.channelID = ""
	m.attempts = 0
	pending := m.transitionLocked(models.StatusDisconnected)
	m.mu.Unlock()

	m.publish(pending)
}

// Send writes a chat message on the live transport. When the connection is
// not in the connected state the call is a silent no-op; callers that need
// delivery guarantees use the REST path instead.
func (m *Manager) Send(content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != models.StatusConnected || m.ws == nil {
		return nil
	}
	if err := m.ws.SetWriteDeadline(time.Now().Add(m.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	frame := outboundFrame{Type: "message", Content: content, MessageType: string(models.MessageTypeChat)}
	if err := m.ws.WriteJSON(frame); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Status returns the current connection status.
func (m *Manager) Status() models.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ActiveChannel returns the channel the manager is bound to, or empty after
// Close.
func (m *Manager) ActiveChannel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channelID
}

func (m *Manager) dial(gen uint64, channelID string) {
	endpoint := fmt.Sprintf("%s/ws/channels/%s?client_id=%s",
		m.wsBaseURL, url.PathEscape(channelID), url.QueryEscape(m.clientID))
	logger := logging.WithChannel(m.logger, channelID)

	ws, resp, err := m.dialer.Dial(endpoint, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		logger.Warn().Err(err).Msg("websocket dial failed")
		m.scheduleRetry(gen, channelID)
		return
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		_ = ws.Close()
		return
	}
	m.ws = ws
	m.attempts = 0
	pending := m.transitionLocked(models.StatusConnected)
	m.mu.Unlock()

	m.publish(pending)
	logger.Info().Msg("websocket connected")
	go m.readLoop(gen, ws, channelID)
}

func (m *Manager) readLoop(gen uint64, ws *websocket.Conn, channelID string) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			m.handleClosed(gen, channelID, err)
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type == "" {
			// Malformed frames are dropped without tearing the
			// connection down.
			continue
		}
		if frame.Type == "message" {
			m.publishOne(m.newEvent(models.EventTypeCacheInvalidate, channelID, nil))
		}
	}
}

// handleClosed reacts to a read-loop exit. Generation mismatch means the
// close was deliberate (Open to another channel, or Close) and nothing more
// should happen.
func (m *Manager) handleClosed(gen uint64, channelID string, cause error) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.ws = nil
	pending := m.transitionLocked(models.StatusDisconnected)
	m.mu.Unlock()

	m.publish(pending)
	chLogger := logging.WithChannel(m.logger, channelID)
	chLogger.Warn().Err(cause).Msg("websocket closed unexpectedly")
	m.scheduleRetry(gen, channelID)
}

// scheduleRetry arms the reconnect timer using the next delay from the
// schedule. Delays clamp to the last entry; retries continue until Close.
func (m *Manager) scheduleRetry(gen uint64, channelID string) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	delay := m.schedule.Delay(m.attempts)
	m.attempts++
	attempt := m.attempts
	pending := m.transitionLocked(models.StatusReconnecting)
	m.mu.Unlock()

	// Publish before arming the timer; with a short delay the timer's
	// connecting event could otherwise overtake the reconnecting one.
	m.publish(pending)
	chLogger := logging.WithChannel(m.logger, channelID)
	chLogger.Info().
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("reconnect scheduled")

	m.mu.Lock()
	if gen == m.generation {
		m.retryTimer = time.AfterFunc(delay, func() {
			m.retryFire(gen, channelID)
		})
	}
	m.mu.Unlock()
}

func (m *Manager) retryFire(gen uint64, channelID string) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.retryTimer = nil
	pending := m.transitionLocked(models.StatusConnecting)
	m.mu.Unlock()

	m.publish(pending)
	m.dial(gen, channelID)
}

func (m *Manager) cancelRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}

func (m *Manager) closeTransportLocked() {
	if m.ws != nil {
		_ = m.ws.Close()
		m.ws = nil
	}
}

// transitionLocked applies a status change and returns the events to publish
// once the lock is released. Illegal direct transitions are routed through
// disconnected, mirroring the status model.
func (m *Manager) transitionLocked(to models.ConnectionStatus) []*models.Event {
	if m.status == to {
		return nil
	}
	var out []*models.Event
	if !m.status.CanTransition(to) {
		out = append(out, m.statusEventLocked(m.status, models.StatusDisconnected))
		m.status = models.StatusDisconnected
	}
	out = append(out, m.statusEventLocked(m.status, to))
	m.status = to
	return out
}

func (m *Manager) statusEventLocked(from, to models.ConnectionStatus) *models.Event {
	payload, _ := json.Marshal(models.StatusChangedPayload{
		OldStatus: from,
		NewStatus: to,
		Attempt:   m.attempts,
	})
	return m.newEvent(models.EventTypeStatusChanged, m.channelID, payload)
}

func (m *Manager) newEvent(eventType models.EventType, channelID string, payload json.RawMessage) *models.Event {
	return &models.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		ChannelID: channelID,
		Payload:   payload,
	}
}

func (m *Manager) publish(pending []*models.Event) {
	if m.publisher == nil {
		return
	}
	for _, event := range pending {
		m.publisher.Publish(context.Background(), event)
	}
}

// publishOne delivers invalidation events asynchronously; unlike status
// events they carry no ordering guarantee, and the read loop must not stall
// on slow handlers.
func (m *Manager) publishOne(event *models.Event) {
	if m.publisher == nil {
		return
	}
	m.publisher.PublishAsync(context.Background(), event)
}
