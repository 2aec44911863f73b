// Package tui implements the interactive chat client shell.
//
// The model is a thin consumer of the core packages: the connection manager
// owns the transport, the cache reconciler owns message lists, and the unread
// tracker owns counts. Event-bus notifications are bridged into bubbletea
// messages so all state reads happen on the update loop.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/chancore/chancore/internal/api"
	"github.com/chancore/chancore/internal/cache"
	"github.com/chancore/chancore/internal/config"
	"github.com/chancore/chancore/internal/conn"
	"github.com/chancore/chancore/internal/events"
	"github.com/chancore/chancore/internal/logging"
	"github.com/chancore/chancore/internal/mention"
	"github.com/chancore/chancore/internal/models"
	"github.com/chancore/chancore/internal/store"
	"github.com/chancore/chancore/internal/unread"
)

const sidebarWidth = 26

// Core bundles the long-lived components the shell drives.
type Core struct {
	API       *api.Client
	Cache     *cache.Reconciler
	Conn      *conn.Manager
	Unread    *unread.Tracker
	Publisher events.Publisher
	Store     *store.Store
	Contexts  *config.ContextStore
	ClientID  string
}

// Options holds display settings.
type Options struct {
	ShowTimestamps bool
}

type statusChangedMsg struct {
	channelID string
	payload   models.StatusChangedPayload
}

type cacheRefreshedMsg struct {
	channelID string
	err       error
}

type unreadChangedMsg struct {
	channelID string
	count     int
}

type channelsLoadedMsg struct {
	channels []models.Channel
	err      error
}

type sendDoneMsg struct {
	err error
}

type markReadDoneMsg struct {
	err error
}

// Model is the bubbletea model for the chat shell.
type Model struct {
	core   Core
	opts   Options
	logger zerolog.Logger

	width  int
	height int
	ready  bool

	channels []models.Channel
	selected int
	activeID string

	status        models.ConnectionStatus
	statusAttempt int

	input    textinput.Model
	viewport viewport.Model
	popup    mentionOverlay
	unread   map[string]int

	errText string
}

// NewModel creates the shell model. Channels are loaded during Init.
func NewModel(core Core, opts Options) Model {
	input := textinput.New()
	input.Placeholder = "Type a message, @ to mention..."
	input.CharLimit = 2000
	input.Focus()

	return Model{
		core:   core,
		opts:   opts,
		logger: logging.Component("tui"),
		status: models.StatusDisconnected,
		input:  input,
		unread: make(map[string]int),
	}
}

func (m Model) Init() tea.Cmd {
	return loadChannels(m.core.API)
}

func loadChannels(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		channels, err := client.ListChannels(ctx)
		return channelsLoadedMsg{channels: channels, err: err}
	}
}

func refreshChannel(reconciler *cache.Reconciler, channelID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := reconciler.Refresh(ctx, channelID)
		return cacheRefreshedMsg{channelID: channelID, err: err}
	}
}

func completeSend(reconciler *cache.Reconciler, pending *cache.PendingSend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return sendDoneMsg{err: reconciler.CompleteSend(ctx, pending)}
	}
}

func (m Model) markRead(channelID string) tea.Cmd {
	messages := m.core.Cache.Messages(channelID)
	if len(messages) == 0 || messages[0].IsOptimistic {
		return nil
	}
	newest := messages[0].ID
	core := m.core
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := core.API.MarkRead(ctx, channelID, newest); err != nil {
			return markReadDoneMsg{err: err}
		}
		if core.Store != nil {
			if err := core.Store.SetReadCursor(ctx, channelID, newest); err != nil {
				return markReadDoneMsg{err: err}
			}
		}
		if core.Unread != nil {
			core.Unread.Clear(channelID)
		}
		return markReadDoneMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpWidth := msg.Width - sidebarWidth - 2
		if vpWidth < 20 {
			vpWidth = 20
		}
		vpHeight := msg.Height - 4
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(vpWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = vpWidth
			m.viewport.Height = vpHeight
		}
		m.input.Width = vpWidth - 4
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case channelsLoadedMsg:
		if msg.err != nil {
			m.errText = fmt.Sprintf("load channels: %v", msg.err)
			return m, nil
		}
		m.channels = msg.channels
		ids := make([]string, 0, len(m.channels))
		for _, ch := range m.channels {
			ids = append(ids, ch.ID)
		}
		if m.core.Unread != nil {
			m.core.Unread.SetChannels(ids)
		}
		if len(m.channels) > 0 {
			m.selected = m.restoreSelection()
			return m, m.selectChannel(m.selected)
		}
		return m, nil

	case statusChangedMsg:
		if msg.channelID != "" && msg.channelID != m.activeID {
			return m, nil
		}
		m.status = msg.payload.NewStatus
		m.statusAttempt = msg.payload.Attempt
		return m, nil

	case cacheRefreshedMsg:
		if msg.err != nil {
			m.errText = fmt.Sprintf("refresh: %v", msg.err)
			return m, nil
		}
		if msg.channelID == m.activeID {
			m.refreshViewport()
			return m, m.markRead(msg.channelID)
		}
		return m, nil

	case unreadChangedMsg:
		m.unread[msg.channelID] = msg.count
		return m, nil

	case sendDoneMsg:
		if msg.err != nil {
			m.errText = fmt.Sprintf("send: %v", msg.err)
		} else {
			m.errText = ""
		}
		m.refreshViewport()
		return m, nil

	case markReadDoneMsg:
		if msg.err != nil {
			m.logger.Debug().Err(msg.err).Msg("mark read failed")
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "ctrl+n":
		return m.cycleChannel(1)

	case "ctrl+p":
		return m.cycleChannel(-1)

	case "up", "down", "enter", "tab", "esc":
		if m.popup.active {
			key := mentionKeyFor(msg.String())
			candidate, action := m.popup.handleKey(key)
			if action == mention.ActionConfirm {
				value := m.input.Value()
				cursor := byteOffset(value, m.input.Position())
				q, ok := mention.Detect(value, cursor)
				if ok {
					next := mention.Select(candidate, value, q)
					m.input.SetValue(next)
					m.input.SetCursor(runeOffset(next, q.TriggerOffset+len("@"+candidate+" ")))
				}
			}
			return m, nil
		}
		if msg.String() == "enter" {
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.popup.sync(m.input.Value(), byteOffset(m.input.Value(), m.input.Position()), m.mentionCandidates())
	return m, cmd
}

// byteOffset converts a textinput rune-index cursor into a byte offset.
func byteOffset(s string, runeIdx int) int {
	runes := []rune(s)
	if runeIdx < 0 {
		runeIdx = 0
	}
	if runeIdx > len(runes) {
		runeIdx = len(runes)
	}
	return len(string(runes[:runeIdx]))
}

// runeOffset converts a byte offset back into a rune index for SetCursor.
func runeOffset(s string, byteIdx int) int {
	if byteIdx < 0 {
		byteIdx = 0
	}
	if byteIdx > len(s) {
		byteIdx = len(s)
	}
	return utf8.RuneCountInString(s[:byteIdx])
}

func mentionKeyFor(s string) mention.Key {
	switch s {
	case "up":
		return mention.KeyUp
	case "down":
		return mention.KeyDown
	case "enter":
		return mention.KeyEnter
	case "tab":
		return mention.KeyTab
	default:
		return mention.KeyEscape
	}
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" || m.activeID == "" {
		return m, nil
	}
	pending, err := m.core.Cache.BeginSend(m.activeID, content)
	if err != nil {
		m.errText = fmt.Sprintf("send: %v", err)
		return m, nil
	}
	m.input.SetValue("")
	m.popup.dismiss()
	// The optimistic entry is in the cache now; render it before the REST
	// round trip starts. Confirmation lands via sendDoneMsg.
	m.refreshViewport()
	return m, completeSend(m.core.Cache, pending)
}

func (m Model) cycleChannel(delta int) (tea.Model, tea.Cmd) {
	if len(m.channels) == 0 {
		return m, nil
	}
	m.selected = (m.selected + delta + len(m.channels)) % len(m.channels)
	return m, m.selectChannel(m.selected)
}

// selectChannel switches the active channel: reopens the transport, retargets
// the unread tracker, persists the last-active channel, and refreshes history.
func (m *Model) selectChannel(index int) tea.Cmd {
	ch := m.channels[index]
	m.activeID = ch.ID
	m.errText = ""
	m.status = models.StatusDisconnected

	if m.core.Conn != nil {
		m.core.Conn.Open(ch.ID)
	}
	if m.core.Unread != nil {
		m.core.Unread.SetActive(ch.ID)
	}
	if m.core.Contexts != nil {
		active := &config.Context{}
		active.SetChannel(ch.ID, ch.Name)
		if err := m.core.Contexts.Save(active); err != nil {
			m.logger.Debug().Err(err).Msg("persist active channel failed")
		}
	}

	m.refreshViewport()
	return refreshChannel(m.core.Cache, ch.ID)
}

// restoreSelection maps the persisted last-active channel back to an index.
func (m *Model) restoreSelection() int {
	if m.core.Contexts == nil {
		return 0
	}
	saved, err := m.core.Contexts.Load()
	if err != nil || saved.IsEmpty() {
		return 0
	}
	for i, ch := range m.channels {
		if ch.ID == saved.ChannelID {
			return i
		}
	}
	return 0
}

// mentionCandidates derives the completable names from the active channel's
// recent senders.
func (m *Model) mentionCandidates() []string {
	if m.activeID == "" || m.core.Cache == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, msg := range m.core.Cache.Messages(m.activeID) {
		if msg.SenderKind != models.SenderKindAgent || msg.SenderID == "" {
			continue
		}
		if !seen[msg.SenderID] {
			seen[msg.SenderID] = true
			out = append(out, msg.SenderID)
		}
	}
	return out
}

func (m *Model) refreshViewport() {
	if !m.ready || m.activeID == "" || m.core.Cache == nil {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

// renderMessages renders the active channel oldest-first for display, since
// the cache keeps newest-first order.
func (m *Model) renderMessages() string {
	messages := m.core.Cache.Messages(m.activeID)
	if len(messages) == 0 {
		if m.core.Cache.Loaded(m.activeID) {
			return timestampStyle.Render("no messages yet")
		}
		return timestampStyle.Render("loading...")
	}

	var b strings.Builder
	for i := len(messages) - 1; i >= 0; i-- {
		b.WriteString(m.renderMessage(messages[i]))
		if i > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) renderMessage(msg models.Message) string {
	var b strings.Builder
	if m.opts.ShowTimestamps {
		b.WriteString(timestampStyle.Render(msg.CreatedAt.Local().Format("15:04")))
		b.WriteString(" ")
	}
	name := msg.SenderID
	if name == "" {
		name = string(msg.SenderKind)
	}
	b.WriteString(senderStyle(msg.SenderKind).Render(name))
	b.WriteString(" ")
	if msg.IsOptimistic {
		b.WriteString(optimisticStyle.Render(msg.Content + " (sending)"))
	} else {
		b.WriteString(msg.Content)
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	sidebar := m.renderSidebar()
	main := m.renderMain()
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
}

func (m Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(channelStyle.Render("channels"))
	b.WriteString("\n\n")
	for i, ch := range m.channels {
		line := ch.Name
		if count := m.unread[ch.ID]; count > 0 && ch.ID != m.activeID {
			line = fmt.Sprintf("%s %s", line, badgeStyle.Render(fmt.Sprintf("%d", count)))
		}
		if i == m.selected {
			line = activeChannelStyle.Render("> " + line)
		} else {
			line = channelStyle.Render("  " + line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return sidebarStyle.Width(sidebarWidth).Height(m.height - 1).Render(b.String())
}

func (m Model) renderMain() string {
	status := statusIndicator(m.status)
	if m.status == models.StatusReconnecting && m.statusAttempt > 0 {
		status = fmt.Sprintf("%s (attempt %d)", status, m.statusAttempt)
	}
	bar := statusBarStyle.Width(m.viewport.Width).Render(status)

	parts := []string{bar, m.viewport.View()}
	if m.popup.active {
		parts = append(parts, m.popup.view())
	}
	inputLine := "> " + m.input.View()
	if m.errText != "" {
		inputLine = errorStyle.Render(m.errText)
	}
	parts = append(parts, inputLine)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Run starts the shell and bridges event-bus notifications into the program.
func Run(core Core, opts Options) error {
	p := tea.NewProgram(NewModel(core, opts), tea.WithAltScreen())

	if core.Publisher != nil {
		err := core.Publisher.Subscribe("tui", events.Filter{}, func(event *models.Event) {
			switch event.Type {
			case models.EventTypeStatusChanged:
				var payload models.StatusChangedPayload
				if jsonErr := unmarshalPayload(event.Payload, &payload); jsonErr != nil {
					return
				}
				p.Send(statusChangedMsg{channelID: event.ChannelID, payload: payload})
			case models.EventTypeCacheInvalidate:
				// The reconciler refreshes on its own subscription; nudge the
				// view once the new list is in place.
				p.Send(cacheRefreshedMsg{channelID: event.ChannelID})
			case models.EventTypeUnreadChanged:
				var payload models.UnreadChangedPayload
				if jsonErr := unmarshalPayload(event.Payload, &payload); jsonErr != nil {
					return
				}
				p.Send(unreadChangedMsg{channelID: event.ChannelID, count: payload.Count})
			}
		})
		if err != nil {
			return fmt.Errorf("subscribe tui: %w", err)
		}
		defer func() { _ = core.Publisher.Unsubscribe("tui") }()
	}

	_, err := p.Run()
	return err
}

func unmarshalPayload(data []byte, out any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(data, out)
}
