package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/chancore/chancore/internal/models"
)

var (
	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(lipgloss.Color("240")).
			PaddingRight(1)

	channelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	activeChannelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("213")).
				Bold(true)

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("203")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	senderAgentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("75")).
				Bold(true)

	senderUserStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true)

	senderSystemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244")).
				Italic(true)

	optimisticStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	popupStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	popupActiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("62"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
)

// statusIndicator maps a connection status to a colored glyph and label.
func statusIndicator(status models.ConnectionStatus) string {
	switch status {
	case models.StatusConnected:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Render("● connected")
	case models.StatusConnecting:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("221")).Render("◌ connecting")
	case models.StatusReconnecting:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("215")).Render("◌ reconnecting")
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render("○ disconnected")
	}
}

// senderStyle picks the style for a message sender.
func senderStyle(kind models.SenderKind) lipgloss.Style {
	switch kind {
	case models.SenderKindAgent:
		return senderAgentStyle
	case models.SenderKindUser:
		return senderUserStyle
	default:
		return senderSystemStyle
	}
}
