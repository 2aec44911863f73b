package models

// ConnectionStatus describes the lifecycle state of a channel connection.
type ConnectionStatus string

const (
	// StatusDisconnected is the initial state and the result of manual teardown.
	StatusDisconnected ConnectionStatus = "disconnected"

	// StatusConnecting means a dial is in flight.
	StatusConnecting ConnectionStatus = "connecting"

	// StatusConnected means the transport open was acknowledged.
	StatusConnected ConnectionStatus = "connected"

	// StatusReconnecting means a retry has been scheduled after an unexpected close.
	StatusReconnecting ConnectionStatus = "reconnecting"
)

// CanTransition reports whether moving from one status to another is legal.
// Manual teardown (to disconnected) is allowed from any state.
func (s ConnectionStatus) CanTransition(to ConnectionStatus) bool {
	if to == StatusDisconnected {
		return true
	}
	switch s {
	case StatusDisconnected:
		return to == StatusConnecting || to == StatusReconnecting
	case StatusConnecting:
		return to == StatusConnected
	case StatusConnected:
		// Unexpected close lands on disconnected first, handled above.
		return false
	case StatusReconnecting:
		return to == StatusConnecting
	}
	return false
}

// Live reports whether the status represents an open transport.
func (s ConnectionStatus) Live() bool {
	return s == StatusConnected
}
