package domain

import "strings"

// DefaultLobby is the lobby every admitted session starts in.
const DefaultLobby = "General"

type SessionState int

const (
	Negotiating SessionState = iota
	Active
	Closing
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Negotiating:
		return "negotiating"
	case Active:
		return "active"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// NormalizeLobby trims a requested lobby name. Lobby names are case-sensitive.
func NormalizeLobby(name string) string {
	return strings.TrimSpace(name)
}
