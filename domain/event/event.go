// Package event defines what the relay reports about itself.
// Events are produced by sessions and workers and consumed by sinks.
package event

import (
	"time"
)

type Type string

const (
	SessionAdmittedType Type = "SESSION_ADMITTED"
	SessionClosedType   Type = "SESSION_CLOSED"
	UsernameChangedType Type = "USERNAME_CHANGED"
	LobbyJoinedType     Type = "LOBBY_JOINED"
	LobbyRenamedType    Type = "LOBBY_RENAMED"
	SessionEvictedType  Type = "SESSION_EVICTED"
	MessageRoutedType   Type = "MESSAGE_ROUTED"
	DeliveryFailedType  Type = "DELIVERY_FAILED"
	MessageCensoredType Type = "MESSAGE_CENSORED"
)

type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

// New stamps payload with the current UTC time.
func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}

type SessionAdmitted struct {
	SessionID  string
	Username   string
	Lobby      string
	RemoteAddr string
}

type SessionClosed struct {
	SessionID string
	Username  string
	Lobby     string
	Reason    string
	WasActive bool
	Duration  time.Duration
}

type UsernameChanged struct {
	SessionID string
	OldName   string
	NewName   string
}

type LobbyJoined struct {
	Username string
	From     string
	To       string
}

type LobbyRenamed struct {
	OldName string
	NewName string
	Members int
}

type SessionEvicted struct {
	Username string
	Lobby    string
	Silence  time.Duration
}

type MessageRouted struct {
	Kind       string
	Sender     string
	Recipients int
}

type DeliveryFailed struct {
	Username string
	Reason   string
}

type MessageCensored struct {
	Sender string
	Lang   string
}
