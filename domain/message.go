// Package domain contains core concepts of the chat relay.
// This file defines the Message exchanged on the wire and its kinds.
// Messages are immutable once decoded; handlers work on value copies.
package domain

// Kind discriminates what a Message asks the relay to do.
type Kind string

const (
	Group           Kind = "group"
	Private         Kind = "private"
	System          Kind = "system"
	Ping            Kind = "ping"
	Pong            Kind = "pong"
	ChangeUsername  Kind = "changeUsername"
	JoinLobby       Kind = "joinLobby"
	ChangeLobbyName Kind = "changeLobbyName"
	LobbyList       Kind = "lobbyList"
	PlayerList      Kind = "playerList"
	Quit            Kind = "quit"
)

// ServerName is the sender stamped on messages originated by the relay itself.
const ServerName = "SERVER"

var knownKinds = map[Kind]struct{}{
	Group: {}, Private: {}, System: {}, Ping: {}, Pong: {},
	ChangeUsername: {}, JoinLobby: {}, ChangeLobbyName: {},
	LobbyList: {}, PlayerList: {}, Quit: {},
}

// Known reports whether the relay has a handler for k.
func (k Kind) Known() bool {
	_, ok := knownKinds[k]
	return ok
}

// Message is one protocol line after negotiation.
// Optional fields are omitted from the encoding when empty.
type Message struct {
	Type         Kind     `json:"type"`
	Sender       string   `json:"sender,omitempty"`
	Receiver     string   `json:"receiver,omitempty"`
	Content      string   `json:"content,omitempty"`
	LobbyName    string   `json:"lobbyName,omitempty"`
	NewLobbyName string   `json:"newLobbyName,omitempty"`
	NewUsername  string   `json:"newUsername,omitempty"`
	NewName      string   `json:"newName,omitempty"`
	Lobbies      []string `json:"lobbies,omitempty"`
	LobbyMembers []string `json:"lobbyMembers,omitempty"`
	Players      []string `json:"players,omitempty"`
}

// NewSystem builds a server notice.
func NewSystem(content string) Message {
	return Message{Type: System, Sender: ServerName, Content: content}
}

// NewPing builds the probe the relay sends to a peer.
func NewPing() Message {
	return Message{Type: Ping, Sender: ServerName}
}

// NewPong answers a ping received from receiver.
func NewPong(receiver string) Message {
	return Message{Type: Pong, Sender: ServerName, Receiver: receiver}
}

// TargetLobby returns the lobby name a changeLobbyName request asks for.
// newLobbyName wins, newName then lobbyName are accepted for older clients.
func (m Message) TargetLobby() string {
	switch {
	case m.NewLobbyName != "":
		return m.NewLobbyName
	case m.NewName != "":
		return m.NewName
	default:
		return m.LobbyName
	}
}

// TargetUsername returns the name a changeUsername request asks for.
func (m Message) TargetUsername() string {
	if m.NewUsername != "" {
		return m.NewUsername
	}
	return m.NewName
}

// WithSender returns a copy of m whose sender is name.
func (m Message) WithSender(name string) Message {
	m.Sender = name
	return m
}
