package client

import (
	"chat-relay/domain"
	"fmt"
	"strings"
)

// ParseInput turns a typed line into a relay message.
// Plain text goes to the current lobby; slash commands map to control kinds:
//
//	/msg <user> <text>   private message
//	/nick <name>         change username
//	/join <lobby>        switch lobby
//	/rename <lobby>      rename the current lobby
//	/lobbies, /players   listings
//	/quit
func ParseInput(line string) (domain.Message, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return domain.Message{Type: domain.Group, Content: line}, nil
	}
	command, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(command) {
	case "msg":
		receiver, content, _ := strings.Cut(rest, " ")
		if receiver == "" {
			return domain.Message{}, fmt.Errorf("usage: /msg <user> <text>")
		}
		return domain.Message{Type: domain.Private, Receiver: receiver, Content: strings.TrimSpace(content)}, nil
	case "nick":
		return domain.Message{Type: domain.ChangeUsername, NewUsername: rest}, nil
	case "join":
		return domain.Message{Type: domain.JoinLobby, LobbyName: rest}, nil
	case "rename":
		return domain.Message{Type: domain.ChangeLobbyName, NewLobbyName: rest}, nil
	case "lobbies":
		return domain.Message{Type: domain.LobbyList}, nil
	case "players":
		return domain.Message{Type: domain.PlayerList}, nil
	case "quit":
		return domain.Message{Type: domain.Quit}, nil
	default:
		return domain.Message{}, fmt.Errorf("unknown command /%s", command)
	}
}

// Format renders a received message for a terminal.
func Format(msg domain.Message) string {
	switch msg.Type {
	case domain.Group:
		return fmt.Sprintf("%s: %s", msg.Sender, msg.Content)
	case domain.Private:
		return fmt.Sprintf("(private) %s: %s", msg.Sender, msg.Content)
	case domain.LobbyList:
		return "lobbies: " + strings.Join(msg.Lobbies, ", ")
	case domain.PlayerList:
		return fmt.Sprintf("players: %s | lobby: %s", strings.Join(msg.Players, ", "), strings.Join(msg.LobbyMembers, ", "))
	default:
		return fmt.Sprintf("* %s", msg.Content)
	}
}
