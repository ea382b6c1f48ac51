package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Router classifies inbound messages and dispatches them to their handler.
// Handlers run on the reading session's goroutine; deliveries to other
// sessions only go through their outbox.
type Router struct {
	log       *slog.Logger
	relay     *Relay
	moderator *moderation.Moderator
	now       func() time.Time
}

func NewRouter(log *slog.Logger, relay *Relay) *Router {
	return &Router{log: log, relay: relay, now: time.Now}
}

// Route handles msg read from s. The sender is always the session's current
// name, whatever the peer wrote.
func (r *Router) Route(s *Session, msg domain.Message) {
	if !s.active() {
		return
	}
	msg = msg.WithSender(s.Name())

	switch msg.Type {
	case domain.Group:
		r.group(s, msg)
	case domain.Private:
		r.private(s, msg)
	case domain.System:
		r.system(s, msg)
	case domain.Ping:
		r.relay.Deliver(s, domain.NewPong(msg.Sender))
	case domain.Pong:
		r.pong(s, msg)
	case domain.ChangeUsername:
		r.changeUsername(s, msg)
	case domain.JoinLobby:
		r.joinLobby(s, msg)
	case domain.ChangeLobbyName:
		r.changeLobbyName(s, msg)
	case domain.LobbyList:
		r.relay.Deliver(s, domain.Message{
			Type:    domain.LobbyList,
			Sender:  domain.ServerName,
			Lobbies: r.relay.lobbies.Available(),
		})
	case domain.PlayerList:
		r.playerList(s)
	case domain.Quit:
		s.Close(reasonQuit)
	default:
		s.log.Warn("Discarding message", "type", msg.Type, "error", errors.ErrUnknownMessageType)
	}
}

func (r *Router) group(s *Session, msg domain.Message) {
	msg = r.moderate(msg)
	delivered := r.relay.Broadcast(s.Lobby(), msg, s)
	r.routed(msg, delivered)
}

func (r *Router) system(s *Session, msg domain.Message) {
	delivered := r.relay.Broadcast(s.Lobby(), msg, s)
	r.routed(msg, delivered)
}

func (r *Router) private(s *Session, msg domain.Message) {
	receiver := strings.TrimSpace(msg.Receiver)
	target, ok := r.relay.registry.Lookup(receiver)
	if !ok || !target.active() {
		r.notify(s, fmt.Sprintf("%s is not online.", receiver))
		return
	}
	if target == s {
		s.log.Debug("Ignoring private message to self")
		return
	}
	msg = r.moderate(msg)
	delivered := 0
	if r.relay.Deliver(target, msg) {
		delivered = 1
	}
	r.routed(msg, delivered)
}

// pong acknowledges a heartbeat probe. A pong addressed to another peer is
// forwarded, never answered with an offline notice.
func (r *Router) pong(s *Session, msg domain.Message) {
	s.MarkLiveness(r.now())

	receiver := strings.TrimSpace(msg.Receiver)
	if receiver == "" || strings.EqualFold(receiver, domain.ServerName) {
		return
	}
	if target, ok := r.relay.registry.Lookup(receiver); ok && target != s && target.active() {
		r.relay.Deliver(target, msg)
	}
}

func (r *Router) changeUsername(s *Session, msg domain.Message) {
	newName := strings.TrimSpace(msg.TargetUsername())
	if err := domain.ValidateName(newName); err != nil {
		r.notify(s, fmt.Sprintf("Username change rejected: %s.", err.Error()))
		return
	}
	if newName == s.Name() {
		r.notify(s, fmt.Sprintf("Your username is already %s.", newName))
		return
	}
	if !r.relay.NameAvailable(newName, s) {
		r.notify(s, fmt.Sprintf("Username %s is already taken.", newName))
		return
	}

	old, err := s.rename(newName)
	switch err {
	case nil:
	case errors.ErrNameTaken:
		r.notify(s, fmt.Sprintf("Username %s is already taken.", newName))
		return
	default:
		s.log.Debug("Rename aborted", "error", err)
		return
	}

	s.log.Info("Username changed", "old", old, "new", newName)
	r.notify(s, fmt.Sprintf("Your username is now %s.", newName))
	r.relay.Broadcast(s.Lobby(), domain.NewSystem(fmt.Sprintf("%s has changed their username to %s", old, newName)), s)
	r.relay.Emit(event.New(event.UsernameChangedType, event.UsernameChanged{
		SessionID: s.ID().String(),
		OldName:   old,
		NewName:   newName,
	}))
}

func (r *Router) joinLobby(s *Session, msg domain.Message) {
	target := domain.NormalizeLobby(msg.LobbyName)
	if target == "" {
		target = domain.NormalizeLobby(msg.NewLobbyName)
	}
	if target == "" {
		r.notify(s, errors.ErrBlankLobby.Error()+".")
		return
	}

	from, changed := r.relay.join(s, target)
	if !changed {
		if s.active() {
			r.notify(s, fmt.Sprintf("You are already in %s.", target))
		}
		return
	}

	name := s.Name()
	r.notify(s, fmt.Sprintf("You joined lobby %s.", target))
	if from != "" {
		r.relay.Broadcast(from, domain.NewSystem(fmt.Sprintf("%s has left the lobby.", name)), s)
	}
	r.relay.Broadcast(target, domain.NewSystem(fmt.Sprintf("%s has joined the lobby.", name)), s)
	r.relay.Emit(event.New(event.LobbyJoinedType, event.LobbyJoined{Username: name, From: from, To: target}))
}

// changeLobbyName renames the sender's current lobby in place.
func (r *Router) changeLobbyName(s *Session, msg domain.Message) {
	current := s.Lobby()
	if !r.relay.lobbies.Exists(current) {
		s.log.Debug("Lobby rename ignored, current lobby missing", "lobby", current)
		return
	}
	newName := domain.NormalizeLobby(msg.TargetLobby())

	members, err := r.relay.lobbies.Rename(current, newName)
	switch err {
	case nil:
	case errors.ErrLobbyNotFound:
		return
	case errors.ErrLobbyExists:
		r.notify(s, fmt.Sprintf("Lobby %s already exists.", newName))
		return
	default:
		r.notify(s, err.Error()+".")
		return
	}
	if newName == current {
		return
	}

	notice := domain.NewSystem(fmt.Sprintf("Lobby %s has been renamed to %s by %s.", current, newName, s.Name()))
	for _, member := range members {
		if member.active() {
			r.relay.Deliver(member, notice)
		}
	}
	r.relay.Emit(event.New(event.LobbyRenamedType, event.LobbyRenamed{
		OldName: current,
		NewName: newName,
		Members: len(members),
	}))
}

func (r *Router) playerList(s *Session) {
	lobby := s.Lobby()
	members := lo.FilterMap(r.relay.lobbies.Members(lobby), func(m *Session, _ int) (string, bool) {
		return m.Name(), m.active()
	})
	sort.Strings(members)
	r.relay.Deliver(s, domain.Message{
		Type:         domain.PlayerList,
		Sender:       domain.ServerName,
		LobbyName:    lobby,
		LobbyMembers: members,
		Players:      r.relay.registry.Names(),
	})
}

// moderate censors content when a moderator is configured.
func (r *Router) moderate(msg domain.Message) domain.Message {
	if r.moderator == nil || msg.Content == "" {
		return msg
	}
	censored, words := r.moderator.Censor(msg.Content)
	if len(words) == 0 {
		return msg
	}
	lang := moderation.DetectLanguage(msg.Content)
	r.log.Info("Message censored", "sender", msg.Sender, "hits", len(words), "lang", lang)
	r.relay.Emit(event.New(event.MessageCensoredType, event.MessageCensored{Sender: msg.Sender, Lang: lang}))
	msg.Content = censored
	return msg
}

func (r *Router) notify(s *Session, content string) {
	r.relay.Deliver(s, domain.NewSystem(content))
}

func (r *Router) routed(msg domain.Message, recipients int) {
	r.relay.Emit(event.New(event.MessageRoutedType, event.MessageRouted{
		Kind:       string(msg.Type),
		Sender:     msg.Sender,
		Recipients: recipients,
	}))
}
