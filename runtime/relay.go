package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/protocol"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Options struct {
	DefaultLobby        string
	DefaultUsername     string
	OutboxSize          int
	HeartbeatInterval   time.Duration
	HeartbeatTimeout    time.Duration
	NegotiationAttempts int
}

func DefaultOptions() Options {
	return Options{
		DefaultLobby:        domain.DefaultLobby,
		DefaultUsername:     domain.DefaultUsername,
		OutboxSize:          64,
		HeartbeatInterval:   5 * time.Second,
		HeartbeatTimeout:    15 * time.Second,
		NegotiationAttempts: 10,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.DefaultLobby == "" {
		o.DefaultLobby = def.DefaultLobby
	}
	if o.DefaultUsername == "" {
		o.DefaultUsername = def.DefaultUsername
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = def.OutboxSize
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = def.HeartbeatInterval
	}
	if o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = def.HeartbeatTimeout
	}
	return o
}

// Relay is the shared state every session reaches: the registry, the lobbies
// and the way out to sinks. It runs one Session per served transport.
type Relay struct {
	log       *slog.Logger
	opts      Options
	registry  *Registry
	lobbies   *LobbyManager
	router    *Router
	heartbeat HeartbeatMonitor
	presence  *presenceMirror
	events    chan event.Event
	sessions  sync.WaitGroup
}

// NewRelay wires a relay. presence and events may be nil.
func NewRelay(log *slog.Logger, registry *Registry, lobbies *LobbyManager,
	presence contract.PresenceStore, events chan event.Event, opts Options) *Relay {
	opts = opts.withDefaults()
	r := &Relay{
		log:       log,
		opts:      opts,
		registry:  registry,
		lobbies:   lobbies,
		heartbeat: NewHeartbeatMonitor(log, opts.HeartbeatInterval, opts.HeartbeatTimeout),
		presence:  newPresenceMirror(log, registry, presence),
		events:    events,
	}
	r.router = NewRouter(log, r)
	return r
}

// WithModerator censors chat content before it is routed.
func (r *Relay) WithModerator(moderator *moderation.Moderator) *Relay {
	r.router.moderator = moderator
	return r
}

func (r *Relay) Registry() *Registry    { return r.registry }
func (r *Relay) Lobbies() *LobbyManager { return r.lobbies }

// Serve runs a session over transport until it is closed.
// Cancelling ctx tears the session down.
func (r *Relay) Serve(ctx context.Context, transport contract.Transport) {
	r.sessions.Add(1)
	defer r.sessions.Done()
	newSession(ctx, r, transport).run()
}

// Wait blocks until every served session returned.
func (r *Relay) Wait() {
	r.sessions.Wait()
}

// admit places a named session in the default lobby, then activates it.
// Other sessions only deliver to active sessions, so USERNAME_ACCEPTED is
// always the first line the peer gets after negotiation.
func (r *Relay) admit(s *Session) bool {
	name := s.Name()
	r.join(s, r.opts.DefaultLobby)
	lobby := s.Lobby()
	if err := s.activate(protocol.Accept(name)); err != nil {
		s.log.Debug("Acceptance not sent", "error", err)
		s.Close(reasonNegotiation)
		return false
	}
	s.log.Info("Session admitted", "name", name, "lobby", lobby)
	r.Broadcast(lobby, domain.NewSystem(fmt.Sprintf("%s has entered the chat.", name)), s)
	r.Emit(event.New(event.SessionAdmittedType, event.SessionAdmitted{
		SessionID:  s.ID().String(),
		Username:   name,
		Lobby:      lobby,
		RemoteAddr: s.transport.RemoteAddr(),
	}))
	return true
}

// join moves s into lobby. A session closed concurrently is taken back out
// so it never lingers in a member set.
func (r *Relay) join(s *Session, lobby string) (string, bool) {
	from, changed := r.lobbies.Join(s, lobby)
	if s.closing() {
		r.lobbies.Leave(s)
		return from, false
	}
	return from, changed
}

// Deliver hands msg to target. A target that cannot take it is torn down.
func (r *Relay) Deliver(target *Session, msg domain.Message) bool {
	if err := target.Send(msg); err != nil {
		r.log.Debug("Delivery failed", "target", target.Name(), "error", err)
		r.Emit(event.New(event.DeliveryFailedType, event.DeliveryFailed{
			Username: target.Name(),
			Reason:   err.Error(),
		}))
		target.Close(reasonDelivery)
		return false
	}
	return true
}

// Broadcast fans msg out to the active members of lobby except one session.
// It returns how many members received it.
func (r *Relay) Broadcast(lobby string, msg domain.Message, except *Session) int {
	delivered := 0
	for _, member := range r.lobbies.Members(lobby) {
		if member == except || !member.active() {
			continue
		}
		if r.Deliver(member, msg) {
			delivered++
		}
	}
	return delivered
}

// NameAvailable reports whether name can be claimed by self.
// Only the registry is consulted; the presence store mirrors it.
func (r *Relay) NameAvailable(name string, self *Session) bool {
	return !r.registry.Taken(name, self)
}

// Suggest returns the first free base_NN candidate, shortening base so the
// candidate never exceeds the maximum name length.
func (r *Relay) Suggest(base string, self *Session) string {
	runes := []rune(base)
	for n := 1; ; n++ {
		limit := domain.MaxNameLength - len(domain.Disambiguate("", n))
		if len(runes) > limit {
			runes = runes[:limit]
		}
		candidate := domain.Disambiguate(string(runes), n)
		if r.NameAvailable(candidate, self) {
			return candidate
		}
	}
}

// evict is called by the heartbeat monitor once s stopped acknowledging.
func (r *Relay) evict(s *Session, silence time.Duration) {
	name, lobby := s.Name(), s.Lobby()
	s.log.Warn("Evicting unresponsive session", "name", name, "silence", silence)
	r.Broadcast(lobby, domain.NewSystem(fmt.Sprintf("%s was removed for high latency.", name)), s)
	r.Emit(event.New(event.SessionEvictedType, event.SessionEvicted{
		Username: name,
		Lobby:    lobby,
		Silence:  silence,
	}))
	s.Close(reasonHeartbeat)
}

// Emit publishes e without blocking. Events are dropped when nobody keeps up.
func (r *Relay) Emit(e event.Event) {
	if r.events == nil {
		return
	}
	select {
	case r.events <- e:
	default:
		r.log.Debug("Event channel full, dropping event", "type", e.Type)
	}
}
