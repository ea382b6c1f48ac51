package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/protocol"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	reasonEndOfStream = "end of stream"
	reasonQuit        = "quit"
	reasonShutdown    = "server shutdown"
	reasonWriteFailed = "write failed"
	reasonDelivery    = "delivery failed"
	reasonHeartbeat   = "heartbeat timeout"
	reasonNegotiation = "negotiation aborted"

	// flushTimeout bounds how long teardown waits for queued lines to be written.
	flushTimeout = 250 * time.Millisecond
)

// Session owns one accepted connection.
// Only its own goroutine reads the transport; everybody else goes through
// Send, which enqueues on the outbox drained by a single writer goroutine.
type Session struct {
	id        uuid.UUID
	log       *slog.Logger
	relay     *Relay
	transport contract.Transport
	outbox    chan string

	mu           sync.RWMutex
	name         string
	lobby        string
	state        domain.SessionState
	lastLiveness time.Time
	connectedAt  time.Time

	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
	closed     chan struct{}
	writerDone chan struct{}
}

func newSession(ctx context.Context, relay *Relay, transport contract.Transport) *Session {
	id := uuid.New()
	sessionCtx, cancel := context.WithCancel(ctx)
	return &Session{
		id:          id,
		log:         relay.log.With("session", id.String(), "remote", transport.RemoteAddr()),
		relay:       relay,
		transport:   transport,
		outbox:      make(chan string, relay.opts.OutboxSize),
		state:       domain.Negotiating,
		connectedAt: time.Now(),
		ctx:         sessionCtx,
		cancel:      cancel,
		closed:      make(chan struct{}),
		writerDone:  make(chan struct{}),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Session) Lobby() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lobby
}

func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) LastLiveness() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastLiveness
}

// MarkLiveness records a heartbeat acknowledgment from the peer.
func (s *Session) MarkLiveness(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLiveness = at
}

// Done is closed once teardown completed.
func (s *Session) Done() <-chan struct{} { return s.closed }

func (s *Session) setLobby(lobby string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobby = lobby
}

func (s *Session) active() bool {
	return s.State() == domain.Active
}

func (s *Session) closing() bool {
	switch s.State() {
	case domain.Closing, domain.Closed:
		return true
	}
	return false
}

// Send encodes msg and enqueues it without blocking.
func (s *Session) Send(msg domain.Message) error {
	line, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return s.SendLine(line)
}

// SendLine enqueues a raw line. A full outbox is reported as ErrOutboxFull:
// a peer that cannot keep up is treated like one whose write failed.
func (s *Session) SendLine(line string) error {
	switch s.State() {
	case domain.Closing, domain.Closed:
		return errors.ErrSessionClosed
	}
	select {
	case s.outbox <- line:
		return nil
	default:
		return errors.ErrOutboxFull
	}
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)
	for {
		select {
		case <-s.ctx.Done():
			s.flush()
			return
		case line := <-s.outbox:
			if err := s.transport.WriteLine(line); err != nil {
				s.log.Debug("Write failed", "error", err)
				go s.Close(reasonWriteFailed)
				return
			}
		}
	}
}

// flush writes what is still queued, stopping at the first failure.
func (s *Session) flush() {
	for {
		select {
		case line := <-s.outbox:
			if err := s.transport.WriteLine(line); err != nil {
				return
			}
		default:
			return
		}
	}
}

// run drives the whole lifecycle and returns once the session is closed.
func (s *Session) run() {
	go s.writeLoop()
	stop := context.AfterFunc(s.ctx, func() { s.Close(reasonShutdown) })
	defer stop()

	if err := s.negotiate(); err != nil {
		s.log.Info("Negotiation aborted", "error", err)
		s.Close(reasonNegotiation)
		return
	}
	if !s.relay.admit(s) {
		return
	}

	go s.relay.heartbeat.Watch(s.ctx, s, s.relay.evict)

	s.Close(s.readLoop())
}

func (s *Session) readLoop() string {
	for {
		line, err := s.transport.ReadLine()
		if err != nil {
			s.log.Debug("Read ended", "error", err)
			return reasonEndOfStream
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		msg, err := protocol.Decode(line)
		if err != nil {
			s.log.Warn("Discarding undecodable line", "error", err)
			continue
		}
		s.relay.router.Route(s, msg)
		if !s.active() {
			return reasonQuit
		}
	}
}

// negotiate assigns a unique display name before the session becomes visible.
// Every rejection restarts from a fresh proposal, up to the configured number
// of attempts.
func (s *Session) negotiate() error {
	attempts := s.relay.opts.NegotiationAttempts
	for attempt := 1; attempts <= 0 || attempt <= attempts; attempt++ {
		proposed, err := s.transport.ReadLine()
		if err != nil {
			return err
		}
		base := strings.TrimSpace(proposed)
		if base == "" {
			base = s.relay.opts.DefaultUsername
		}
		if err := domain.ValidateName(base); err != nil {
			s.reject(err)
			continue
		}

		candidate := base
		if !s.relay.NameAvailable(base, s) {
			candidate = s.relay.Suggest(base, s)
		}
		if err := s.SendLine(protocol.Suggest(candidate)); err != nil {
			return err
		}

		reply, err := s.transport.ReadLine()
		if err != nil {
			return err
		}
		chosen := strings.TrimSpace(reply)
		if chosen == "" {
			chosen = candidate
		} else if err := domain.ValidateName(chosen); err != nil {
			s.reject(err)
			continue
		} else if !s.relay.NameAvailable(chosen, s) {
			s.reject(errors.ErrNameTaken)
			continue
		}

		if err := s.claim(chosen); err != nil {
			if err == errors.ErrNameTaken {
				s.reject(err)
				continue
			}
			return err
		}
		return nil
	}
	return errors.ErrNegotiationFailed
}

func (s *Session) reject(reason error) {
	s.log.Debug("Username rejected", "reason", reason)
	if err := s.SendLine(protocol.Reject(reason.Error())); err != nil {
		s.log.Debug("Rejection not sent", "error", err)
	}
}

// claim reserves name in the registry. The session stays invisible to
// deliveries until activate.
// Holding the session lock keeps it atomic with respect to Close.
func (s *Session) claim(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.Negotiating {
		return errors.ErrSessionClosed
	}
	if err := s.relay.presence.claim(name, s); err != nil {
		return err
	}
	s.name = name
	return nil
}

// activate queues the acceptance line and promotes the session to Active in
// one step, so no delivery can be queued ahead of it.
func (s *Session) activate(accept string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.Negotiating {
		return errors.ErrSessionClosed
	}
	select {
	case s.outbox <- accept:
	default:
		return errors.ErrOutboxFull
	}
	s.state = domain.Active
	return nil
}

// rename swaps the registry key and the display name together.
func (s *Session) rename(newName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.Active {
		return "", errors.ErrSessionClosed
	}
	old := s.name
	if err := s.relay.presence.rename(old, newName, s); err != nil {
		return "", err
	}
	s.name = newName
	return old, nil
}

// flushes reports whether teardown for reason waits for queued lines.
// A peer that already failed a write or a delivery is not waited for.
func flushes(reason string) bool {
	return reason != reasonDelivery && reason != reasonWriteFailed
}

// Close tears the session down. Only the first call has an effect.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		wasActive := s.state == domain.Active
		s.state = domain.Closing
		name := s.name
		if name != "" {
			s.relay.presence.release(name, s)
		}
		s.mu.Unlock()

		lobby, inLobby := s.relay.lobbies.Leave(s)
		s.cancel()
		if flushes(reason) {
			select {
			case <-s.writerDone:
			case <-time.After(flushTimeout):
			}
		}
		if err := s.transport.Close(); err != nil {
			s.log.Debug("Transport close failed", "error", err)
		}
		if wasActive && inLobby {
			s.relay.Broadcast(lobby, domain.NewSystem(fmt.Sprintf("%s has left the chat.", name)), s)
		}

		s.mu.Lock()
		s.state = domain.Closed
		s.mu.Unlock()

		s.log.Info("Session closed", "name", name, "reason", reason)
		s.relay.Emit(event.New(event.SessionClosedType, event.SessionClosed{
			SessionID: s.id.String(),
			Username:  name,
			Lobby:     lobby,
			Reason:    reason,
			WasActive: wasActive,
			Duration:  time.Since(s.connectedAt),
		}))
		close(s.closed)
	})
}
