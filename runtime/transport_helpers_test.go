package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/protocol"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const waitFor = time.Second

// fakeTransport is an in-memory peer: the test writes into in and reads what
// the relay wrote from out.
type fakeTransport struct {
	in     chan string
	out    chan string
	closed chan struct{}
	once   sync.Once
	addr   string
}

func newFakeTransport(addr string, outBuffer int) *fakeTransport {
	return &fakeTransport{
		in:     make(chan string, 16),
		out:    make(chan string, outBuffer),
		closed: make(chan struct{}),
		addr:   addr,
	}
}

func (f *fakeTransport) ReadLine() (string, error) {
	select {
	case line := <-f.in:
		return line, nil
	case <-f.closed:
		return "", io.EOF
	}
}

func (f *fakeTransport) WriteLine(line string) error {
	select {
	case <-f.closed:
		return io.ErrClosedPipe
	default:
	}
	select {
	case f.out <- line:
		return nil
	case <-f.closed:
		return io.ErrClosedPipe
	}
}

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) RemoteAddr() string { return f.addr }

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// peer wraps a fake transport with test assertions.
type peer struct {
	t  *testing.T
	tr *fakeTransport
}

func (p peer) writeLine(line string) {
	p.t.Helper()
	select {
	case p.tr.in <- line:
	case <-time.After(waitFor):
		require.FailNow(p.t, "relay did not read line", line)
	}
}

func (p peer) send(msg domain.Message) {
	p.t.Helper()
	line, err := protocol.Encode(msg)
	require.NoError(p.t, err)
	p.writeLine(line)
}

func (p peer) readLine() string {
	p.t.Helper()
	select {
	case line := <-p.tr.out:
		return line
	case <-time.After(waitFor):
		require.FailNow(p.t, "no line received")
		return ""
	}
}

func (p peer) receive() domain.Message {
	p.t.Helper()
	msg, err := protocol.Decode(p.readLine())
	require.NoError(p.t, err)
	return msg
}

// receiveType skips heartbeat probes and returns the next message of kind.
func (p peer) receiveType(kind domain.Kind) domain.Message {
	p.t.Helper()
	for {
		msg := p.receive()
		if msg.Type == kind {
			return msg
		}
		require.Equal(p.t, domain.Ping, msg.Type, "unexpected message %+v", msg)
	}
}

func (p peer) expectNothing(d time.Duration) {
	p.t.Helper()
	select {
	case line := <-p.tr.out:
		require.FailNow(p.t, "unexpected line", line)
	case <-time.After(d):
	}
}

// drain discards everything already queued for the peer.
func (p peer) drain() {
	for {
		select {
		case <-p.tr.out:
		case <-time.After(30 * time.Millisecond):
			return
		}
	}
}

type harness struct {
	t      *testing.T
	relay  *Relay
	events chan event.Event
	ctx    context.Context
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.HeartbeatInterval = time.Hour
	opts.HeartbeatTimeout = time.Hour
	return opts
}

func newHarness(t *testing.T, opts Options) *harness {
	return newHarnessWith(t, opts, nil)
}

func newHarnessWith(t *testing.T, opts Options, store contract.PresenceStore) *harness {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	events := make(chan event.Event, 256)
	relay := NewRelay(log, NewRegistry(), NewLobbyManager(), store, events, opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		relay.Wait()
	})
	return &harness{t: t, relay: relay, events: events, ctx: ctx}
}

// open starts a session without negotiating.
func (h *harness) open(addr string) peer {
	tr := newFakeTransport(addr, 256)
	go h.relay.Serve(h.ctx, tr)
	return peer{t: h.t, tr: tr}
}

// connect negotiates name and waits until the session is admitted.
func (h *harness) connect(name string) peer {
	h.t.Helper()
	p := h.open(name + "-addr")
	p.writeLine(name)
	suggestion := p.readLine()
	require.True(h.t, strings.HasPrefix(suggestion, protocol.SuggestedUsername), suggestion)
	p.writeLine("")
	accepted := p.readLine()
	require.True(h.t, strings.HasPrefix(accepted, protocol.UsernameAccepted), accepted)
	return p
}

func (h *harness) session(name string) *Session {
	h.t.Helper()
	s, ok := h.relay.registry.Lookup(name)
	require.True(h.t, ok, "%s is not registered", name)
	return s
}

func (h *harness) drainAll(peers ...peer) {
	for _, p := range peers {
		p.drain()
	}
}

func (p peer) decode(line string) domain.Message {
	msg, err := protocol.Decode(line)
	if err != nil && p.t != nil {
		require.NoError(p.t, err)
	}
	return msg
}
