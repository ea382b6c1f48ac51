package runtime

import (
	"chat-relay/domain"
	"chat-relay/protocol"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// push and pull never fail the test themselves so they can run off the test goroutine.
func push(tr *fakeTransport, line string) error {
	select {
	case tr.in <- line:
		return nil
	case <-tr.closed:
		return io.ErrClosedPipe
	case <-time.After(waitFor):
		return fmt.Errorf("relay did not read %q", line)
	}
}

func pull(tr *fakeTransport) (string, error) {
	select {
	case line := <-tr.out:
		return line, nil
	case <-time.After(waitFor):
		return "", fmt.Errorf("no line from relay")
	}
}

func pushMessage(tr *fakeTransport, msg domain.Message) error {
	line, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return push(tr, line)
}

// negotiateAs keeps proposing name and accepting the suggestion until admitted.
func negotiateAs(tr *fakeTransport, name string) (string, error) {
	for {
		if err := push(tr, name); err != nil {
			return "", err
		}
		line, err := pull(tr)
		if err != nil {
			return "", err
		}
		if keyword, _ := protocol.ParseReply(line); keyword != protocol.SuggestedUsername {
			return "", fmt.Errorf("unexpected line %q", line)
		}
		if err := push(tr, ""); err != nil {
			return "", err
		}
		if line, err = pull(tr); err != nil {
			return "", err
		}
		switch keyword, arg := protocol.ParseReply(line); keyword {
		case protocol.UsernameAccepted:
			return arg, nil
		case protocol.UsernameRejected:
			continue
		default:
			return "", fmt.Errorf("unexpected line %q", line)
		}
	}
}

func TestRelay_ConcurrentAdmissionsKeepNamesUnique(t *testing.T) {
	req := require.New(t)
	opts := testOptions()
	opts.NegotiationAttempts = 0
	h := newHarness(t, opts)
	const peers = 40

	// Given many peers all proposing alice at once
	names := make([]string, peers)
	errs := make([]error, peers)
	var wg sync.WaitGroup
	for i := 0; i < peers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr := newFakeTransport(fmt.Sprintf("peer-%d", i), 256)
			go h.relay.Serve(h.ctx, tr)
			names[i], errs[i] = negotiateAs(tr, "alice")
		}()
	}
	wg.Wait()

	// Then every peer got in under its own name
	for _, err := range errs {
		req.NoError(err)
	}
	keys := lo.Map(names, func(name string, _ int) string { return domain.NameKey(name) })
	req.Len(lo.Uniq(keys), peers)
	req.Equal(peers, h.relay.registry.Count())
	req.Contains(names, "alice")
	for _, name := range names {
		s, ok := h.relay.registry.Lookup(name)
		req.True(ok, name)
		req.Equal(domain.Active, s.State())
	}
}

func TestRelay_ConcurrentLobbyTrafficStaysConsistent(t *testing.T) {
	req := require.New(t)
	opts := testOptions()
	opts.OutboxSize = 1024
	h := newHarness(t, opts)
	const peers, rounds = 12, 20

	// Given connected peers whose output is drained in the background
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	transports := make([]*fakeTransport, peers)
	sessions := make([]*Session, peers)
	for i := range transports {
		name := fmt.Sprintf("p%02d", i)
		p := h.connect(name)
		transports[i], sessions[i] = p.tr, h.session(name)
		go func(tr *fakeTransport) {
			for {
				select {
				case <-tr.out:
				case <-tr.closed:
					return
				case <-done:
					return
				}
			}
		}(p.tr)
	}

	// When they all join, chat, rename lobbies and some quit at the same time
	errs := make(chan error, peers)
	var wg sync.WaitGroup
	for i, tr := range transports {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				msgs := []domain.Message{
					{Type: domain.JoinLobby, LobbyName: fmt.Sprintf("room-%d", (i+j)%3)},
					{Type: domain.Group, Content: fmt.Sprintf("hi %d", j)},
					{Type: domain.ChangeLobbyName, NewLobbyName: fmt.Sprintf("room-%d", (i+j+1)%4)},
					{Type: domain.PlayerList},
				}
				for _, msg := range msgs {
					if err := pushMessage(tr, msg); err != nil {
						errs <- err
						return
					}
				}
			}
			if i%4 == 0 {
				if err := pushMessage(tr, domain.Message{Type: domain.Quit}); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	// Then the quitters are gone
	remaining := 0
	for i, s := range sessions {
		if i%4 != 0 {
			remaining++
			continue
		}
		select {
		case <-s.Done():
		case <-time.After(waitFor):
			req.FailNow("quitter still connected", s.Name())
		}
	}

	// And registry, lobbies and sessions agree once traffic settles
	req.Eventually(func() bool {
		registered := h.relay.registry.Snapshot()
		if len(registered) != remaining {
			return false
		}
		for _, s := range registered {
			lobby, ok := h.relay.lobbies.LobbyOf(s)
			if !ok || !s.active() || lobby != s.Lobby() {
				return false
			}
		}
		members := 0
		for _, lobby := range h.relay.lobbies.Available() {
			for _, m := range h.relay.lobbies.Members(lobby) {
				if !m.active() || m.Lobby() != lobby {
					return false
				}
				members++
			}
		}
		return members == remaining
	}, waitFor, 10*time.Millisecond)
}
