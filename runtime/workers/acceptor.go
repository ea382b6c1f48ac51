package workers

import (
	"chat-relay/contract"
	"chat-relay/transport"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

const defaultPeekTimeout = 500 * time.Millisecond

// SessionServer runs one chat session over an accepted transport.
type SessionServer interface {
	Serve(ctx context.Context, transport contract.Transport)
}

// Acceptor owns the listening socket. Every accepted connection is sniffed
// (raw TCP or WebSocket upgrade) and handed to the session server in its own goroutine.
type Acceptor struct {
	log         *slog.Logger
	listener    net.Listener
	server      SessionServer
	peekTimeout time.Duration
	conns       sync.WaitGroup
}

func NewAcceptor(log *slog.Logger, listener net.Listener, server SessionServer) *Acceptor {
	return &Acceptor{log: log, listener: listener, server: server, peekTimeout: defaultPeekTimeout}
}

// WithPeekTimeout bounds how long a silent client delays protocol detection.
func (a *Acceptor) WithPeekTimeout(d time.Duration) *Acceptor {
	a.peekTimeout = d
	return a
}

func (a *Acceptor) Addr() net.Addr { return a.listener.Addr() }

// Run accepts until ctx is cancelled, then waits for every session it started.
// The listener is closed on return, so the acceptor cannot be restarted.
func (a *Acceptor) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = a.listener.Close()
	})
	defer stop()
	defer a.conns.Wait()

	a.log.Info("Listening", "addr", a.listener.Addr().String())
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				a.log.Info("Listener closed", "addr", a.listener.Addr().String())
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				a.log.Warn("Temporary accept failure", "error", err)
				continue
			}
			return err
		}
		a.conns.Add(1)
		go a.handle(ctx, conn)
	}
}

func (a *Acceptor) handle(ctx context.Context, conn net.Conn) {
	defer a.conns.Done()
	t, err := transport.Detect(conn, a.peekTimeout)
	if err != nil {
		a.log.Debug("Connection dropped before handshake", "remote", conn.RemoteAddr().String(), "error", err)
		_ = conn.Close()
		return
	}
	a.server.Serve(ctx, t)
}
