package workers

import (
	"bufio"
	"chat-relay/contract"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// echoServer answers every line with the same line, upper-cased.
type echoServer struct{}

func (echoServer) Serve(ctx context.Context, t contract.Transport) {
	defer func() { _ = t.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = t.Close() })
	defer stop()
	for {
		line, err := t.ReadLine()
		if err != nil {
			return
		}
		if err := t.WriteLine(strings.ToUpper(line)); err != nil {
			return
		}
	}
}

func startAcceptor(t *testing.T) (*Acceptor, context.CancelFunc, chan error) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	acceptor := NewAcceptor(log, listener, echoServer{}).WithPeekTimeout(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- acceptor.Run(ctx) }()
	return acceptor, cancel, done
}

func TestAcceptor_ServesRawTCP(t *testing.T) {
	req := require.New(t)
	acceptor, cancel, done := startAcceptor(t)

	// Given a raw TCP client
	conn, err := net.Dial("tcp", acceptor.Addr().String())
	req.NoError(err)
	defer conn.Close()

	// When it sends a line
	_, err = conn.Write([]byte("hello\n"))
	req.NoError(err)

	// Then the session server answers over the same stream
	req.NoError(conn.SetReadDeadline(time.Now().Add(time.Second)))
	line, err := bufio.NewReader(conn).ReadString('\n')
	req.NoError(err)
	req.Equal("HELLO\n", line)

	cancel()
	req.NoError(<-done)
}

func TestAcceptor_ServesWebSocket(t *testing.T) {
	req := require.New(t)
	acceptor, cancel, done := startAcceptor(t)

	// Given a WebSocket client
	conn, _, _, err := ws.Dial(context.Background(), "ws://"+acceptor.Addr().String()+"/")
	req.NoError(err)
	defer conn.Close()

	// When it sends a text frame
	req.NoError(wsutil.WriteClientText(conn, []byte("hi")))

	// Then the reply comes back as a text frame
	req.NoError(conn.SetReadDeadline(time.Now().Add(time.Second)))
	payload, err := wsutil.ReadServerText(conn)
	req.NoError(err)
	req.Equal("HI", strings.TrimRight(string(payload), "\n"))

	cancel()
	req.NoError(<-done)
}

func TestAcceptor_StopsOnCancel(t *testing.T) {
	req := require.New(t)
	acceptor, cancel, done := startAcceptor(t)

	// When the context is cancelled
	cancel()

	// Then Run returns and the port no longer accepts
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("acceptor did not stop")
	}
	_, err := net.DialTimeout("tcp", acceptor.Addr().String(), 100*time.Millisecond)
	req.Error(err)
}
