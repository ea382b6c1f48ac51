package transport

import (
	"chat-relay/errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WSConn adapts an upgraded WebSocket connection.
// Each text or binary frame may carry one or more lines.
type WSConn struct {
	conn      net.Conn
	rw        io.ReadWriter
	writer    *lockedWriter
	pending   []string
	closeOnce sync.Once
	closeErr  error
}

// lockedWriter serializes frames written by the read path (control replies)
// and by the session writer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type readWriter struct {
	io.Reader
	io.Writer
}

// NewWSConn wraps a connection whose handshake already completed.
// reader may hold bytes buffered before the upgrade.
func NewWSConn(conn net.Conn, reader io.Reader) *WSConn {
	if reader == nil {
		reader = conn
	}
	writer := &lockedWriter{w: conn}
	return &WSConn{conn: conn, rw: readWriter{Reader: reader, Writer: writer}, writer: writer}
}

// Upgrade performs the server side of the WebSocket handshake on conn.
func Upgrade(conn net.Conn, reader io.Reader) (*WSConn, error) {
	if reader == nil {
		reader = conn
	}
	if _, err := ws.Upgrade(readWriter{Reader: reader, Writer: conn}); err != nil {
		return nil, fmt.Errorf("websocket upgrade: %w", err)
	}
	return NewWSConn(conn, reader), nil
}

func (c *WSConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		data, op, err := wsutil.ReadClientData(c.rw)
		if err != nil {
			return "", err
		}
		if op != ws.OpText && op != ws.OpBinary {
			return "", fmt.Errorf("%w: %v", errors.ErrUnsupportedFrame, op)
		}
		c.pending = strings.Split(strings.TrimRight(string(data), "\r\n"), "\n")
	}
	line := c.pending[0]
	c.pending = c.pending[1:]
	return trimLine(line), nil
}

func (c *WSConn) WriteLine(line string) error {
	return wsutil.WriteServerText(c.writer, []byte(line))
}

func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		_ = wsutil.WriteServerMessage(c.writer, ws.OpClose, nil)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *WSConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
