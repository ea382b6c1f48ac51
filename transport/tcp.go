// Package transport adapts accepted connections to line-oriented streams.
// Plain TCP clients exchange newline-terminated lines; WebSocket clients
// exchange one line per text frame.
package transport

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
)

// LineConn adapts a raw net.Conn carrying newline-delimited UTF-8.
type LineConn struct {
	conn      net.Conn
	reader    *bufio.Reader
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewLineConn wraps conn. reader may hold bytes already peeked from conn.
func NewLineConn(conn net.Conn, reader *bufio.Reader) *LineConn {
	if reader == nil {
		reader = bufio.NewReader(conn)
	}
	return &LineConn{conn: conn, reader: reader}
}

func (c *LineConn) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		// A last unterminated line is still delivered, EOF comes on the next call
		if err == io.EOF && line != "" {
			return trimLine(line), nil
		}
		return "", err
	}
	return trimLine(line), nil
}

func (c *LineConn) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

func (c *LineConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *LineConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func trimLine(line string) string {
	return strings.TrimRight(line, "\r\n")
}
