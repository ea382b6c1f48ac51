package transport

import (
	"bufio"
	"bytes"
	"chat-relay/contract"
	"errors"
	"net"
	"os"
	"slices"
	"strings"
	"time"
)

var httpMethods = []string{"GET", "POST", "PUT", "HEAD", "OPTIONS", "PATCH", "DELETE", "CONNECT"}

// maxRequestLine bounds how much of the first line Detect looks at.
const maxRequestLine = 1024

// Detect peeks at the first line of conn and returns the matching transport.
// An HTTP request line means a WebSocket upgrade, anything else is a raw TCP
// client. A first line still incomplete when peekTimeout elapses is TCP.
func Detect(conn net.Conn, peekTimeout time.Duration) (contract.Transport, error) {
	reader := bufio.NewReaderSize(conn, maxRequestLine)

	if peekTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(peekTimeout)); err != nil {
			return nil, err
		}
	}
	line, err := peekLine(reader)
	if peekTimeout > 0 {
		if err := conn.SetReadDeadline(time.Time{}); err != nil {
			return nil, err
		}
	}
	if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		return nil, err
	}

	if IsHTTP(line) {
		return Upgrade(conn, reader)
	}
	return NewLineConn(conn, reader), nil
}

// peekLine returns the buffered bytes up to the first newline without
// consuming them, or everything buffered when no newline arrived in time.
func peekLine(reader *bufio.Reader) ([]byte, error) {
	n := 1
	for {
		if _, err := reader.Peek(n); err != nil {
			buf, _ := reader.Peek(reader.Buffered())
			return buf, err
		}
		buf, _ := reader.Peek(reader.Buffered())
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			return buf[:i], nil
		}
		if len(buf) >= maxRequestLine {
			return buf, nil
		}
		n = len(buf) + 1
	}
}

// IsHTTP reports whether line is an HTTP/1.x request line,
// e.g. "GET /chat HTTP/1.1".
func IsHTTP(line []byte) bool {
	parts := strings.Split(strings.TrimSuffix(string(line), "\r"), " ")
	if len(parts) != 3 || !strings.HasPrefix(parts[1], "/") {
		return false
	}
	return slices.Contains(httpMethods, parts[0]) && strings.HasPrefix(parts[2], "HTTP/1.")
}
