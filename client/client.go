// Package client speaks the relay protocol over a raw TCP connection.
package client

import (
	"bufio"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/protocol"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
)

type Client struct {
	log     *slog.Logger
	conn    net.Conn
	reader  *bufio.Reader
	writeMu sync.Mutex
	name    string
}

func Dial(ctx context.Context, log *slog.Logger, addr string) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{log: log, conn: conn, reader: bufio.NewReader(conn)}, nil
}

func (c *Client) Name() string { return c.name }

// Negotiate proposes a username and accepts whatever the relay suggests back.
// A rejection ends the negotiation with the relay's reason.
func (c *Client) Negotiate(proposal string) (string, error) {
	if err := c.writeLine(proposal); err != nil {
		return "", err
	}
	for {
		line, err := c.readLine()
		if err != nil {
			return "", err
		}
		keyword, arg := protocol.ParseReply(line)
		switch keyword {
		case protocol.SuggestedUsername:
			c.log.Debug("Username suggested", "name", arg)
			if err := c.writeLine(""); err != nil {
				return "", err
			}
		case protocol.UsernameAccepted:
			c.name = arg
			return arg, nil
		case protocol.UsernameRejected:
			return "", fmt.Errorf("%w: %s", errors.ErrNegotiationFailed, arg)
		default:
			c.log.Debug("Ignoring line during negotiation", "line", line)
		}
	}
}

func (c *Client) Send(msg domain.Message) error {
	line, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return c.writeLine(line)
}

// Receive returns the next message for the user. Heartbeat probes are
// answered on the fly and never surface.
func (c *Client) Receive() (domain.Message, error) {
	for {
		line, err := c.readLine()
		if err != nil {
			return domain.Message{}, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		msg, err := protocol.Decode(line)
		if err != nil {
			c.log.Warn("Discarding undecodable line", "error", err)
			continue
		}
		if msg.Type == domain.Ping {
			if err := c.Send(domain.NewPong(msg.Sender)); err != nil {
				return domain.Message{}, err
			}
			continue
		}
		return msg, nil
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) writeLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

func (c *Client) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		if line != "" && err == io.EOF {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
