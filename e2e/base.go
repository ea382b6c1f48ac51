package e2e

import (
	"chat-relay/client"
	"chat-relay/domain"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

const stepTimeout = 5 * time.Second

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running scenarios
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("E2E_RELAY_ADDR not set")
	}
}

// Step prints a colorized header for a scenario step in logs
func (s *BaseRelaySuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Connect opens a client on the relay under a unique name derived from prefix.
func (s *BaseRelaySuite) Connect(prefix string) *client.Client {
	ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
	defer cancel()
	c, err := client.Dial(ctx, logs.GetLoggerFromLevel(slog.LevelWarn), s.Config.RelayAddr)
	s.Require().NoError(err, "Failed to connect to relay at "+s.Config.RelayAddr)
	s.T().Cleanup(func() { _ = c.Close() })

	_, err = c.Negotiate(prefix + "_" + uuid.NewString()[:6])
	s.Require().NoError(err)
	return c
}

// Expect reads from c until a message of kind satisfying match arrives.
func (s *BaseRelaySuite) Expect(c *client.Client, kind domain.Kind, match func(domain.Message) bool) domain.Message {
	type result struct {
		msg domain.Message
		err error
	}
	found := make(chan result, 1)
	go func() {
		for {
			msg, err := c.Receive()
			if err != nil || (msg.Type == kind && match(msg)) {
				found <- result{msg, err}
				return
			}
		}
	}()
	select {
	case r := <-found:
		s.Require().NoError(r.err)
		return r.msg
	case <-time.After(stepTimeout):
		s.FailNow(fmt.Sprintf("no %s message for %s", kind, c.Name()))
		return domain.Message{}
	}
}
