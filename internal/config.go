package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Config struct {
	Host                string        `env:"HOST,default=0.0.0.0" validate:"required"`
	Port                int           `env:"PORT,default=2222" validate:"min=0,max=65535"`
	LogLevel            string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	BadgerFilepath      string        `env:"BADGER_FILEPATH"`
	OutboxSize          int           `env:"OUTBOX_SIZE,default=64" validate:"min=1"`
	EventBufferSize     int           `env:"EVENT_BUFFER_SIZE,default=1024" validate:"min=1"`
	HeartbeatInterval   time.Duration `env:"HEARTBEAT_INTERVAL,default=5s" validate:"gt=0"`
	HeartbeatTimeout    time.Duration `env:"HEARTBEAT_TIMEOUT,default=15s" validate:"gtfield=HeartbeatInterval"`
	NegotiationAttempts int           `env:"NEGOTIATION_ATTEMPTS,default=10" validate:"min=0"`
	RestartInterval     time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"gt=0"`
	SinkTimeout         time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"gt=0"`
	MetricInterval      time.Duration `env:"METRIC_INTERVAL,default=10s" validate:"gt=0"`
	PeekTimeout         time.Duration `env:"PEEK_TIMEOUT,default=500ms" validate:"gt=0"`
	DebugPort           int           `env:"DEBUG_PORT,default=0" validate:"min=0,max=65535"`
	DefaultLobby        string        `env:"DEFAULT_LOBBY,default=General" validate:"required"`
	DefaultUsername     string        `env:"DEFAULT_USERNAME,default=Guest" validate:"required,max=32"`
	CensoredWords       string        `env:"CENSORED_WORDS"`
	Moderation          bool          `env:"MODERATION_ENABLED,default=false"`
	CharReplacement     string        `env:"CHARACTER_REPLACEMENT,default=*"`
}

// Validate checks the decoded configuration against its struct tags.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Address is the listen address of the chat port.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Words splits CENSORED_WORDS on commas, dropping blanks.
func (c Config) Words() []string {
	words := lo.Map(strings.Split(c.CensoredWords, ","), func(w string, _ int) string {
		return strings.TrimSpace(w)
	})
	return lo.Compact(words)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
