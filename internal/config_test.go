package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)

	// Given an empty environment
	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	// Then every default is applied and valid
	req.NoError(config.Validate())
	req.Equal(2222, config.Port)
	req.Equal(5*time.Second, config.HeartbeatInterval)
	req.Equal(15*time.Second, config.HeartbeatTimeout)
	req.Equal(500*time.Millisecond, config.PeekTimeout)
	req.Equal("General", config.DefaultLobby)
	req.Equal("0.0.0.0:2222", config.Address())
	req.Empty(config.Words())
}

func TestConfig_FromEnviron(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "4000")
	t.Setenv("CENSORED_WORDS", "foo, bar,,baz ")
	t.Setenv("HEARTBEAT_INTERVAL", "1s")
	t.Setenv("HEARTBEAT_TIMEOUT", "3s")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.NoError(config.Validate())
	req.Equal(4000, config.Port)
	req.Equal([]string{"foo", "bar", "baz"}, config.Words())
}

func TestConfig_Validate(t *testing.T) {
	req := require.New(t)

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	// When the timeout is not larger than the interval
	config.HeartbeatTimeout = config.HeartbeatInterval

	// Then validation fails
	req.Error(config.Validate())
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("##")
	req.Error(err)
}
