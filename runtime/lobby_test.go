package runtime

import (
	"chat-relay/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLobbyManager_Join_MovesAtomically(t *testing.T) {
	req := require.New(t)
	lobbies := NewLobbyManager()
	a := &Session{}

	// Given a session in General
	from, changed := lobbies.Join(a, "General")
	req.True(changed)
	req.Empty(from)

	// When it joins Games
	from, changed = lobbies.Join(a, "Games")

	// Then it left General for Games
	req.True(changed)
	req.Equal("General", from)
	req.Equal("Games", a.Lobby())
	req.Empty(lobbies.Members("General"))
	req.ElementsMatch([]*Session{a}, lobbies.Members("Games"))

	// And joining the same lobby again changes nothing
	_, changed = lobbies.Join(a, "Games")
	req.False(changed)
}

func TestLobbyManager_Available_SkipsEmpty(t *testing.T) {
	req := require.New(t)
	lobbies := NewLobbyManager()
	a, b := &Session{}, &Session{}

	lobbies.Join(a, "General")
	lobbies.Join(b, "Zoo")
	lobbies.Join(a, "Games")

	// General is now empty but still known
	req.True(lobbies.Exists("General"))
	req.Equal([]string{"Games", "Zoo"}, lobbies.Available())

	lobby, ok := lobbies.Leave(b)
	req.True(ok)
	req.Equal("Zoo", lobby)
	req.Equal([]string{"Games"}, lobbies.Available())

	_, ok = lobbies.Leave(b)
	req.False(ok)
}

func TestLobbyManager_Rename_UpdatesMembers(t *testing.T) {
	req := require.New(t)
	lobbies := NewLobbyManager()
	a, b := &Session{}, &Session{}
	lobbies.Join(a, "General")
	lobbies.Join(b, "General")

	// When General is renamed
	members, err := lobbies.Rename("General", "Lounge")

	// Then both members follow
	req.NoError(err)
	req.ElementsMatch([]*Session{a, b}, members)
	req.Equal("Lounge", a.Lobby())
	req.Equal("Lounge", b.Lobby())
	req.False(lobbies.Exists("General"))
	req.Empty(lobbies.Members("General"))
	req.Equal([]string{"Lounge"}, lobbies.Available())
	lobby, ok := lobbies.LobbyOf(a)
	req.True(ok)
	req.Equal("Lounge", lobby)
}

func TestLobbyManager_Rename_Conflicts(t *testing.T) {
	req := require.New(t)
	lobbies := NewLobbyManager()
	a, b := &Session{}, &Session{}
	lobbies.Join(a, "General")
	lobbies.Join(b, "Games")

	_, err := lobbies.Rename("Nowhere", "Else")
	req.ErrorIs(err, errors.ErrLobbyNotFound)

	_, err = lobbies.Rename("General", "Games")
	req.ErrorIs(err, errors.ErrLobbyExists)

	_, err = lobbies.Rename("General", "")
	req.ErrorIs(err, errors.ErrBlankLobby)

	// An empty lobby with the target name is replaced
	lobbies.Join(b, "Other")
	_, err = lobbies.Rename("General", "Games")
	req.NoError(err)
	req.Equal("Games", a.Lobby())
	req.Equal([]string{"Games", "Other"}, lobbies.Available())
}
