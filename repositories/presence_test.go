package repositories

import (
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openPresence(t *testing.T) *PresenceRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPresenceRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func TestPresenceRepository_SetOnline_IsTaken(t *testing.T) {
	req := require.New(t)
	repo := openPresence(t)

	// Given an unknown name
	taken, err := repo.IsTaken("alice")
	req.NoError(err)
	req.False(taken)

	// When alice goes online
	req.NoError(repo.SetOnline("Alice", true))

	// Then the name is taken whatever its case
	taken, err = repo.IsTaken("ALICE")
	req.NoError(err)
	req.True(taken)

	// When she goes offline the name is free again
	req.NoError(repo.SetOnline("alice", false))
	taken, err = repo.IsTaken("alice")
	req.NoError(err)
	req.False(taken)
}

func TestPresenceRepository_Rename(t *testing.T) {
	req := require.New(t)
	repo := openPresence(t)
	req.NoError(repo.SetOnline("alice", true))
	req.NoError(repo.SetOnline("bob", true))

	// When alice tries to take bob's name
	renamed, err := repo.Rename("alice", "Bob")
	req.NoError(err)

	// Then nothing moves
	req.False(renamed)
	taken, err := repo.IsTaken("alice")
	req.NoError(err)
	req.True(taken)

	// When alice takes a free name
	renamed, err = repo.Rename("alice", "carol")
	req.NoError(err)
	req.True(renamed)

	// Then the old record is gone and the new one is online
	presences, err := repo.List()
	req.NoError(err)
	req.Len(presences, 2)
	req.Equal("bob", presences[0].Username)
	req.Equal("carol", presences[1].Username)
	req.True(presences[1].Online)
}

func TestPresenceRepository_Rename_CaseOnly(t *testing.T) {
	req := require.New(t)
	repo := openPresence(t)
	req.NoError(repo.SetOnline("alice", true))

	// When only the case changes
	renamed, err := repo.Rename("alice", "Alice")
	req.NoError(err)
	req.True(renamed)

	// Then the display name is updated in place
	presences, err := repo.List()
	req.NoError(err)
	req.Len(presences, 1)
	req.Equal("Alice", presences[0].Username)
}

func TestPresenceRepository_ResetOnline(t *testing.T) {
	req := require.New(t)
	repo := openPresence(t)
	req.NoError(repo.SetOnline("alice", true))
	req.NoError(repo.SetOnline("bob", true))
	req.NoError(repo.SetOnline("carol", false))

	// When presence is reset after a restart
	count, err := repo.ResetOnline()
	req.NoError(err)

	// Then only previously online names were touched and all are offline now
	req.Equal(2, count)
	presences, err := repo.List()
	req.NoError(err)
	req.Len(presences, 3)
	for _, presence := range presences {
		req.False(presence.Online)
		req.False(presence.UpdatedAt.IsZero())
	}
}
