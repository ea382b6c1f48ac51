package runtime

import (
	"chat-relay/errors"
	"sort"
	"sync"

	"github.com/samber/lo"
)

type Set map[*Session]struct{}

// LobbyManager partitions registered sessions into named lobbies.
// A session belongs to at most one lobby. Empty lobbies are kept but
// never listed.
type LobbyManager struct {
	mu       sync.RWMutex
	lobbies  map[string]Set      // map lobby -> members
	memberOf map[*Session]string // map member -> lobby
}

func NewLobbyManager() *LobbyManager {
	return &LobbyManager{
		lobbies:  make(map[string]Set),
		memberOf: make(map[*Session]string),
	}
}

// Join moves s into lobby, creating it on first reference.
// It returns the previous lobby and whether anything changed.
func (m *LobbyManager) Join(s *Session, lobby string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, member := m.memberOf[s]
	if member && from == lobby {
		return from, false
	}
	if member {
		delete(m.lobbies[from], s)
	}
	if _, ok := m.lobbies[lobby]; !ok {
		m.lobbies[lobby] = make(Set)
	}
	m.lobbies[lobby][s] = struct{}{}
	m.memberOf[s] = lobby
	s.setLobby(lobby)
	return from, true
}

// Leave removes s from its lobby and returns the lobby it left.
func (m *LobbyManager) Leave(s *Session) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lobby, ok := m.memberOf[s]
	if !ok {
		return "", false
	}
	delete(m.lobbies[lobby], s)
	delete(m.memberOf, s)
	return lobby, true
}

// Members returns a snapshot of the sessions currently in lobby.
func (m *LobbyManager) Members(lobby string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Keys(m.lobbies[lobby])
}

// LobbyOf returns the lobby s belongs to.
func (m *LobbyManager) LobbyOf(s *Session) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lobby, ok := m.memberOf[s]
	return lobby, ok
}

func (m *LobbyManager) Exists(lobby string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.lobbies[lobby]
	return ok
}

// Rename moves the whole member set of oldName under newName and updates
// every member's lobby. An empty lobby already named newName is replaced,
// a non-empty one makes the rename fail.
func (m *LobbyManager) Rename(oldName, newName string) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.lobbies[oldName]
	if !ok {
		return nil, errors.ErrLobbyNotFound
	}
	if newName == "" {
		return nil, errors.ErrBlankLobby
	}
	if newName == oldName {
		return lo.Keys(members), nil
	}
	if target, exists := m.lobbies[newName]; exists && len(target) > 0 {
		return nil, errors.ErrLobbyExists
	}

	delete(m.lobbies, oldName)
	m.lobbies[newName] = members
	for s := range members {
		m.memberOf[s] = newName
		s.setLobby(newName)
	}
	return lo.Keys(members), nil
}

// Available lists the non-empty lobbies, sorted.
func (m *LobbyManager) Available() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.lobbies))
	for name, members := range m.lobbies {
		if len(members) > 0 {
			names = append(names, name)
		}
	}
	m.mu.RUnlock()
	sort.Strings(names)
	return names
}
