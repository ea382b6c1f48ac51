package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"sort"
	"sync"

	"github.com/samber/lo"
)

type entry struct {
	name    string
	session *Session
}

// Registry is the process-wide directory of active sessions.
// Keys are folded display names, so uniqueness is case-insensitive.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]entry // map folded name -> session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]entry)}
}

// Insert claims name for s. It fails with ErrNameTaken when another
// session already holds any case variant of name.
func (r *Registry) Insert(name string, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.NameKey(name)
	if current, ok := r.sessions[key]; ok && current.session != s {
		return errors.ErrNameTaken
	}
	r.sessions[key] = entry{name: name, session: s}
	return nil
}

// Remove drops name only while it still points at s, so a late teardown
// never evicts a newer session that reused the name.
func (r *Registry) Remove(name string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.NameKey(name)
	current, ok := r.sessions[key]
	if !ok || current.session != s {
		return false
	}
	delete(r.sessions, key)
	return true
}

// Rename moves s from oldName to newName in one step.
// Changing only the case of one's own name is allowed.
func (r *Registry) Rename(oldName, newName string, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldKey, newKey := domain.NameKey(oldName), domain.NameKey(newName)
	current, ok := r.sessions[oldKey]
	if !ok || current.session != s {
		return errors.ErrSessionClosed
	}
	if holder, taken := r.sessions[newKey]; taken && holder.session != s {
		return errors.ErrNameTaken
	}
	delete(r.sessions, oldKey)
	r.sessions[newKey] = entry{name: newName, session: s}
	return nil
}

func (r *Registry) Lookup(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[domain.NameKey(name)]
	return e.session, ok
}

// Taken reports whether name is held by a session other than except.
func (r *Registry) Taken(name string, except *Session) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[domain.NameKey(name)]
	return ok && e.session != except
}

// Snapshot returns the active sessions at call time.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.MapToSlice(r.sessions, func(_ string, e entry) *Session { return e.session })
}

// Names returns the display names of every active session, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := lo.MapToSlice(r.sessions, func(_ string, e entry) string { return e.name })
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
