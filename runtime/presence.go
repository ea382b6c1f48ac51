package runtime

import (
	"chat-relay/contract"
	"log/slog"
	"sync"
)

// presenceMirror applies every registry change that affects who is online and
// writes it through to the optional presence store on the caller's goroutine.
// mu makes each registry change and its store write one step, so two sessions
// trading a name never interleave their writes.
// Uniqueness is only ever decided by the registry.
type presenceMirror struct {
	mu       sync.Mutex
	log      *slog.Logger
	registry *Registry
	store    contract.PresenceStore
}

func newPresenceMirror(log *slog.Logger, registry *Registry, store contract.PresenceStore) *presenceMirror {
	return &presenceMirror{log: log, registry: registry, store: store}
}

// claim inserts name for s and records it online.
func (p *presenceMirror) claim(name string, s *Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.registry.Insert(name, s); err != nil {
		return err
	}
	if p.store == nil {
		return nil
	}
	if stale, err := p.store.IsTaken(name); err == nil && stale {
		p.log.Warn("Overwriting stale presence record", "name", name)
	}
	p.setOnline(name, true)
	return nil
}

// release records name offline and drops it if s still holds it.
// The store is written first so it never lags behind the registry.
func (p *presenceMirror) release(name string, s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if holder, ok := p.registry.Lookup(name); !ok || holder != s {
		return
	}
	if p.store != nil {
		p.setOnline(name, false)
	}
	p.registry.Remove(name, s)
}

// rename moves s from oldName to newName in the registry and the store.
func (p *presenceMirror) rename(oldName, newName string, s *Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.registry.Rename(oldName, newName, s); err != nil {
		return err
	}
	if p.store == nil {
		return nil
	}
	renamed, err := p.store.Rename(oldName, newName)
	if err != nil {
		p.log.Error("Presence rename failed", "old", oldName, "new", newName, "error", err)
		return nil
	}
	if !renamed {
		// the registry already granted newName, so the store record is stale
		p.log.Warn("Overwriting stale presence record", "name", newName)
		p.setOnline(oldName, false)
		p.setOnline(newName, true)
	}
	return nil
}

func (p *presenceMirror) setOnline(name string, online bool) {
	if err := p.store.SetOnline(name, online); err != nil {
		p.log.Error("Presence update failed", "name", name, "online", online, "error", err)
	}
}
