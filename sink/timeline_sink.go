package sink

import (
	"chat-relay/domain/event"
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultTimelineSize = 100

// Entry is one line of relay activity.
type Entry struct {
	At   time.Time
	Text string
}

// Timeline holds the most recent relay activity, oldest first.
type Timeline struct {
	mu      sync.RWMutex
	size    int
	entries []Entry
}

func NewTimeline(size int) *Timeline {
	if size <= 0 {
		size = defaultTimelineSize
	}
	return &Timeline{size: size}
}

func (t *Timeline) Consume(_ context.Context, e event.Event) error {
	text, ok := describe(e)
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{At: e.CreatedAt, Text: text})
	if len(t.entries) > t.size {
		t.entries = t.entries[len(t.entries)-t.size:]
	}
	return nil
}

// Entries returns a copy of the retained activity.
func (t *Timeline) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res := make([]Entry, len(t.entries))
	copy(res, t.entries)
	return res
}

func describe(e event.Event) (string, bool) {
	switch evt := e.Payload.(type) {
	case event.SessionAdmitted:
		return fmt.Sprintf("%s joined %s from %s", evt.Username, evt.Lobby, evt.RemoteAddr), true
	case event.SessionClosed:
		if !evt.WasActive {
			return "", false
		}
		return fmt.Sprintf("%s left after %s (%s)", evt.Username, evt.Duration.Round(time.Second), evt.Reason), true
	case event.UsernameChanged:
		return fmt.Sprintf("%s is now %s", evt.OldName, evt.NewName), true
	case event.LobbyJoined:
		return fmt.Sprintf("%s moved from %s to %s", evt.Username, evt.From, evt.To), true
	case event.LobbyRenamed:
		return fmt.Sprintf("lobby %s renamed to %s", evt.OldName, evt.NewName), true
	case event.SessionEvicted:
		return fmt.Sprintf("%s evicted after %s of silence", evt.Username, evt.Silence.Round(time.Millisecond)), true
	}
	return "", false
}
