package event

import (
	"chat-relay/errors"
	"log/slog"
)

// SessionHandler tracks the session lifecycle: admissions, closes and evictions.
type SessionHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewSessionHandler(log *slog.Logger, counter *Counter) *SessionHandler {
	return &SessionHandler{log: log, counter: counter}
}

func (h *SessionHandler) Handle(event Event) {
	switch event.Type {
	case SessionAdmittedType:
		if _, ok := event.Payload.(SessionAdmitted); !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(SessionAdmittedType)
	case SessionClosedType:
		if _, ok := event.Payload.(SessionClosed); !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(SessionClosedType)
	case SessionEvictedType:
		payload, ok := event.Payload.(SessionEvicted)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(SessionEvictedType)
		h.log.Debug("Session evicted", "name", payload.Username, "silence", payload.Silence)
	}
}
