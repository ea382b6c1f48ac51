package event

import (
	"chat-relay/errors"
	"log/slog"
	"sync"
)

type CensoredHandler struct {
	mu      sync.Mutex
	log     *slog.Logger
	counter *Counter
	byLang  map[string]uint64
}

func NewCensoredHandler(log *slog.Logger, counter *Counter) *CensoredHandler {
	return &CensoredHandler{
		log:     log,
		counter: counter,
		byLang:  make(map[string]uint64),
	}
}

func (h *CensoredHandler) Handle(event Event) {
	switch event.Type {
	case MessageCensoredType:
		payload, ok := event.Payload.(MessageCensored)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.mu.Lock()
		h.byLang[payload.Lang]++
		h.mu.Unlock()
		h.counter.Increment(MessageCensoredType)
	}
}

// ByLang returns how many censored messages were seen per detected language.
func (h *CensoredHandler) ByLang() map[string]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	res := make(map[string]uint64, len(h.byLang))
	for k, v := range h.byLang {
		res[k] = v
	}
	return res
}
