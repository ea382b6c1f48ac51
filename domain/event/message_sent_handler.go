package event

import (
	"chat-relay/errors"
	"log/slog"
)

// MessageRoutedHandler counts routed messages and the deliveries they produced.
// It is triggered each time the router dispatches a chat line.
type MessageRoutedHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewMessageRoutedHandler(log *slog.Logger, counter *Counter) *MessageRoutedHandler {
	return &MessageRoutedHandler{log: log, counter: counter}
}

func (h *MessageRoutedHandler) Handle(event Event) {
	switch event.Type {
	case MessageRoutedType:
		payload, ok := event.Payload.(MessageRouted)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(MessageRoutedType)
		h.counter.Add(Type("DELIVERIES"), uint64(payload.Recipients))
	case DeliveryFailedType:
		if _, ok := event.Payload.(DeliveryFailed); !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(DeliveryFailedType)
	}
}
