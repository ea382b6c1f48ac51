package event

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestHandlers_CountTheirOwnTypes(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	counter := NewCounter()
	censored := NewCensoredHandler(log, counter)
	handlers := []Handler{
		NewMessageRoutedHandler(log, counter),
		censored,
		NewWorkerHandler(log, counter),
		NewSessionHandler(log, counter),
	}

	events := []Event{
		New(MessageRoutedType, MessageRouted{Kind: "group", Sender: "alice", Recipients: 2}),
		New(MessageRoutedType, MessageRouted{Kind: "private", Sender: "alice", Recipients: 1}),
		New(DeliveryFailedType, DeliveryFailed{Username: "bob", Reason: "outbox full"}),
		New(MessageCensoredType, MessageCensored{Sender: "alice", Lang: "en"}),
		New(RestartedAfterPanicType, WorkerRestartedAfterPanic{WorkerName: "Acceptor"}),
		New(SessionAdmittedType, SessionAdmitted{Username: "alice"}),
		New(SessionEvictedType, SessionEvicted{Username: "bob"}),
		New(ChannelCapacityType, ChannelCapacity{ChannelName: "events", Capacity: 10, Length: 9}),
		New(ChannelCapacityType, ChannelCapacity{ChannelName: "telemetry", Capacity: 10, Length: 2}),
	}

	// When every handler sees every event
	for _, e := range events {
		for _, h := range handlers {
			h.Handle(e)
		}
	}

	// Then each type is counted once per matching event
	req.Equal(uint64(2), counter.Get(MessageRoutedType))
	req.Equal(uint64(3), counter.Get(Type("DELIVERIES")))
	req.Equal(uint64(1), counter.Get(DeliveryFailedType))
	req.Equal(uint64(1), counter.Get(MessageCensoredType))
	req.Equal(uint64(1), counter.Get(RestartedAfterPanicType))
	req.Equal(uint64(1), counter.Get(SessionAdmittedType))
	req.Equal(uint64(1), counter.Get(SessionEvictedType))
	req.Equal(uint64(1), counter.Get(SaturatedType))
	req.Equal(map[string]uint64{"en": 1}, censored.ByLang())
}

func TestHandlers_IgnoreWrongPayload(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	counter := NewCounter()

	// Given an event whose payload does not match its type
	NewSessionHandler(log, counter).Handle(Event{Type: SessionClosedType, Payload: "oops"})

	// Then nothing is counted
	req.Empty(counter.Snapshot())
}
