package observability

import (
	"chat-relay/domain/event"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Handle(t *testing.T) {
	req := require.New(t)
	m := NewMetrics(logs.GetLoggerFromLevel(slog.LevelDebug))

	// Given a short relay history
	events := []event.Event{
		event.New(event.SessionAdmittedType, event.SessionAdmitted{Username: "alice"}),
		event.New(event.SessionAdmittedType, event.SessionAdmitted{Username: "bob"}),
		event.New(event.MessageRoutedType, event.MessageRouted{Kind: "group", Sender: "alice", Recipients: 1}),
		event.New(event.MessageCensoredType, event.MessageCensored{Sender: "alice", Lang: "en"}),
		event.New(event.SessionClosedType, event.SessionClosed{Username: "bob", Reason: "quit", WasActive: true}),
		event.New(event.SessionClosedType, event.SessionClosed{Reason: "negotiation aborted"}),
		event.New(event.RestartedAfterPanicType, event.WorkerRestartedAfterPanic{WorkerName: "Acceptor"}),
		event.New(event.ChannelCapacityType, event.ChannelCapacity{ChannelName: "events", Capacity: 8, Length: 3}),
	}

	// When every event is handled
	for _, e := range events {
		m.Handle(e)
	}

	// Then the scrape reflects it
	body := scrape(t, m)
	req.Contains(body, "chat_relay_sessions_active 1")
	req.Contains(body, "chat_relay_sessions_admitted_total 2")
	req.Contains(body, `chat_relay_sessions_closed_total{reason="quit"} 1`)
	req.Contains(body, `chat_relay_sessions_closed_total{reason="negotiation aborted"} 1`)
	req.Contains(body, `chat_relay_messages_routed_total{kind="group"} 1`)
	req.Contains(body, `chat_relay_messages_censored_total{lang="en"} 1`)
	req.Contains(body, `chat_relay_worker_restarts_total{worker="Acceptor"} 1`)
	req.Contains(body, `chat_relay_channel_length{channel="events"} 3`)
	req.Contains(body, `chat_relay_channel_capacity{channel="events"} 8`)
}
