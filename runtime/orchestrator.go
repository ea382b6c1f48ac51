package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime/workers"
	"chat-relay/sink"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

// Settings tune the supporting pipeline around the relay.
type Settings struct {
	EventBufferSize int
	SinkTimeout     time.Duration
	MetricInterval  time.Duration
	PeekTimeout     time.Duration
	DebugPort       int
	Moderation      bool
	CensoredWords   []string
	CharReplacement rune
}

func (s Settings) withDefaults() Settings {
	if s.EventBufferSize <= 0 {
		s.EventBufferSize = 1024
	}
	if s.SinkTimeout <= 0 {
		s.SinkTimeout = 2 * time.Second
	}
	if s.MetricInterval <= 0 {
		s.MetricInterval = 10 * time.Second
	}
	return s
}

// Orchestrator assembles the relay with its supervised workers:
// the acceptor, the event fanout, telemetry and the optional debug server.
type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	supervisor *workers.Supervisor
	acceptor   *workers.Acceptor
	relay      *Relay
	presence   repositories.IPresenceRepository
	events     chan event.Event
	telemetry  chan event.Event
	counter    *event.Counter
	metrics    *observability.Metrics
	timeline   *sink.Timeline
	settings   Settings
}

// NewOrchestrator wires a relay listening on listener. presence may be nil.
func NewOrchestrator(log *slog.Logger, supervisor *workers.Supervisor, listener net.Listener,
	presence repositories.IPresenceRepository, opts Options, settings Settings) *Orchestrator {
	settings = settings.withDefaults()
	o := &Orchestrator{
		log:        log,
		supervisor: supervisor,
		presence:   presence,
		events:     make(chan event.Event, settings.EventBufferSize),
		telemetry:  make(chan event.Event, settings.EventBufferSize),
		counter:    event.NewCounter(),
		metrics:    observability.NewMetrics(log),
		timeline:   sink.NewTimeline(0),
		settings:   settings,
	}
	var store contract.PresenceStore
	if presence != nil {
		store = presence
	}
	supervisor.WithTelemetry(o.telemetry)
	o.relay = NewRelay(log, NewRegistry(), NewLobbyManager(), store, o.events, opts)
	o.acceptor = workers.NewAcceptor(log, listener, o.relay)
	if settings.PeekTimeout > 0 {
		o.acceptor.WithPeekTimeout(settings.PeekTimeout)
	}
	return o
}

func (o *Orchestrator) Relay() *Relay { return o.relay }
func (o *Orchestrator) Counter() *event.Counter { return o.counter }
func (o *Orchestrator) Timeline() *sink.Timeline { return o.timeline }
func (o *Orchestrator) Addr() net.Addr { return o.acceptor.Addr() }
func (o *Orchestrator) Metrics() *observability.Metrics { return o.metrics }

// Start prepares moderation and the pipeline, then runs the supervisor until ctx
// is cancelled or Stop is called. It returns once every session is torn down.
func (o *Orchestrator) Start(ctx context.Context) error {
	// 1. Preparation phase (No Lock)
	if o.settings.Moderation {
		moderator, err := o.prepareModeration()
		if err != nil {
			return err
		}
		o.relay.WithModerator(moderator)
	}
	sessions := o.relay.Registry().Count

	// 2. Critical Section (Short Lock)
	o.mu.Lock()
	fanout := workers.NewEventFanout(o.log, o.events, o.telemetry, o.settings.SinkTimeout).
		Add(o.timeline)
	o.supervisor.Add(
		o.acceptor,
		fanout,
		workers.NewTelemetryWorker(o.log, o.telemetry, o.handlers()...),
		workers.NewChannelCapacityWorker(o.log, []workers.NamedChannel{
			{Name: "events", Channel: o.events},
			{Name: "telemetry", Channel: o.telemetry},
		}, o.telemetry, o.settings.MetricInterval),
		workers.NewProcessStatsWorker(o.log, o.telemetry, o.settings.MetricInterval, sessions),
	)
	if o.settings.DebugPort > 0 {
		var presence internal.PresenceLister
		if o.presence != nil {
			presence = o.presence
		}
		o.supervisor.Add(internal.NewDebugServer(o.log, o.settings.DebugPort,
			o.metrics.Handler(), presence, o.timeline, o.counter, sessions))
	}
	o.mu.Unlock()

	// 3. Execution phase (No Lock)
	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	o.relay.Wait()
	return nil
}

// prepareModeration loads censored words and builds the Aho-Corasick automaton.
func (o *Orchestrator) prepareModeration() (*moderation.Moderator, error) {
	loader := moderation.NewCensoredLoader(moderation.CensoredFS)
	data, err := loader.LoadAll(moderation.CensoredDir, o.settings.CensoredWords...)
	if err != nil {
		return nil, err
	}
	o.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))
	return moderation.NewModerator(data.Words, o.settings.CharReplacement, o.log)
}

func (o *Orchestrator) handlers() []event.Handler {
	return []event.Handler{
		event.NewSessionHandler(o.log, o.counter),
		event.NewMessageRoutedHandler(o.log, o.counter),
		event.NewCensoredHandler(o.log, o.counter),
		event.NewWorkerHandler(o.log, o.counter),
		o.metrics,
	}
}

// Stop initiates a graceful shutdown: the supervisor cancels every worker,
// the acceptor closes the listener and sessions close on context cancellation.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
