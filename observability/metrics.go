// Package observability exposes relay telemetry as Prometheus metrics.
package observability

import (
	"chat-relay/domain/event"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat_relay"

// Metrics turns telemetry events into Prometheus series.
// It owns its registry so several relays (tests) never collide.
type Metrics struct {
	log      *slog.Logger
	registry *prometheus.Registry

	sessionsActive   prometheus.Gauge
	sessionsAdmitted prometheus.Counter
	sessionsClosed   *prometheus.CounterVec
	sessionsEvicted  prometheus.Counter
	messagesRouted   *prometheus.CounterVec
	recipients       prometheus.Counter
	deliveryFailures prometheus.Counter
	messagesCensored *prometheus.CounterVec
	usernameChanges  prometheus.Counter
	lobbyJoins       prometheus.Counter
	lobbyRenames     prometheus.Counter
	workerRestarts   *prometheus.CounterVec
	channelLength    *prometheus.GaugeVec
	channelCapacity  *prometheus.GaugeVec
	processCpu       prometheus.Gauge
	processRam       prometheus.Gauge
	sessionSamples   prometheus.Gauge
}

func NewMetrics(log *slog.Logger) *Metrics {
	m := &Metrics{
		log:      log,
		registry: prometheus.NewRegistry(),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "sessions_active",
			Help: "number of admitted sessions currently connected",
		}),
		sessionsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_admitted_total",
			Help: "sessions that completed username negotiation",
		}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_closed_total",
			Help: "sessions torn down, by reason",
		}, []string{"reason"}),
		sessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_evicted_total",
			Help: "sessions removed for high latency",
		}),
		messagesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_routed_total",
			Help: "client messages routed, by kind",
		}, []string{"kind"}),
		recipients: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "deliveries_total",
			Help: "lines handed to session outboxes",
		}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "delivery_failures_total",
			Help: "deliveries that tore down their target",
		}),
		messagesCensored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_censored_total",
			Help: "group messages altered by moderation, by detected language",
		}, []string{"lang"}),
		usernameChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "username_changes_total",
			Help: "accepted username changes",
		}),
		lobbyJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "lobby_joins_total",
			Help: "explicit lobby switches",
		}),
		lobbyRenames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "lobby_renames_total",
			Help: "accepted lobby renames",
		}),
		workerRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "worker_restarts_total",
			Help: "workers restarted after a panic",
		}, []string{"worker"}),
		channelLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "channel_length",
			Help: "queued items in an internal channel",
		}, []string{"channel"}),
		channelCapacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "channel_capacity",
			Help: "capacity of an internal channel",
		}, []string{"channel"}),
		processCpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_cpu_percent",
			Help: "relay process CPU usage",
		}),
		processRam: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_ram_percent",
			Help: "relay process memory usage",
		}),
		sessionSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "registry_sessions",
			Help: "registered sessions at the last process sample",
		}),
	}
	m.registry.MustRegister(
		m.sessionsActive, m.sessionsAdmitted, m.sessionsClosed, m.sessionsEvicted,
		m.messagesRouted, m.recipients, m.deliveryFailures, m.messagesCensored,
		m.usernameChanges, m.lobbyJoins, m.lobbyRenames, m.workerRestarts,
		m.channelLength, m.channelCapacity, m.processCpu, m.processRam, m.sessionSamples,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Handle(e event.Event) {
	switch evt := e.Payload.(type) {
	case event.SessionAdmitted:
		m.sessionsAdmitted.Inc()
		m.sessionsActive.Inc()
	case event.SessionClosed:
		m.sessionsClosed.WithLabelValues(evt.Reason).Inc()
		if evt.WasActive {
			m.sessionsActive.Dec()
		}
	case event.SessionEvicted:
		m.sessionsEvicted.Inc()
	case event.MessageRouted:
		m.messagesRouted.WithLabelValues(evt.Kind).Inc()
		m.recipients.Add(float64(evt.Recipients))
	case event.DeliveryFailed:
		m.deliveryFailures.Inc()
	case event.MessageCensored:
		m.messagesCensored.WithLabelValues(evt.Lang).Inc()
	case event.UsernameChanged:
		m.usernameChanges.Inc()
	case event.LobbyJoined:
		m.lobbyJoins.Inc()
	case event.LobbyRenamed:
		m.lobbyRenames.Inc()
	case event.WorkerRestartedAfterPanic:
		m.workerRestarts.WithLabelValues(evt.WorkerName).Inc()
	case event.ChannelCapacity:
		m.channelLength.WithLabelValues(evt.ChannelName).Set(float64(evt.Length))
		m.channelCapacity.WithLabelValues(evt.ChannelName).Set(float64(evt.Capacity))
	case event.ProcessStats:
		m.processCpu.Set(evt.Cpu)
		m.processRam.Set(float64(evt.Ram))
		m.sessionSamples.Set(float64(evt.Sessions))
	default:
		m.log.Debug("No metric for event", "type", e.Type)
	}
}
