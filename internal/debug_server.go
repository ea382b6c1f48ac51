package internal

import (
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"chat-relay/sink"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
)

//go:embed timeline.html
var templatesFS embed.FS

const shutdownTimeout = 2 * time.Second

type PresenceLister interface {
	List() ([]repositories.Presence, error)
}

type TimelineReader interface {
	Entries() []sink.Entry
}

// DebugServer exposes the relay internals over HTTP:
// /metrics, /presence, /timeline and /healthz.
type DebugServer struct {
	log      *slog.Logger
	port     int
	mux      *http.ServeMux
	tmpl     *template.Template
	metrics  http.Handler
	presence PresenceLister
	timeline TimelineReader
	counter  *event.Counter
	sessions func() int
}

// NewDebugServer builds the mux. presence, timeline and metrics may be nil,
// their endpoints then answer 404.
func NewDebugServer(log *slog.Logger, port int, metrics http.Handler,
	presence PresenceLister, timeline TimelineReader,
	counter *event.Counter, sessions func() int) *DebugServer {
	d := &DebugServer{
		log:      log,
		port:     port,
		mux:      http.NewServeMux(),
		tmpl:     template.Must(template.ParseFS(templatesFS, "timeline.html")),
		metrics:  metrics,
		presence: presence,
		timeline: timeline,
		counter:  counter,
		sessions: sessions,
	}
	if metrics != nil {
		d.mux.Handle("/metrics", metrics)
	}
	if presence != nil {
		d.mux.HandleFunc("/presence", d.handlePresence)
	}
	if timeline != nil {
		d.mux.HandleFunc("/timeline", d.handleTimeline)
	}
	d.mux.HandleFunc("/healthz", d.handleHealth)
	return d
}

func (d *DebugServer) Handler() http.Handler { return d.mux }

func (d *DebugServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", d.port),
		Handler:           d.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})
	defer stop()

	d.log.Info("Debug server available", "url", fmt.Sprintf("http://localhost:%d/timeline", d.port))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (d *DebugServer) handlePresence(w http.ResponseWriter, _ *http.Request) {
	presences, err := d.presence.List()
	if err != nil {
		d.log.Error("Failed to list presence", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	RenderPresence(w, presences)
}

func (d *DebugServer) handleTimeline(w http.ResponseWriter, _ *http.Request) {
	data := struct {
		Sessions int
		Entries  []sink.Entry
	}{Sessions: d.sessionCount(), Entries: d.timeline.Entries()}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.tmpl.Execute(w, data); err != nil {
		d.log.Error("Failed to render timeline", "error", err)
	}
}

type health struct {
	Status   string            `json:"status"`
	Sessions int               `json:"sessions"`
	Counters map[string]uint64 `json:"counters,omitempty"`
}

func (d *DebugServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := health{Status: "ok", Sessions: d.sessionCount()}
	if d.counter != nil {
		h.Counters = d.counter.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(h); err != nil {
		d.log.Error("Failed to encode health", "error", err)
	}
}

func (d *DebugServer) sessionCount() int {
	if d.sessions == nil {
		return 0
	}
	return d.sessions()
}

// RenderPresence writes presences as a borderless table.
func RenderPresence(w io.Writer, presences []repositories.Presence) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Username", "Online", "Updated"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, p := range presences {
		table.Append([]string{p.Username, strconv.FormatBool(p.Online), p.UpdatedAt.Format(time.RFC3339)})
	}
	table.Render()
}
