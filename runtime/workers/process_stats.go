package workers

import (
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessStatsWorker samples the relay's own process (status, CPU, RAM)
// together with the number of live sessions.
type ProcessStatsWorker struct {
	log            *slog.Logger
	telemetryChan  chan event.Event
	metricInterval time.Duration
	sessions       func() int
}

func NewProcessStatsWorker(
	log *slog.Logger,
	telemetryChan chan event.Event,
	metricInterval time.Duration,
	sessions func() int,
) *ProcessStatsWorker {
	return &ProcessStatsWorker{
		log:            log,
		telemetryChan:  telemetryChan,
		metricInterval: metricInterval,
		sessions:       sessions,
	}
}

func (w *ProcessStatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping process sampling")
			return nil
		case <-ticker.C:
			stats, err := w.sample(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			select {
			case w.telemetryChan <- event.New(event.ProcessStatsType, stats):
			default:
				w.log.Debug("Telemetry event lost", "type", event.ProcessStatsType)
			}
		}
	}
}

func (w *ProcessStatsWorker) sample(p *process.Process) (event.ProcessStats, error) {
	status, err := p.Status()
	if err != nil {
		return event.ProcessStats{}, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return event.ProcessStats{}, err
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		return event.ProcessStats{}, err
	}
	stats := event.ProcessStats{PID: p.Pid, Status: status, Cpu: cpu, Ram: ram}
	if w.sessions != nil {
		stats.Sessions = w.sessions()
	}
	return stats, nil
}
