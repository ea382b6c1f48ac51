package runtime

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"time"
)

// HeartbeatMonitor probes a session's peer on every tick and reports it once
// it stopped acknowledging. A session whose peer never answered a probe yet
// is left alone.
type HeartbeatMonitor struct {
	log      *slog.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

func NewHeartbeatMonitor(log *slog.Logger, interval, timeout time.Duration) HeartbeatMonitor {
	return HeartbeatMonitor{log: log, interval: interval, timeout: timeout, now: time.Now}
}

// Expired reports whether a peer last seen at mark is overdue at now.
func (h HeartbeatMonitor) Expired(mark, now time.Time) bool {
	return !mark.IsZero() && now.Sub(mark) > h.timeout
}

// Watch runs until ctx is done or onExpire has been called once.
func (h HeartbeatMonitor) Watch(ctx context.Context, s *Session, onExpire func(*Session, time.Duration)) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.active() {
				return
			}
			mark, now := s.LastLiveness(), h.now()
			if h.Expired(mark, now) {
				onExpire(s, now.Sub(mark))
				return
			}
			if !s.relay.Deliver(s, domain.NewPing()) {
				return
			}
		}
	}
}
