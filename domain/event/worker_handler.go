package event

import (
	"chat-relay/errors"
	"log/slog"
)

// SaturatedType counts samples where a pipeline channel was at least
// saturationRatio full.
const (
	SaturatedType   Type = "CHANNEL_SATURATED"
	saturationRatio      = 0.8
)

// WorkerHandler follows the health of supervised workers: restarts after a
// panic and pipeline channels close to full.
type WorkerHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewWorkerHandler(log *slog.Logger, counter *Counter) *WorkerHandler {
	return &WorkerHandler{log: log, counter: counter}
}

func (h *WorkerHandler) Handle(event Event) {
	switch event.Type {
	case RestartedAfterPanicType:
		payload, ok := event.Payload.(WorkerRestartedAfterPanic)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(RestartedAfterPanicType)
		h.log.Warn("Worker restarted after panic",
			"worker", payload.WorkerName, "total", h.counter.Get(RestartedAfterPanicType))
	case ChannelCapacityType:
		payload, ok := event.Payload.(ChannelCapacity)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		if payload.Capacity == 0 || float64(payload.Length) < saturationRatio*float64(payload.Capacity) {
			return
		}
		h.counter.Increment(SaturatedType)
		h.log.Warn("Channel close to full", "channel", payload.ChannelName,
			"length", payload.Length, "capacity", payload.Capacity)
	}
}
