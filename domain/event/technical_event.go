package event

const (
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	ProcessStatsType        Type = "PROCESS_STATS"
)

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type ProcessStats struct {
	PID      int32
	Status   string
	Cpu      float64
	Ram      float32
	Sessions int
}

const ChannelCapacityType Type = "CHANNEL_CAPACITY"

type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}
