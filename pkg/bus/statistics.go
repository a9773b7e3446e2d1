package bus

import (
	"log/slog"
	"time"
)

// Statistics is a snapshot of router activity since Exec started.
// Dropped counts posts rejected because the event buffer was full.
type Statistics struct {
	Uptime          time.Duration
	Posted          uint64
	Dropped         uint64
	Dispatched      uint64
	DispatchFailed  uint64
	EventsPerSecond float64
}

func (s Statistics) Print() {
	slog.Info("router statistics",
		"uptime", s.Uptime.Round(time.Millisecond),
		"posted", s.Posted,
		"dropped", s.Dropped,
		"dispatched", s.Dispatched,
		"dispatch_failed", s.DispatchFailed,
		"events_per_second", s.EventsPerSecond)
}
