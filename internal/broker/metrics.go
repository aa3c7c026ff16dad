package broker

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Metrics tracks the broker's operator-facing counters and periodically
// logs a human-readable summary, the log-line equivalent of the
// teacher's /healthz stats surface (minus the HTTP endpoint — this
// repo has no external HTTP API for the broker core).
type Metrics struct {
	logger   *slog.Logger
	interval time.Duration
	start    time.Time

	delivered atomic.Uint64
	evicted   atomic.Uint64
}

// NewMetrics constructs a Metrics recorder. A zero interval disables
// the periodic log line; RecordDelivered/RecordEvicted remain usable.
func NewMetrics(logger *slog.Logger, interval time.Duration, start time.Time) *Metrics {
	return &Metrics{logger: logger, interval: interval, start: start}
}

func (m *Metrics) RecordDelivered() { m.delivered.Add(1) }
func (m *Metrics) RecordEvicted()   { m.evicted.Add(1) }

// Run logs a stats line every interval until done is closed, reading
// queue names from registry each tick. Intended to run in its own
// goroutine from cmd/relayd.
func (m *Metrics) Run(done <-chan struct{}, registry *Registry) {
	if m.interval <= 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			queues := registry.Keys()
			m.logger.Info("relay stats",
				"queues", humanize.Comma(int64(len(queues))),
				"delivered", humanize.Comma(int64(m.delivered.Load())),
				"evicted", humanize.Comma(int64(m.evicted.Load())),
				"uptime", humanize.RelTime(m.start, time.Now(), "", ""),
			)
		}
	}
}
