package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks shell activity. Counters are updated by the run loop and
// may be read from any goroutine.
type Metrics struct {
	spawned     atomic.Uint64
	spawnErrors atomic.Uint64
	parseErrors atomic.Uint64
	completed   atomic.Uint64
	failed      atomic.Uint64
	bytes       atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordSpawn records a started child.
func (m *Metrics) RecordSpawn() {
	m.spawned.Add(1)
}

// RecordSpawnError records a command that could not be started.
func (m *Metrics) RecordSpawnError() {
	m.spawnErrors.Add(1)
}

// RecordParseError records a line that could not be parsed.
func (m *Metrics) RecordParseError() {
	m.parseErrors.Add(1)
}

// RecordExit records a child exit. A non-zero code counts as failed.
func (m *Metrics) RecordExit(code int) {
	m.completed.Add(1)
	if code != 0 {
		m.failed.Add(1)
	}
}

// RecordOutput records n bytes of child output.
func (m *Metrics) RecordOutput(n int) {
	if n > 0 {
		m.bytes.Add(uint64(n))
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Uptime:      time.Since(m.startTime),
		Spawned:     m.spawned.Load(),
		SpawnErrors: m.spawnErrors.Load(),
		ParseErrors: m.parseErrors.Load(),
		Completed:   m.completed.Load(),
		Failed:      m.failed.Load(),
		Bytes:       m.bytes.Load(),
	}
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime      time.Duration
	Spawned     uint64
	SpawnErrors uint64
	ParseErrors uint64
	Completed   uint64
	Failed      uint64
	Bytes       uint64
}

// Running returns the number of spawned children whose exit has not been
// recorded.
func (s MetricsSnapshot) Running() uint64 {
	if s.Completed > s.Spawned {
		return 0
	}
	return s.Spawned - s.Completed
}
