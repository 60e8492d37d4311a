package host

import (
	"sync/atomic"
	"time"
)

// Metrics tracks tick timing.
type Metrics struct {
	ticks     atomic.Uint64
	overruns  atomic.Uint64
	panics    atomic.Uint64
	totalNs   atomic.Int64
	minNs     atomic.Int64
	maxNs     atomic.Int64
	lastNs    atomic.Int64
	startTime time.Time
}

// NewMetrics creates a metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{startTime: time.Now()}
	// Initialize min to max int64 so the first tick is smaller.
	m.minNs.Store(1<<63 - 1)
	return m
}

// RecordTick records the duration of one tick. A tick longer than budget
// counts as an overrun; a zero budget disables overrun counting.
func (m *Metrics) RecordTick(d, budget time.Duration) {
	ns := d.Nanoseconds()
	m.ticks.Add(1)
	m.totalNs.Add(ns)
	m.lastNs.Store(ns)
	if budget > 0 && d > budget {
		m.overruns.Add(1)
	}

	for {
		old := m.minNs.Load()
		if ns >= old || m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordPanic counts a script call that panicked inside the interpreter.
func (m *Metrics) RecordPanic() {
	m.panics.Add(1)
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Ticks    uint64
	Overruns uint64
	Panics   uint64
	Min      time.Duration
	Max      time.Duration
	Avg      time.Duration
	Last     time.Duration
	Uptime   time.Duration
}

// Snapshot returns the current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	ticks := m.ticks.Load()
	s := MetricsSnapshot{
		Ticks:    ticks,
		Overruns: m.overruns.Load(),
		Panics:   m.panics.Load(),
		Max:      time.Duration(m.maxNs.Load()),
		Last:     time.Duration(m.lastNs.Load()),
		Uptime:   time.Since(m.startTime),
	}
	if ticks > 0 {
		s.Min = time.Duration(m.minNs.Load())
		s.Avg = time.Duration(m.totalNs.Load() / int64(ticks))
	}
	return s
}
