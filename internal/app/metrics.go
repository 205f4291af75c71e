package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks editor activity counters. All methods are safe for
// concurrent use.
type Metrics struct {
	opens   atomic.Uint64
	saves   atomic.Uint64
	reloads atomic.Uint64
	closes  atomic.Uint64

	edits    atomic.Uint64
	searches atomic.Uint64

	parses       atomic.Uint64
	parseErrors  atomic.Uint64
	parseTotalNs atomic.Int64
	parseMaxNs   atomic.Int64

	externalEvents atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordOpen counts a buffer open.
func (m *Metrics) RecordOpen() { m.opens.Add(1) }

// RecordSave counts a buffer save.
func (m *Metrics) RecordSave() { m.saves.Add(1) }

// RecordReload counts a buffer reload.
func (m *Metrics) RecordReload() { m.reloads.Add(1) }

// RecordClose counts a buffer close.
func (m *Metrics) RecordClose() { m.closes.Add(1) }

// RecordEdit counts a committed edit transaction.
func (m *Metrics) RecordEdit() { m.edits.Add(1) }

// RecordSearch counts a search or replace operation.
func (m *Metrics) RecordSearch() { m.searches.Add(1) }

// RecordExternalEvent counts an observed on-disk change.
func (m *Metrics) RecordExternalEvent() { m.externalEvents.Add(1) }

// RecordParse records one highlight parse and how long it took. Failed
// parses count separately and carry no duration.
func (m *Metrics) RecordParse(duration time.Duration, err error) {
	if err != nil {
		m.parseErrors.Add(1)
		return
	}
	ns := duration.Nanoseconds()
	m.parses.Add(1)
	m.parseTotalNs.Add(ns)
	for {
		old := m.parseMaxNs.Load()
		if ns <= old {
			break
		}
		if m.parseMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Snapshot returns a point-in-time view of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	parses := m.parses.Load()
	var avgParseNs int64
	if parses > 0 {
		avgParseNs = m.parseTotalNs.Load() / int64(parses)
	}
	return MetricsSnapshot{
		Uptime:         time.Since(m.startTime),
		Opens:          m.opens.Load(),
		Saves:          m.saves.Load(),
		Reloads:        m.reloads.Load(),
		Closes:         m.closes.Load(),
		Edits:          m.edits.Load(),
		Searches:       m.searches.Load(),
		Parses:         parses,
		ParseErrors:    m.parseErrors.Load(),
		AvgParseNs:     avgParseNs,
		MaxParseNs:     m.parseMaxNs.Load(),
		ExternalEvents: m.externalEvents.Load(),
	}
}

// Reset clears all counters and restarts the uptime clock.
func (m *Metrics) Reset() {
	m.opens.Store(0)
	m.saves.Store(0)
	m.reloads.Store(0)
	m.closes.Store(0)
	m.edits.Store(0)
	m.searches.Store(0)
	m.parses.Store(0)
	m.parseErrors.Store(0)
	m.parseTotalNs.Store(0)
	m.parseMaxNs.Store(0)
	m.externalEvents.Store(0)
	m.startTime = time.Now()
}

// MetricsSnapshot is a point-in-time view of Metrics.
type MetricsSnapshot struct {
	Uptime         time.Duration
	Opens          uint64
	Saves          uint64
	Reloads        uint64
	Closes         uint64
	Edits          uint64
	Searches       uint64
	Parses         uint64
	ParseErrors    uint64
	AvgParseNs     int64
	MaxParseNs     int64
	ExternalEvents uint64
}

// AvgParseMs returns the average parse time in milliseconds.
func (s MetricsSnapshot) AvgParseMs() float64 {
	return float64(s.AvgParseNs) / 1e6
}

// Timer measures elapsed time for a single operation.
type Timer struct {
	start time.Time
}

// StartTimer starts a timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
