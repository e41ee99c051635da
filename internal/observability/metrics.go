package observability

import (
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for background passes.
type Metrics struct {
	mu           sync.Mutex
	runCount     map[string]int64
	rowsAffected map[string]int64
	errorCount   map[string]int64
	lastRun      map[string]time.Time
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		runCount:     make(map[string]int64),
		rowsAffected: make(map[string]int64),
		errorCount:   make(map[string]int64),
		lastRun:      make(map[string]time.Time),
	}
}

// RecordPass increments counters for one completed pass.
func (m *Metrics) RecordPass(pass string, rows int64, failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runCount[pass]++
	m.rowsAffected[pass] += rows
	if failed {
		m.errorCount[pass]++
	}
	m.lastRun[pass] = time.Now()
}

// Snapshot returns per-pass totals keyed by pass name.
func (m *Metrics) Snapshot() map[string]PassStats {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]PassStats, len(m.runCount))
	for pass, runs := range m.runCount {
		out[pass] = PassStats{
			Runs:         runs,
			RowsAffected: m.rowsAffected[pass],
			Errors:       m.errorCount[pass],
			LastRun:      m.lastRun[pass],
		}
	}
	return out
}

// PassStats aggregates the lifetime counters of one pass.
type PassStats struct {
	Runs         int64
	RowsAffected int64
	Errors       int64
	LastRun      time.Time
}
