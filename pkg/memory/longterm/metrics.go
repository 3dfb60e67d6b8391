package longterm

import "sync/atomic"

// Metrics captures lightweight runtime counters for observability.
type Metrics struct {
	stored       atomic.Int64
	retrieved    atomic.Int64
	deduplicated atomic.Int64
	evicted      atomic.Int64
}

func (m *Metrics) IncStored()           { m.stored.Add(1) }
func (m *Metrics) IncRetrieved(n int)   { m.retrieved.Add(int64(n)) }
func (m *Metrics) IncDeduplicated(n int) { m.deduplicated.Add(int64(n)) }
func (m *Metrics) IncEvicted(n int)     { m.evicted.Add(int64(n)) }

// MetricsSnapshot returns the current values for reporting/logging.
type MetricsSnapshot struct {
	Stored       int64 `json:"stored"`
	Retrieved    int64 `json:"retrieved"`
	Deduplicated int64 `json:"deduplicated"`
	Evicted      int64 `json:"evicted"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Stored:       m.stored.Load(),
		Retrieved:    m.retrieved.Load(),
		Deduplicated: m.deduplicated.Load(),
		Evicted:      m.evicted.Load(),
	}
}
