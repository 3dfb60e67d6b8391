package memory

import "sync/atomic"

// Metrics counts manager activity. Degraded counters make backing-store
// failures observable even though the calls themselves succeed with safe
// defaults.
type Metrics struct {
	recorded       atomic.Int64
	skipped        atomic.Int64
	hygieneRuns    atomic.Int64
	degradedReads  atomic.Int64
	degradedWrites atomic.Int64
}

func (m *Metrics) IncRecorded()       { m.recorded.Add(1) }
func (m *Metrics) IncSkipped()        { m.skipped.Add(1) }
func (m *Metrics) IncHygieneRuns()    { m.hygieneRuns.Add(1) }
func (m *Metrics) IncDegradedReads()  { m.degradedReads.Add(1) }
func (m *Metrics) IncDegradedWrites() { m.degradedWrites.Add(1) }

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	ExchangesRecorded int64 `json:"exchanges_recorded"`
	ExchangesSkipped  int64 `json:"exchanges_skipped"`
	HygieneRuns       int64 `json:"hygiene_runs"`
	DegradedReads     int64 `json:"degraded_reads"`
	DegradedWrites    int64 `json:"degraded_writes"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		ExchangesRecorded: m.recorded.Load(),
		ExchangesSkipped:  m.skipped.Load(),
		HygieneRuns:       m.hygieneRuns.Load(),
		DegradedReads:     m.degradedReads.Load(),
		DegradedWrites:    m.degradedWrites.Load(),
	}
}
