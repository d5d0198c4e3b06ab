package reconcile

import "time"

// Cycle results reported to MetricsSink.ObserveCycle.
const (
	CycleSuccess = "success"
	CycleFailed  = "failed"
	CycleSkipped = "skipped"
)

// Change outcomes reported to MetricsSink.RecordChange.
const (
	OutcomeApplied = "applied"
	OutcomeAudited = "audited"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// MetricsSink receives cycle measurements.
type MetricsSink interface {
	ObserveCycle(result string, d time.Duration)
	RecordChange(kind, outcome string)
	ResetProjectsByStage()
	SetProjectsByStage(brand, stage string, n int)
	SetDBSizeBytes(n int64)
}

// NopSink discards all measurements.
type NopSink struct{}

func (NopSink) ObserveCycle(string, time.Duration)     {}
func (NopSink) RecordChange(string, string)            {}
func (NopSink) ResetProjectsByStage()                  {}
func (NopSink) SetProjectsByStage(string, string, int) {}
func (NopSink) SetDBSizeBytes(int64)                   {}
