package metrics

import "time"

// Build outcome labels for counters.
const (
	OutcomeSuccess    = "success"
	OutcomeSoftErrors = "soft_errors"
	OutcomeFailed     = "failed"
)

// Recorder defines observability hooks for build and emission metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. The
// NoopRecorder allows optional injection without nil checks.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	ObserveEmitDuration(d time.Duration)
	IncBuildOutcome(outcome string) // outcome: success|soft_errors|failed
	AddAssetsWritten(n int)
	AddAssetsSkipped(n int)
	SetEmitConcurrency(n int)
	IncWatchInvalidations()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) ObserveEmitDuration(time.Duration)  {}
func (NoopRecorder) IncBuildOutcome(string)             {}
func (NoopRecorder) AddAssetsWritten(int)               {}
func (NoopRecorder) AddAssetsSkipped(int)               {}
func (NoopRecorder) SetEmitConcurrency(int)             {}
func (NoopRecorder) IncWatchInvalidations()             {}
