package ecs

import "time"

// MetricsRecorder observes scheduler activity (§4.8/§4.9's domain-stack
// metrics section). The prometheus-backed implementation lives in
// internal/metrics; ecs itself only depends on this interface so the
// core module never imports the client library directly.
type MetricsRecorder interface {
	// TickDuration reports how long one ExecuteSystems call took.
	TickDuration(d time.Duration)
	// SystemDuration reports how long one system's view-build-plus-
	// iteration step took, identified by name.
	SystemDuration(system string, d time.Duration)
	// StagedMutations reports how many entities were staged as added or
	// removed for one component during a tick, identified by name.
	StagedMutations(component string, added, removed int)
}

type noopMetrics struct{}

func (noopMetrics) TickDuration(time.Duration)          {}
func (noopMetrics) SystemDuration(string, time.Duration) {}
func (noopMetrics) StagedMutations(string, int, int)     {}
