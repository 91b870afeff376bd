// Package metrics implements ecs.MetricsRecorder on top of
// prometheus/client_golang, exposing tick duration, per-system duration,
// and staged add/remove counts for a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements ecs.MetricsRecorder. It registers its own
// collectors against the given registerer. The metric names are fixed and
// carry no per-registry label, so a registerer holds at most one Recorder;
// a second New against the same registerer panics on registration.
type Recorder struct {
	tickDuration   prometheus.Histogram
	systemDuration *prometheus.HistogramVec
	stagedAdded    *prometheus.CounterVec
	stagedRemoved  *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors against reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ecsrt",
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one ExecuteSystems tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		systemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ecsrt",
			Subsystem: "scheduler",
			Name:      "system_duration_seconds",
			Help:      "Duration of one system's view-build-plus-iteration step.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"system"}),
		stagedAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecsrt",
			Subsystem: "scheduler",
			Name:      "staged_added_total",
			Help:      "Entities whose component add was flushed this tick, by component.",
		}, []string{"component"}),
		stagedRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecsrt",
			Subsystem: "scheduler",
			Name:      "staged_removed_total",
			Help:      "Entities whose component remove was flushed this tick, by component.",
		}, []string{"component"}),
	}

	reg.MustRegister(r.tickDuration, r.systemDuration, r.stagedAdded, r.stagedRemoved)
	return r
}

func (r *Recorder) TickDuration(d time.Duration) {
	r.tickDuration.Observe(d.Seconds())
}

func (r *Recorder) SystemDuration(system string, d time.Duration) {
	r.systemDuration.WithLabelValues(system).Observe(d.Seconds())
}

func (r *Recorder) StagedMutations(component string, added, removed int) {
	if added > 0 {
		r.stagedAdded.WithLabelValues(component).Add(float64(added))
	}
	if removed > 0 {
		r.stagedRemoved.WithLabelValues(component).Add(float64(removed))
	}
}
