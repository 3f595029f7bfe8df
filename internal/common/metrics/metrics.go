// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_runs_completed_total",
			Help: "Total number of integration runs completed",
		},
		[]string{"status"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_stage_failures_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "engine_stage_duration_seconds",
			Help: "Duration of pipeline stage execution in seconds",
		},
		[]string{"stage"},
	)

	ConflictsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_conflicts_detected_total",
			Help: "Total number of conflicts detected, by resolution outcome",
		},
		[]string{"outcome"},
	)

	InsightsProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_insights_produced_total",
			Help: "Total number of insights produced, by kind",
		},
		[]string{"kind"},
	)
)
