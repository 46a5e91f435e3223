// Package metrics exposes Prometheus instrumentation for the control
// plane, adapted from the teacher's backend/monitoring/prometheus.go
// (promauto-registered vectors scoped to this package, served by
// promhttp.Handler in internal/adminapi).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SchedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmon_scheduler_ticks_total",
			Help: "Scheduler job ticks, by outcome.",
		},
		[]string{"outcome"}, // due, skipped_inactive, skipped_missing, error
	)

	SchedulerConsecutiveErrors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "webmon_scheduler_consecutive_errors",
			Help: "Current consecutive-tick-error count.",
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "webmon_queue_depth",
			Help: "Queue rows by status.",
		},
		[]string{"status"},
	)

	QueueItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmon_queue_items_processed_total",
			Help: "Queue items processed, by terminal status.",
		},
		[]string{"status"},
	)

	DispatcherPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webmon_dispatcher_phase_duration_seconds",
			Help:    "Duration of each check phase.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"phase"},
	)

	DispatcherInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmon_dispatcher_invocations_total",
			Help: "Dispatcher invocations, by report type.",
		},
		[]string{"report_type"},
	)

	CatalogCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmon_catalog_cache_total",
			Help: "Catalog website-cache lookups, by outcome.",
		},
		[]string{"outcome"}, // hit, miss
	)
)

// ObservePhase records how long a dispatcher phase took.
func ObservePhase(phase string, start time.Time) {
	DispatcherPhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
