package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics tracks starting and reclaiming backing services.
//
// Metrics:
//   - <ns>_service_starts_total: start sequences by service and outcome
//   - <ns>_service_start_duration_seconds: start sequence duration
//   - <ns>_service_stops_total: stop calls by service and outcome
//   - <ns>_tracked_services: services in the activity table
//   - <ns>_reaper_cycles_total: reaper cycles by outcome
type LifecycleMetrics struct {
	startsTotal     *prometheus.CounterVec
	startDuration   *prometheus.HistogramVec
	stopsTotal      *prometheus.CounterVec
	trackedServices prometheus.Gauge
	cyclesTotal     *prometheus.CounterVec
}

// NewLifecycleMetrics creates and registers lifecycle metrics with the provided registry.
func NewLifecycleMetrics(namespace string, registry *prometheus.Registry) *LifecycleMetrics {
	lm := &LifecycleMetrics{
		startsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "service_starts_total",
				Help:      "Total number of service start sequences",
			},
			[]string{"service", "outcome"},
		),

		startDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "service_start_duration_seconds",
				Help:      "Time from issuing a start until the service is ready",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
			},
			[]string{"service"},
		),

		stopsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "service_stops_total",
				Help:      "Total number of service stop calls",
			},
			[]string{"service", "outcome"},
		),

		trackedServices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tracked_services",
				Help:      "Number of services in the activity table",
			},
		),

		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reaper_cycles_total",
				Help:      "Total number of idle reaper cycles",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(lm.startsTotal, lm.startDuration, lm.stopsTotal, lm.trackedServices, lm.cyclesTotal)

	return lm
}

// RecordStart records a start sequence. Duration is only observed for
// successful starts.
func (lm *LifecycleMetrics) RecordStart(service, outcome string, duration time.Duration) {
	lm.startsTotal.WithLabelValues(service, outcome).Inc()
	if outcome == OutcomeOK {
		lm.startDuration.WithLabelValues(service).Observe(duration.Seconds())
	}
}
