package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProxyMetrics tracks request forwarding.
//
// Metrics:
//   - <ns>_proxy_requests_total: requests by service and outcome
//   - <ns>_proxy_request_duration_seconds: handling time including cold starts
//   - <ns>_proxy_inflight_requests: requests currently being proxied
type ProxyMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec
}

// NewProxyMetrics creates and registers proxy metrics with the provided registry.
func NewProxyMetrics(namespace string, registry *prometheus.Registry) *ProxyMetrics {
	pm := &ProxyMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Total number of proxied requests",
			},
			[]string{"service", "outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "request_duration_seconds",
				Help:      "Duration of proxied requests in seconds, including cold starts",
				// Warm requests land in the low buckets, cold starts in 2s-45s.
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 20, 45, 90},
			},
			[]string{"service"},
		),

		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "inflight_requests",
				Help:      "Number of requests currently being proxied",
			},
			[]string{"service"},
		),
	}

	registry.MustRegister(pm.requestsTotal, pm.requestDuration, pm.inFlight)

	return pm
}

// RecordRequest records a completed request.
func (pm *ProxyMetrics) RecordRequest(service, outcome string, duration time.Duration) {
	pm.requestsTotal.WithLabelValues(service, outcome).Inc()
	if service != "" {
		pm.requestDuration.WithLabelValues(service).Observe(duration.Seconds())
	}
}
