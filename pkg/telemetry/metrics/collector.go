package metrics

import (
	"sync"
	"time"

	"mercator-hq/lazyproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values shared by the proxy and lifecycle metrics.
const (
	OutcomeOK          = "ok"
	OutcomeBadRequest  = "bad_request"
	OutcomeStartFailed = "start_failed"
	OutcomeUpstreamErr = "upstream_error"
	OutcomeError       = "error"
	OutcomeSkipped     = "skipped"
)

// maxServiceLabels bounds the number of distinct service label values.
const maxServiceLabels = 1000

// otherService replaces service names beyond maxServiceLabels.
const otherService = "other"

// Collector owns every Prometheus metric exported by lazyproxy. It uses its
// own registry so the admin endpoint exposes nothing the process did not
// register explicitly.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	proxyMetrics     *ProxyMetrics
	lifecycleMetrics *LifecycleMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		proxyMetrics:       NewProxyMetrics(cfg.Namespace, registry),
		lifecycleMetrics:   NewLifecycleMetrics(cfg.Namespace, registry),
		cardinalityLimiter: NewCardinalityLimiter(maxServiceLabels),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

func (c *Collector) serviceLabel(service string) string {
	if c.cardinalityLimiter.Allow(service) {
		return service
	}
	return otherService
}

// RecordRequest records a completed proxied request.
//
// Parameters:
//   - service: target service, empty when routing failed
//   - outcome: one of the Outcome constants
//   - duration: total handling time including any cold start
func (c *Collector) RecordRequest(service, outcome string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.proxyMetrics.RecordRequest(c.serviceLabel(service), outcome, duration)
}

// IncInFlight marks a request to service as started.
func (c *Collector) IncInFlight(service string) {
	if !c.enabled() {
		return
	}
	c.proxyMetrics.inFlight.WithLabelValues(c.serviceLabel(service)).Inc()
}

// DecInFlight marks a request to service as finished.
func (c *Collector) DecInFlight(service string) {
	if !c.enabled() {
		return
	}
	c.proxyMetrics.inFlight.WithLabelValues(c.serviceLabel(service)).Dec()
}

// RecordStart records the result of a start sequence.
func (c *Collector) RecordStart(service, outcome string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.lifecycleMetrics.RecordStart(c.serviceLabel(service), outcome, duration)
}

// RecordStop records the result of stopping a service.
func (c *Collector) RecordStop(service, outcome string) {
	if !c.enabled() {
		return
	}
	c.lifecycleMetrics.stopsTotal.WithLabelValues(c.serviceLabel(service), outcome).Inc()
}

// SetTrackedServices updates the number of services in the activity table.
func (c *Collector) SetTrackedServices(n int) {
	if !c.enabled() {
		return
	}
	c.lifecycleMetrics.trackedServices.Set(float64(n))
}

// RecordReaperCycle records one reaper cycle.
func (c *Collector) RecordReaperCycle(outcome string) {
	if !c.enabled() {
		return
	}
	c.lifecycleMetrics.cyclesTotal.WithLabelValues(outcome).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value
// already exists or if the cardinality limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
