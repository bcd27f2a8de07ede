// Package metrics provides Prometheus metrics collection for lazyproxy.
//
// # Metrics Categories
//
//   - Proxy Metrics: proxied requests by service and outcome, request
//     duration, requests in flight
//   - Lifecycle Metrics: service starts and stops by outcome, start duration,
//     tracked services, reaper cycles
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordRequest("api", metrics.OutcomeOK, 120*time.Millisecond)
//	collector.RecordStart("api", metrics.OutcomeOK, 4*time.Second)
//
// Every method is safe to call on a nil *Collector, so components can be
// built without metrics in tests.
//
// # Prometheus Endpoint
//
// Metrics are served by Handler on the admin listener:
//
//	# HELP lazyproxy_proxy_requests_total Total number of proxied requests
//	# TYPE lazyproxy_proxy_requests_total counter
//	lazyproxy_proxy_requests_total{outcome="ok",service="api"} 42
//
// # Cardinality Management
//
// Service names arrive in request headers, so the number of distinct service
// label values is capped. Once the cap is reached new names are reported as
// "other".
package metrics
