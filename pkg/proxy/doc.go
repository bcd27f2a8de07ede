// Package proxy implements the lazy-activation reverse proxy handler.
//
// Each request names its backing service and port in two routing headers
// (X-Target-Service and X-Target-Port by default):
//
//	curl -H 'X-Target-Service: web' -H 'X-Target-Port: 9000' http://proxy:8001/health
//
// is forwarded to http://web:9000/health once the web service is running.
//
// # Request Flow
//
//  1. ParseTarget validates the routing headers (400 on failure, no activity
//     is recorded).
//  2. The activity tracker marks the service busy until the response is
//     written, so the idle reaper never stops a service with requests in
//     flight.
//  3. The Starter (lifecycle.Coordinator) ensures the service is running,
//     starting it if needed (504 on failure).
//  4. The Forwarder relays the request and response (502 when the service
//     cannot be reached).
//
// Hop-by-hop headers, the routing headers, Host and Accept-Encoding are not
// forwarded; X-Forwarded-For, X-Forwarded-Host and X-Forwarded-Proto are set.
// Redirects are returned to the client rather than followed.
//
// # Errors
//
// Failures are answered with the JSON envelope from package types:
//
//	{"error": {"message": "service api failed to start: timeout", "type": "gateway_timeout", "code": "service_start_failed"}}
//
// HandleError performs the mapping with errors.As so wrapped errors are
// classified correctly.
package proxy
