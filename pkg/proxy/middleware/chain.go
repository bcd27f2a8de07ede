package middleware

import "net/http"

// Chain wraps handler with the standard middleware stack. serviceHeader names
// the routing header whose value is logged as the target service; it may be
// empty for listeners that do not route.
func Chain(handler http.Handler, serviceHeader string) http.Handler {
	handler = LoggingMiddleware(serviceHeader)(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(handler)
	return handler
}
