// Package middleware provides HTTP middleware for the proxy and admin
// listeners.
//
// # Middleware Chain
//
//	handler = Recovery(RequestID(Logging(handler)))
//
// Order (innermost to outermost):
//  1. Logging: log method, path, status and latency once the request completes
//  2. RequestID: accept or generate the request ID before anything is logged
//  3. Recovery: turn panics into a 500 JSON error
//
// Chain composes them in that order.
//
// There is deliberately no timeout middleware on the proxy listener: a request
// may legitimately wait for a backing service to start, and every wait inside
// the handler already carries its own bound.
//
// # Request ID
//
// RequestIDMiddleware keeps a well-formed client X-Request-ID or generates a
// UUID v4. The ID is stored with logging.WithRequestID so every log line
// written through logging.FromContext carries it, and it is echoed in the
// response headers.
//
// # Recovery
//
// RecoveryMiddleware writes
//
//	{"error": {"message": "...", "type": "server_error", "code": "internal_error"}}
//
// and logs the stack. http.ErrAbortHandler is re-raised.
package middleware
