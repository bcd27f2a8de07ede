// Package server runs the HTTP listeners of lazyproxy.
//
// Two listeners are started by the run command:
//
//   - proxy (default :8001): the lazy-activation reverse proxy handler
//   - admin (default 127.0.0.1:9001): health probes, Prometheus metrics and
//     the tracked service table at /services
//
// # Lifecycle
//
// Start binds the listener and blocks until its context is cancelled, then
// drains in-flight requests within ShutdownTimeout:
//
//	srv := server.NewServer(server.ProxyOptions(cfg.Proxy), handler)
//	g.Go(func() error { return srv.Start(ctx) })
//
// Signal handling lives with the caller; cancelling ctx is the only shutdown
// trigger besides an explicit Shutdown call.
package server
