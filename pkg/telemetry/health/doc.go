// Package health provides the liveness and readiness endpoints of the
// lazyproxy admin server.
//
// Liveness only reports that the process is serving HTTP. Readiness runs the
// registered component checks concurrently, each bounded by the check
// timeout, and answers 503 when any of them fails:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("orchestrator", health.OrchestratorCheck(orch))
//	checker.RegisterCheck("reaper", health.HeartbeatCheck(reaper.LastCycle, 3*interval))
//	checker.Mount(mux, cfg.Telemetry.Health)
//
// A backing service being stopped never makes lazyproxy unready; only the
// ability to reach the orchestrator and a live reaper loop do.
package health
