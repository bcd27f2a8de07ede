package main

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"mercator-hq/lazyproxy/pkg/activity"
	"mercator-hq/lazyproxy/pkg/config"
	"mercator-hq/lazyproxy/pkg/lifecycle"
	"mercator-hq/lazyproxy/pkg/orchestrator"
	"mercator-hq/lazyproxy/pkg/proxy"
	"mercator-hq/lazyproxy/pkg/proxy/middleware"
	"mercator-hq/lazyproxy/pkg/server"
	"mercator-hq/lazyproxy/pkg/telemetry/health"
	"mercator-hq/lazyproxy/pkg/telemetry/metrics"
)

// heartbeatFactor is how many reap intervals may pass without a completed
// cycle before readiness fails.
const heartbeatFactor = 3

// app is the assembled proxy process. The activity table and the start lock
// table are owned here and injected into the handler and the reaper.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	tracker     *activity.Tracker
	collector   *metrics.Collector
	coordinator *lifecycle.Coordinator
	reaper      *lifecycle.Reaper
	scheduler   *lifecycle.Scheduler
	checker     *health.Checker
	forwarder   *proxy.Forwarder

	proxyServer *server.Server
	adminServer *server.Server
}

func newApp(cfg *config.Config, orch orchestrator.Orchestrator, clock clockwork.Clock, opts ...proxy.ForwarderOption) *app {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	a := &app{
		cfg:    cfg,
		logger: slog.Default().With("component", "app"),
	}

	if cfg.Telemetry.Metrics.Enabled {
		a.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	}

	a.tracker = activity.NewTracker(clock)
	a.coordinator = lifecycle.NewCoordinator(orch, lifecycle.CoordinatorConfigFrom(cfg.Lifecycle), clock, a.collector)
	a.reaper = lifecycle.NewReaper(orch, a.tracker, lifecycle.ReaperConfigFrom(cfg), a.collector)
	a.scheduler = lifecycle.NewScheduler(a.reaper, cfg.Lifecycle.ReapInterval)
	a.forwarder = proxy.NewForwarder(cfg.Forward, opts...)

	a.checker = health.New(cfg.Telemetry.Health.CheckTimeout)
	a.checker.RegisterCheck("orchestrator", health.OrchestratorCheck(orch))
	a.checker.RegisterCheck("reaper", health.HeartbeatCheck(a.reaper.LastCycle, heartbeatFactor*cfg.Lifecycle.ReapInterval))

	handler := proxy.NewHandler(cfg.Proxy, a.coordinator, a.tracker, a.forwarder, a.collector)
	a.proxyServer = server.NewServer(
		server.ProxyOptions(cfg.Proxy),
		middleware.Chain(handler, cfg.Proxy.ServiceHeader),
	)

	if cfg.Telemetry.AdminAddress != "" {
		admin := server.Admin{
			Telemetry:   cfg.Telemetry,
			Checker:     a.checker,
			Collector:   a.collector,
			Tracker:     a.tracker,
			IdleTimeout: a.reaper.IdleTimeout,
		}
		a.adminServer = server.NewServer(
			server.AdminOptions(cfg.Telemetry.AdminAddress, cfg.Proxy.ShutdownTimeout),
			admin.Handler(),
		)
	}

	return a
}

// run serves until ctx is cancelled or a component fails. When configPath is
// set the file is watched and reloads adjust the idle threshold and the reap
// interval.
func (a *app) run(ctx context.Context, configPath string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.proxyServer.Start(ctx) })
	if a.adminServer != nil {
		g.Go(func() error { return a.adminServer.Start(ctx) })
	}
	g.Go(func() error { return a.scheduler.Run(ctx) })

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, config.DefaultWatchDebounce, slog.Default())
		if err != nil {
			a.logger.Warn("configuration hot reload disabled", "path", configPath, "error", err)
		} else {
			g.Go(func() error { return watcher.Watch(ctx, a.applyReload) })
		}
	}

	err := g.Wait()
	a.forwarder.CloseIdleConnections()
	return err
}

// applyReload applies the settings that can change at runtime. Everything
// else requires a restart.
func (a *app) applyReload(cfg *config.Config) {
	a.reaper.SetIdleTimeout(cfg.Lifecycle.IdleTimeout)
	if err := a.scheduler.Reschedule(cfg.Lifecycle.ReapInterval); err != nil {
		a.logger.Warn("failed to apply reap interval", "error", err)
	}

	a.logger.Info("configuration reloaded",
		"idle_timeout", cfg.Lifecycle.IdleTimeout,
		"reap_interval", cfg.Lifecycle.ReapInterval,
	)
}

// ready blocks until every listener is bound or ctx is done.
func (a *app) ready(ctx context.Context) error {
	servers := []*server.Server{a.proxyServer}
	if a.adminServer != nil {
		servers = append(servers, a.adminServer)
	}
	for _, s := range servers {
		select {
		case <-s.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// settings returns the effective settings as log attributes.
func (a *app) settings() []any {
	return []any{
		"listen_address", a.cfg.Proxy.ListenAddress,
		"admin_address", a.cfg.Telemetry.AdminAddress,
		"project", a.cfg.Orchestrator.Project,
		"idle_timeout", a.cfg.Lifecycle.IdleTimeout,
		"reap_interval", a.cfg.Lifecycle.ReapInterval,
		"start_attempts", a.cfg.Lifecycle.StartAttempts,
		"start_poll_interval", a.cfg.Lifecycle.StartPollInterval,
		"start_timeout", a.cfg.Lifecycle.StartTimeout,
		"start_port_check", a.cfg.Lifecycle.StartPortCheck,
		"forward_timeout", a.cfg.Forward.Timeout,
		"tracing", a.cfg.Telemetry.Tracing.Enabled,
	}
}
