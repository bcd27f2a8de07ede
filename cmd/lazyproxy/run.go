package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/lazyproxy/pkg/cli"
	"mercator-hq/lazyproxy/pkg/config"
	"mercator-hq/lazyproxy/pkg/orchestrator"
	"mercator-hq/lazyproxy/pkg/orchestrator/docker"
	"mercator-hq/lazyproxy/pkg/proxy"
	"mercator-hq/lazyproxy/pkg/server"
	"mercator-hq/lazyproxy/pkg/telemetry/logging"
	"mercator-hq/lazyproxy/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the lazy-activation proxy",
	Long: `Start the proxy listener, the admin listener and the idle reaper.

The proxy starts backing services on their first request and the reaper stops
them again once they have been idle longer than lifecycle.idle_timeout.
When a configuration file is in use it is watched, and changes to the idle
timeout and the reap interval are applied without a restart.

Examples:
  # Start with defaults and environment overrides
  lazyproxy run

  # Start with a config file
  lazyproxy run --config /etc/lazyproxy/config.yaml

  # Override listen address
  lazyproxy run --listen 0.0.0.0:8080

  # Validate config without starting
  lazyproxy run --dry-run`,
	RunE: runProxy,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

// closableOrchestrator is an orchestrator holding resources released on exit.
type closableOrchestrator interface {
	orchestrator.Orchestrator
	Close() error
}

// newOrchestrator connects to the orchestrator described by cfg.
var newOrchestrator = func(cfg *config.Config) (closableOrchestrator, error) {
	o, err := docker.New(docker.Config{
		Project:     cfg.Orchestrator.Project,
		WorkDir:     cfg.Orchestrator.WorkDir,
		ComposeFile: cfg.Orchestrator.ComposeFile,
		Profile:     cfg.Orchestrator.Profile,
		Host:        cfg.Orchestrator.DockerHost,
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func runProxy(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
		if err := revalidate(cfg); err != nil {
			return err
		}
	}

	if _, err := logging.Setup(cfg.Telemetry.Logging); err != nil {
		return cli.WrapConfigError(err)
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	orch, err := newOrchestrator(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer orch.Close()

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing, tracing.WithServiceVersion(Version))
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Proxy.ShutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	a := newApp(cfg, orch, nil, proxy.WithTracer(tracer))
	slog.Info("starting lazyproxy", append([]any{"version", Version, "config", path}, a.settings()...)...)

	go func() {
		if a.ready(ctx) != nil {
			return
		}
		fmt.Fprintf(out, "✓ Proxy listening on %s\n", a.proxyServer.Addr())
		if a.adminServer != nil {
			fmt.Fprintf(out, "✓ Admin listening on %s (%s, %s, %s, %s)\n",
				a.adminServer.Addr(),
				cfg.Telemetry.Health.LivenessPath,
				cfg.Telemetry.Health.ReadinessPath,
				cfg.Telemetry.Metrics.Path,
				server.ServicesPath,
			)
		}
	}()

	if err := a.run(ctx, path); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Stopped")
	return nil
}
