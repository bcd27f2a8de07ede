package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/lazyproxy/pkg/activity"
	"mercator-hq/lazyproxy/pkg/config"
	"mercator-hq/lazyproxy/pkg/orchestrator"
	"mercator-hq/lazyproxy/pkg/telemetry/metrics"
)

// statusCallTimeout bounds each ListServices and Status call of a cycle.
const statusCallTimeout = 10 * time.Second

// stopCallTimeout bounds a Stop call given the container grace period: the
// grace period plus the same again, at least one second, for the kill and
// the daemon round trip.
func stopCallTimeout(grace time.Duration) time.Duration {
	return grace + max(grace, time.Second)
}

// ReaperConfig controls idle reclamation.
type ReaperConfig struct {
	// IdleTimeout is the idle threshold. A service idle for exactly the
	// threshold is kept.
	IdleTimeout time.Duration

	// StopTimeout is the grace period passed to Stop.
	StopTimeout time.Duration

	// LazyLabel marks services enrolled by discovery.
	LazyLabel string

	// ProtectLabel marks dependencies that are never stopped.
	ProtectLabel string

	// StopDependencies stops the compose dependencies of a reclaimed service.
	StopDependencies bool
}

// ReaperConfigFrom extracts the reclamation settings from the configuration.
func ReaperConfigFrom(cfg *config.Config) ReaperConfig {
	return ReaperConfig{
		IdleTimeout:      cfg.Lifecycle.IdleTimeout,
		StopTimeout:      cfg.Lifecycle.StopTimeout,
		LazyLabel:        cfg.Orchestrator.LazyLabel,
		ProtectLabel:     cfg.Orchestrator.ProtectLabel,
		StopDependencies: cfg.Lifecycle.StopDependencies,
	}
}

// CycleReport summarises one reaper cycle. Name lists are sorted.
type CycleReport struct {
	// Discovered lists services newly enrolled by discovery.
	Discovered []string

	// Busy lists idle candidates skipped because requests were in flight.
	Busy []string

	// Stopped lists services stopped for being idle.
	Stopped []string

	// DependenciesStopped lists dependencies stopped with their parent.
	DependenciesStopped []string

	// Untracked lists services removed from the table because they were
	// already stopped or gone.
	Untracked []string

	// Failed maps a service to the status or stop error that kept it tracked.
	Failed map[string]error
}

// Reaper stops services that have been idle past the threshold.
type Reaper struct {
	orch    orchestrator.Orchestrator
	tracker *activity.Tracker
	metrics *metrics.Collector
	logger  *slog.Logger

	mu  sync.RWMutex
	cfg ReaperConfig

	// cycleMu serializes cycles across interval changes.
	cycleMu sync.Mutex

	lastCycle atomic.Int64
}

// NewReaper creates a reaper over the given tracker. A nil collector
// disables metrics.
func NewReaper(orch orchestrator.Orchestrator, tracker *activity.Tracker, cfg ReaperConfig, collector *metrics.Collector) *Reaper {
	return &Reaper{
		orch:    orch,
		tracker: tracker,
		metrics: collector,
		cfg:     cfg,
		logger:  slog.Default().With("component", "lifecycle.reaper"),
	}
}

// SetIdleTimeout changes the idle threshold for subsequent cycles.
func (r *Reaper) SetIdleTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d != r.cfg.IdleTimeout {
		r.logger.Info("idle timeout changed", "old", r.cfg.IdleTimeout, "new", d)
	}
	r.cfg.IdleTimeout = d
}

// IdleTimeout returns the current idle threshold.
func (r *Reaper) IdleTimeout() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.IdleTimeout
}

// LastCycle returns when the last cycle finished, or the zero time.
func (r *Reaper) LastCycle() time.Time {
	ns := r.lastCycle.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (r *Reaper) config() ReaperConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// RunCycle performs discovery followed by reclamation. A discovery failure
// skips the cycle and is returned as a *DiscoveryError; per-service failures
// are reported in CycleReport.Failed.
func (r *Reaper) RunCycle(ctx context.Context) (CycleReport, error) {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	cfg := r.config()
	report := CycleReport{Failed: make(map[string]error)}

	services, err := r.listServices(ctx)
	if err != nil {
		derr := &DiscoveryError{Err: err}
		r.logger.Error("reaper cycle skipped", "error", derr)
		r.metrics.RecordReaperCycle(metrics.OutcomeSkipped)
		return report, derr
	}

	report.Discovered = r.discover(services, cfg)
	r.reclaim(ctx, cfg, services, &report)

	r.lastCycle.Store(time.Now().UnixNano())
	r.metrics.SetTrackedServices(r.tracker.Len())
	r.metrics.RecordReaperCycle(metrics.OutcomeOK)

	if len(report.Stopped)+len(report.Untracked)+len(report.Failed) > 0 {
		r.logger.Info("reaper cycle finished",
			"stopped", report.Stopped,
			"dependencies_stopped", report.DependenciesStopped,
			"untracked", report.Untracked,
			"failed", len(report.Failed),
		)
	}

	return report, nil
}

// discover enrols running lazy services that are not tracked yet.
func (r *Reaper) discover(services []orchestrator.Service, cfg ReaperConfig) []string {
	var found []string
	for _, svc := range services {
		if !svc.Running() || !svc.HasTrueLabel(cfg.LazyLabel) {
			continue
		}
		if r.tracker.Discover(svc.Name) {
			r.logger.Info("discovered lazy service, starting idle timer", "service", svc.Name)
			found = append(found, svc.Name)
		}
	}
	sort.Strings(found)
	return found
}

func (r *Reaper) reclaim(ctx context.Context, cfg ReaperConfig, services []orchestrator.Service, report *CycleReport) {
	snapshot := r.tracker.Snapshot()
	now := r.tracker.Now()

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	stopping := make(map[string]bool)

	for _, name := range names {
		act := snapshot[name]
		if !act.Idle() {
			report.Busy = append(report.Busy, name)
			continue
		}
		idle := act.IdleFor(now)
		if idle <= cfg.IdleTimeout {
			continue
		}

		svc, err := r.status(ctx, name)
		if err != nil {
			report.Failed[name] = &ReclaimError{Service: name, Op: "status", Err: err}
			r.logger.Warn("status query failed, keeping service tracked", "service", name, "error", err)
			continue
		}

		switch svc.State {
		case orchestrator.StateRunning:
			r.logger.Info("idle timeout reached, stopping service",
				"service", name,
				"idle", idle.Round(time.Millisecond),
				"threshold", cfg.IdleTimeout,
			)
			if err := r.stop(ctx, name, cfg.StopTimeout); err != nil {
				if errors.Is(err, orchestrator.ErrServiceNotFound) {
					r.tracker.Untrack(name)
					report.Untracked = append(report.Untracked, name)
					continue
				}
				report.Failed[name] = &ReclaimError{Service: name, Op: "stop", Err: err}
				r.metrics.RecordStop(name, metrics.OutcomeError)
				r.logger.Error("failed to stop service", "service", name, "error", err)
				continue
			}
			r.metrics.RecordStop(name, metrics.OutcomeOK)
			report.Stopped = append(report.Stopped, name)
			stopping[name] = true

			if cfg.StopDependencies {
				r.stopDependencies(ctx, cfg, svc, services, snapshot, stopping, report)
			}

		default:
			r.tracker.Untrack(name)
			report.Untracked = append(report.Untracked, name)
			r.logger.Debug("service no longer running, untracked", "service", name, "state", svc.State)
		}
	}

	sort.Strings(report.DependenciesStopped)
}

// stopDependencies stops the running dependencies of parent unless they are
// protected, serving requests, or still needed by another running service.
func (r *Reaper) stopDependencies(
	ctx context.Context,
	cfg ReaperConfig,
	parent orchestrator.Service,
	services []orchestrator.Service,
	snapshot map[string]activity.Activity,
	stopping map[string]bool,
	report *CycleReport,
) {
	for _, dep := range parent.DependsOn {
		if stopping[dep] {
			continue
		}
		if act, ok := snapshot[dep]; ok && !act.Idle() {
			continue
		}
		if neededByOther(dep, parent.Name, services, stopping) {
			r.logger.Debug("dependency still in use, keeping it", "service", parent.Name, "dependency", dep)
			continue
		}

		svc, err := r.status(ctx, dep)
		if err != nil {
			report.Failed[dep] = &ReclaimError{Service: dep, Op: "status", Err: err}
			continue
		}
		if !svc.Running() || svc.Protected(cfg.ProtectLabel) {
			continue
		}

		r.logger.Info("stopping dependency", "service", parent.Name, "dependency", dep)
		if err := r.stop(ctx, dep, cfg.StopTimeout); err != nil {
			report.Failed[dep] = &ReclaimError{Service: dep, Op: "stop dependency", Err: err}
			r.metrics.RecordStop(dep, metrics.OutcomeError)
			r.logger.Error("failed to stop dependency", "dependency", dep, "error", err)
			continue
		}
		r.metrics.RecordStop(dep, metrics.OutcomeOK)
		stopping[dep] = true
		report.DependenciesStopped = append(report.DependenciesStopped, dep)
	}
}

func (r *Reaper) listServices(ctx context.Context) ([]orchestrator.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, statusCallTimeout)
	defer cancel()
	return r.orch.ListServices(ctx)
}

func (r *Reaper) status(ctx context.Context, name string) (orchestrator.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, statusCallTimeout)
	defer cancel()
	return r.orch.Status(ctx, name)
}

// stop bounds one Stop call so a hung daemon cannot stall the cycle and with
// it Scheduler.Stop.
func (r *Reaper) stop(ctx context.Context, name string, grace time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, stopCallTimeout(grace))
	defer cancel()
	return r.orch.Stop(ctx, name, grace)
}

// neededByOther reports whether a running service other than parent, and not
// being stopped in this cycle, depends on dep.
func neededByOther(dep, parent string, services []orchestrator.Service, stopping map[string]bool) bool {
	for _, svc := range services {
		if svc.Name == parent || !svc.Running() || stopping[svc.Name] {
			continue
		}
		for _, d := range svc.DependsOn {
			if d == dep {
				return true
			}
		}
	}
	return false
}
