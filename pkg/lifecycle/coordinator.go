package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"mercator-hq/lazyproxy/pkg/config"
	"mercator-hq/lazyproxy/pkg/orchestrator"
	"mercator-hq/lazyproxy/pkg/telemetry/logging"
	"mercator-hq/lazyproxy/pkg/telemetry/metrics"
)

// CoordinatorConfig bounds a start sequence.
type CoordinatorConfig struct {
	// PollInterval is the delay between readiness polls.
	PollInterval time.Duration

	// Attempts is the number of readiness polls before giving up.
	Attempts int

	// GracePeriod is waited once after the service first reports running.
	GracePeriod time.Duration

	// StartTimeout bounds the start command. Non-positive selects
	// config.DefaultStartTimeout.
	StartTimeout time.Duration

	// PortCheck makes EnsureListening also require the target port to
	// accept a TCP connection.
	PortCheck bool

	// PortCheckTimeout bounds one port dial. Non-positive selects
	// config.DefaultPortCheckTimeout.
	PortCheckTimeout time.Duration

	// Dial opens the port check connection. Nil uses a net.Dialer.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// CoordinatorConfigFrom extracts the start settings from the lifecycle
// configuration.
func CoordinatorConfigFrom(cfg config.LifecycleConfig) CoordinatorConfig {
	return CoordinatorConfig{
		PollInterval:     cfg.StartPollInterval,
		Attempts:         cfg.StartAttempts,
		GracePeriod:      cfg.StartGracePeriod,
		StartTimeout:     cfg.StartTimeout,
		PortCheck:        cfg.StartPortCheck,
		PortCheckTimeout: cfg.PortCheckTimeout,
	}
}

// startLock is a one-slot semaphore. Acquiring it can be abandoned when the
// caller's context ends, which sync.Mutex cannot do.
type startLock chan struct{}

func (l startLock) acquire(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l startLock) release() {
	<-l
}

// Coordinator brings services up on demand, issuing at most one start per
// service at a time.
type Coordinator struct {
	orch    orchestrator.Orchestrator
	cfg     CoordinatorConfig
	clock   clockwork.Clock
	metrics *metrics.Collector
	logger  *slog.Logger

	// locks maps a service name to its startLock. Entries are never removed.
	locks sync.Map
}

// NewCoordinator creates a coordinator. A nil clock uses the real clock and a
// nil collector disables metrics.
func NewCoordinator(orch orchestrator.Orchestrator, cfg CoordinatorConfig, clock clockwork.Clock, collector *metrics.Collector) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = config.DefaultStartTimeout
	}
	if cfg.PortCheckTimeout <= 0 {
		cfg.PortCheckTimeout = config.DefaultPortCheckTimeout
	}
	if cfg.Dial == nil {
		var d net.Dialer
		cfg.Dial = d.DialContext
	}
	return &Coordinator{
		orch:    orch,
		cfg:     cfg,
		clock:   clock,
		metrics: collector,
		logger:  slog.Default().With("component", "lifecycle.coordinator"),
	}
}

func (c *Coordinator) lockFor(service string) startLock {
	if l, ok := c.locks.Load(service); ok {
		return l.(startLock)
	}
	l, _ := c.locks.LoadOrStore(service, make(startLock, 1))
	return l.(startLock)
}

// EnsureRunning returns once service is running, starting it if needed. The
// returned error is always a *StartFailure.
func (c *Coordinator) EnsureRunning(ctx context.Context, service string) error {
	return c.ensure(ctx, service, 0)
}

// EnsureListening is EnsureRunning for a request bound to port. With the port
// check enabled a running service only counts as ready once port accepts a
// TCP connection.
func (c *Coordinator) EnsureListening(ctx context.Context, service string, port int) error {
	if !c.cfg.PortCheck {
		port = 0
	}
	return c.ensure(ctx, service, port)
}

func (c *Coordinator) ensure(ctx context.Context, service string, port int) error {
	if c.isReady(ctx, service, port) {
		return nil
	}

	lock := c.lockFor(service)
	if err := lock.acquire(ctx); err != nil {
		return &StartFailure{Service: service, Reason: "gave up waiting for start", Err: err}
	}

	// Another caller may have completed the start while we waited.
	if c.isReady(ctx, service, port) {
		lock.release()
		return nil
	}

	return c.start(ctx, service, port, lock)
}

// start owns lock and releases it once the start command has returned, which
// may be after ctx has ended.
func (c *Coordinator) start(ctx context.Context, service string, port int, lock startLock) error {
	logger := logging.WithContext(c.logger, ctx).With("service", service)
	began := c.clock.Now()

	logger.Info("starting service")

	// A client hanging up must not abort the compose command halfway, so the
	// command only ends at the start timeout.
	startCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.StartTimeout)
	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- c.orch.Start(startCtx, service)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		go func() {
			if err := <-done; err != nil {
				logger.Warn("detached start command failed", "error", err)
			}
			lock.release()
		}()
		return c.abandoned(service, began, ctx.Err())
	}
	defer lock.release()

	if err != nil {
		c.metrics.RecordStart(service, metrics.OutcomeError, c.clock.Since(began))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(startCtx.Err(), context.DeadlineExceeded) {
			logger.Error("start command timed out", "timeout", c.cfg.StartTimeout, "error", err)
			return &StartFailure{Service: service, Reason: ReasonTimeout, Err: errors.Join(ErrStartTimeout, err)}
		}
		logger.Error("start command failed", "error", err)
		return &StartFailure{Service: service, Reason: err.Error(), Err: err}
	}

	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		if c.isReady(ctx, service, port) {
			if err := c.sleep(ctx, c.cfg.GracePeriod); err != nil {
				return c.abandoned(service, began, err)
			}
			elapsed := c.clock.Since(began)
			logger.Info("service ready", "attempts", attempt, "duration", elapsed)
			c.metrics.RecordStart(service, metrics.OutcomeOK, elapsed)
			return nil
		}

		if attempt == c.cfg.Attempts {
			break
		}
		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return c.abandoned(service, began, err)
		}
	}

	logger.Error("service did not become ready", "attempts", c.cfg.Attempts)
	c.metrics.RecordStart(service, metrics.OutcomeError, c.clock.Since(began))
	return &StartFailure{Service: service, Reason: ReasonTimeout, Err: ErrStartTimeout}
}

func (c *Coordinator) abandoned(service string, began time.Time, err error) error {
	c.metrics.RecordStart(service, metrics.OutcomeSkipped, c.clock.Since(began))
	return &StartFailure{Service: service, Reason: "request cancelled during start", Err: err}
}

// isReady reports whether service is running and, for a non-zero port,
// whether the port accepts connections.
func (c *Coordinator) isReady(ctx context.Context, service string, port int) bool {
	if !c.isRunning(ctx, service) {
		return false
	}
	return port == 0 || c.portOpen(ctx, service, port)
}

// isRunning treats a status error as not running.
func (c *Coordinator) isRunning(ctx context.Context, service string) bool {
	svc, err := c.orch.Status(ctx, service)
	if err != nil {
		c.logger.Debug("status query failed", "service", service, "error", err)
		return false
	}
	return svc.Running()
}

func (c *Coordinator) portOpen(ctx context.Context, service string, port int) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PortCheckTimeout)
	defer cancel()

	conn, err := c.cfg.Dial(ctx, "tcp", net.JoinHostPort(service, strconv.Itoa(port)))
	if err != nil {
		c.logger.Debug("port not accepting connections", "service", service, "port", port, "error", err)
		return false
	}
	_ = conn.Close()
	return true
}

func (c *Coordinator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := c.clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
