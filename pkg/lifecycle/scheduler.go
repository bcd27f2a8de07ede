package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Cycler is the job run by the Scheduler. *Reaper implements it.
type Cycler interface {
	RunCycle(ctx context.Context) (CycleReport, error)
}

// intervalSchedule fires every d after the previous activation. Unlike
// cron.Every it does not round to whole seconds.
type intervalSchedule time.Duration

func (s intervalSchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(s))
}

// Scheduler runs the reaper on a fixed interval. A cycle that is still
// running when the next one is due causes that activation to be skipped.
type Scheduler struct {
	cycler Cycler
	cron   *cron.Cron
	logger *slog.Logger

	mu       sync.Mutex
	entry    cron.EntryID
	interval time.Duration
	ctx      context.Context
	running  bool
}

// NewScheduler creates a scheduler for cycler with the given interval.
func NewScheduler(cycler Cycler, interval time.Duration) *Scheduler {
	logger := slog.Default().With("component", "lifecycle.scheduler")
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cycler:   cycler,
		interval: interval,
		logger:   logger,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start schedules the reaper and returns. Cycles receive ctx, and the
// scheduler stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if s.interval <= 0 {
		return fmt.Errorf("invalid reap interval %s", s.interval)
	}

	s.ctx = ctx
	s.entry = s.cron.Schedule(intervalSchedule(s.interval), s.job())
	s.cron.Start()
	s.running = true

	s.logger.Info("reaper scheduler started", "schedule", "@every "+s.interval.String())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Reschedule replaces the interval. It takes effect from the next
// activation; a cycle in progress is not interrupted.
func (s *Scheduler) Reschedule(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid reap interval %s", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if interval == s.interval {
		return nil
	}
	old := s.interval
	s.interval = interval

	if s.running {
		s.cron.Remove(s.entry)
		s.entry = s.cron.Schedule(intervalSchedule(interval), s.job())
	}

	s.logger.Info("reaper interval changed", "old", old, "new", interval)
	return nil
}

// Interval returns the current interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Stop stops the scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	done := s.cron.Stop()
	<-done.Done()
	s.running = false
	s.logger.Info("reaper scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled cycle, or nil when not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	return &next
}

// job must be called with s.mu held. The cron chain wraps every scheduled
// job with Recover and SkipIfStillRunning.
func (s *Scheduler) job() cron.Job {
	ctx := s.ctx
	return cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		// Errors are logged by the cycler.
		_, _ = s.cycler.RunCycle(ctx)
	})
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
