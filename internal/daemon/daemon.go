// Package daemon drives a schedule from a minute ticker: at the top of
// every minute it asks the processor to run the due tasks.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flemzord/taskrun/internal/runner"
	"github.com/flemzord/taskrun/internal/schedule"
	"github.com/flemzord/taskrun/internal/task"
)

// tickSpec fires at second zero of every minute.
const tickSpec = "* * * * *"

// BatchRunner runs the due tasks of a schedule. *schedule.Processor
// satisfies it.
type BatchRunner interface {
	Run(ctx context.Context, s *schedule.Schedule, now time.Time) (*task.ResultSet, error)
}

// Daemon ticks once per minute. A tick that fires while the previous
// batch is still running is skipped.
type Daemon struct {
	mu       sync.Mutex
	cron     *cron.Cron
	batch    sync.Mutex
	runner   BatchRunner
	schedule *schedule.Schedule
	logger   *slog.Logger
	now      func() time.Time
	cancel   context.CancelFunc
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Daemon) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock overrides time.Now for the batch reference time.
func WithClock(now func() time.Time) Option {
	return func(d *Daemon) {
		if now != nil {
			d.now = now
		}
	}
}

// New creates a daemon for s.
func New(r BatchRunner, s *schedule.Schedule, opts ...Option) *Daemon {
	d := &Daemon{
		runner:   r,
		schedule: s,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start begins ticking. The ticker is parented to ctx: cancelling it
// cancels the context handed to running tasks.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cron != nil {
		return errors.New("daemon: already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser))
	if _, err := c.AddFunc(tickSpec, func() { d.Tick(ctx) }); err != nil {
		cancel()
		return err
	}

	d.cron = c
	d.cancel = cancel
	c.Start()
	d.logger.Info("daemon: started", "schedule", d.schedule.Name(), "tasks", d.schedule.Len())
	return nil
}

// Tick runs one batch now. It returns false without running when a batch
// is already in progress.
func (d *Daemon) Tick(ctx context.Context) bool {
	// Ticks never queue behind a running batch.
	if !d.batch.TryLock() {
		d.logger.Warn("daemon: previous batch still running, skipping tick")
		return false
	}
	defer d.batch.Unlock()

	now := d.now()
	results, err := d.runner.Run(ctx, d.schedule, now)
	if err != nil {
		var (
			hookErr *runner.HookError
			ruleErr *schedule.RuleError
		)
		switch {
		case errors.As(err, &hookErr):
			d.logger.Error("daemon: batch aborted", "task", hookErr.TaskID, "stage", string(hookErr.Stage), "error", hookErr.Err)
			return true
		case errors.As(err, &ruleErr):
			d.logger.Warn("daemon: tasks left out of batch", "error", err)
		default:
			d.logger.Error("daemon: batch failed", "error", err)
			return true
		}
	}
	if results.Len() > 0 {
		d.logger.Debug("daemon: batch completed",
			"successful", results.Successful().Len(),
			"skipped", results.Skipped().Len(),
			"failed", results.Failed().Len(),
		)
	}
	return true
}

// Stop halts the ticker and waits for an in-flight batch.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cron == nil {
		return nil
	}
	stopped := d.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
	d.cancel()
	d.cron = nil
	d.logger.Info("daemon: stopped")
	return nil
}
