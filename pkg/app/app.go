// Package app wires a taskrun configuration into a runnable schedule and
// provides the entry points shared by the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/flemzord/taskrun/internal/config"
	"github.com/flemzord/taskrun/internal/console"
	"github.com/flemzord/taskrun/internal/lock"
	"github.com/flemzord/taskrun/internal/metrics"
	"github.com/flemzord/taskrun/internal/notify"
	"github.com/flemzord/taskrun/internal/runner"
	"github.com/flemzord/taskrun/internal/schedule"
	"github.com/flemzord/taskrun/internal/security"
	"github.com/flemzord/taskrun/internal/task"
	"github.com/flemzord/taskrun/internal/telemetry"
	"github.com/flemzord/taskrun/modules/lock/sqlite"
)

const (
	defaultScheduleName = "default"
	httpTimeout         = 30 * time.Second
)

// Built-in console commands available to command tasks.
const (
	CommandScheduleList = "schedule:list"
	CommandLocksPurge   = "locks:purge"
)

// Options configures New.
type Options struct {
	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer

	// Now overrides time.Now for task execution and due checks.
	Now func() time.Time
}

// App holds a configured schedule and everything needed to run it.
type App struct {
	config    *config.Config
	path      string
	logger    *slog.Logger
	redactor  *security.Redactor
	schedule  *schedule.Schedule
	processor *schedule.Processor
	registry  *prometheus.Registry
	commands  *console.Commands
	locks     task.LockStore
	now       func() time.Time

	closers []func(context.Context) error
}

// Load resolves the configuration file, loads and validates it, and builds
// the application. An empty path searches the standard locations.
func Load(ctx context.Context, path string, opts Options) (*App, error) {
	if path == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	a, err := New(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	a.path = path
	return a, nil
}

// New builds the application for a validated configuration. Close must be
// called to release the lock store and flush traces.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}

	redactor := NewRedactor(cfg)
	logger := NewLogger(cfg.Log, opts.LogOutput, redactor)

	name := cfg.Schedule.Name
	if name == "" {
		name = defaultScheduleName
	}

	a := &App{
		config:   cfg,
		logger:   logger,
		redactor: redactor,
		schedule: schedule.New(name),
		registry: prometheus.NewRegistry(),
		commands: console.NewCommands(),
		now:      opts.Now,
	}

	fail := func(err error) (*App, error) {
		_ = a.Close(context.WithoutCancel(ctx))
		return nil, err
	}

	locks, err := a.openLocks(ctx)
	if err != nil {
		return fail(err)
	}
	a.locks = locks

	env := &task.Env{
		Logger:   logger,
		Locks:    locks,
		HTTP:     &http.Client{Timeout: httpTimeout},
		Commands: a.commands,
		Now:      opts.Now,
	}
	if cfg.Mail.Configured() {
		env.Mailer = &notify.SMTPMailer{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}
	}

	tp, shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		Headers:     cfg.Telemetry.Headers,
		ServiceName: cfg.Telemetry.ServiceName,
	}, logger)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, shutdown)

	policy := runner.AfterErrorFatal
	if cfg.Runner.AfterError == "fail" {
		policy = runner.AfterErrorFail
	}
	r := runner.New(env,
		runner.WithLogger(logger),
		runner.WithTracerProvider(tp),
		runner.WithAfterErrorPolicy(policy),
	)

	if err := a.registry.Register(collectors.NewGoCollector()); err != nil {
		return fail(fmt.Errorf("app: register go collector: %w", err))
	}
	if err := a.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return fail(fmt.Errorf("app: register process collector: %w", err))
	}
	observer, err := metrics.NewObserver(a.registry)
	if err != nil {
		return fail(err)
	}

	a.processor = schedule.NewProcessor(r,
		schedule.WithLogger(logger),
		schedule.WithObserver(schedule.NewLogObserver(logger)),
		schedule.WithObserver(observer),
	)

	if err := a.registerCommands(locks); err != nil {
		return fail(err)
	}

	tasks, err := BuildTasks(cfg)
	if err != nil {
		return fail(err)
	}
	a.schedule.Replace(tasks...)
	return a, nil
}

func (a *App) openLocks(ctx context.Context) (task.LockStore, error) {
	lc := a.config.Locks
	if lc.Driver != config.LockDriverSQLite {
		return lock.NewMemory(), nil
	}

	store, err := sqlite.Open(ctx, sqlite.Config{
		Path:        lc.Path,
		WAL:         lc.WAL,
		BusyTimeout: lc.BusyTimeout,
	}, a.config.DataDir, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	return store, nil
}

func (a *App) registerCommands(locks task.LockStore) error {
	if err := a.commands.Register(CommandScheduleList, console.ListCommand(a.schedule, a.now)); err != nil {
		return err
	}
	if p, ok := locks.(console.Purger); ok {
		if err := a.commands.Register(CommandLocksPurge, console.PurgeLocksCommand(p)); err != nil {
			return err
		}
	}
	return nil
}

// Apply replaces the registered tasks with those of cfg. Other settings
// take effect on the next start. It implements reload.Applier.
func (a *App) Apply(_ context.Context, cfg *config.Config) error {
	if cfg.DataDir == "" {
		cfg.DataDir = a.config.DataDir
	}
	tasks, err := BuildTasks(cfg)
	if err != nil {
		return err
	}
	a.schedule.Replace(tasks...)
	a.logger.Info("app: tasks replaced", "schedule", a.schedule.Name(), "tasks", len(tasks))
	return nil
}

// Close releases the lock store and flushes pending traces.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Config returns the configuration the application was built from.
func (a *App) Config() *config.Config { return a.config }

// ConfigPath returns the loaded file path, empty when built from memory.
func (a *App) ConfigPath() string { return a.path }

// Logger returns the redacting process logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Redactor returns the secret redactor.
func (a *App) Redactor() *security.Redactor { return a.redactor }

// Schedule returns the task registry.
func (a *App) Schedule() *schedule.Schedule { return a.schedule }

// Processor returns the batch processor.
func (a *App) Processor() *schedule.Processor { return a.processor }

// Registry returns the Prometheus registry holding the task metrics.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Commands returns the console command registry.
func (a *App) Commands() *console.Commands { return a.commands }

// Now returns the current time according to the application clock.
func (a *App) Now() time.Time { return a.now() }
