package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flemzord/taskrun/internal/config"
	"github.com/flemzord/taskrun/internal/daemon"
	"github.com/flemzord/taskrun/internal/gateway"
	"github.com/flemzord/taskrun/internal/reload"
	"github.com/flemzord/taskrun/internal/security"
)

// drainTimeout bounds how long shutdown waits for an in-flight batch.
const drainTimeout = time.Minute

// Serve starts the admin gateway and the minute ticker, and blocks until
// ctx is done or a termination signal arrives. SIGHUP and changes to the
// configuration file reload the task list.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deps := gateway.Deps{
		Schedule:  a.schedule,
		Processor: a.processor,
		Logger:    a.logger,
		Redactor:  a.redactor,
		Audit:     a.auditLogger(),
		Limiter:   security.NewRateLimiter(rateLimitConfig(a.config.Gateway)),
		Registry:  a.registry,
		Now:       a.now,
	}
	if p, ok := a.locks.(gateway.Pinger); ok {
		deps.Locks = p
	}
	gw, err := gateway.New(gatewayConfig(a.config.Gateway), deps)
	if err != nil {
		return err
	}
	if err := gw.Start(ctx); err != nil {
		return err
	}

	d := daemon.New(a.processor, a.schedule, daemon.WithLogger(a.logger), daemon.WithClock(a.now))
	if err := d.Start(ctx); err != nil {
		_ = gw.Stop(context.WithoutCancel(ctx))
		return err
	}

	// --- signal handling ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	// --- file watcher ---
	handler := reload.NewHandler(a, a.logger)
	var changes <-chan reload.Event
	if a.path != "" {
		watcher := reload.NewWatcher(reload.WatcherConfig{ConfigPath: a.path, Logger: a.logger})
		if err := watcher.Start(ctx); err != nil {
			a.logger.Warn("app: config watcher unavailable, reload with SIGHUP", "error", err)
		} else {
			defer watcher.Stop()
			changes = watcher.Events()
		}
	}

	// --- main event loop ---
	for {
		select {
		case <-ctx.Done():
			return a.shutdown(ctx, gw, d)
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				a.logger.Info("app: SIGHUP received, reloading configuration")
				a.reload(ctx, handler)
				continue
			}
			a.logger.Info("app: shutdown signal received", "signal", sig.String())
			return a.shutdown(ctx, gw, d)
		case evt := <-changes:
			a.logger.Info("app: config file changed, reloading", "path", evt.ConfigPath)
			a.reload(ctx, handler)
		}
	}
}

func (a *App) reload(ctx context.Context, h *reload.Handler) {
	if a.path == "" {
		a.logger.Warn("app: no configuration file to reload")
		return
	}
	if err := h.HandleReload(ctx, a.path); err != nil {
		a.logger.Error("app: reload failed", "error", err)
	}
}

func (a *App) shutdown(ctx context.Context, gw *gateway.Gateway, d *daemon.Daemon) error {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()

	err := errors.Join(gw.Stop(stopCtx), d.Stop(stopCtx))
	a.logger.Info("app: shutdown complete")
	return err
}

func (a *App) auditLogger() *security.AuditLogger {
	return security.NewAuditLogger(security.AuditLoggerConfig{
		Redactor: a.redactor,
		Now:      a.now,
		OnEvent: func(e security.AuditEvent) {
			a.logger.Info("gateway: audit",
				"type", string(e.Type),
				"remote_ip", e.RemoteIP,
				"path", e.Path,
				"task", e.TaskID,
				"detail", e.Detail,
			)
		},
	})
}

func gatewayConfig(c config.GatewayConfig) gateway.Config {
	return gateway.Config{
		Bind: c.Bind,
		Auth: gateway.AuthConfig{
			BearerToken: c.Auth.BearerToken,
			BasicUser:   c.Auth.BasicUser,
			BasicPass:   c.Auth.BasicPass,
		},
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
	}
}

func rateLimitConfig(c config.GatewayConfig) security.RateLimitConfig {
	rl := security.DefaultRateLimitConfig()
	if c.RunRate > 0 {
		rl.Run.PerSecond = c.RunRate
	}
	if c.RunBurst > 0 {
		rl.Run.Burst = c.RunBurst
	}
	return rl
}
