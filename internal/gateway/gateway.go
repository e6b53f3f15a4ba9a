// Package gateway provides the admin HTTP server: health, Prometheus
// metrics, and an authenticated API to list tasks and trigger runs. It
// binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/taskrun/internal/schedule"
	"github.com/flemzord/taskrun/internal/security"
)

// Pinger checks a backing store. *sqlite.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the gateway serves. Schedule and Processor
// are required; the rest may be nil.
type Deps struct {
	Schedule  *schedule.Schedule
	Processor *schedule.Processor
	Logger    *slog.Logger
	Redactor  *security.Redactor
	Audit     *security.AuditLogger
	Limiter   *security.RateLimiter

	// Locks, when set, is pinged by GET /health.
	Locks Pinger

	// Registry backs GET /metrics and receives the HTTP request metrics.
	Registry *prometheus.Registry

	// Now defaults to time.Now.
	Now func() time.Time
}

// Gateway is the admin HTTP server.
type Gateway struct {
	config  Config
	deps    Deps
	logger  *slog.Logger
	metrics *httpMetrics
	handler http.Handler

	mu        sync.Mutex
	server    *http.Server
	addr      string
	startedAt time.Time
}

// New builds a gateway and its router.
func New(cfg Config, deps Deps) (*Gateway, error) {
	if deps.Schedule == nil || deps.Processor == nil {
		return nil, errors.New("gateway: schedule and processor are required")
	}
	cfg.defaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Redactor == nil {
		deps.Redactor = &security.Redactor{}
	}

	g := &Gateway{
		config:    cfg,
		deps:      deps,
		logger:    deps.Logger,
		startedAt: deps.Now(),
	}
	if deps.Registry != nil {
		m, err := newHTTPMetrics(deps.Registry)
		if err != nil {
			return nil, fmt.Errorf("gateway: registering metrics: %w", err)
		}
		g.metrics = m
	}
	g.handler = g.buildRouter()
	return g, nil
}

// Handler returns the gateway's router.
func (g *Gateway) Handler() http.Handler { return g.handler }

// Addr returns the bound address once started, or the configured one.
func (g *Gateway) Addr() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.addr != "" {
		return g.addr
	}
	return g.config.Bind
}

// Start listens on the configured address and serves in the background.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.server != nil {
		return errors.New("gateway: already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	g.server = &http.Server{
		Handler:      g.handler,
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	g.addr = ln.Addr().String()
	g.startedAt = g.deps.Now()

	if !g.config.Auth.IsConfigured() {
		g.logger.Warn("gateway: no auth configured, /api endpoints are disabled")
	}

	srv := g.server
	go func() {
		g.logger.Info("gateway: listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway: serve error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	srv := g.server
	g.server = nil
	g.mu.Unlock()

	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway: shutting down")
	return srv.Shutdown(shutdownCtx)
}
