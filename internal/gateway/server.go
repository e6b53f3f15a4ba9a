package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flemzord/taskrun/internal/metrics"
	"github.com/flemzord/taskrun/internal/security"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if g.metrics != nil {
		r.Use(g.metrics.middleware)
	}

	// Public: no auth required.
	r.Get("/health", g.handleHealth())
	if g.deps.Registry != nil {
		r.Handle("/metrics", metrics.Handler(g.deps.Registry))
	}

	// Admin API: auth required. Not mounted if no auth is configured.
	if g.config.Auth.IsConfigured() {
		r.Route("/api", func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.deps.Audit, g.deps.Limiter))
			r.Get("/tasks", g.handleListTasks())
			r.Get("/tasks/{id}", g.handleGetTask())
			r.With(g.runLimit).Post("/tasks/{id}/run", g.handleRunTask())
			r.With(g.runLimit).Post("/schedule/run", g.handleRunSchedule())
		})
	}

	return r
}

// runLimit applies the "run" rate limit bucket.
func (g *Gateway) runLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.deps.Limiter != nil {
			if err := g.deps.Limiter.Allow(security.KindRun); err != nil {
				emitEvent(g.deps.Audit, security.EventRateLimit, r, chi.URLParam(r, "id"), security.KindRun)
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type errorJSON struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorJSON{Error: msg})
}
