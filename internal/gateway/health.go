package gateway

import (
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Schedule string `json:"schedule"`
	Tasks    int    `json:"tasks"`
	Uptime   int64  `json:"uptime_seconds"`
	Locks    string `json:"locks,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health. An unreachable
// lock store turns the answer into 503 "degraded".
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		started := g.startedAt
		g.mu.Unlock()

		resp := HealthResponse{
			Status:   "ok",
			Schedule: g.deps.Schedule.Name(),
			Tasks:    g.deps.Schedule.Len(),
			Uptime:   int64(g.deps.Now().Sub(started) / time.Second),
		}
		code := http.StatusOK
		if g.deps.Locks != nil {
			resp.Locks = "ok"
			if err := g.deps.Locks.Ping(r.Context()); err != nil {
				g.logger.Warn("gateway: lock store unreachable", "error", err)
				resp.Status, resp.Locks = "degraded", "unreachable"
				code = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, resp)
	}
}
