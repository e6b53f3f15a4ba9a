package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/flemzord/taskrun/internal/security"
)

// authMiddleware validates Bearer token or Basic auth credentials using
// constant-time comparison. Attempts are rate-limited through the "auth"
// bucket and recorded in the audit log; both may be nil.
func authMiddleware(cfg AuthConfig, audit *security.AuditLogger, limiter *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil {
				if err := limiter.Allow(security.KindAuth); err != nil {
					emitEvent(audit, security.EventRateLimit, r, "", security.KindAuth)
					writeError(w, http.StatusTooManyRequests, "too many requests")
					return
				}
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				emitEvent(audit, security.EventAuthFailure, r, "", "missing authorization header")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if cfg.BearerToken != "" {
				if token, ok := strings.CutPrefix(auth, "Bearer "); ok && constantTimeEqual(token, cfg.BearerToken) {
					emitEvent(audit, security.EventAuthSuccess, r, "", "bearer")
					next.ServeHTTP(w, r)
					return
				}
			}

			if cfg.BasicUser != "" && cfg.BasicPass != "" {
				user, pass, ok := r.BasicAuth()
				if ok && constantTimeEqual(user, cfg.BasicUser) && constantTimeEqual(pass, cfg.BasicPass) {
					emitEvent(audit, security.EventAuthSuccess, r, "", "basic")
					next.ServeHTTP(w, r)
					return
				}
			}

			emitEvent(audit, security.EventAuthFailure, r, "", "invalid credentials")
			writeError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

// emitEvent records an audit event for r. A nil logger is a no-op.
func emitEvent(audit *security.AuditLogger, typ security.EventType, r *http.Request, taskID, detail string) {
	audit.Log(security.AuditEvent{
		Type:     typ,
		RemoteIP: r.RemoteAddr,
		Path:     r.URL.Path,
		TaskID:   taskID,
		Detail:   detail,
		Metadata: map[string]string{"method": r.Method},
	})
}

// constantTimeEqual compares two strings in constant time.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
