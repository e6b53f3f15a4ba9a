package app

import (
	"io"
	"log/slog"

	"github.com/flemzord/taskrun/internal/config"
	"github.com/flemzord/taskrun/internal/security"
)

// NewRedactor returns a redactor with the default secret patterns and the
// literal secrets found in cfg.
func NewRedactor(cfg *config.Config) *security.Redactor {
	r := security.NewRedactor()
	for _, re := range security.DefaultPatterns() {
		r.AddPattern(re)
	}
	r.AddLiteral(cfg.Mail.Password)
	r.AddLiteral(cfg.Gateway.Auth.BearerToken)
	r.AddLiteral(cfg.Gateway.Auth.BasicPass)
	return r
}

// NewLogger builds the process logger described by cfg. Every record goes
// through r before reaching w.
func NewLogger(cfg config.LogConfig, w io.Writer, r *security.Redactor) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var inner slog.Handler
	if cfg.Format == "json" {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return security.NewLogger(inner, r)
}
