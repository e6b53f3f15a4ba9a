package reload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/taskrun/internal/config"
)

// Applier applies a freshly loaded, validated configuration.
type Applier interface {
	Apply(ctx context.Context, cfg *config.Config) error
}

// Handler reloads configuration from disk and hands it to an Applier.
type Handler struct {
	target Applier
	logger *slog.Logger
}

// NewHandler creates a reload handler.
func NewHandler(target Applier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{target: target, logger: logger}
}

// HandleReload loads a fresh config from disk, validates it and applies
// it. On any error the running configuration is left untouched.
func (h *Handler) HandleReload(ctx context.Context, configPath string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before reload: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if err := h.target.Apply(ctx, cfg); err != nil {
		return fmt.Errorf("applying config: %w", err)
	}

	h.logger.Info("reload: configuration reloaded", "path", configPath, "tasks", len(cfg.Tasks))
	return nil
}
