package task

import (
	"context"
	"fmt"
)

// SkipPriority runs skip conditions ahead of ordinary before-handlers.
const SkipPriority = 100000

// SkipFunc decides whether a task should be skipped.
type SkipFunc func(ctx context.Context, env *Env, t *Task) (bool, error)

// Skip is a before-handler that raises the skip signal when its condition
// holds. The condition is evaluated on every run.
type Skip struct {
	cond   SkipFunc
	reason string
}

// Compile-time interface check.
var _ BeforeHandler = (*Skip)(nil)

// NewSkip returns a skip parameter.
func NewSkip(cond SkipFunc, reason string) *Skip {
	return &Skip{cond: cond, reason: reason}
}

// Name implements Parameter.
func (s *Skip) Name() string { return NameSkip }

// Priority implements Parameter.
func (s *Skip) Priority() int { return SkipPriority }

// Reason returns the configured skip reason.
func (s *Skip) Reason() string { return s.reason }

// BeforeTask implements BeforeHandler.
func (s *Skip) BeforeTask(ctx context.Context, env *Env, t *Task) error {
	skip, err := s.cond(ctx, env, t)
	if err != nil {
		return fmt.Errorf("skip condition: %w", err)
	}
	if skip {
		return NewSkipError(t, s.reason)
	}
	return nil
}
