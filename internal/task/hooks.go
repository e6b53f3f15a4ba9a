package task

import "context"

// BeforeFunc is a before-handler function.
type BeforeFunc func(ctx context.Context, env *Env, t *Task) error

// AfterFunc is an after-handler function.
type AfterFunc func(ctx context.Context, env *Env, r *Result) error

// FailedFunc is a failed-handler function.
type FailedFunc func(ctx context.Context, env *Env, r *Result) error

// Before wraps a BeforeFunc as a parameter.
type Before struct {
	fn       BeforeFunc
	priority int
}

// Compile-time interface check.
var _ BeforeHandler = (*Before)(nil)

// NewBefore returns a before-handler parameter.
func NewBefore(fn BeforeFunc, priority int) *Before {
	return &Before{fn: fn, priority: priority}
}

// Name implements Parameter.
func (b *Before) Name() string { return NameBefore }

// Priority implements Parameter.
func (b *Before) Priority() int { return b.priority }

// BeforeTask implements BeforeHandler.
func (b *Before) BeforeTask(ctx context.Context, env *Env, t *Task) error {
	return b.fn(ctx, env, t)
}

// After wraps an AfterFunc as a parameter.
type After struct {
	fn       AfterFunc
	priority int
}

// Compile-time interface check.
var _ AfterHandler = (*After)(nil)

// NewAfter returns an after-handler parameter.
func NewAfter(fn AfterFunc, priority int) *After {
	return &After{fn: fn, priority: priority}
}

// Name implements Parameter.
func (a *After) Name() string { return NameAfter }

// Priority implements Parameter.
func (a *After) Priority() int { return a.priority }

// AfterTask implements AfterHandler.
func (a *After) AfterTask(ctx context.Context, env *Env, r *Result) error {
	return a.fn(ctx, env, r)
}

// Failed wraps a FailedFunc as a parameter.
type Failed struct {
	fn       FailedFunc
	priority int
}

// Compile-time interface check.
var _ FailedHandler = (*Failed)(nil)

// NewFailed returns a failed-handler parameter.
func NewFailed(fn FailedFunc, priority int) *Failed {
	return &Failed{fn: fn, priority: priority}
}

// Name implements Parameter.
func (f *Failed) Name() string { return NameFailed }

// Priority implements Parameter.
func (f *Failed) Priority() int { return f.priority }

// FailedTask implements FailedHandler.
func (f *Failed) FailedTask(ctx context.Context, env *Env, r *Result) error {
	return f.fn(ctx, env, r)
}
