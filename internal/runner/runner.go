// Package runner executes a single task through its lifecycle: before
// handlers, the body, then after handlers on success or failed handlers on
// failure. A skip signal from a before handler short-circuits everything.
//
// The runner does not bound execution time. A body that blocks forever
// blocks its caller; callers needing timeouts pass a context with a
// deadline, which bodies honor on a best-effort basis.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/taskrun/internal/task"
)

const tracerName = "github.com/flemzord/taskrun/internal/runner"

// AfterErrorPolicy selects what happens when an after handler fails.
type AfterErrorPolicy int

const (
	// AfterErrorFatal stops the task and returns a *HookError to the
	// caller together with the successful result.
	AfterErrorFatal AfterErrorPolicy = iota

	// AfterErrorFail converts the result into a failure and runs the
	// failed handlers.
	AfterErrorFail
)

// Stage names the lifecycle stage a HookError comes from.
type Stage string

const (
	StageAfter  Stage = "after"
	StageFailed Stage = "failed"
)

// HookError reports an after or failed handler error. There is no recovery
// tier above those handlers, so the error is returned to the caller.
type HookError struct {
	Stage  Stage
	TaskID string
	Result *task.Result
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("runner: %s handler for task %s: %v", e.Stage, e.TaskID, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// Runner executes tasks. It holds no per-task state and is safe for
// concurrent use when the task parameters are.
type Runner struct {
	env         *task.Env
	logger      *slog.Logger
	tracer      trace.Tracer
	afterPolicy AfterErrorPolicy
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to the environment logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Runner) { r.tracer = tp.Tracer(tracerName) }
}

// WithAfterErrorPolicy sets the after handler error policy.
func WithAfterErrorPolicy(p AfterErrorPolicy) Option {
	return func(r *Runner) { r.afterPolicy = p }
}

// New returns a runner executing tasks in env.
func New(env *task.Env, opts ...Option) *Runner {
	r := &Runner{env: env.WithDefaults()}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = r.env.Logger
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	return r
}

// Env returns the execution environment.
func (r *Runner) Env() *task.Env { return r.env }

// Run executes t and returns its classified result. The error is non-nil
// only for a *HookError, in which case the result is still returned.
func (r *Runner) Run(ctx context.Context, t *task.Task) (*task.Result, error) {
	ctx, span := r.tracer.Start(ctx, "task.run", trace.WithAttributes(
		attribute.String("task.id", t.ID()),
		attribute.String("task.name", t.Name()),
	))
	defer span.End()

	res, err := r.run(ctx, t)

	span.SetAttributes(attribute.String("task.status", res.Status().String()))
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case res.Failed():
		span.RecordError(res.Err())
		span.SetStatus(codes.Error, res.Err().Error())
	}
	return res, err
}

func (r *Runner) run(ctx context.Context, t *task.Task) (*task.Result, error) {
	params := t.Parameters()

	for _, h := range task.Handlers[task.BeforeHandler](params.SortDescending()) {
		if err := h.BeforeTask(ctx, r.env, t); err != nil {
			res := task.NewResult(t, "", err)
			if res.Skipped() {
				return res, nil
			}
			return r.failed(ctx, t, res)
		}
	}

	res, err := t.Process(ctx, r.env)
	if err != nil {
		res = task.NewResult(t, "", err)
	}
	switch res.Status() {
	case task.StatusSkipped:
		return res, nil
	case task.StatusFailed:
		return r.failed(ctx, t, res)
	}

	for _, h := range task.Handlers[task.AfterHandler](params.SortAscending()) {
		if err := h.AfterTask(ctx, r.env, res); err != nil {
			r.logger.Warn("runner: after handler failed",
				"task", t.ID(),
				"handler", h.Name(),
				"error", err,
			)
			if r.afterPolicy == AfterErrorFail {
				return r.failed(ctx, t, task.Failure(t, res.Output(), fmt.Errorf("after handler %s: %w", h.Name(), err)))
			}
			return res, &HookError{Stage: StageAfter, TaskID: t.ID(), Result: res, Err: err}
		}
	}
	return res, nil
}

func (r *Runner) failed(ctx context.Context, t *task.Task, res *task.Result) (*task.Result, error) {
	for _, h := range task.Handlers[task.FailedHandler](t.Parameters().SortDescending()) {
		if err := h.FailedTask(ctx, r.env, res); err != nil {
			r.logger.Error("runner: failed handler failed",
				"task", t.ID(),
				"handler", h.Name(),
				"error", err,
			)
			return res, &HookError{Stage: StageFailed, TaskID: t.ID(), Result: res, Err: err}
		}
	}
	return res, nil
}
