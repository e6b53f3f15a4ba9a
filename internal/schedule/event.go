package schedule

import (
	"context"
	"log/slog"

	"github.com/flemzord/taskrun/internal/task"
)

// Event is a batch lifecycle notification.
type Event interface {
	event()
}

// BatchStarting is emitted before the due tasks of a batch run.
type BatchStarting struct {
	Schedule *Schedule
}

// TaskStarting is emitted before a task runs.
type TaskStarting struct {
	Task *task.Task
}

// TaskFinished is emitted after a task ran. Task is the task that ran;
// a body may return a result referencing another task.
type TaskFinished struct {
	Task   *task.Task
	Result *task.Result
}

// BatchFinished is emitted after every due task of a batch ran.
type BatchFinished struct {
	Schedule *Schedule
	Results  *task.ResultSet
	// RuleErr joins the *RuleError of tasks left out of the batch.
	RuleErr error
}

func (BatchStarting) event() {}
func (TaskStarting) event() {}
func (TaskFinished) event() {}
func (BatchFinished) event() {}

// Observer receives lifecycle events synchronously, in emission order.
// Observers must not block for long: the batch waits for them.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, e Event) { f(ctx, e) }

// LogObserver logs lifecycle events.
type LogObserver struct {
	logger *slog.Logger
}

// Compile-time interface check.
var _ Observer = (*LogObserver)(nil)

// NewLogObserver returns an observer logging to logger, or to the default
// logger when nil.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

// Observe implements Observer.
func (o *LogObserver) Observe(ctx context.Context, e Event) {
	switch e := e.(type) {
	case BatchStarting:
		o.logger.DebugContext(ctx, "schedule: batch starting",
			"schedule", e.Schedule.Name(),
			"tasks", e.Schedule.Len(),
		)
	case TaskStarting:
		o.logger.DebugContext(ctx, "schedule: task starting",
			"task", e.Task.ID(),
			"name", e.Task.Name(),
		)
	case TaskFinished:
		r := e.Result
		attrs := []any{"task", e.Task.ID(), "name", e.Task.Name(), "status", r.Status().String()}
		switch r.Status() {
		case task.StatusFailed:
			o.logger.ErrorContext(ctx, "schedule: task failed", append(attrs, "error", r.Err())...)
		case task.StatusSkipped:
			o.logger.InfoContext(ctx, "schedule: task skipped", append(attrs, "reason", r.Err().Error())...)
		default:
			o.logger.InfoContext(ctx, "schedule: task finished", attrs...)
		}
	case BatchFinished:
		if e.RuleErr != nil {
			o.logger.ErrorContext(ctx, "schedule: task rules could not be evaluated",
				"schedule", e.Schedule.Name(),
				"error", e.RuleErr,
			)
		}
		o.logger.InfoContext(ctx, "schedule: batch finished",
			"schedule", e.Schedule.Name(),
			"ran", e.Results.Len(),
			"successful", e.Results.Successful().Len(),
			"failed", e.Results.Failed().Len(),
			"skipped", e.Results.Skipped().Len(),
		)
	}
}
