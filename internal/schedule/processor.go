package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/taskrun/internal/recurrence"
	"github.com/flemzord/taskrun/internal/task"
)

// TaskRunner runs one task through its lifecycle. *runner.Runner
// satisfies it.
type TaskRunner interface {
	Run(ctx context.Context, t *task.Task) (*task.Result, error)
}

// Processor resolves due tasks and runs them one at a time. Batches and
// manual runs on the same processor are serialized.
type Processor struct {
	runner    TaskRunner
	logger    *slog.Logger
	observers []Observer

	mu sync.Mutex
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) ProcessorOption {
	return func(p *Processor) { p.observers = append(p.observers, o) }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = logger }
}

// NewProcessor returns a processor using r to run tasks.
func NewProcessor(r TaskRunner, opts ...ProcessorOption) *Processor {
	p := &Processor{runner: r}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// RuleError reports a task whose rule could not be evaluated, such as a
// date list with no remaining date.
type RuleError struct {
	TaskID string
	Name   string
	Err    error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("schedule: rule of task %s (%s): %v", e.TaskID, e.Name, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// DueTasks returns the tasks of s due in the minute containing now, in
// registration order. Tasks whose rule fails are left out and reported in
// the error, one *RuleError each, joined.
func (p *Processor) DueTasks(s *Schedule, now time.Time) ([]*task.Task, error) {
	var (
		due  []*task.Task
		errs []error
	)
	for _, t := range s.All() {
		ok, err := recurrence.IsDue(t.Rule(), now)
		if err != nil {
			errs = append(errs, &RuleError{TaskID: t.ID(), Name: t.Name(), Err: err})
			continue
		}
		if ok {
			due = append(due, t)
		}
	}
	return due, errors.Join(errs...)
}

// Run runs every task of s due at now and returns their results. A failing
// or skipped task never stops the batch.
//
// A fatal handler error (see runner.HookError) stops the batch: the results
// collected so far are returned with it and BatchFinished is not emitted.
// Rule errors do not stop the batch: the evaluable due tasks still run and
// the rule errors are returned, joined, once BatchFinished is emitted.
func (p *Processor) Run(ctx context.Context, s *Schedule, now time.Time) (*task.ResultSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	results := task.NewResultSet()
	p.emit(ctx, BatchStarting{Schedule: s})

	due, ruleErr := p.DueTasks(s, now)
	for _, t := range due {
		if err := p.runOne(ctx, t, results); err != nil {
			return results, err
		}
	}

	p.emit(ctx, BatchFinished{Schedule: s, Results: results, RuleErr: ruleErr})
	return results, ruleErr
}

// RunTasks runs the tasks with the given ids in order, bypassing the due
// check. Every id is resolved before anything runs.
func (p *Processor) RunTasks(ctx context.Context, s *Schedule, ids ...string) (*task.ResultSet, error) {
	tasks := make([]*task.Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.Task(id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	results := task.NewResultSet()
	for _, t := range tasks {
		if err := p.runOne(ctx, t, results); err != nil {
			return results, err
		}
	}
	return results, nil
}

// RunTask runs a single task by id, bypassing the due check.
func (p *Processor) RunTask(ctx context.Context, s *Schedule, id string) (*task.Result, error) {
	results, err := p.RunTasks(ctx, s, id)
	if results == nil || results.Len() == 0 {
		return nil, err
	}
	return results.All()[0], err
}

func (p *Processor) runOne(ctx context.Context, t *task.Task, results *task.ResultSet) error {
	p.emit(ctx, TaskStarting{Task: t})

	res, err := p.runner.Run(ctx, t)
	if res != nil {
		results.Add(res)
		p.emit(ctx, TaskFinished{Task: t, Result: res})
	}
	if err != nil {
		p.logger.Error("schedule: aborting batch",
			"task", t.ID(),
			"error", err,
		)
	}
	return err
}

func (p *Processor) emit(ctx context.Context, e Event) {
	for _, o := range p.observers {
		o.Observe(ctx, e)
	}
}
