// Package task defines scheduled tasks: their identity, recurrence rule,
// parameters (hooks and guards), body, and execution results.
package task

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/flemzord/taskrun/internal/recurrence"
)

// defaultRule fires every minute.
var defaultRule = recurrence.MustCron("* * * * *", nil)

// Body is the unit of work a task performs.
type Body interface {
	Run(ctx context.Context, env *Env, t *Task) (*Result, error)
}

// Namer is implemented by bodies that provide a default task name.
type Namer interface {
	Name() string
}

// Task is a named unit of work with a recurrence rule and parameters.
// Identity is fixed once the task is registered; parameters may be added
// until it executes.
type Task struct {
	id          string
	name        string
	description string
	rule        recurrence.Rule
	params      *Set
	body        Body
}

// New returns a task running body every minute until another rule is set.
func New(body Body) *Task {
	return &Task{body: body, params: NewSet()}
}

// WithID sets an explicit id.
func (t *Task) WithID(id string) *Task {
	t.id = id
	return t
}

// WithName sets the display name.
func (t *Task) WithName(name string) *Task {
	t.name = name
	return t
}

// WithDescription sets the description.
func (t *Task) WithDescription(description string) *Task {
	t.description = description
	return t
}

// WithRule sets the recurrence rule.
func (t *Task) WithRule(rule recurrence.Rule) *Task {
	t.rule = rule
	return t
}

// ID returns the explicit id, or a SHA-1 fingerprint of the name,
// description and rule id.
func (t *Task) ID() string {
	if t.id != "" {
		return t.id
	}
	sum := sha1.Sum([]byte(t.Name() + t.description + t.Rule().ID()))
	return hex.EncodeToString(sum[:])
}

// Name returns the display name. Without an explicit name, the body's own
// name is used, then its type name.
func (t *Task) Name() string {
	if t.name != "" {
		return t.name
	}
	if n, ok := t.body.(Namer); ok {
		if name := n.Name(); name != "" {
			return name
		}
	}
	if t.body == nil {
		return "Task"
	}
	return TypeName(t.body)
}

// Description returns the description.
func (t *Task) Description() string { return t.description }

// Rule returns the recurrence rule, defaulting to every minute.
func (t *Task) Rule() recurrence.Rule {
	if t.rule == nil {
		return defaultRule
	}
	return t.rule
}

// Body returns the task body.
func (t *Task) Body() Body { return t.body }

// Parameters returns the task's parameter set.
func (t *Task) Parameters() *Set { return t.params }

// Add appends a parameter.
func (t *Task) Add(p Parameter) *Task {
	t.params.Add(p)
	return t
}

// Before attaches a before-handler with priority 0.
func (t *Task) Before(fn BeforeFunc) *Task {
	return t.Add(NewBefore(fn, 0))
}

// After attaches an after-handler with priority 0.
func (t *Task) After(fn AfterFunc) *Task {
	return t.Add(NewAfter(fn, 0))
}

// Failed attaches a failed-handler with priority 0.
func (t *Task) Failed(fn FailedFunc) *Task {
	return t.Add(NewFailed(fn, 0))
}

// Skip skips the task whenever cond reports true.
func (t *Task) Skip(cond SkipFunc, reason string) *Task {
	return t.Add(NewSkip(cond, reason))
}

// SkipIf skips the task when skip is true.
func (t *Task) SkipIf(skip bool, reason string) *Task {
	return t.Add(NewSkip(func(context.Context, *Env, *Task) (bool, error) { return skip, nil }, reason))
}

// WithoutOverlapping prevents concurrent runs of the task through the
// environment's lock store. An empty id uses the task id; a ttl of zero
// uses DefaultLockTTL.
func (t *Task) WithoutOverlapping(id string, ttl time.Duration) *Task {
	return t.Add(NewWithoutOverlapping(id, ttl))
}

// Monitor records start time, runtime and memory usage of each run.
func (t *Task) Monitor() *Task {
	return t.Add(NewMonitor())
}

// Process runs the body and returns its result. A body returning neither
// a result nor an error produces an empty successful result.
func (t *Task) Process(ctx context.Context, env *Env) (*Result, error) {
	if t.body == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoBody, t.Name())
	}
	r, err := t.body.Run(ctx, env, t)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return Success(t, ""), nil
	}
	return r, nil
}

// TypeName returns the unqualified type name of v, without pointer markers.
func TypeName(v any) string {
	name := strings.TrimLeft(fmt.Sprintf("%T", v), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
