// Package body provides the task bodies: in-process functions, invokable
// values, console commands, shell processes and HTTP pings.
package body

import (
	"context"

	"github.com/flemzord/taskrun/internal/task"
)

// Func is an in-process unit of work. Its return value becomes the task
// output: a *task.Result or task.Result passes through, a string or []byte
// becomes the output text, anything else yields an empty output.
type Func func(ctx context.Context, env *task.Env) (any, error)

// Callable runs a Func.
type Callable struct {
	fn Func
}

// Compile-time interface check.
var _ task.Body = (*Callable)(nil)

// NewCallable returns a body calling fn.
func NewCallable(fn Func) *Callable {
	return &Callable{fn: fn}
}

// Task wraps fn in a new task.
func Task(fn Func) *task.Task {
	return task.New(NewCallable(fn))
}

// Run implements task.Body.
func (c *Callable) Run(ctx context.Context, env *task.Env, t *task.Task) (*task.Result, error) {
	out, err := c.fn(ctx, env)
	if err != nil {
		return nil, err
	}
	return wrap(t, out), nil
}

// Invoker is a value that can be invoked as a task.
type Invoker interface {
	Invoke(ctx context.Context, env *task.Env) (any, error)
}

// Invokable runs an Invoker. Its default name is the invoker's own name
// when it implements task.Namer, else its type name.
type Invokable struct {
	v Invoker
}

// Compile-time interface check.
var _ task.Body = (*Invokable)(nil)

// NewInvokable returns a body invoking v.
func NewInvokable(v Invoker) *Invokable {
	return &Invokable{v: v}
}

// Invoker returns the wrapped value.
func (i *Invokable) Invoker() Invoker { return i.v }

// Name implements task.Namer.
func (i *Invokable) Name() string {
	if n, ok := i.v.(task.Namer); ok {
		if name := n.Name(); name != "" {
			return name
		}
	}
	return task.TypeName(i.v)
}

// Run implements task.Body.
func (i *Invokable) Run(ctx context.Context, env *task.Env, t *task.Task) (*task.Result, error) {
	out, err := i.v.Invoke(ctx, env)
	if err != nil {
		return nil, err
	}
	return wrap(t, out), nil
}

func wrap(t *task.Task, out any) *task.Result {
	switch v := out.(type) {
	case *task.Result:
		if v != nil {
			return v
		}
	case task.Result:
		return &v
	case string:
		return task.Success(t, v)
	case []byte:
		return task.Success(t, string(v))
	}
	return task.Success(t, "")
}
