package body

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/flemzord/taskrun/internal/task"
)

// ErrNoCommander is returned when a command body runs without a
// task.Commander in its environment.
var ErrNoCommander = errors.New("body: no commander configured")

// Command runs a named console command through env.Commands. Exit code 0
// is a success carrying the command output; any other code is a failed
// result with the same output.
type Command struct {
	command string
	input   map[string]string
}

// Compile-time interface check.
var _ task.Body = (*Command)(nil)

// NewCommand returns a command body. input is copied.
func NewCommand(command string, input map[string]string) *Command {
	return &Command{command: command, input: maps.Clone(input)}
}

// Command returns the command name.
func (c *Command) Command() string { return c.command }

// Input returns a copy of the command input.
func (c *Command) Input() map[string]string { return maps.Clone(c.input) }

// Name implements task.Namer.
func (c *Command) Name() string { return c.command }

// Run implements task.Body.
func (c *Command) Run(ctx context.Context, env *task.Env, t *task.Task) (*task.Result, error) {
	if env == nil || env.Commands == nil {
		return nil, ErrNoCommander
	}

	executed, err := env.Commands.Execute(ctx, c.command, c.Input())
	if err != nil {
		return nil, fmt.Errorf("command %s: %w", c.command, err)
	}
	if executed.Code == 0 {
		return task.Success(t, executed.Output), nil
	}
	return task.Failure(t, executed.Output,
		fmt.Errorf("command task failed with code %d: %w", executed.Code, &task.ExitError{Code: executed.Code}),
	), nil
}
