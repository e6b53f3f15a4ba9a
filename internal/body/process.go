package body

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"

	"github.com/flemzord/taskrun/internal/task"
)

// Process runs a shell command line with "sh -c". A zero exit status is a
// success carrying stdout. Any other status is a failed result carrying
// stdout followed by stderr, with a *task.ExitError cause.
type Process struct {
	commandLine string
	dir         string
	env         []string
}

// Compile-time interface check.
var _ task.Body = (*Process)(nil)

// ProcessOption configures a Process.
type ProcessOption func(*Process)

// WithDir sets the working directory.
func WithDir(dir string) ProcessOption {
	return func(p *Process) { p.dir = dir }
}

// WithEnv appends KEY=VALUE entries to the inherited environment.
func WithEnv(env ...string) ProcessOption {
	return func(p *Process) { p.env = append(p.env, env...) }
}

// NewProcess returns a process body for commandLine.
func NewProcess(commandLine string, opts ...ProcessOption) *Process {
	p := &Process{commandLine: commandLine}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CommandLine returns the shell command line.
func (p *Process) CommandLine() string { return p.commandLine }

// Name implements task.Namer.
func (p *Process) Name() string { return p.commandLine }

// Run implements task.Body.
func (p *Process) Run(ctx context.Context, _ *task.Env, t *task.Task) (*task.Result, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", p.commandLine)
	cmd.Dir = p.dir
	if len(p.env) > 0 {
		cmd.Env = append(cmd.Environ(), slices.Clone(p.env)...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return task.Success(t, stdout.String()), nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("process %q: %w", p.commandLine, err)
	}
	code := exitErr.ExitCode()
	return task.Failure(t, stdout.String()+stderr.String(),
		&task.ExitError{Code: code, Text: exitCodeText(code)},
	), nil
}

// exitCodeText describes conventional shell exit statuses.
func exitCodeText(code int) string {
	switch code {
	case 1:
		return "General error"
	case 2:
		return "Misuse of shell builtins"
	case 126:
		return "Invoked command cannot execute"
	case 127:
		return "Command not found"
	case 128:
		return "Invalid exit argument"
	case 129:
		return "Hangup"
	case 130:
		return "Interrupt"
	case 131:
		return "Quit and dump core"
	case 132:
		return "Illegal instruction"
	case 133:
		return "Trace/breakpoint trap"
	case 134:
		return "Process aborted"
	case 135:
		return "Bus error: access to an undefined portion of a memory object"
	case 136:
		return "Floating point exception: erroneous arithmetic operation"
	case 137:
		return "Kill (terminate immediately)"
	case 138:
		return "User-defined 1"
	case 139:
		return "Segmentation violation"
	case 140:
		return "User-defined 2"
	case 141:
		return "Write to pipe with no one reading"
	case 142:
		return "Signal raised by alarm"
	case 143:
		return "Termination (request to terminate)"
	default:
		return "Unknown error"
	}
}
