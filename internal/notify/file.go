package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flemzord/taskrun/internal/task"
)

// SendResultTo writes task results to a file after success or failure.
// By default it appends a full report; it can also write only the output
// and overwrite instead of appending.
type SendResultTo struct {
	path       string
	onlyOutput bool
	append     bool
	events     Events
}

// Compile-time interface checks.
var (
	_ task.AfterHandler  = (*SendResultTo)(nil)
	_ task.FailedHandler = (*SendResultTo)(nil)
)

// FileOption configures SendResultTo.
type FileOption func(*SendResultTo)

// OnlyOutput writes the raw output instead of the full report.
func OnlyOutput() FileOption {
	return func(s *SendResultTo) { s.onlyOutput = true }
}

// Overwrite replaces the file content instead of appending.
func Overwrite() FileOption {
	return func(s *SendResultTo) { s.append = false }
}

// Handle restricts the events written. OnBefore is ignored.
func Handle(events Events) FileOption {
	return func(s *SendResultTo) { s.events = events }
}

// NewSendResultTo returns a file notifier writing to path.
func NewSendResultTo(path string, opts ...FileOption) *SendResultTo {
	s := &SendResultTo{path: path, append: true, events: OnAfter | OnFailed}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements task.Parameter.
func (s *SendResultTo) Name() string { return "send_result_to" }

// Priority implements task.Parameter.
func (s *SendResultTo) Priority() int { return 0 }

// Path returns the target file.
func (s *SendResultTo) Path() string { return s.path }

// AfterTask implements task.AfterHandler.
func (s *SendResultTo) AfterTask(_ context.Context, env *task.Env, r *task.Result) error {
	if !s.events.Has(OnAfter) {
		return nil
	}
	return s.write(env.Time(), r)
}

// FailedTask implements task.FailedHandler.
func (s *SendResultTo) FailedTask(_ context.Context, env *task.Env, r *task.Result) error {
	if !s.events.Has(OnFailed) {
		return nil
	}
	return s.write(env.Time(), r)
}

func (s *SendResultTo) write(now time.Time, r *task.Result) error {
	content := r.Output()
	if !s.onlyOutput {
		content = Report(now, r)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("notify: result file: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY
	if s.append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(s.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("notify: result file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("notify: write result file: %w", err)
	}
	return f.Close()
}

// Report renders a plain-text report of r at now.
func Report(now time.Time, r *task.Result) string {
	t := r.Task()
	var b strings.Builder
	section := func(title, value string) {
		b.WriteString(title)
		b.WriteString(":\n")
		b.WriteString(value)
		b.WriteString("\n\n")
	}
	section("Task Time", now.Format(time.RFC3339))
	section("Task ID", t.ID())
	section("Task Name", t.Name())
	section("Task Description", t.Description())
	if r.Err() != nil {
		section("Task Error", r.Err().Error())
	}
	section("Task Output", r.Output())
	return b.String()
}
