package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/taskrun/internal/recurrence"
	"github.com/flemzord/taskrun/internal/schedule"
	"github.com/flemzord/taskrun/internal/task"
	"github.com/flemzord/taskrun/internal/task/tasktest"
)

var now = time.Date(2023, 11, 14, 16, 15, 0, 0, time.UTC)

func newTask(id, name string) *task.Task {
	return task.New(&tasktest.MockBody{}).WithID(id).WithName(name)
}

func TestList_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := List(&buf, schedule.New("default"), now); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "No scheduled tasks registered.\n" {
		t.Errorf("List() = %q", got)
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	s := schedule.New("nightly")
	s.Add(newTask("backup", "Backup").
		WithDescription("dump the database").
		WithRule(recurrence.MustCron("30 * * * *", time.UTC)))
	s.Add(newTask("gone", "Gone").WithRule(recurrence.NewDates()))

	var buf bytes.Buffer
	if err := List(&buf, s, now); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Schedule Name: nightly",
		"ID", "Name", "Description", "Next Due",
		"backup", "Backup", "dump the database",
		"2023-11-14 16:30:00 +00:00",
		"gone",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNextDue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rule recurrence.Rule
		want string
	}{
		{"every minute excludes current", recurrence.MustCron("* * * * *", time.UTC), "2023-11-14 16:16:00 +00:00"},
		{"hourly", recurrence.MustCron("0 * * * *", time.UTC), "2023-11-14 17:00:00 +00:00"},
		{"no dates", recurrence.NewDates(), noDueDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NextDue(newTask("x", "X").WithRule(tt.rule), now); got != tt.want {
				t.Errorf("NextDue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReporter_Results(t *testing.T) {
	t.Parallel()

	ok := newTask("a", "Alpha")
	bad := newTask("b", "Beta")
	skip := newTask("c", "Gamma")
	results := task.NewResultSet(
		task.Success(ok, "all good"),
		task.Failure(bad, "", errors.New("boom")),
		task.NewResult(skip, "", task.NewSkipError(skip, "maintenance")),
	)

	var buf bytes.Buffer
	NewReporter(&buf, false).Results(results)
	out := buf.String()

	for _, want := range []string{
		"Successful", "Failed", "Skipped",
		"Success: task Alpha with the id a",
		"Failed: task Beta with the id b. Error: boom",
		"Skipped: task Gamma with the id c. Reason: maintenance",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "all good") {
		t.Error("output printed without verbose flag")
	}
}

func TestReporter_NoResults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewReporter(&buf, false).Results(task.NewResultSet())
	if !strings.Contains(buf.String(), "No scheduled tasks are ready to run.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestReporter_VerboseAndRedact(t *testing.T) {
	t.Parallel()

	tk := newTask("a", "Alpha")
	var buf bytes.Buffer
	r := NewReporter(&buf, true)
	r.Redact = func(s string) string { return strings.ReplaceAll(s, "hunter2", "[REDACTED]") }

	r.Result(task.Failure(tk, "token hunter2\n", errors.New("auth hunter2 rejected")))
	out := buf.String()

	if !strings.Contains(out, "Task Output:\ntoken [REDACTED]\n") {
		t.Errorf("verbose output missing:\n%s", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("secret not redacted:\n%s", out)
	}
}

func TestReporter_MonitorInfo(t *testing.T) {
	t.Parallel()

	tk := newTask("a", "Alpha").Monitor()
	m, _ := task.MonitorOf(tk)
	env := &task.Env{Now: func() time.Time { return now }}
	res := task.Success(tk, "")
	_ = m.BeforeTask(context.Background(), env, tk)
	_ = m.AfterTask(context.Background(), env, res)

	var buf bytes.Buffer
	NewReporter(&buf, false).Result(res)
	out := buf.String()

	for _, want := range []string{
		"Success: task Alpha with the id a, started at: 2023-11-14 16:15:00 +00:00",
		"runtime in seconds:",
		"memory usage in bytes:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReporter_NotFound(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewReporter(&buf, false).NotFound("missing")
	if got := buf.String(); got != "Task with the id missing not found\n" {
		t.Errorf("NotFound() = %q", got)
	}
}
