package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/flemzord/taskrun/internal/task"
)

// Reporter writes task results in the format of the run command.
type Reporter struct {
	w io.Writer

	// Verbose appends the task output after each result line.
	Verbose bool

	// Redact, when set, filters outputs and error messages.
	Redact func(string) string
}

// NewReporter returns a reporter writing to w.
func NewReporter(w io.Writer, verbose bool) *Reporter {
	return &Reporter{w: w, Verbose: verbose}
}

// Results writes the counts table followed by one entry per result.
func (r *Reporter) Results(results *task.ResultSet) {
	if results == nil || results.Len() == 0 {
		fmt.Fprintln(r.w, "No scheduled tasks are ready to run.")
		return
	}

	t := newTable("Successful", "Failed", "Skipped").Row(
		strconv.Itoa(results.Successful().Len()),
		strconv.Itoa(results.Failed().Len()),
		strconv.Itoa(results.Skipped().Len()),
	)
	fmt.Fprintln(r.w, t.String())

	for _, res := range results.All() {
		r.Result(res)
	}
}

// Result writes a single result line, the monitor figures when the task
// is monitored, and the output in verbose mode.
func (r *Reporter) Result(res *task.Result) {
	t := res.Task()

	var line string
	switch res.Status() {
	case task.StatusSuccessful:
		line = fmt.Sprintf("Success: task %s with the id %s", t.Name(), t.ID())
	case task.StatusSkipped:
		line = fmt.Sprintf("Skipped: task %s with the id %s. Reason: %s", t.Name(), t.ID(), r.errText(res.Err()))
	default:
		line = fmt.Sprintf("Failed: task %s with the id %s. Error: %s", t.Name(), t.ID(), r.errText(res.Err()))
	}
	fmt.Fprintln(r.w, line+monitorInfo(t))

	if r.Verbose {
		fmt.Fprintln(r.w, "Task Output:")
		fmt.Fprintln(r.w, r.redact(strings.TrimRight(res.Output(), "\n")))
	}
	fmt.Fprintln(r.w)
}

// NotFound reports an unknown task id.
func (r *Reporter) NotFound(id string) {
	fmt.Fprintf(r.w, "Task with the id %s not found\n", id)
}

func (r *Reporter) errText(err error) string {
	if err == nil {
		return ""
	}
	return r.redact(err.Error())
}

func (r *Reporter) redact(s string) string {
	if r.Redact == nil {
		return s
	}
	return r.Redact(s)
}

func monitorInfo(t *task.Task) string {
	m, ok := task.MonitorOf(t)
	if !ok || m.StartedAt().IsZero() {
		return ""
	}
	return fmt.Sprintf(", started at: %s, runtime in seconds: %.3f, memory usage in bytes: %d",
		m.StartedAt().Format(TimeLayout),
		m.Runtime().Seconds(),
		m.MemoryUsage(),
	)
}
