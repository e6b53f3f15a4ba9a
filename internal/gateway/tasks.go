package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/taskrun/internal/recurrence"
	"github.com/flemzord/taskrun/internal/runner"
	"github.com/flemzord/taskrun/internal/schedule"
	"github.com/flemzord/taskrun/internal/security"
	"github.com/flemzord/taskrun/internal/task"
)

// upcomingRuns is how many next run dates GET /api/tasks/{id} returns.
const upcomingRuns = recurrence.DefaultMaxDates

// TaskJSON describes a registered task.
type TaskJSON struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Rule        string      `json:"rule"`
	NextDue     *time.Time  `json:"next_due,omitempty"`
	Upcoming    []time.Time `json:"upcoming,omitempty"`
}

// ResultJSON describes one task execution.
type ResultJSON struct {
	TaskID  string `json:"task_id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
	Runtime string `json:"runtime,omitempty"`
	Memory  *int64 `json:"memory_bytes,omitempty"`
}

// BatchJSON is the response of a run endpoint.
type BatchJSON struct {
	Results    []ResultJSON `json:"results"`
	Successful int          `json:"successful"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Aborted    string       `json:"aborted,omitempty"`
	RuleErrors string       `json:"rule_errors,omitempty"`
}

func (g *Gateway) handleListTasks() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		now := g.deps.Now()
		tasks := g.deps.Schedule.All()
		out := make([]TaskJSON, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, g.describe(t, now, 0))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (g *Gateway) handleGetTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := g.deps.Schedule.Task(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, g.describe(t, g.deps.Now(), upcomingRuns))
	}
}

func (g *Gateway) handleRunTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		// A client disconnect must not cancel a started task.
		ctx := context.WithoutCancel(r.Context())
		res, err := g.deps.Processor.RunTask(ctx, g.deps.Schedule, id)
		if errors.Is(err, schedule.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		results := task.NewResultSet()
		if res != nil {
			results.Add(res)
		}
		batch := g.batch(results)
		status := g.abort(&batch, err)
		detail := "aborted"
		if res != nil {
			detail = res.Status().String()
		}
		emitEvent(g.deps.Audit, security.EventTaskRun, r, id, detail)
		writeJSON(w, status, batch)
	}
}

func (g *Gateway) handleRunSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithoutCancel(r.Context())
		results, err := g.deps.Processor.Run(ctx, g.deps.Schedule, g.deps.Now())
		batch := g.batch(results)
		status := g.abort(&batch, err)
		emitEvent(g.deps.Audit, security.EventScheduleRun, r, "", g.deps.Schedule.Name())
		writeJSON(w, status, batch)
	}
}

// abort records a batch-aborting error. Returns the HTTP status to use.
// Rule errors leave the batch complete and keep 200.
func (g *Gateway) abort(batch *BatchJSON, err error) int {
	if err == nil {
		return http.StatusOK
	}
	var (
		hookErr *runner.HookError
		ruleErr *schedule.RuleError
	)
	if !errors.As(err, &hookErr) && errors.As(err, &ruleErr) {
		g.logger.Warn("gateway: tasks left out of batch", "error", err)
		batch.RuleErrors = g.deps.Redactor.Redact(err.Error())
		return http.StatusOK
	}
	if hookErr != nil {
		g.logger.Error("gateway: run aborted", "task", hookErr.TaskID, "error", err)
	} else {
		g.logger.Error("gateway: run failed", "error", err)
	}
	batch.Aborted = g.deps.Redactor.Redact(err.Error())
	return http.StatusInternalServerError
}

func (g *Gateway) batch(results *task.ResultSet) BatchJSON {
	if results == nil {
		results = task.NewResultSet()
	}
	out := BatchJSON{
		Results:    make([]ResultJSON, 0, results.Len()),
		Successful: results.Successful().Len(),
		Skipped:    results.Skipped().Len(),
		Failed:     results.Failed().Len(),
	}
	for _, res := range results.All() {
		out.Results = append(out.Results, g.result(res))
	}
	return out
}

func (g *Gateway) result(res *task.Result) ResultJSON {
	t := res.Task()
	out := ResultJSON{
		TaskID: t.ID(),
		Name:   t.Name(),
		Status: res.Status().String(),
		Output: g.deps.Redactor.Redact(res.Output()),
	}
	if err := res.Err(); err != nil {
		out.Error = g.deps.Redactor.Redact(err.Error())
	}
	if m, ok := task.MonitorOf(t); ok && !res.Skipped() {
		out.Runtime = m.Runtime().String()
		mem := m.MemoryUsage()
		out.Memory = &mem
	}
	return out
}

// describe renders t with its next due date and up to upcoming further
// run dates.
func (g *Gateway) describe(t *task.Task, now time.Time, upcoming int) TaskJSON {
	rule := t.Rule()
	out := TaskJSON{
		ID:          t.ID(),
		Name:        g.deps.Redactor.Redact(t.Name()),
		Description: t.Description(),
		Rule:        ruleText(rule),
	}
	if next, err := rule.NextRunDate(now, true); err == nil {
		out.NextDue = &next
	}
	if upcoming > 0 {
		if dates, err := rule.NextRunDates(now, true, upcoming); err == nil {
			out.Upcoming = dates
		}
	}
	return out
}

func ruleText(r recurrence.Rule) string {
	switch rule := r.(type) {
	case *recurrence.Cron:
		if loc := rule.Location(); loc != nil {
			return rule.Expression() + " (" + loc.String() + ")"
		}
		return rule.Expression()
	case *recurrence.Dates:
		return "dates"
	default:
		return rule.ID()
	}
}
