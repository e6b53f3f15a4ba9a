package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/flemzord/taskrun/internal/body"
	"github.com/flemzord/taskrun/internal/recurrence"
	"github.com/flemzord/taskrun/internal/runner"
	"github.com/flemzord/taskrun/internal/schedule"
	"github.com/flemzord/taskrun/internal/security"
	"github.com/flemzord/taskrun/internal/security/securitytest"
	"github.com/flemzord/taskrun/internal/task"
)

var quiet = slog.New(slog.DiscardHandler)

// fixedNow is a Monday, 10:00 UTC.
var fixedNow = time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)

type fixture struct {
	gw       *Gateway
	registry *prometheus.Registry
	events   func() []security.AuditEvent
}

func newFixture(t *testing.T, tasks ...*task.Task) *fixture {
	t.Helper()

	s := schedule.New("test")
	for _, tk := range tasks {
		s.Add(tk)
	}
	r := runner.New(&task.Env{Logger: quiet, Now: func() time.Time { return fixedNow }}, runner.WithLogger(quiet))
	audit, events := securitytest.NewTestAuditLogger()
	redactor := securitytest.NewTestRedactor()
	redactor.AddLiteral("hunter2")
	reg := prometheus.NewRegistry()

	gw, err := New(Config{Auth: AuthConfig{BearerToken: "tok"}}, Deps{
		Schedule:  s,
		Processor: schedule.NewProcessor(r, schedule.WithLogger(quiet)),
		Logger:    quiet,
		Redactor:  redactor,
		Audit:     audit,
		Registry:  reg,
		Now:       func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{gw: gw, registry: reg, events: events}
}

func (f *fixture) do(t *testing.T, method, path string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if auth {
		req.Header.Set("Authorization", "Bearer tok")
	}
	rr := httptest.NewRecorder()
	f.gw.Handler().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func outputTask(id, expr, output string) *task.Task {
	return body.Task(func(context.Context, *task.Env) (any, error) {
		return output, nil
	}).WithID(id).WithName(id).WithRule(recurrence.MustCron(expr, time.UTC))
}

func TestNew_RequiresSchedule(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}, Deps{}); err == nil {
		t.Fatal("expected error without schedule and processor")
	}
}

func TestGateway_Health(t *testing.T) {
	t.Parallel()

	f := newFixture(t, outputTask("a", "* * * * *", ""))
	rr := f.do(t, http.MethodGet, "/health", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[HealthResponse](t, rr)
	if resp.Status != "ok" || resp.Tasks != 1 || resp.Schedule != "test" {
		t.Errorf("health = %+v", resp)
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestGateway_HealthPingsLockStore(t *testing.T) {
	t.Parallel()

	var pingErr error
	f := newFixture(t)
	f.gw.deps.Locks = pingFunc(func(context.Context) error { return pingErr })

	rr := f.do(t, http.MethodGet, "/health", false)
	if resp := decode[HealthResponse](t, rr); rr.Code != http.StatusOK || resp.Locks != "ok" {
		t.Errorf("healthy store: status = %d, health = %+v", rr.Code, resp)
	}

	pingErr = errors.New("database is locked")
	rr = f.do(t, http.MethodGet, "/health", false)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	if resp := decode[HealthResponse](t, rr); resp.Status != "degraded" || resp.Locks != "unreachable" {
		t.Errorf("health = %+v", resp)
	}
}

func TestGateway_APIRequiresAuth(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if rr := f.do(t, http.MethodGet, "/api/tasks", false); rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestGateway_APINotMountedWithoutAuth(t *testing.T) {
	t.Parallel()

	s := schedule.New("test")
	gw, err := New(Config{}, Deps{
		Schedule:  s,
		Processor: schedule.NewProcessor(runner.New(nil), schedule.WithLogger(quiet)),
		Logger:    quiet,
	})
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestGateway_ListTasks(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		outputTask("hourly", "0 * * * *", ""),
		outputTask("daily", "30 3 * * *", ""),
	)
	rr := f.do(t, http.MethodGet, "/api/tasks", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	tasks := decode[[]TaskJSON](t, rr)
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	if tasks[0].ID != "hourly" || tasks[1].ID != "daily" {
		t.Errorf("order = %s, %s", tasks[0].ID, tasks[1].ID)
	}
	if tasks[0].NextDue == nil || !tasks[0].NextDue.Equal(fixedNow) {
		t.Errorf("hourly next due = %v, want %v", tasks[0].NextDue, fixedNow)
	}
	if want := time.Date(2024, 1, 9, 3, 30, 0, 0, time.UTC); !tasks[1].NextDue.Equal(want) {
		t.Errorf("daily next due = %v, want %v", tasks[1].NextDue, want)
	}
	if tasks[1].Rule != "30 3 * * * (UTC)" {
		t.Errorf("rule = %q", tasks[1].Rule)
	}
	if tasks[0].Upcoming != nil {
		t.Error("list should not include upcoming dates")
	}
}

func TestGateway_GetTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t, outputTask("hourly", "0 * * * *", ""))
	rr := f.do(t, http.MethodGet, "/api/tasks/hourly", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decode[TaskJSON](t, rr)
	if len(got.Upcoming) != upcomingRuns {
		t.Fatalf("upcoming = %d, want %d", len(got.Upcoming), upcomingRuns)
	}
	if want := fixedNow.Add(4 * time.Hour); !got.Upcoming[4].Equal(want) {
		t.Errorf("upcoming[4] = %v, want %v", got.Upcoming[4], want)
	}

	if rr := f.do(t, http.MethodGet, "/api/tasks/missing", true); rr.Code != http.StatusNotFound {
		t.Errorf("missing task status = %d, want 404", rr.Code)
	}
}

func TestGateway_RunTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t, outputTask("dump", "0 0 1 1 *", "password hunter2 used"))
	rr := f.do(t, http.MethodPost, "/api/tasks/dump/run", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	batch := decode[BatchJSON](t, rr)
	if batch.Successful != 1 || len(batch.Results) != 1 {
		t.Fatalf("batch = %+v", batch)
	}
	res := batch.Results[0]
	if res.TaskID != "dump" || res.Status != "successful" {
		t.Errorf("result = %+v", res)
	}
	if strings.Contains(res.Output, "hunter2") {
		t.Errorf("output not redacted: %q", res.Output)
	}

	events := f.events()
	last := events[len(events)-1]
	if last.Type != security.EventTaskRun || last.TaskID != "dump" || last.Detail != "successful" {
		t.Errorf("audit event = %+v", last)
	}

	if rr := f.do(t, http.MethodPost, "/api/tasks/missing/run", true); rr.Code != http.StatusNotFound {
		t.Errorf("missing task status = %d, want 404", rr.Code)
	}
}

func TestGateway_RunTaskMonitor(t *testing.T) {
	t.Parallel()

	tk := outputTask("watched", "* * * * *", "").Monitor()
	f := newFixture(t, tk)
	batch := decode[BatchJSON](t, f.do(t, http.MethodPost, "/api/tasks/watched/run", true))
	if batch.Results[0].Runtime == "" || batch.Results[0].Memory == nil {
		t.Errorf("monitor fields missing: %+v", batch.Results[0])
	}
}

func TestGateway_RunSchedule(t *testing.T) {
	t.Parallel()

	failing := body.Task(func(context.Context, *task.Env) (any, error) {
		return nil, errors.New("disk full")
	}).WithID("broken").WithRule(recurrence.MustCron("* * * * *", time.UTC))

	f := newFixture(t,
		outputTask("due", "0 10 * * *", "ok"),
		outputTask("later", "0 11 * * *", "never"),
		failing,
	)
	rr := f.do(t, http.MethodPost, "/api/schedule/run", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	batch := decode[BatchJSON](t, rr)
	if batch.Successful != 1 || batch.Failed != 1 || len(batch.Results) != 2 {
		t.Fatalf("batch = %+v", batch)
	}
	if batch.Results[1].Error != "disk full" {
		t.Errorf("error = %q", batch.Results[1].Error)
	}
}

func TestGateway_RunScheduleReportsRuleErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		outputTask("every", "* * * * *", "ran"),
		body.Task(func(context.Context, *task.Env) (any, error) { return nil, nil }).
			WithID("undated").WithRule(recurrence.NewDates()),
	)
	rr := f.do(t, http.MethodPost, "/api/schedule/run", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	batch := decode[BatchJSON](t, rr)
	if batch.Successful != 1 || batch.Aborted != "" {
		t.Errorf("batch = %+v", batch)
	}
	if !strings.Contains(batch.RuleErrors, "undated") {
		t.Errorf("rule_errors = %q, want the undated task", batch.RuleErrors)
	}
}

func TestGateway_RunAbortedByHook(t *testing.T) {
	t.Parallel()

	tk := outputTask("hooked", "* * * * *", "").After(func(context.Context, *task.Env, *task.Result) error {
		return errors.New("notify down")
	})
	f := newFixture(t, tk)
	rr := f.do(t, http.MethodPost, "/api/tasks/hooked/run", true)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	batch := decode[BatchJSON](t, rr)
	if !strings.Contains(batch.Aborted, "notify down") {
		t.Errorf("aborted = %q", batch.Aborted)
	}
	if len(batch.Results) != 1 {
		t.Errorf("results = %d, want the partial result", len(batch.Results))
	}
}

func TestGateway_RunRateLimited(t *testing.T) {
	t.Parallel()

	s := schedule.New("test")
	s.Add(outputTask("a", "* * * * *", ""))
	gw, err := New(Config{Auth: AuthConfig{BearerToken: "tok"}}, Deps{
		Schedule:  s,
		Processor: schedule.NewProcessor(runner.New(nil, runner.WithLogger(quiet)), schedule.WithLogger(quiet)),
		Logger:    quiet,
		Limiter:   security.NewRateLimiter(security.RateLimitConfig{Run: security.Limit{PerSecond: 0.001, Burst: 1}}),
	})
	if err != nil {
		t.Fatal(err)
	}

	codes := make([]int, 0, 2)
	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/api/tasks/a/run", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rr := httptest.NewRecorder()
		gw.Handler().ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}

	// Listing is not subject to the run bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("list status = %d, want 200", rr.Code)
	}
}

func TestGateway_Metrics(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.do(t, http.MethodGet, "/health", false)
	f.do(t, http.MethodGet, "/health", false)
	f.do(t, http.MethodGet, "/api/tasks", false)

	if got := testutil.ToFloat64(f.gw.metrics.requests.WithLabelValues("/health", "200")); got != 2 {
		t.Errorf("/health 200 = %v, want 2", got)
	}

	rr := f.do(t, http.MethodGet, "/metrics", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	out := rr.Body.String()
	if !strings.Contains(out, "taskrun_http_requests_total") {
		t.Error("metrics output missing request counter")
	}
	if !strings.Contains(out, `code="401"`) {
		t.Error("metrics output missing the rejected API request")
	}
}

func TestGateway_StartStop(t *testing.T) {
	t.Parallel()

	s := schedule.New("test")
	gw, err := New(Config{Bind: "127.0.0.1:0"}, Deps{
		Schedule:  s,
		Processor: schedule.NewProcessor(runner.New(nil), schedule.WithLogger(quiet)),
		Logger:    quiet,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := gw.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := gw.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}

	resp, err := http.Get("http://" + gw.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := gw.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := gw.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
