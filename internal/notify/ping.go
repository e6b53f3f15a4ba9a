package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flemzord/taskrun/internal/task"
)

// Ping calls an HTTP endpoint on lifecycle events, with the task status in
// the X-Task-Status header. Typical targets are dead man's switch services.
type Ping struct {
	url    string
	method string
	header http.Header
	events Events
}

// Compile-time interface checks.
var (
	_ task.BeforeHandler = (*Ping)(nil)
	_ task.AfterHandler  = (*Ping)(nil)
	_ task.FailedHandler = (*Ping)(nil)
)

// NewPing returns a ping notifier. An empty method means GET; zero events
// means OnAll.
func NewPing(url, method string, events Events) *Ping {
	if method == "" {
		method = http.MethodGet
	}
	if events == 0 {
		events = OnAll
	}
	return &Ping{url: url, method: strings.ToUpper(method), header: make(http.Header), events: events}
}

// WithHeader adds a request header.
func (p *Ping) WithHeader(key, value string) *Ping {
	p.header.Add(key, value)
	return p
}

// Name implements task.Parameter.
func (p *Ping) Name() string { return "ping" }

// Priority implements task.Parameter.
func (p *Ping) Priority() int { return 0 }

// URL returns the target URL.
func (p *Ping) URL() string { return p.url }

// BeforeTask implements task.BeforeHandler.
func (p *Ping) BeforeTask(ctx context.Context, env *task.Env, _ *task.Task) error {
	if !p.events.Has(OnBefore) {
		return nil
	}
	return p.send(ctx, env, StatusStarting)
}

// AfterTask implements task.AfterHandler.
func (p *Ping) AfterTask(ctx context.Context, env *task.Env, _ *task.Result) error {
	if !p.events.Has(OnAfter) {
		return nil
	}
	return p.send(ctx, env, StatusSuccess)
}

// FailedTask implements task.FailedHandler.
func (p *Ping) FailedTask(ctx context.Context, env *task.Env, _ *task.Result) error {
	if !p.events.Has(OnFailed) {
		return nil
	}
	return p.send(ctx, env, StatusFailed)
}

func (p *Ping) send(ctx context.Context, env *task.Env, status string) error {
	req, err := http.NewRequestWithContext(ctx, p.method, p.url, nil)
	if err != nil {
		return fmt.Errorf("notify: ping request: %w", err)
	}
	req.Header = p.header.Clone()
	req.Header.Set(StatusHeader, status)

	resp, err := env.WithDefaults().HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("notify: ping %s: %w", p.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notify: ping %s: unexpected status %d", p.url, resp.StatusCode)
	}
	return nil
}
