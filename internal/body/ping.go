package body

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flemzord/taskrun/internal/task"
)

// maxPingBody caps how much of a ping response is kept as output.
const maxPingBody = 1 << 20

// Ping issues an HTTP request through env.HTTP. The response body becomes
// the output. A transport error fails the task, and so does a status of
// 400 or above.
type Ping struct {
	url     string
	method  string
	header  http.Header
	payload string
}

// Compile-time interface check.
var _ task.Body = (*Ping)(nil)

// NewPing returns a ping body. An empty method means GET.
func NewPing(url, method string) *Ping {
	if method == "" {
		method = http.MethodGet
	}
	return &Ping{url: url, method: strings.ToUpper(method), header: make(http.Header)}
}

// WithHeader adds a request header.
func (p *Ping) WithHeader(key, value string) *Ping {
	p.header.Add(key, value)
	return p
}

// WithBody sets the request body.
func (p *Ping) WithBody(payload string) *Ping {
	p.payload = payload
	return p
}

// URL returns the request URL.
func (p *Ping) URL() string { return p.url }

// Method returns the request method.
func (p *Ping) Method() string { return p.method }

// Name implements task.Namer.
func (p *Ping) Name() string {
	return fmt.Sprintf("Ping: [%s] %s", p.method, p.url)
}

// Run implements task.Body.
func (p *Ping) Run(ctx context.Context, env *task.Env, t *task.Task) (*task.Result, error) {
	var body io.Reader
	if p.payload != "" {
		body = strings.NewReader(p.payload)
	}
	req, err := http.NewRequestWithContext(ctx, p.method, p.url, body)
	if err != nil {
		return nil, fmt.Errorf("ping: build request: %w", err)
	}
	req.Header = p.header.Clone()

	resp, err := env.WithDefaults().HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ping %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPingBody))
	if err != nil {
		return nil, fmt.Errorf("ping %s: read body: %w", p.url, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return task.Failure(t, string(data),
			fmt.Errorf("ping %s: unexpected status %d", p.url, resp.StatusCode),
		), nil
	}
	return task.Success(t, string(data)), nil
}
