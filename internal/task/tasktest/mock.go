// Package tasktest provides test doubles for the task package.
package tasktest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flemzord/taskrun/internal/task"
)

// Recorder collects handler invocations in order. It is shared between
// several MockParams to observe cross-parameter ordering.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// Record appends an event.
func (r *Recorder) Record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// MockParam is a parameter implementing every handler interface. Each
// invocation is recorded as "<Label>:before", "<Label>:after" or
// "<Label>:failed". The Err fields make the matching handler fail.
type MockParam struct {
	Label       string
	NameVal     string
	PriorityVal int
	Recorder    *Recorder

	BeforeErr error
	AfterErr  error
	FailedErr error
}

// Compile-time interface checks.
var (
	_ task.BeforeHandler = (*MockParam)(nil)
	_ task.AfterHandler  = (*MockParam)(nil)
	_ task.FailedHandler = (*MockParam)(nil)
)

// Name returns NameVal, or "mock".
func (m *MockParam) Name() string {
	if m.NameVal == "" {
		return "mock"
	}
	return m.NameVal
}

// Priority returns the configured priority.
func (m *MockParam) Priority() int { return m.PriorityVal }

// BeforeTask records the call and returns BeforeErr.
func (m *MockParam) BeforeTask(context.Context, *task.Env, *task.Task) error {
	m.record("before")
	return m.BeforeErr
}

// AfterTask records the call and returns AfterErr.
func (m *MockParam) AfterTask(context.Context, *task.Env, *task.Result) error {
	m.record("after")
	return m.AfterErr
}

// FailedTask records the call and returns FailedErr.
func (m *MockParam) FailedTask(context.Context, *task.Env, *task.Result) error {
	m.record("failed")
	return m.FailedErr
}

func (m *MockParam) record(event string) {
	if m.Recorder != nil {
		m.Recorder.Record(m.Label + ":" + event)
	}
}

// MockBody is a configurable task body.
type MockBody struct {
	NameVal  string
	Output   string
	Err      error
	RunFunc  func(ctx context.Context, env *task.Env, t *task.Task) (*task.Result, error)
	Recorder *Recorder

	mu    sync.Mutex
	calls int
}

// Compile-time interface check.
var _ task.Body = (*MockBody)(nil)

// Name returns NameVal.
func (b *MockBody) Name() string { return b.NameVal }

// Run delegates to RunFunc, or returns Output and Err.
func (b *MockBody) Run(ctx context.Context, env *task.Env, t *task.Task) (*task.Result, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.Recorder != nil {
		b.Recorder.Record("body")
	}

	if b.RunFunc != nil {
		return b.RunFunc(ctx, env, t)
	}
	if b.Err != nil {
		return nil, b.Err
	}
	return task.Success(t, b.Output), nil
}

// CallCount returns the number of times Run was called.
func (b *MockBody) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// MockLocks is an in-memory task.LockStore that ignores expiry and can
// inject failures.
type MockLocks struct {
	mu   sync.Mutex
	keys map[string]time.Duration

	HasErr    error
	SetErr    error
	DeleteErr error
}

// Compile-time interface check.
var _ task.LockStore = (*MockLocks)(nil)

// NewMockLocks returns an empty lock store.
func NewMockLocks() *MockLocks {
	return &MockLocks{keys: make(map[string]time.Duration)}
}

// Has reports whether key is held.
func (l *MockLocks) Has(_ context.Context, key string) (bool, error) {
	if l.HasErr != nil {
		return false, l.HasErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keys[key]
	return ok, nil
}

// Set stores key with ttl.
func (l *MockLocks) Set(_ context.Context, key string, ttl time.Duration) error {
	if l.SetErr != nil {
		return l.SetErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[key] = ttl
	return nil
}

// Delete removes key.
func (l *MockLocks) Delete(_ context.Context, key string) error {
	if l.DeleteErr != nil {
		return l.DeleteErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
	return nil
}

// TTL returns the ttl key was set with.
func (l *MockLocks) TTL(key string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ttl, ok := l.keys[key]
	if !ok {
		return 0, fmt.Errorf("lock %q not held", key)
	}
	return ttl, nil
}

// Keys returns the number of held keys.
func (l *MockLocks) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
