package task

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// MonitorPriority makes the monitor the first before-handler and the last
// after-handler, so it measures everything in between.
const MonitorPriority = 1000000

// Monitor records when a run started, how long it took and how much heap
// it grew by. It handles before, after and failed events. Timings are
// wall-clock based and not precise below a millisecond.
type Monitor struct {
	mu        sync.Mutex
	startedAt time.Time
	start     time.Time
	startMem  uint64
	runtime   time.Duration
	memory    int64
}

// Compile-time interface checks.
var (
	_ BeforeHandler = (*Monitor)(nil)
	_ AfterHandler  = (*Monitor)(nil)
	_ FailedHandler = (*Monitor)(nil)
)

// NewMonitor returns a monitor parameter.
func NewMonitor() *Monitor { return &Monitor{} }

// MonitorOf returns the first Monitor attached to t.
func MonitorOf(t *Task) (*Monitor, bool) {
	ms := Handlers[*Monitor](t.Parameters())
	if len(ms) == 0 {
		return nil, false
	}
	return ms[0], true
}

// Name implements Parameter.
func (m *Monitor) Name() string { return NameMonitor }

// Priority implements Parameter.
func (m *Monitor) Priority() int { return MonitorPriority }

// StartedAt returns the start time of the last run.
func (m *Monitor) StartedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startedAt
}

// Runtime returns the duration of the last completed run.
func (m *Monitor) Runtime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runtime
}

// MemoryUsage returns the heap growth in bytes during the last completed
// run. It may be negative when a collection ran in between.
func (m *Monitor) MemoryUsage() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.memory
}

// BeforeTask implements BeforeHandler.
func (m *Monitor) BeforeTask(_ context.Context, env *Env, _ *Task) error {
	mem := heapAlloc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.startedAt = env.Time()
	m.start = time.Now()
	m.startMem = mem
	m.runtime = 0
	m.memory = 0
	return nil
}

// AfterTask implements AfterHandler.
func (m *Monitor) AfterTask(_ context.Context, _ *Env, _ *Result) error {
	m.finish()
	return nil
}

// FailedTask implements FailedHandler.
func (m *Monitor) FailedTask(_ context.Context, _ *Env, _ *Result) error {
	m.finish()
	return nil
}

func (m *Monitor) finish() {
	mem := heapAlloc()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.start.IsZero() {
		return
	}
	m.runtime = time.Since(m.start)
	m.memory = int64(mem) - int64(m.startMem)
}

func heapAlloc() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}
