// Package lock provides an in-process keyed lock store with expiry for
// overlap prevention. Locks live as long as the process; use
// modules/lock/sqlite to share locks between processes.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/flemzord/taskrun/internal/task"
)

// Memory is an in-memory task.LockStore. Expired keys are evicted lazily.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// Compile-time interface checks.
var (
	_ task.LockStore    = (*Memory)(nil)
	_ task.LockAcquirer = (*Memory)(nil)
)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]time.Time), now: time.Now}
}

// Has reports whether key is held and not expired.
func (m *Memory) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expires, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	if !m.now().Before(expires) {
		delete(m.entries, key)
		return false, nil
	}
	return true, nil
}

// Set holds key for ttl, replacing any previous expiry.
func (m *Memory) Set(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = m.now().Add(ttl)
	return nil
}

// Acquire holds key for ttl unless it is already held.
func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expires, ok := m.entries[key]; ok && now.Before(expires) {
		return false, nil
	}
	m.entries[key] = now.Add(ttl)
	return true, nil
}

// Delete releases key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of stored keys, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Purge evicts expired keys and returns how many were removed.
func (m *Memory) Purge(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var n int64
	for key, expires := range m.entries {
		if !now.Before(expires) {
			delete(m.entries, key)
			n++
		}
	}
	return n, nil
}
