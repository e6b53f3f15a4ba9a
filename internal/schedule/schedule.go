// Package schedule holds the task registry and the batch processor that
// resolves which tasks are due at a given instant and runs them in
// registration order.
package schedule

import (
	"errors"
	"fmt"
	"sync"

	"github.com/flemzord/taskrun/internal/task"
)

// ErrTaskNotFound is returned when no task has the requested id.
var ErrTaskNotFound = errors.New("schedule: task not found")

// Schedule is a named, ordered task registry. Safe for concurrent use.
type Schedule struct {
	name string

	mu    sync.RWMutex
	tasks []*task.Task
}

// New returns an empty schedule.
func New(name string) *Schedule {
	return &Schedule{name: name}
}

// Name returns the schedule name.
func (s *Schedule) Name() string { return s.name }

// Add appends t and returns it. Ids are not checked: two tasks may share
// one, in which case Task resolves to the first registered.
func (s *Schedule) Add(t *task.Task) *task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
	return t
}

// Task returns the first registered task with the given id.
func (s *Schedule) Task(id string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

// All returns the tasks in registration order.
func (s *Schedule) All() []*task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*task.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Len returns the number of registered tasks.
func (s *Schedule) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Replace swaps the whole task list. Batches already running keep the
// tasks they resolved.
func (s *Schedule) Replace(tasks ...*task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append([]*task.Task(nil), tasks...)
}
