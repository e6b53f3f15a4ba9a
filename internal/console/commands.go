package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/flemzord/taskrun/internal/schedule"
	"github.com/flemzord/taskrun/internal/task"
)

// ErrUnknownCommand is returned when no handler is registered under a name.
var ErrUnknownCommand = errors.New("console: unknown command")

// Handler runs a named command with its input.
type Handler func(ctx context.Context, input map[string]string) (task.Executed, error)

// Commands is a registry of named commands. It implements task.Commander
// for command task bodies.
type Commands struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// Compile-time interface check.
var _ task.Commander = (*Commands)(nil)

// NewCommands returns an empty registry.
func NewCommands() *Commands {
	return &Commands{handlers: make(map[string]Handler)}
}

// Register adds h under name. Names are unique.
func (c *Commands) Register(name string, h Handler) error {
	if name == "" || h == nil {
		return errors.New("console: command name and handler are required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.handlers[name]; exists {
		return fmt.Errorf("console: command %q already registered", name)
	}
	c.handlers[name] = h
	return nil
}

// Names returns the registered command names, sorted.
func (c *Commands) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Execute implements task.Commander.
func (c *Commands) Execute(ctx context.Context, command string, input map[string]string) (task.Executed, error) {
	c.mu.RLock()
	h, ok := c.handlers[command]
	c.mu.RUnlock()
	if !ok {
		return task.Executed{}, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
	return h(ctx, input)
}

// ListCommand prints the schedule the way the list command does.
func ListCommand(s *schedule.Schedule, now func() time.Time) Handler {
	return func(_ context.Context, _ map[string]string) (task.Executed, error) {
		var buf bytes.Buffer
		if err := List(&buf, s, now()); err != nil {
			return task.Executed{Code: 1, Output: err.Error()}, nil
		}
		return task.Executed{Output: buf.String()}, nil
	}
}

// Purger removes expired entries from a lock store.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// PurgeLocksCommand purges expired overlap locks.
func PurgeLocksCommand(p Purger) Handler {
	return func(ctx context.Context, _ map[string]string) (task.Executed, error) {
		n, err := p.Purge(ctx)
		if err != nil {
			return task.Executed{Code: 1, Output: err.Error()}, nil
		}
		return task.Executed{Output: fmt.Sprintf("Purged %d expired locks", n)}, nil
	}
}
