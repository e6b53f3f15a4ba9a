package task

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultLockTTL bounds how long a crashed run can hold its lock.
	DefaultLockTTL = 24 * time.Hour

	// OverlapPriority runs the overlap guard ahead of ordinary before-handlers.
	OverlapPriority = 100000

	lockKeyPrefix = "task-processing:"

	// overlapReason is the skip reason when the lock is already held.
	overlapReason = "Task running in another process."
)

// WithoutOverlapping prevents a task from running while another run of the
// same logical task holds its lock. The lock is taken before the body and
// released after success or failure; a skipped run leaves it untouched.
type WithoutOverlapping struct {
	id  string
	ttl time.Duration
}

// Compile-time interface checks.
var (
	_ BeforeHandler = (*WithoutOverlapping)(nil)
	_ AfterHandler  = (*WithoutOverlapping)(nil)
	_ FailedHandler = (*WithoutOverlapping)(nil)
)

// NewWithoutOverlapping returns an overlap guard. An empty id keys the lock
// by task id; a non-positive ttl uses DefaultLockTTL.
func NewWithoutOverlapping(id string, ttl time.Duration) *WithoutOverlapping {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &WithoutOverlapping{id: id, ttl: ttl}
}

// Name implements Parameter.
func (w *WithoutOverlapping) Name() string { return NameWithoutOverlapping }

// Priority implements Parameter.
func (w *WithoutOverlapping) Priority() int { return OverlapPriority }

// ID returns the explicit lock id, or "".
func (w *WithoutOverlapping) ID() string { return w.id }

// TTL returns the lock expiry.
func (w *WithoutOverlapping) TTL() time.Duration { return w.ttl }

// LockKey returns the lock store key for t.
func (w *WithoutOverlapping) LockKey(t *Task) string {
	if w.id != "" {
		return lockKeyPrefix + w.id
	}
	return lockKeyPrefix + t.ID()
}

// BeforeTask implements BeforeHandler.
func (w *WithoutOverlapping) BeforeTask(ctx context.Context, env *Env, t *Task) error {
	if env == nil || env.Locks == nil {
		return ErrNoLockStore
	}
	key := w.LockKey(t)

	if a, ok := env.Locks.(LockAcquirer); ok {
		acquired, err := a.Acquire(ctx, key, w.ttl)
		if err != nil {
			return fmt.Errorf("overlap lock %s: %w", key, err)
		}
		if !acquired {
			return NewSkipError(t, overlapReason)
		}
		return nil
	}

	// Stores without Acquire leave a window between Has and Set.
	held, err := env.Locks.Has(ctx, key)
	if err != nil {
		return fmt.Errorf("overlap lock %s: %w", key, err)
	}
	if held {
		return NewSkipError(t, overlapReason)
	}
	if err := env.Locks.Set(ctx, key, w.ttl); err != nil {
		return fmt.Errorf("overlap lock %s: %w", key, err)
	}
	return nil
}

// AfterTask implements AfterHandler.
func (w *WithoutOverlapping) AfterTask(ctx context.Context, env *Env, r *Result) error {
	return w.release(ctx, env, r.Task())
}

// FailedTask implements FailedHandler.
func (w *WithoutOverlapping) FailedTask(ctx context.Context, env *Env, r *Result) error {
	return w.release(ctx, env, r.Task())
}

func (w *WithoutOverlapping) release(ctx context.Context, env *Env, t *Task) error {
	if env == nil || env.Locks == nil {
		return ErrNoLockStore
	}
	key := w.LockKey(t)
	if err := env.Locks.Delete(ctx, key); err != nil {
		return fmt.Errorf("overlap lock %s: %w", key, err)
	}
	return nil
}
