package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/flemzord/taskrun/internal/task"
)

// ErrNoMailer is returned when a mail notifier runs without a mailer in
// its environment.
var ErrNoMailer = errors.New("notify: no mailer configured")

// Mail sends a message on lifecycle events. The subject is prefixed with
// the event and defaults to the task name.
type Mail struct {
	from    string
	to      []string
	subject string
	events  Events
}

// Compile-time interface checks.
var (
	_ task.BeforeHandler = (*Mail)(nil)
	_ task.AfterHandler  = (*Mail)(nil)
	_ task.FailedHandler = (*Mail)(nil)
)

// NewMail returns a mail notifier. Zero events means OnAll.
func NewMail(from string, to []string, subject string, events Events) *Mail {
	if events == 0 {
		events = OnAll
	}
	return &Mail{from: from, to: slices.Clone(to), subject: subject, events: events}
}

// Name implements task.Parameter.
func (m *Mail) Name() string { return "mail" }

// Priority implements task.Parameter.
func (m *Mail) Priority() int { return 0 }

// BeforeTask implements task.BeforeHandler.
func (m *Mail) BeforeTask(ctx context.Context, env *task.Env, t *task.Task) error {
	if !m.events.Has(OnBefore) {
		return nil
	}
	text := fmt.Sprintf("Task Status: %s\n\nTask ID: %s\n\nTask Name: %s\n\nTask Description: %s",
		StatusStarting, t.ID(), t.Name(), t.Description())
	return m.send(ctx, env, t, "Task Starting: ", text)
}

// AfterTask implements task.AfterHandler.
func (m *Mail) AfterTask(ctx context.Context, env *task.Env, r *task.Result) error {
	if !m.events.Has(OnAfter) {
		return nil
	}
	t := r.Task()
	text := fmt.Sprintf("Task Status: %s\n\nTask ID: %s\n\nTask Name: %s\n\nTask Description: %s\n\nTask Output: %s",
		StatusSuccess, t.ID(), t.Name(), t.Description(), r.Output())
	return m.send(ctx, env, t, "Task Success: ", text)
}

// FailedTask implements task.FailedHandler.
func (m *Mail) FailedTask(ctx context.Context, env *task.Env, r *task.Result) error {
	if !m.events.Has(OnFailed) {
		return nil
	}
	t := r.Task()
	text := fmt.Sprintf("Task Status: %s\n\nTask ID: %s\n\nTask Name: %s\n\nTask Description: %s\n\nTask Output: %s\n\nTask Error: %s",
		StatusFailed, t.ID(), t.Name(), t.Description(), r.Output(), errText(r.Err()))
	return m.send(ctx, env, t, "Task Failed: ", text)
}

func (m *Mail) send(ctx context.Context, env *task.Env, t *task.Task, prefix, text string) error {
	if env == nil || env.Mailer == nil {
		return ErrNoMailer
	}
	subject := m.subject
	if subject == "" {
		subject = t.Name()
	}
	msg := task.Message{
		From:    m.from,
		To:      slices.Clone(m.to),
		Subject: prefix + subject,
		Text:    text,
	}
	if err := env.Mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: mail %q: %w", msg.Subject, err)
	}
	return nil
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
