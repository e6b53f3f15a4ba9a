package app

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/flemzord/taskrun/internal/body"
	"github.com/flemzord/taskrun/internal/config"
	"github.com/flemzord/taskrun/internal/notify"
	"github.com/flemzord/taskrun/internal/task"
)

// ErrDuplicateID is returned by BuildTasks when two declarations set the
// same explicit id. Derived ids may repeat.
var ErrDuplicateID = errors.New("app: duplicate task id")

// BuildTasks turns the task declarations of cfg into tasks, in file order.
// cfg is expected to be validated.
func BuildTasks(cfg *config.Config) ([]*task.Task, error) {
	loc, err := config.Location(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}

	tasks := make([]*task.Task, 0, len(cfg.Tasks))
	explicit := make(map[string]int, len(cfg.Tasks))
	for i, tc := range cfg.Tasks {
		if tc.ID != "" {
			if prev, dup := explicit[tc.ID]; dup {
				return nil, fmt.Errorf("tasks[%d]: %w %q (also tasks[%d])", i, ErrDuplicateID, tc.ID, prev)
			}
			explicit[tc.ID] = i
		}
		t, err := buildTask(cfg, tc, loc)
		if err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func buildTask(cfg *config.Config, tc config.TaskConfig, loc *time.Location) (*task.Task, error) {
	b, err := buildBody(tc)
	if err != nil {
		return nil, err
	}
	rule, err := tc.Rule(loc)
	if err != nil {
		return nil, err
	}

	t := task.New(b).
		WithID(tc.ID).
		WithName(tc.Name).
		WithDescription(tc.Description).
		WithRule(rule)

	if tc.Skip != nil {
		reason := tc.Skip.Reason
		if reason == "" {
			reason = "task paused"
		}
		t.SkipIf(true, reason)
	}
	if o := tc.WithoutOverlapping; o != nil {
		t.WithoutOverlapping(o.ID, o.TTL)
	}
	if tc.Monitor {
		t.Monitor()
	}
	if err := attachNotifiers(cfg, t, tc.Notify); err != nil {
		return nil, err
	}
	return t, nil
}

func buildBody(tc config.TaskConfig) (task.Body, error) {
	switch {
	case tc.Process != nil:
		var opts []body.ProcessOption
		if tc.Process.Dir != "" {
			opts = append(opts, body.WithDir(tc.Process.Dir))
		}
		if len(tc.Process.Env) > 0 {
			opts = append(opts, body.WithEnv(tc.Process.Env...))
		}
		return body.NewProcess(tc.Process.Run, opts...), nil
	case tc.Command != nil:
		return body.NewCommand(tc.Command.Name, tc.Command.Input), nil
	case tc.Ping != nil:
		p := body.NewPing(tc.Ping.URL, tc.Ping.Method)
		for _, k := range sortedKeys(tc.Ping.Headers) {
			p.WithHeader(k, tc.Ping.Headers[k])
		}
		if tc.Ping.Body != "" {
			p.WithBody(tc.Ping.Body)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("task %q has no body", tc.ID)
	}
}

func attachNotifiers(cfg *config.Config, t *task.Task, n config.NotifyConfig) error {
	for _, pc := range n.Ping {
		events, err := notify.ParseEvents(pc.On, notify.OnAll)
		if err != nil {
			return err
		}
		p := notify.NewPing(pc.URL, pc.Method, events)
		for _, k := range sortedKeys(pc.Headers) {
			p.WithHeader(k, pc.Headers[k])
		}
		t.Add(p)
	}

	for _, mc := range n.Mail {
		events, err := notify.ParseEvents(mc.On, notify.OnAll)
		if err != nil {
			return err
		}
		t.Add(notify.NewMail(cfg.Mail.From, mc.To, mc.Subject, events))
	}

	for _, fc := range n.SendResultTo {
		events, err := notify.ParseEvents(fc.On, notify.OnAfter|notify.OnFailed)
		if err != nil {
			return err
		}
		opts := []notify.FileOption{notify.Handle(events)}
		if fc.OnlyOutput {
			opts = append(opts, notify.OnlyOutput())
		}
		if fc.Overwrite {
			opts = append(opts, notify.Overwrite())
		}
		path := fc.Path
		if !filepath.IsAbs(path) && cfg.DataDir != "" {
			path = filepath.Join(cfg.DataDir, path)
		}
		t.Add(notify.NewSendResultTo(path, opts...))
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
