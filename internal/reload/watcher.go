// Package reload provides configuration hot-reload via file watching and
// signal handling.
package reload

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// ConfigPath is the path to the configuration file to watch.
	ConfigPath string

	// Debounce coalesces bursts of writes (editors often write a file in
	// several steps). Defaults to 250ms.
	Debounce time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (c WatcherConfig) debounceOrDefault() time.Duration {
	if c.Debounce > 0 {
		return c.Debounce
	}
	return defaultDebounce
}

// EventType describes the type of file change event.
type EventType string

const (
	// EventModified indicates the config file was modified.
	EventModified EventType = "modified"
)

// Event represents a file change notification.
type Event struct {
	Type       EventType
	ConfigPath string
}

// Watcher watches the directory holding a configuration file, so that
// editors replacing the file by rename are seen too.
type Watcher struct {
	cfg     WatcherConfig
	logger  *slog.Logger
	events  chan Event
	stop    chan struct{}
	stopped chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher creates a new file watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		cfg:     cfg,
		logger:  logger,
		events:  make(chan Event, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins watching. Only the first call has an effect. It fails when
// the directory cannot be watched.
func (w *Watcher) Start(ctx context.Context) error {
	var err error
	w.startOnce.Do(func() {
		var fw *fsnotify.Watcher
		fw, err = fsnotify.NewWatcher()
		if err != nil {
			return
		}
		if err = fw.Add(filepath.Dir(w.cfg.ConfigPath)); err != nil {
			_ = fw.Close()
			return
		}
		w.started.Store(true)
		go w.loop(ctx, fw)
	})
	return err
}

// Events returns the channel of file change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher. Safe to call multiple times and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.started.Load() {
		<-w.stopped
	}
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer close(w.stopped)
	defer func() { _ = fw.Close() }()

	name := filepath.Base(w.cfg.ConfigPath)
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(w.cfg.debounceOrDefault())
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("reload: watch error", "path", w.cfg.ConfigPath, "error", err)
		case <-timer.C:
			select {
			case w.events <- Event{Type: EventModified, ConfigPath: w.cfg.ConfigPath}:
			default:
				// An event is already pending.
			}
		}
	}
}
