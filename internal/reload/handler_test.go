package reload

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flemzord/taskrun/internal/config"
)

var quiet = slog.New(slog.DiscardHandler)

// recordingApplier stores applied configs.
type recordingApplier struct {
	applied []*config.Config
	err     error
}

func (a *recordingApplier) Apply(_ context.Context, cfg *config.Config) error {
	if a.err != nil {
		return a.err
	}
	a.applied = append(a.applied, cfg)
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskrun.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	return path
}

func TestHandler_HandleReload(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "version: \"1\"\ntasks:\n  - id: a\n    process:\n      run: echo a\n")
	target := &recordingApplier{}
	h := NewHandler(target, quiet)

	if err := h.HandleReload(context.Background(), path); err != nil {
		t.Fatalf("HandleReload: %v", err)
	}
	if len(target.applied) != 1 || len(target.applied[0].Tasks) != 1 {
		t.Fatalf("applied = %+v", target.applied)
	}
}

func TestHandler_HandleReload_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    func(t *testing.T) string
		applier *recordingApplier
		want    string
	}{
		{
			name:    "file not found",
			path:    func(*testing.T) string { return "/nonexistent/taskrun.yaml" },
			applier: &recordingApplier{},
			want:    "loading config",
		},
		{
			name:    "invalid config",
			path:    func(t *testing.T) string { return writeFile(t, "tasks: []\n") },
			applier: &recordingApplier{},
			want:    "validating config",
		},
		{
			name:    "apply fails",
			path:    func(t *testing.T) string { return writeFile(t, "version: \"1\"\n") },
			applier: &recordingApplier{err: errors.New("boom")},
			want:    "applying config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHandler(tt.applier, quiet)
			err := h.HandleReload(context.Background(), tt.path(t))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
			if len(tt.applier.applied) != 0 {
				t.Error("config applied despite error")
			}
		})
	}
}

func TestHandler_HandleReload_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := NewHandler(&recordingApplier{}, quiet)
	if err := h.HandleReload(ctx, "/any"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
