package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskrun.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TASKRUN_TEST_TOKEN", "s3cret")

	path := writeConfig(t, `
version: "1"
schedule:
  name: nightly
  timezone: UTC
gateway:
  auth:
    bearer_token: ${TASKRUN_TEST_TOKEN}
  read_timeout: 15s
tasks:
  - id: backup
    cron: "0 3 * * *"
    process:
      run: ${TASKRUN_TEST_BACKUP:-/usr/local/bin/backup}
    without_overlapping:
      ttl: 2h
    notify:
      ping:
        - url: https://hc.example.com/ping/abc
          on: [before, failed]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule.Name != "nightly" {
		t.Errorf("schedule.name = %q", cfg.Schedule.Name)
	}
	if cfg.Gateway.Auth.BearerToken != "s3cret" {
		t.Errorf("bearer_token = %q, want expanded env value", cfg.Gateway.Auth.BearerToken)
	}
	if cfg.Gateway.ReadTimeout != 15*time.Second {
		t.Errorf("read_timeout = %v", cfg.Gateway.ReadTimeout)
	}
	if len(cfg.Tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(cfg.Tasks))
	}
	task := cfg.Tasks[0]
	if task.Process == nil || task.Process.Run != "/usr/local/bin/backup" {
		t.Errorf("process = %+v, want default expansion", task.Process)
	}
	if task.WithoutOverlapping == nil || task.WithoutOverlapping.TTL != 2*time.Hour {
		t.Errorf("without_overlapping = %+v", task.WithoutOverlapping)
	}
	if got := task.Notify.Ping[0].On; len(got) != 2 || got[1] != "failed" {
		t.Errorf("notify.ping.on = %v", got)
	}
	if cfg.DataDir != filepath.Dir(path) {
		t.Errorf("data_dir = %q, want config directory", cfg.DataDir)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_RelativeDataDir(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "version: \"1\"\ndata_dir: state\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(filepath.Dir(path), "state"); cfg.DataDir != want {
		t.Errorf("data_dir = %q, want %q", cfg.DataDir, want)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "version: \"1\"\nmail:\n  password: ${TASKRUN_TEST_UNSET_VAR}\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "TASKRUN_TEST_UNSET_VAR") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "version: \"1\"\ntasks:\n  - id: x\n    shell: echo\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Version != "" || len(cfg.Tasks) != 0 {
		t.Errorf("cfg = %+v, want zero value", cfg)
	}
}
