package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Version: "1",
		Tasks: []TaskConfig{
			{ID: "backup", Cron: "0 3 * * *", Process: &ProcessConfig{Run: "echo backup"}},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_NoTasks(t *testing.T) {
	t.Parallel()
	if err := Validate(&Config{Version: "1"}); err != nil {
		t.Fatalf("an empty schedule is valid: %v", err)
	}
}

func TestValidate_MissingVersion(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Version = ""
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for missing version")
	}
	if !strings.Contains(err.Error(), "version") {
		t.Errorf("error should mention version: %v", err)
	}
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Version = "99"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("error should mention unsupported: %v", err)
	}
}

func TestValidate_TaskErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name: "no body",
			mutate: func(c *Config) {
				c.Tasks[0].Process = nil
			},
			want: "exactly one of process, command or ping",
		},
		{
			name: "two bodies",
			mutate: func(c *Config) {
				c.Tasks[0].Ping = &PingConfig{URL: "https://example.com"}
			},
			want: "(got 2)",
		},
		{
			name: "empty process",
			mutate: func(c *Config) {
				c.Tasks[0].Process.Run = "  "
			},
			want: "process.run is required",
		},
		{
			name: "bad cron",
			mutate: func(c *Config) {
				c.Tasks[0].Cron = "61 * * * *"
			},
			want: "tasks[0]",
		},
		{
			name: "cron and dates",
			mutate: func(c *Config) {
				c.Tasks[0].Dates = []string{"2030-01-01 10:00"}
			},
			want: "mutually exclusive",
		},
		{
			name: "bad date",
			mutate: func(c *Config) {
				c.Tasks[0].Cron = ""
				c.Tasks[0].Dates = []string{"tomorrow"}
			},
			want: `date "tomorrow"`,
		},
		{
			name: "bad timezone",
			mutate: func(c *Config) {
				c.Tasks[0].Timezone = "Mars/Olympus"
			},
			want: "Mars/Olympus",
		},
		{
			name: "duplicate id",
			mutate: func(c *Config) {
				c.Tasks = append(c.Tasks, TaskConfig{ID: "backup", Command: &CommandConfig{Name: "locks:purge"}})
			},
			want: `duplicate id "backup"`,
		},
		{
			name: "ping scheme",
			mutate: func(c *Config) {
				c.Tasks[0].Process = nil
				c.Tasks[0].Ping = &PingConfig{URL: "ftp://example.com"}
			},
			want: "scheme must be http or https",
		},
		{
			name: "negative overlap ttl",
			mutate: func(c *Config) {
				c.Tasks[0].WithoutOverlapping = &OverlapConfig{TTL: -time.Second}
			},
			want: "ttl must be non-negative",
		},
		{
			name: "unknown notify event",
			mutate: func(c *Config) {
				c.Tasks[0].Notify.Ping = []PingNotifyConfig{{URL: "https://hc.example.com", On: []string{"always"}}}
			},
			want: `unknown event "always"`,
		},
		{
			name: "file notify before",
			mutate: func(c *Config) {
				c.Tasks[0].Notify.SendResultTo = []FileNotifyConfig{{Path: "out.log", On: []string{"before"}}}
			},
			want: `unknown event "before"`,
		},
		{
			name: "mail without smtp",
			mutate: func(c *Config) {
				c.Tasks[0].Notify.Mail = []MailNotifyConfig{{To: []string{"ops@example.com"}}}
			},
			want: "mail.host must be configured",
		},
		{
			name: "mail without recipients",
			mutate: func(c *Config) {
				c.Mail.Host = "smtp.example.com"
				c.Tasks[0].Notify.Mail = []MailNotifyConfig{{}}
			},
			want: "at least one recipient",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestValidate_Settings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"after error", func(c *Config) { c.Runner.AfterError = "ignore" }, "runner.after_error"},
		{"lock driver", func(c *Config) { c.Locks.Driver = "redis" }, "locks.driver"},
		{"busy timeout", func(c *Config) { c.Locks.BusyTimeout = -1 }, "busy_timeout"},
		{"schedule timezone", func(c *Config) { c.Schedule.Timezone = "Nowhere/City" }, "schedule"},
		{"telemetry endpoint", func(c *Config) { c.Telemetry.Endpoint = "collector:4318" }, "telemetry.endpoint"},
		{"basic auth half", func(c *Config) { c.Gateway.Auth.BasicUser = "admin" }, "basic_user and basic_pass"},
		{"run rate", func(c *Config) { c.Gateway.RunRate = -1 }, "run_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Tasks: []TaskConfig{{}, {Cron: "bad"}},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"version", "tasks[0]", "tasks[1]"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error should mention %q: %v", want, msg)
		}
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"":      "INFO",
		"debug": "DEBUG",
		"info":  "INFO",
		"warn":  "WARN",
		"error": "ERROR",
	}
	for in, want := range tests {
		if got := (LogConfig{Level: in}).SlogLevel().String(); got != want {
			t.Errorf("SlogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
