// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for taskrun.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir holds relative state files such as the SQLite lock database.
	// Defaults to the directory of the config file.
	DataDir string `yaml:"data_dir"`

	Log       LogConfig       `yaml:"log"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Runner    RunnerConfig    `yaml:"runner"`
	Locks     LockConfig      `yaml:"locks"`
	Mail      MailConfig      `yaml:"mail"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Gateway   GatewayConfig   `yaml:"gateway"`

	// Tasks are registered in file order, which is also run order.
	Tasks []TaskConfig `yaml:"tasks"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`

	// Format is text or json. Defaults to text.
	Format string `yaml:"format"`
}

// ScheduleConfig names the schedule and sets its default timezone.
type ScheduleConfig struct {
	Name string `yaml:"name"`

	// Timezone applies to tasks without their own. Defaults to local time.
	Timezone string `yaml:"timezone"`
}

// RunnerConfig configures task execution.
type RunnerConfig struct {
	// AfterError is "fatal" (default) to abort the batch when an after
	// handler fails, or "fail" to mark the task failed instead.
	AfterError string `yaml:"after_error"`
}

// Lock drivers.
const (
	LockDriverMemory = "memory"
	LockDriverSQLite = "sqlite"
)

// LockConfig selects the overlap lock store.
type LockConfig struct {
	// Driver is memory (default) or sqlite.
	Driver string `yaml:"driver"`

	// Path is the SQLite database path, relative to DataDir.
	Path string `yaml:"path"`

	// WAL enables SQLite WAL mode. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the SQLite busy timeout in milliseconds.
	BusyTimeout int `yaml:"busy_timeout"`
}

// MailConfig configures the SMTP relay used by mail notifications.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Configured reports whether an SMTP host is set.
func (m MailConfig) Configured() bool { return m.Host != "" }

// TelemetryConfig configures OTLP trace export. Empty Endpoint disables it.
type TelemetryConfig struct {
	Endpoint    string            `yaml:"endpoint"`
	Headers     map[string]string `yaml:"headers"`
	ServiceName string            `yaml:"service_name"`
}

// GatewayConfig configures the admin HTTP server.
type GatewayConfig struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	RunRate         float64       `yaml:"run_rate"`
	RunBurst        int           `yaml:"run_burst"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig configures authentication for /api endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// TaskConfig declares one task. Exactly one of Process, Command and Ping
// must be set. Cron and Dates are mutually exclusive; with neither the
// task runs every minute.
type TaskConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Cron     string   `yaml:"cron"`
	Timezone string   `yaml:"timezone"`
	Dates    []string `yaml:"dates"`

	Process *ProcessConfig `yaml:"process"`
	Command *CommandConfig `yaml:"command"`
	Ping    *PingConfig    `yaml:"ping"`

	WithoutOverlapping *OverlapConfig `yaml:"without_overlapping"`
	Skip               *SkipConfig    `yaml:"skip"`
	Monitor            bool           `yaml:"monitor"`
	Notify             NotifyConfig   `yaml:"notify"`
}

// ProcessConfig runs a shell command line.
type ProcessConfig struct {
	Run string   `yaml:"run"`
	Dir string   `yaml:"dir"`
	Env []string `yaml:"env"`
}

// CommandConfig runs a built-in console command.
type CommandConfig struct {
	Name  string            `yaml:"name"`
	Input map[string]string `yaml:"input"`
}

// PingConfig issues an HTTP request.
type PingConfig struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
}

// OverlapConfig enables overlap prevention.
type OverlapConfig struct {
	// ID shares one lock between tasks. Defaults to the task id.
	ID  string        `yaml:"id"`
	TTL time.Duration `yaml:"ttl"`
}

// SkipConfig pauses a task: it stays listed but every run is skipped.
type SkipConfig struct {
	Reason string `yaml:"reason"`
}

// NotifyConfig attaches notification parameters.
type NotifyConfig struct {
	Ping         []PingNotifyConfig `yaml:"ping"`
	Mail         []MailNotifyConfig `yaml:"mail"`
	SendResultTo []FileNotifyConfig `yaml:"send_result_to"`
}

// PingNotifyConfig calls a URL on lifecycle events.
type PingNotifyConfig struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`

	// On lists before, after and failed. Defaults to all three.
	On []string `yaml:"on"`
}

// MailNotifyConfig sends mail on lifecycle events.
type MailNotifyConfig struct {
	To      []string `yaml:"to"`
	Subject string   `yaml:"subject"`

	// On lists before, after and failed. Defaults to all three.
	On []string `yaml:"on"`
}

// FileNotifyConfig writes results to a file.
type FileNotifyConfig struct {
	Path       string `yaml:"path"`
	OnlyOutput bool   `yaml:"only_output"`
	Overwrite  bool   `yaml:"overwrite"`

	// On lists after and failed. Defaults to both.
	On []string `yaml:"on"`
}
