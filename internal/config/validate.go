package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"
)

var (
	logLevels   = []string{"", "debug", "info", "warn", "error"}
	logFormats  = []string{"", "text", "json"}
	afterErrors = []string{"", "fatal", "fail"}
	lockDrivers = []string{"", LockDriverMemory, LockDriverSQLite}
	eventNames  = []string{"before", "after", "failed"}
)

// Validate checks the structural validity of a Config. All problems are
// reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, oneOf("log.level", cfg.Log.Level, logLevels)...)
	errs = append(errs, oneOf("log.format", cfg.Log.Format, logFormats)...)
	errs = append(errs, oneOf("runner.after_error", cfg.Runner.AfterError, afterErrors)...)
	errs = append(errs, oneOf("locks.driver", cfg.Locks.Driver, lockDrivers)...)

	if cfg.Locks.BusyTimeout < 0 {
		errs = append(errs, errors.New("config: locks.busy_timeout must be non-negative"))
	}

	loc, err := Location(cfg.Schedule.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("config: schedule: %w", err))
	}

	errs = append(errs, validateTelemetry(cfg.Telemetry)...)
	errs = append(errs, validateGateway(cfg.Gateway)...)

	ids := make(map[string]int, len(cfg.Tasks))
	for i, t := range cfg.Tasks {
		if t.ID != "" {
			if prev, dup := ids[t.ID]; dup {
				errs = append(errs, fmt.Errorf("config: tasks[%d]: duplicate id %q (also tasks[%d])", i, t.ID, prev))
			} else {
				ids[t.ID] = i
			}
		}
		errs = append(errs, validateTask(cfg, i, t, loc)...)
	}

	return errors.Join(errs...)
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func validateTask(cfg *Config, i int, t TaskConfig, loc *time.Location) []error {
	var errs []error
	prefix := fmt.Sprintf("config: tasks[%d]", i)

	bodies := 0
	if t.Process != nil {
		bodies++
		if strings.TrimSpace(t.Process.Run) == "" {
			errs = append(errs, fmt.Errorf("%s: process.run is required", prefix))
		}
	}
	if t.Command != nil {
		bodies++
		if t.Command.Name == "" {
			errs = append(errs, fmt.Errorf("%s: command.name is required", prefix))
		}
	}
	if t.Ping != nil {
		bodies++
		errs = append(errs, validateURL(prefix+": ping.url", t.Ping.URL)...)
	}
	if bodies != 1 {
		errs = append(errs, fmt.Errorf("%s: exactly one of process, command or ping is required (got %d)", prefix, bodies))
	}

	if t.Cron != "" && len(t.Dates) > 0 {
		errs = append(errs, fmt.Errorf("%s: cron and dates are mutually exclusive", prefix))
	} else if _, err := t.Rule(loc); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
	}

	if o := t.WithoutOverlapping; o != nil && o.TTL < 0 {
		errs = append(errs, fmt.Errorf("%s: without_overlapping.ttl must be non-negative", prefix))
	}

	for j, p := range t.Notify.Ping {
		errs = append(errs, validateURL(fmt.Sprintf("%s: notify.ping[%d].url", prefix, j), p.URL)...)
		errs = append(errs, validateEvents(fmt.Sprintf("%s: notify.ping[%d].on", prefix, j), p.On, eventNames)...)
	}
	for j, m := range t.Notify.Mail {
		where := fmt.Sprintf("%s: notify.mail[%d]", prefix, j)
		if len(m.To) == 0 {
			errs = append(errs, fmt.Errorf("%s: at least one recipient is required", where))
		}
		if !cfg.Mail.Configured() {
			errs = append(errs, fmt.Errorf("%s: mail.host must be configured", where))
		}
		errs = append(errs, validateEvents(where+".on", m.On, eventNames)...)
	}
	for j, f := range t.Notify.SendResultTo {
		where := fmt.Sprintf("%s: notify.send_result_to[%d]", prefix, j)
		if f.Path == "" {
			errs = append(errs, fmt.Errorf("%s: path is required", where))
		}
		errs = append(errs, validateEvents(where+".on", f.On, []string{"after", "failed"})...)
	}
	return errs
}

func validateTelemetry(t TelemetryConfig) []error {
	if t.Endpoint == "" {
		return nil
	}
	return validateURL("config: telemetry.endpoint", t.Endpoint)
}

func validateGateway(g GatewayConfig) []error {
	var errs []error
	if g.RunRate < 0 {
		errs = append(errs, errors.New("config: gateway.run_rate must be non-negative"))
	}
	if g.RunBurst < 0 {
		errs = append(errs, errors.New("config: gateway.run_burst must be non-negative"))
	}
	if (g.Auth.BasicUser == "") != (g.Auth.BasicPass == "") {
		errs = append(errs, errors.New("config: gateway.auth: basic_user and basic_pass must be set together"))
	}
	return errs
}

func validateURL(where, raw string) []error {
	if raw == "" {
		return []error{fmt.Errorf("%s is required", where)}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return []error{fmt.Errorf("%s: %w", where, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []error{fmt.Errorf("%s: scheme must be http or https, got %q", where, u.Scheme)}
	}
	return nil
}

func validateEvents(where string, names, allowed []string) []error {
	var errs []error
	for _, n := range names {
		if !slices.Contains(allowed, n) {
			errs = append(errs, fmt.Errorf("%s: unknown event %q (allowed: %s)", where, n, strings.Join(allowed, ", ")))
		}
	}
	return errs
}

func oneOf(field, value string, allowed []string) []error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return []error{fmt.Errorf("config: %s: unsupported value %q", field, value)}
}
