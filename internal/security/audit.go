package security

import (
	"encoding/json"
	"io"
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// EventType categorizes audit events.
type EventType string

// Audit event types for the admin API.
const (
	EventAuthSuccess EventType = "auth_success"
	EventAuthFailure EventType = "auth_failure"
	EventRateLimit   EventType = "rate_limit"
	EventTaskRun     EventType = "task_run"
	EventScheduleRun EventType = "schedule_run"
)

// AuditEvent is a single audit log entry.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	RemoteIP  string            `json:"remote_ip,omitempty"`
	Path      string            `json:"path,omitempty"`
	TaskID    string            `json:"task_id,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditLoggerConfig configures the audit logger.
type AuditLoggerConfig struct {
	// Writer is the destination for JSONL output. If nil, events are only
	// dispatched to OnEvent.
	Writer io.Writer

	// Redactor, if non-nil, is applied to Detail and Metadata values.
	Redactor *Redactor

	// OnEvent, if non-nil, is called for every event.
	OnEvent func(AuditEvent)

	// Now overrides time.Now. Defaults to time.Now.
	Now func() time.Time
}

// AuditLogger writes structured audit events as JSONL.
type AuditLogger struct {
	writer      io.Writer
	redactor    *Redactor
	onEvent     func(AuditEvent)
	now         func() time.Time
	mu          sync.Mutex
	writeErrors atomic.Int64
}

// NewAuditLogger creates an audit logger with the given configuration.
func NewAuditLogger(cfg AuditLoggerConfig) *AuditLogger {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &AuditLogger{
		writer:   cfg.Writer,
		redactor: cfg.Redactor,
		onEvent:  cfg.OnEvent,
		now:      now,
	}
}

// Log writes an audit event with the current timestamp. The caller's
// Metadata map is never mutated.
func (l *AuditLogger) Log(event AuditEvent) {
	if l == nil {
		return
	}
	event.Timestamp = l.now()
	event.Metadata = maps.Clone(event.Metadata)

	if l.redactor != nil {
		event.Detail = l.redactor.Redact(event.Detail)
		for k, v := range event.Metadata {
			event.Metadata[k] = l.redactor.Redact(v)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.onEvent != nil {
		l.onEvent(event)
	}
	if l.writer != nil {
		if err := json.NewEncoder(l.writer).Encode(event); err != nil {
			l.writeErrors.Add(1)
		}
	}
}

// WriteErrors returns the number of events that failed to serialize or write.
func (l *AuditLogger) WriteErrors() int64 {
	return l.writeErrors.Load()
}
