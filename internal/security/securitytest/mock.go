// Package securitytest provides test doubles for the security package.
package securitytest

import (
	"sync"

	"github.com/flemzord/taskrun/internal/security"
)

// NewTestRedactor creates a Redactor with no patterns, so test strings
// that look like tokens pass through untouched.
func NewTestRedactor() *security.Redactor {
	return &security.Redactor{}
}

// NewTestAuditLogger creates an AuditLogger that records events in memory.
// Returns the logger and a function to retrieve a copy of logged events.
func NewTestAuditLogger() (*security.AuditLogger, func() []security.AuditEvent) {
	var (
		mu     sync.Mutex
		events []security.AuditEvent
	)
	logger := security.NewAuditLogger(security.AuditLoggerConfig{
		OnEvent: func(e security.AuditEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
		},
	})
	return logger, func() []security.AuditEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]security.AuditEvent(nil), events...)
	}
}
