// Package notify provides task parameters that report lifecycle events to
// the outside: HTTP pings, mail and result files.
package notify

import (
	"fmt"
	"strings"
)

// Events selects the lifecycle events a notifier reacts to.
type Events uint8

const (
	OnBefore Events = 1 << iota
	OnAfter
	OnFailed

	// OnAll reacts to every event.
	OnAll = OnBefore | OnAfter | OnFailed
)

// Has reports whether e includes every event in other.
func (e Events) Has(other Events) bool { return e&other == other }

// ParseEvents parses event names ("before", "after", "failed"). No names
// means def.
func ParseEvents(names []string, def Events) (Events, error) {
	if len(names) == 0 {
		return def, nil
	}
	var e Events
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "before":
			e |= OnBefore
		case "after":
			e |= OnAfter
		case "failed":
			e |= OnFailed
		default:
			return 0, fmt.Errorf("notify: unknown event %q", n)
		}
	}
	return e, nil
}

// Task status values sent to external systems.
const (
	StatusStarting = "Starting"
	StatusSuccess  = "Success"
	StatusFailed   = "Failed"
)

// StatusHeader carries the task status on ping requests.
const StatusHeader = "X-Task-Status"
