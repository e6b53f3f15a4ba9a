// Package recurrence computes when a task should run. A Rule yields the next
// qualifying run instants for a reference time, and IsDue decides whether a
// rule fires in the current minute.
package recurrence

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrNoNextDate is returned when a rule cannot produce a next run date,
	// e.g. an explicit date list with no dates.
	ErrNoNextDate = errors.New("recurrence: unable to determine next run date")

	// ErrInvalidExpression is returned when a cron expression does not parse.
	ErrInvalidExpression = errors.New("recurrence: invalid cron expression")
)

// DefaultMaxDates is the number of dates NextRunDates callers use when they
// have no better bound.
const DefaultMaxDates = 5

// Rule is a recurrence rule. Implementations are deterministic functions of
// (rule, reference instant).
type Rule interface {
	// ID returns a stable fingerprint of the rule's defining fields.
	ID() string

	// NextRunDate returns the next run instant at or after now when
	// allowCurrent is set, strictly after now otherwise.
	NextRunDate(now time.Time, allowCurrent bool) (time.Time, error)

	// NextRunDates returns up to max run instants in ascending order.
	// A max below 1 is treated as 1.
	NextRunDates(now time.Time, allowCurrent bool, max int) ([]time.Time, error)
}

// IsDue reports whether r fires in the minute containing now. The next run
// date (current minute allowed) and now are both truncated to the minute
// before comparing, so a tick that lands a few seconds late still matches.
func IsDue(r Rule, now time.Time) (bool, error) {
	next, err := r.NextRunDate(now, true)
	if err != nil {
		return false, err
	}
	return truncateMinute(next).Equal(truncateMinute(now)), nil
}

// truncateMinute zeroes seconds and sub-seconds in t's own location.
func truncateMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

func fingerprint(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func clampMax(max int) int {
	if max < 1 {
		return 1
	}
	return max
}
