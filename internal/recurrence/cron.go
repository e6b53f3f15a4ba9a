package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts the standard 5-field format plus descriptors like @hourly.
// Interval descriptors (@every) are rejected by ParseCron: they are not
// anchored to minute boundaries.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Cron is a Rule backed by a 5-field cron expression
// (minute, hour, day-of-month, month, day-of-week).
type Cron struct {
	expr  string
	loc   *time.Location
	sched cron.Schedule
}

// Compile-time interface check.
var _ Rule = (*Cron)(nil)

// ParseCron parses expr. When loc is nil the expression is evaluated in the
// location of the reference instant passed to NextRunDate.
func ParseCron(expr string, loc *time.Location) (*Cron, error) {
	if strings.HasPrefix(strings.TrimSpace(expr), "@every") {
		return nil, fmt.Errorf("%w %q: interval descriptors are not supported", ErrInvalidExpression, expr)
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidExpression, expr, err)
	}
	return &Cron{expr: expr, loc: loc, sched: sched}, nil
}

// MustCron is like ParseCron but panics on an invalid expression.
// Intended for statically known expressions.
func MustCron(expr string, loc *time.Location) *Cron {
	c, err := ParseCron(expr, loc)
	if err != nil {
		panic(err)
	}
	return c
}

// Expression returns the raw cron expression.
func (c *Cron) Expression() string { return c.expr }

// Location returns the configured timezone, or nil.
func (c *Cron) Location() *time.Location { return c.loc }

// ID implements Rule.
func (c *Cron) ID() string {
	if c.loc == nil {
		return fingerprint(c.expr)
	}
	return fingerprint(c.expr + "@" + c.loc.String())
}

// NextRunDate implements Rule.
func (c *Cron) NextRunDate(now time.Time, allowCurrent bool) (time.Time, error) {
	ref := c.reference(now)
	from := ref
	if allowCurrent {
		// Next is strictly greater than its argument, so step back one
		// second from the minute start to let the current minute match.
		from = truncateMinute(ref).Add(-time.Second)
	}
	next := c.sched.Next(from)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q never fires", ErrNoNextDate, c.expr)
	}
	return next, nil
}

// NextRunDates implements Rule.
func (c *Cron) NextRunDates(now time.Time, allowCurrent bool, max int) ([]time.Time, error) {
	max = clampMax(max)

	first, err := c.NextRunDate(now, allowCurrent)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, max)
	dates = append(dates, first)
	for len(dates) < max {
		next := c.sched.Next(dates[len(dates)-1])
		if next.IsZero() {
			break
		}
		dates = append(dates, next)
	}
	return dates, nil
}

func (c *Cron) reference(now time.Time) time.Time {
	if c.loc != nil {
		return now.In(c.loc)
	}
	return now
}
