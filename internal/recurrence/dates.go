package recurrence

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Dates is a Rule built from an explicit list of instants. Each instant
// recurs every year on the same month, day and time of day, in its own
// location.
type Dates struct {
	dates []time.Time

	idOnce sync.Once
	id     string
}

// Compile-time interface check.
var _ Rule = (*Dates)(nil)

// NewDates returns a rule firing on each of dates, annually.
func NewDates(dates ...time.Time) *Dates {
	return &Dates{dates: slices.Clone(dates)}
}

// Dates returns a copy of the configured instants.
func (d *Dates) Dates() []time.Time {
	return slices.Clone(d.dates)
}

// ID implements Rule. The fingerprint covers the Unix timestamps of all
// configured dates and is computed once.
func (d *Dates) ID() string {
	d.idOnce.Do(func() {
		parts := make([]string, len(d.dates))
		for i, t := range d.dates {
			parts[i] = strconv.FormatInt(t.Unix(), 10)
		}
		d.id = fingerprint(strings.Join(parts, ":"))
	})
	return d.id
}

// NextRunDate implements Rule.
func (d *Dates) NextRunDate(now time.Time, allowCurrent bool) (time.Time, error) {
	dates, err := d.NextRunDates(now, allowCurrent, 1)
	if err != nil {
		return time.Time{}, err
	}
	return dates[0], nil
}

// NextRunDates implements Rule. Every configured date is moved into now's
// year (evaluated in the date's location); dates that are already past at
// minute resolution, or equal to now when allowCurrent is false, move one
// more year ahead. The result is sorted ascending and cut to max.
func (d *Dates) NextRunDates(now time.Time, allowCurrent bool, max int) ([]time.Time, error) {
	if len(d.dates) == 0 {
		return nil, ErrNoNextDate
	}
	max = clampMax(max)

	next := make([]time.Time, 0, len(d.dates))
	for _, date := range d.dates {
		next = append(next, nextOccurrence(date, now, allowCurrent))
	}

	slices.SortStableFunc(next, func(a, b time.Time) int { return a.Compare(b) })
	if len(next) > max {
		next = next[:max]
	}
	return next, nil
}

func nextOccurrence(date, now time.Time, allowCurrent bool) time.Time {
	loc := date.Location()
	n := now.In(loc)

	candidate := time.Date(n.Year(), date.Month(), date.Day(),
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), loc)

	c, m := truncateMinute(candidate), truncateMinute(n)
	switch {
	case allowCurrent && !c.Before(m):
		return candidate
	case c.After(m):
		return candidate
	default:
		return candidate.AddDate(1, 0, 0)
	}
}
