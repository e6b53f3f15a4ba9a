package config

import (
	"fmt"
	"time"

	"github.com/flemzord/taskrun/internal/recurrence"
)

// DateLayout is the layout accepted in task dates besides RFC 3339.
const DateLayout = "2006-01-02 15:04"

// Location resolves a timezone name. Empty means time.Local.
func Location(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

// Rule builds the recurrence rule of t. The task's own timezone wins over
// def. A task with neither cron nor dates runs every minute.
func (t TaskConfig) Rule(def *time.Location) (recurrence.Rule, error) {
	loc := def
	if t.Timezone != "" {
		var err error
		if loc, err = Location(t.Timezone); err != nil {
			return nil, err
		}
	}
	if loc == nil {
		loc = time.Local
	}

	if len(t.Dates) > 0 {
		dates, err := ParseDates(t.Dates, loc)
		if err != nil {
			return nil, err
		}
		return recurrence.NewDates(dates...), nil
	}

	expr := t.Cron
	if expr == "" {
		expr = "* * * * *"
	}
	c, err := recurrence.ParseCron(expr, loc)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ParseDates parses RFC 3339 values or DateLayout values in loc.
func ParseDates(values []string, loc *time.Location) ([]time.Time, error) {
	out := make([]time.Time, 0, len(values))
	for _, v := range values {
		if d, err := time.Parse(time.RFC3339, v); err == nil {
			out = append(out, d)
			continue
		}
		d, err := time.ParseInLocation(DateLayout, v, loc)
		if err != nil {
			return nil, fmt.Errorf("date %q: expected %q or RFC 3339", v, DateLayout)
		}
		out = append(out, d)
	}
	return out, nil
}
