package config

import (
	"testing"
	"time"

	"github.com/flemzord/taskrun/internal/recurrence"
)

func TestTaskConfig_RuleDefaultsToEveryMinute(t *testing.T) {
	t.Parallel()
	rule, err := TaskConfig{}.Rule(time.UTC)
	if err != nil {
		t.Fatalf("Rule: %v", err)
	}
	c, ok := rule.(*recurrence.Cron)
	if !ok {
		t.Fatalf("rule type = %T, want *recurrence.Cron", rule)
	}
	if c.Expression() != "* * * * *" {
		t.Errorf("expression = %q", c.Expression())
	}
}

func TestTaskConfig_RuleTimezone(t *testing.T) {
	t.Parallel()
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	rule, err := TaskConfig{Cron: "0 3 * * *", Timezone: "Europe/Berlin"}.Rule(time.UTC)
	if err != nil {
		t.Fatalf("Rule: %v", err)
	}
	if got := rule.(*recurrence.Cron).Location(); got.String() != berlin.String() {
		t.Errorf("location = %s, want task timezone", got)
	}

	rule, err = TaskConfig{Cron: "0 3 * * *"}.Rule(berlin)
	if err != nil {
		t.Fatalf("Rule: %v", err)
	}
	if got := rule.(*recurrence.Cron).Location(); got.String() != berlin.String() {
		t.Errorf("location = %s, want schedule default", got)
	}
}

func TestTaskConfig_RuleDates(t *testing.T) {
	t.Parallel()
	rule, err := TaskConfig{Dates: []string{"2030-05-01 12:30", "2030-05-02T08:00:00Z"}}.Rule(time.UTC)
	if err != nil {
		t.Fatalf("Rule: %v", err)
	}
	d, ok := rule.(*recurrence.Dates)
	if !ok {
		t.Fatalf("rule type = %T, want *recurrence.Dates", rule)
	}
	want := []time.Time{
		time.Date(2030, 5, 1, 12, 30, 0, 0, time.UTC),
		time.Date(2030, 5, 2, 8, 0, 0, 0, time.UTC),
	}
	got := d.Dates()
	if len(got) != len(want) {
		t.Fatalf("dates = %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseDates_Invalid(t *testing.T) {
	t.Parallel()
	if _, err := ParseDates([]string{"2030-13-01 00:00"}, time.UTC); err == nil {
		t.Fatal("expected error for invalid month")
	}
}

func TestLocation_Empty(t *testing.T) {
	t.Parallel()
	loc, err := Location("")
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc != time.Local {
		t.Errorf("Location(\"\") = %v, want time.Local", loc)
	}
}
