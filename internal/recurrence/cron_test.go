package recurrence

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestCron_EveryMinuteIsDue(t *testing.T) {
	t.Parallel()

	c := MustCron("* * * * *", nil)
	now := at(t, "2023-11-14 16:15:00")

	due, err := IsDue(c, now)
	if err != nil {
		t.Fatalf("IsDue: %v", err)
	}
	if !due {
		t.Fatal("every-minute rule should be due")
	}

	next, err := c.NextRunDate(now, true)
	if err != nil {
		t.Fatalf("NextRunDate: %v", err)
	}
	if !next.Equal(now) {
		t.Errorf("next = %v, want %v", next, now)
	}
}

func TestCron_DueOnlyInMatchingMinute(t *testing.T) {
	t.Parallel()

	c := MustCron("30 * * * *", nil)

	tests := []struct {
		now  string
		want bool
	}{
		{"2023-11-14 16:15:00", false},
		{"2023-11-14 16:29:59", false},
		{"2023-11-14 16:30:00", true},
		{"2023-11-14 16:30:42", true},
		{"2023-11-14 16:31:00", false},
	}
	for _, tt := range tests {
		due, err := IsDue(c, at(t, tt.now))
		if err != nil {
			t.Fatalf("IsDue(%s): %v", tt.now, err)
		}
		if due != tt.want {
			t.Errorf("IsDue(%s) = %v, want %v", tt.now, due, tt.want)
		}
	}
}

func TestCron_NextRunDate_AllowCurrent(t *testing.T) {
	t.Parallel()

	c := MustCron("* * * * *", nil)
	now := at(t, "2023-11-14 16:15:27")

	got, err := c.NextRunDate(now, true)
	if err != nil {
		t.Fatalf("NextRunDate: %v", err)
	}
	if want := at(t, "2023-11-14 16:15:00"); !got.Equal(want) {
		t.Errorf("allowCurrent: got %v, want %v", got, want)
	}

	got, err = c.NextRunDate(now, false)
	if err != nil {
		t.Fatalf("NextRunDate: %v", err)
	}
	if want := at(t, "2023-11-14 16:16:00"); !got.Equal(want) {
		t.Errorf("strict: got %v, want %v", got, want)
	}
}

func TestCron_NextRunDates(t *testing.T) {
	t.Parallel()

	c := MustCron("*/15 * * * *", nil)
	now := at(t, "2023-11-14 16:15:30")

	got, err := c.NextRunDates(now, true, 3)
	if err != nil {
		t.Fatalf("NextRunDates: %v", err)
	}
	want := []time.Time{
		at(t, "2023-11-14 16:15:00"),
		at(t, "2023-11-14 16:30:00"),
		at(t, "2023-11-14 16:45:00"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d dates, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCron_NextRunDates_ClampsMax(t *testing.T) {
	t.Parallel()

	c := MustCron("* * * * *", nil)
	got, err := c.NextRunDates(at(t, "2023-11-14 16:15:00"), true, 0)
	if err != nil {
		t.Fatalf("NextRunDates: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d dates, want 1", len(got))
	}
}

func TestCron_Timezone(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	c := MustCron("0 9 * * *", berlin)

	// 08:00 UTC is 09:00 in Berlin in November (CET, UTC+1).
	due, err := IsDue(c, at(t, "2023-11-14 08:00:00"))
	if err != nil {
		t.Fatalf("IsDue: %v", err)
	}
	if !due {
		t.Error("rule should be due at 09:00 Berlin time")
	}

	due, err = IsDue(c, at(t, "2023-11-14 09:00:00"))
	if err != nil {
		t.Fatalf("IsDue: %v", err)
	}
	if due {
		t.Error("rule should not be due at 09:00 UTC")
	}
}

func TestParseCron_Invalid(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"", "invalid", "60 * * * *", "0 25 * * *", "@every 5m"} {
		if _, err := ParseCron(expr, nil); !errors.Is(err, ErrInvalidExpression) {
			t.Errorf("ParseCron(%q) error = %v, want ErrInvalidExpression", expr, err)
		}
	}
}

func TestParseCron_Descriptor(t *testing.T) {
	t.Parallel()

	c, err := ParseCron("@hourly", nil)
	if err != nil {
		t.Fatalf("ParseCron: %v", err)
	}
	due, err := IsDue(c, at(t, "2023-11-14 16:00:10"))
	if err != nil {
		t.Fatalf("IsDue: %v", err)
	}
	if !due {
		t.Error("@hourly should be due at the top of the hour")
	}
}

func TestCron_NeverFires(t *testing.T) {
	t.Parallel()

	c := MustCron("0 0 30 2 *", nil)
	if _, err := c.NextRunDate(at(t, "2023-11-14 16:15:00"), true); !errors.Is(err, ErrNoNextDate) {
		t.Errorf("error = %v, want ErrNoNextDate", err)
	}
}

func TestCron_ID(t *testing.T) {
	t.Parallel()

	a := MustCron("* * * * *", nil)
	b := MustCron("* * * * *", nil)
	c := MustCron("*/5 * * * *", nil)
	d := MustCron("* * * * *", time.UTC)

	if a.ID() != b.ID() {
		t.Error("same expression should produce the same id")
	}
	if a.ID() == c.ID() {
		t.Error("different expressions should produce different ids")
	}
	if a.ID() == d.ID() {
		t.Error("timezone should be part of the id")
	}
	if len(a.ID()) != 40 {
		t.Errorf("id length = %d, want 40 hex chars", len(a.ID()))
	}
}

func TestIsDue_MatchesNextRunDate(t *testing.T) {
	t.Parallel()

	exprs := []string{"* * * * *", "*/5 * * * *", "30 16 * * *", "0 0 1 * *", "15 10 * * 2"}
	start := at(t, "2023-11-14 15:58:20")

	for _, expr := range exprs {
		c := MustCron(expr, nil)
		for i := range 90 {
			now := start.Add(time.Duration(i) * time.Minute)
			next, err := c.NextRunDate(now, true)
			if err != nil {
				t.Fatalf("%s: NextRunDate: %v", expr, err)
			}
			want := next.Truncate(time.Minute).Equal(now.Truncate(time.Minute))

			got, err := IsDue(c, now)
			if err != nil {
				t.Fatalf("%s: IsDue: %v", expr, err)
			}
			if got != want {
				t.Errorf("%s at %v: IsDue = %v, want %v", expr, now, got, want)
			}
		}
	}
}
