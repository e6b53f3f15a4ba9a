// Package console renders schedules and batch results for terminals.
package console

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/flemzord/taskrun/internal/schedule"
	"github.com/flemzord/taskrun/internal/task"
)

// TimeLayout formats due dates and monitor start times.
const TimeLayout = "2006-01-02 15:04:05 -07:00"

// noDueDate is printed when a rule has no further run instant.
const noDueDate = "-"

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

// List writes the registered tasks of s with their next due date after now.
func List(w io.Writer, s *schedule.Schedule, now time.Time) error {
	tasks := s.All()
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No scheduled tasks registered.")
		return err
	}

	if _, err := fmt.Fprintf(w, "Schedule Name: %s\n", s.Name()); err != nil {
		return err
	}

	t := newTable("ID", "Name", "Description", "Next Due")
	for _, tk := range tasks {
		t.Row(tk.ID(), tk.Name(), tk.Description(), NextDue(tk, now))
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// NextDue formats the next run instant of t strictly after now.
func NextDue(t *task.Task, now time.Time) string {
	next, err := t.Rule().NextRunDate(now, false)
	if err != nil {
		return noDueDate
	}
	return next.Format(TimeLayout)
}
