package clockify

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/christopherklint97/utilr/internal/timesheet"
)

// Mapping assigns classifications to Clockify entries by project name.
type Mapping struct {
	Projects map[string]timesheet.Classification
	// Default applies to non-billable entries on unmapped projects.
	// Billable entries on unmapped projects are always Billable.
	Default timesheet.Classification
}

// ToTimeEntries converts Clockify entries for person. Running timers and
// zero-length entries are skipped. Dates are the UTC start day.
func ToTimeEntries(entries []TimeEntry, projects map[string]Project, person string, m Mapping) []timesheet.TimeEntry {
	out := make([]timesheet.TimeEntry, 0, len(entries))
	for _, e := range entries {
		end := e.TimeInterval.End
		if end == nil || !end.After(e.TimeInterval.Start) {
			continue
		}

		project := projects[e.ProjectID].Name
		class, ok := m.Projects[project]
		switch {
		case ok:
		case e.Billable:
			class = timesheet.Billable
		default:
			class = m.Default
		}

		start := e.TimeInterval.Start.UTC()
		out = append(out, timesheet.TimeEntry{
			Person:         person,
			Date:           time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
			Classification: class,
			Project:        project,
			Task:           e.Description,
			Hours:          decimal.NewFromFloat(end.Sub(e.TimeInterval.Start).Hours()).Round(2),
		})
	}
	return out
}
