package timesheet

import (
	"cmp"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Total is a named sum of hours.
type Total struct {
	Name  string
	Hours decimal.Decimal
}

func inRange(from, to time.Time) func(TimeEntry, int) bool {
	return func(e TimeEntry, _ int) bool {
		return !e.Date.Before(from) && !e.Date.After(to)
	}
}

func totalsBy(entries []TimeEntry, key func(TimeEntry) string) []Total {
	sums := map[string]decimal.Decimal{}
	for _, e := range entries {
		k := key(e)
		sums[k] = sums[k].Add(e.Hours)
	}
	out := make([]Total, 0, len(sums))
	for name, h := range sums {
		out = append(out, Total{Name: name, Hours: h})
	}
	slices.SortFunc(out, func(a, b Total) int {
		return cmp.Or(a.Hours.Cmp(b.Hours), cmp.Compare(a.Name, b.Name))
	})
	return out
}

// ProjectTotals sums hours per project for entries dated in [from, to],
// smallest first.
func ProjectTotals(entries []TimeEntry, from, to time.Time) []Total {
	return totalsBy(lo.Filter(entries, inRange(from, to)), func(e TimeEntry) string { return e.Project })
}

// TaskTotals sums hours per task within one project.
func TaskTotals(entries []TimeEntry, from, to time.Time, project string) []Total {
	scoped := lo.Filter(entries, func(e TimeEntry, i int) bool {
		return e.Project == project && inRange(from, to)(e, i)
	})
	return totalsBy(scoped, func(e TimeEntry) string { return e.Task })
}

func PersonTotals(entries []TimeEntry, from, to time.Time) []Total {
	return totalsBy(lo.Filter(entries, inRange(from, to)), func(e TimeEntry) string { return e.Person })
}

// PersonTaskTotals sums hours per task for a single person.
func PersonTaskTotals(entries []TimeEntry, from, to time.Time, person string) []Total {
	scoped := lo.Filter(entries, func(e TimeEntry, i int) bool {
		return e.Person == person && inRange(from, to)(e, i)
	})
	return totalsBy(scoped, func(e TimeEntry) string { return e.Task })
}

// Span returns the first day person logged any time and the last day they
// logged non Time Off work, capped at now. ok is false when the person has
// no entries.
func Span(entries []TimeEntry, person string, now time.Time) (first, last time.Time, ok bool) {
	for _, e := range entries {
		if e.Person != person {
			continue
		}
		if !ok || e.Date.Before(first) {
			first = e.Date
		}
		ok = true
		if e.Classification != TimeOff && e.Date.After(last) {
			last = e.Date
		}
	}
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if last.IsZero() {
		last = first
	}
	if last.After(now) {
		last = now
	}
	return first, last, true
}

// People returns the distinct people in entries, sorted.
func People(entries []TimeEntry) []string {
	people := lo.Uniq(lo.Map(entries, func(e TimeEntry, _ int) string { return e.Person }))
	slices.Sort(people)
	return people
}

// Schedules returns the last seen work schedule per person.
func Schedules(entries []TimeEntry) map[string]string {
	out := map[string]string{}
	for _, e := range entries {
		if e.Schedule != "" {
			out[e.Person] = e.Schedule
		}
	}
	return out
}

// Between filters entries to [from, to] inclusive.
func Between(entries []TimeEntry, from, to time.Time) []TimeEntry {
	return lo.Filter(entries, inRange(from, to))
}

// ForPerson filters entries to a single person.
func ForPerson(entries []TimeEntry, person string) []TimeEntry {
	return lo.Filter(entries, func(e TimeEntry, _ int) bool { return e.Person == person })
}
