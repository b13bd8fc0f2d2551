package timesheet

import (
	"cmp"
	"slices"
	"time"

	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MonthlyClassTotals holds one person's hours for one month, pivoted by
// classification. Every classification in Classifications has an entry.
type MonthlyClassTotals struct {
	Person string
	Month  fiscal.Month
	Hours  map[Classification]decimal.Decimal
	Total  decimal.Decimal
	// LastEntry is the latest entry date seen in the month.
	LastEntry time.Time
}

// Get returns the hours for c, zero when absent.
func (m MonthlyClassTotals) Get(c Classification) decimal.Decimal {
	if h, ok := m.Hours[c]; ok {
		return h
	}
	return decimal.Zero
}

// ZeroTotals returns an empty row for person and month.
func ZeroTotals(person string, month fiscal.Month) MonthlyClassTotals {
	hours := make(map[Classification]decimal.Decimal, len(Classifications))
	for _, c := range Classifications {
		hours[c] = decimal.Zero
	}
	return MonthlyClassTotals{Person: person, Month: month, Hours: hours, Total: decimal.Zero}
}

type Aggregator struct {
	rules  Rules
	logger *zap.Logger
}

func NewAggregator(rules Rules, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{rules: rules, logger: logger}
}

// Normalize applies the aggregator's rules to every entry.
func (a *Aggregator) Normalize(entries []TimeEntry) []TimeEntry {
	out := make([]TimeEntry, len(entries))
	unclassified := 0
	for i, e := range entries {
		n, none := a.rules.Normalize(e)
		if none {
			unclassified++
		}
		out[i] = n
	}
	if unclassified > 0 {
		a.logger.Warn("unclassified time entries bucketed as None",
			zap.Int("count", unclassified))
	}
	return out
}

type monthKey struct {
	person string
	month  fiscal.Month
}

// Aggregate groups entries into one row per (person, month) with hours
// summed per classification. Rows are sorted by person and then
// chronologically. Entries without a usable classification land in None.
func (a *Aggregator) Aggregate(entries []TimeEntry) []MonthlyClassTotals {
	if len(entries) == 0 {
		return []MonthlyClassTotals{}
	}

	groups := lo.GroupBy(a.Normalize(entries), func(e TimeEntry) monthKey {
		return monthKey{person: e.Person, month: fiscal.MonthOf(e.Date)}
	})

	rows := make([]MonthlyClassTotals, 0, len(groups))
	for key, group := range groups {
		row := ZeroTotals(key.person, key.month)
		for _, e := range group {
			row.Hours[e.Classification] = row.Hours[e.Classification].Add(e.Hours)
			if e.Date.After(row.LastEntry) {
				row.LastEntry = e.Date
			}
		}
		for _, c := range Classifications {
			row.Total = row.Total.Add(row.Hours[c])
		}
		rows = append(rows, row)
	}

	slices.SortFunc(rows, func(x, y MonthlyClassTotals) int {
		return cmp.Or(
			cmp.Compare(x.Person, y.Person),
			cmp.Compare(x.Month.Index(), y.Month.Index()),
		)
	})

	a.logger.Debug("aggregated time entries",
		zap.Int("entries", len(entries)),
		zap.Int("rows", len(rows)))
	return rows
}

// ByPerson splits aggregated rows per person, preserving order.
func ByPerson(rows []MonthlyClassTotals) map[string][]MonthlyClassTotals {
	return lo.GroupBy(rows, func(r MonthlyClassTotals) string { return r.Person })
}
