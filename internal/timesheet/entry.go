package timesheet

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Classification buckets a time entry for utilization purposes.
type Classification string

const (
	Billable     Classification = "Billable"
	RnD          Classification = "R&D"
	GnA          Classification = "G&A"
	MarketingNBD Classification = "Marketing & NBD"
	Overhead     Classification = "Overhead"
	TimeOff      Classification = "Time Off"
	Unbillable   Classification = "Unbillable"
	None         Classification = "None"
)

// Classifications is the fixed column order for pivoted totals.
var Classifications = []Classification{
	Billable, RnD, GnA, MarketingNBD, Overhead, TimeOff, Unbillable, None,
}

// ParseClassification matches s against the known classifications,
// ignoring case and surrounding whitespace.
func ParseClassification(s string) (Classification, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Classifications {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// TimeEntry is one raw timesheet row.
type TimeEntry struct {
	Person         string // "Last, First"
	Date           time.Time
	Classification Classification
	// Code is the source system's classification code, resolved through
	// Rules when Classification is empty or unknown.
	Code     string
	Project  string
	Task     string
	Hours    decimal.Decimal
	Comments string
	Schedule string
}

// PersonName joins last and first names in the "Last, First" form used as
// the person key throughout.
func PersonName(last, first string) string {
	last, first = strings.TrimSpace(last), strings.TrimSpace(first)
	switch {
	case last == "":
		return first
	case first == "":
		return last
	}
	return last + ", " + first
}
