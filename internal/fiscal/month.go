package fiscal

import (
	"fmt"
	"strings"
	"time"
)

// monthAbbrevs is the fixed calendar ordering used for parsing and sorting.
// Abbreviations are never compared lexicographically.
var monthAbbrevs = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Month identifies a calendar month in a given year.
type Month struct {
	Year  int
	Month time.Month
}

func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a month abbreviation ("Apr", "april", "APR") for the given year.
func ParseMonth(abbrev string, year int) (Month, error) {
	m, err := ParseMonthName(abbrev)
	if err != nil {
		return Month{}, err
	}
	return Month{Year: year, Month: m}, nil
}

// ParseMonthName maps an abbreviation or full month name to time.Month.
func ParseMonthName(name string) (time.Month, error) {
	s := strings.TrimSpace(name)
	if len(s) < 3 {
		return 0, fmt.Errorf("invalid month %q", name)
	}
	prefix := strings.ToLower(s[:3])
	for i, a := range monthAbbrevs {
		if strings.ToLower(a) == prefix {
			return time.Month(i + 1), nil
		}
	}
	return 0, fmt.Errorf("invalid month %q", name)
}

// Abbrev returns the three-letter month abbreviation.
func Abbrev(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthAbbrevs[m-1]
}

func (m Month) Valid() bool {
	return m.Month >= time.January && m.Month <= time.December && m.Year > 0 && m.Year < 10000
}

// Index is a monotonically increasing ordinal usable for sorting.
func (m Month) Index() int {
	return m.Year*12 + int(m.Month) - 1
}

func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last calendar day of the month.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, -1)
}

func (m Month) Next() Month {
	return m.Add(1)
}

func (m Month) Prev() Month {
	return m.Add(-1)
}

// Add moves n months forward (or backward when n is negative).
func (m Month) Add(n int) Month {
	idx := m.Index() + n
	return Month{Year: idx / 12, Month: time.Month(idx%12 + 1)}
}

func (m Month) Before(o Month) bool { return m.Index() < o.Index() }
func (m Month) After(o Month) bool  { return m.Index() > o.Index() }

func (m Month) Abbrev() string {
	return Abbrev(m.Month)
}

func (m Month) String() string {
	return fmt.Sprintf("%s %d", m.Abbrev(), m.Year)
}

// Span returns every month from first through last inclusive.
func Span(first, last Month) []Month {
	if last.Before(first) {
		return nil
	}
	months := make([]Month, 0, last.Index()-first.Index()+1)
	for m := first; !m.After(last); m = m.Next() {
		months = append(months, m)
	}
	return months
}
