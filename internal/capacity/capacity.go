package capacity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/shopspring/decimal"
)

var (
	// ErrMissingCapacityData is returned when no business-day count can be
	// computed for the requested month.
	ErrMissingCapacityData = errors.New("no capacity data for month")
	ErrInvalidFraction     = errors.New("employment fraction must be in (0, 1]")
)

// ScheduleRule maps a work-schedule description to an employment fraction.
// A rule matches when Match occurs in the description, case-insensitively.
type ScheduleRule struct {
	Match    string
	Fraction float64
}

// DefaultScheduleRules mirrors the documented part-time schedules.
func DefaultScheduleRules() []ScheduleRule {
	return []ScheduleRule{
		{Match: "80", Fraction: 0.8},
		{Match: "75", Fraction: 0.75},
	}
}

// Calculator converts months and date ranges into maximum expected hours
// (MEH) using Monday–Friday business days. No holiday calendar is applied.
type Calculator struct {
	cfg       fiscal.Config
	schedules []ScheduleRule
}

func New(cfg fiscal.Config, schedules []ScheduleRule) *Calculator {
	rules := make([]ScheduleRule, len(schedules))
	copy(rules, schedules)
	return &Calculator{cfg: cfg, schedules: rules}
}

func (c *Calculator) Config() fiscal.Config {
	return c.cfg
}

// MonthlyCapacity is business days in the month x hours per day x fraction.
func (c *Calculator) MonthlyCapacity(month time.Month, year int, fraction float64) (decimal.Decimal, error) {
	m := fiscal.NewMonth(year, month)
	if !m.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %d-%02d", ErrMissingCapacityData, year, month)
	}
	f, err := fractionOf(fraction)
	if err != nil {
		return decimal.Zero, err
	}
	return c.hours(BusinessDays(m.Start(), m.End())).Mul(f), nil
}

// Month is MonthlyCapacity for a fiscal.Month.
func (c *Calculator) Month(m fiscal.Month, fraction float64) (decimal.Decimal, error) {
	return c.MonthlyCapacity(m.Month, m.Year, fraction)
}

// PeriodCapacity sums monthly capacity over months, e.g. a semester.
func (c *Calculator) PeriodCapacity(months []fiscal.Month, fraction float64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, m := range months {
		h, err := c.Month(m, fraction)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(h)
	}
	return total, nil
}

// PartialMonthCapacity returns the full-time hours from the first of the
// month through the given date inclusive. Dates before the first business
// day yield zero; dates past the month end are clamped to it.
func (c *Calculator) PartialMonthCapacity(month time.Month, year int, through time.Time) (decimal.Decimal, error) {
	m := fiscal.NewMonth(year, month)
	if !m.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %d-%02d", ErrMissingCapacityData, year, month)
	}
	end := dateOnly(through)
	if end.After(m.End()) {
		end = m.End()
	}
	return c.hours(BusinessDays(m.Start(), end)), nil
}

// Between returns capacity for the inclusive date range [from, to].
func (c *Calculator) Between(from, to time.Time, fraction float64) (decimal.Decimal, error) {
	f, err := fractionOf(fraction)
	if err != nil {
		return decimal.Zero, err
	}
	return c.hours(BusinessDays(from, to)).Mul(f), nil
}

// FractionFor resolves a work-schedule description ("Standard",
// "Part Time 80%") to an employment fraction. Unknown schedules are full time.
func (c *Calculator) FractionFor(schedule string) float64 {
	s := strings.ToLower(strings.TrimSpace(schedule))
	if s == "" {
		return 1
	}
	for _, r := range c.schedules {
		if r.Match != "" && strings.Contains(s, strings.ToLower(r.Match)) {
			return r.Fraction
		}
	}
	return 1
}

func (c *Calculator) hours(days int) decimal.Decimal {
	return decimal.NewFromInt(int64(days * c.cfg.HoursPerDay))
}

func fractionOf(f float64) (decimal.Decimal, error) {
	if !(f > 0 && f <= 1) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidFraction, f)
	}
	return decimal.NewFromFloat(f), nil
}

// BusinessDays counts Monday–Friday dates in [from, to] inclusive.
// It returns 0 when to precedes from.
func BusinessDays(from, to time.Time) int {
	start, end := dateOnly(from), dateOnly(to)
	if end.Before(start) {
		return 0
	}

	days := int(end.Sub(start).Hours()/24) + 1
	count := (days / 7) * 5
	wd := start.Weekday()
	for i := 0; i < days%7; i++ {
		d := (wd + time.Weekday(i)) % 7
		if d != time.Saturday && d != time.Sunday {
			count++
		}
	}
	return count
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
