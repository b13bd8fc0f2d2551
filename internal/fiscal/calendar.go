package fiscal

import (
	"errors"
	"fmt"
	"time"
)

// Config describes the organisation's fiscal calendar. The strategy year
// starts in FirstMonth and the second semester starts in SemesterSplitMonth.
type Config struct {
	FirstMonth         time.Month
	SemesterSplitMonth time.Month
	HoursPerDay        int
}

func DefaultConfig() Config {
	return Config{
		FirstMonth:         time.April,
		SemesterSplitMonth: time.November,
		HoursPerDay:        8,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.FirstMonth < time.January || c.FirstMonth > time.December {
		errs = append(errs, fmt.Errorf("first month %d out of range", c.FirstMonth))
	}
	if c.SemesterSplitMonth < time.January || c.SemesterSplitMonth > time.December {
		errs = append(errs, fmt.Errorf("semester split month %d out of range", c.SemesterSplitMonth))
	}
	if c.SemesterSplitMonth == c.FirstMonth {
		errs = append(errs, errors.New("semester split month must differ from first month"))
	}
	if c.HoursPerDay < 1 || c.HoursPerDay > 24 {
		errs = append(errs, fmt.Errorf("hours per day %d out of range", c.HoursPerDay))
	}
	return errors.Join(errs...)
}

// StrategyYear is a fiscal year identified by the calendar year it starts in.
type StrategyYear struct {
	Start int
}

func (y StrategyYear) String() string {
	return fmt.Sprintf("%d-%d", y.Start, y.Start+1)
}

// Semester is one half of a strategy year.
type Semester struct {
	Year StrategyYear
	Half int
}

func (s Semester) String() string {
	return fmt.Sprintf("Sem %d %s", s.Half, s.Year)
}

// offset is the position of m within the fiscal year, 0-based.
func (c Config) offset(m time.Month) int {
	return (int(m) - int(c.FirstMonth) + 12) % 12
}

func (c Config) StrategyYearOf(m Month) StrategyYear {
	if m.Month >= c.FirstMonth {
		return StrategyYear{Start: m.Year}
	}
	return StrategyYear{Start: m.Year - 1}
}

func (c Config) SemesterOf(m Month) Semester {
	half := 1
	if c.offset(m.Month) >= c.offset(c.SemesterSplitMonth) {
		half = 2
	}
	return Semester{Year: c.StrategyYearOf(m), Half: half}
}

// FirstOf returns the opening month of the strategy year.
func (c Config) FirstOf(y StrategyYear) Month {
	return Month{Year: y.Start, Month: c.FirstMonth}
}

// LastOf returns the closing month of the strategy year.
func (c Config) LastOf(y StrategyYear) Month {
	return c.FirstOf(y).Add(11)
}

func (c Config) YearMonths(y StrategyYear) []Month {
	return Span(c.FirstOf(y), c.LastOf(y))
}

func (c Config) SemesterMonths(s Semester) []Month {
	first := c.FirstOf(s.Year)
	split := first.Add(c.offset(c.SemesterSplitMonth))
	if s.Half == 1 {
		return Span(first, split.Prev())
	}
	return Span(split, c.LastOf(s.Year))
}
