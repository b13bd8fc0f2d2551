package fiscal

import (
	"fmt"
	"strconv"
	"strings"
)

type WindowKind int

const (
	WindowMonth WindowKind = iota
	WindowSemester
	WindowYear
)

// Window is a filter period for allocation grids: a single month, a
// semester, or a whole strategy year.
type Window struct {
	Kind     WindowKind
	Month    Month
	Semester Semester
	Year     StrategyYear
}

func MonthWindow(m Month) Window {
	return Window{Kind: WindowMonth, Month: m}
}

func SemesterWindow(s Semester) Window {
	return Window{Kind: WindowSemester, Semester: s}
}

func YearWindow(y StrategyYear) Window {
	return Window{Kind: WindowYear, Year: y}
}

// Months lists the calendar months covered by w in chronological order.
func (c Config) Months(w Window) []Month {
	switch w.Kind {
	case WindowSemester:
		return c.SemesterMonths(w.Semester)
	case WindowYear:
		return c.YearMonths(w.Year)
	default:
		return []Month{w.Month}
	}
}

func (c Config) Contains(w Window, m Month) bool {
	switch w.Kind {
	case WindowSemester:
		return c.SemesterOf(m) == w.Semester
	case WindowYear:
		return c.StrategyYearOf(m) == w.Year
	default:
		return m == w.Month
	}
}

func (w Window) String() string {
	switch w.Kind {
	case WindowSemester:
		return w.Semester.String()
	case WindowYear:
		return w.Year.String()
	default:
		return w.Month.String()
	}
}

// ParseWindow accepts "Sem 1 2024-2025", "2024-2025" or "Apr 2024".
func ParseWindow(s string) (Window, error) {
	fields := strings.Fields(s)
	switch {
	case len(fields) == 3 && strings.EqualFold(fields[0], "sem"):
		half, err := strconv.Atoi(fields[1])
		if err != nil || (half != 1 && half != 2) {
			return Window{}, fmt.Errorf("invalid semester %q", s)
		}
		y, err := ParseStrategyYear(fields[2])
		if err != nil {
			return Window{}, err
		}
		return SemesterWindow(Semester{Year: y, Half: half}), nil
	case len(fields) == 1:
		y, err := ParseStrategyYear(fields[0])
		if err != nil {
			return Window{}, err
		}
		return YearWindow(y), nil
	case len(fields) == 2:
		year, err := strconv.Atoi(fields[1])
		if err != nil {
			return Window{}, fmt.Errorf("invalid year in %q", s)
		}
		m, err := ParseMonth(fields[0], year)
		if err != nil {
			return Window{}, err
		}
		return MonthWindow(m), nil
	}
	return Window{}, fmt.Errorf("unrecognised window %q", s)
}

// ParseStrategyYear accepts "2024-2025" or a bare starting year "2024".
func ParseStrategyYear(s string) (StrategyYear, error) {
	start, end, found := strings.Cut(s, "-")
	y, err := strconv.Atoi(start)
	if err != nil {
		return StrategyYear{}, fmt.Errorf("invalid strategy year %q", s)
	}
	if found {
		e, err := strconv.Atoi(end)
		if err != nil || e != y+1 {
			return StrategyYear{}, fmt.Errorf("invalid strategy year %q", s)
		}
	}
	return StrategyYear{Start: y}, nil
}
