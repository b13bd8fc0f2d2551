package fiscal_test

import (
	"testing"
	"time"

	"github.com/christopherklint97/utilr/internal/fiscal"
)

func TestStrategyYearOf(t *testing.T) {
	cfg := fiscal.DefaultConfig()

	tests := []struct {
		month fiscal.Month
		want  string
	}{
		{fiscal.NewMonth(2024, time.April), "2024-2025"},
		{fiscal.NewMonth(2024, time.December), "2024-2025"},
		{fiscal.NewMonth(2025, time.January), "2024-2025"},
		{fiscal.NewMonth(2025, time.March), "2024-2025"},
		{fiscal.NewMonth(2025, time.April), "2025-2026"},
	}

	for _, tt := range tests {
		if got := cfg.StrategyYearOf(tt.month).String(); got != tt.want {
			t.Errorf("StrategyYearOf(%s) = %s, want %s", tt.month, got, tt.want)
		}
	}
}

func TestSemesterOf(t *testing.T) {
	cfg := fiscal.DefaultConfig()

	tests := []struct {
		month fiscal.Month
		half  int
	}{
		{fiscal.NewMonth(2024, time.April), 1},
		{fiscal.NewMonth(2024, time.October), 1},
		{fiscal.NewMonth(2024, time.November), 2},
		{fiscal.NewMonth(2025, time.March), 2},
	}

	for _, tt := range tests {
		if got := cfg.SemesterOf(tt.month).Half; got != tt.half {
			t.Errorf("SemesterOf(%s) = %d, want %d", tt.month, got, tt.half)
		}
	}
}

func TestSemesterMonths(t *testing.T) {
	cfg := fiscal.DefaultConfig()
	y := fiscal.StrategyYear{Start: 2024}

	sem1 := cfg.SemesterMonths(fiscal.Semester{Year: y, Half: 1})
	if len(sem1) != 7 {
		t.Fatalf("semester 1 has %d months, want 7", len(sem1))
	}
	if sem1[0] != fiscal.NewMonth(2024, time.April) || sem1[6] != fiscal.NewMonth(2024, time.October) {
		t.Errorf("semester 1 spans %s..%s", sem1[0], sem1[6])
	}

	sem2 := cfg.SemesterMonths(fiscal.Semester{Year: y, Half: 2})
	if len(sem2) != 5 {
		t.Fatalf("semester 2 has %d months, want 5", len(sem2))
	}
	if sem2[4] != fiscal.NewMonth(2025, time.March) {
		t.Errorf("semester 2 ends %s, want Mar 2025", sem2[4])
	}
}

func TestCalendarYearConfig(t *testing.T) {
	cfg := fiscal.Config{FirstMonth: time.January, SemesterSplitMonth: time.July, HoursPerDay: 8}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	m := fiscal.NewMonth(2024, time.February)
	if got := cfg.StrategyYearOf(m).Start; got != 2024 {
		t.Errorf("StrategyYearOf(Feb 2024).Start = %d, want 2024", got)
	}
	if got := cfg.LastOf(fiscal.StrategyYear{Start: 2024}); got != fiscal.NewMonth(2024, time.December) {
		t.Errorf("LastOf = %s, want Dec 2024", got)
	}
}

func TestValidate(t *testing.T) {
	bad := fiscal.Config{FirstMonth: time.April, SemesterSplitMonth: time.April, HoursPerDay: 0}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestParseMonthOrdering(t *testing.T) {
	names := []string{"Dec", "jan", "APR", "August"}
	want := []time.Month{time.December, time.January, time.April, time.August}

	for i, n := range names {
		got, err := fiscal.ParseMonthName(n)
		if err != nil {
			t.Fatalf("ParseMonthName(%q): %v", n, err)
		}
		if got != want[i] {
			t.Errorf("ParseMonthName(%q) = %s, want %s", n, got, want[i])
		}
	}

	if _, err := fiscal.ParseMonthName("Xy"); err == nil {
		t.Error("expected error for short name")
	}
}

func TestMonthArithmetic(t *testing.T) {
	dec := fiscal.NewMonth(2024, time.December)
	if got := dec.Next(); got != fiscal.NewMonth(2025, time.January) {
		t.Errorf("Dec 2024 + 1 = %s", got)
	}
	if got := fiscal.NewMonth(2025, time.January).Prev(); got != dec {
		t.Errorf("Jan 2025 - 1 = %s", got)
	}
	if got := dec.End().Day(); got != 31 {
		t.Errorf("Dec end day = %d", got)
	}
	if got := len(fiscal.Span(fiscal.NewMonth(2024, time.November), fiscal.NewMonth(2025, time.February))); got != 4 {
		t.Errorf("Span length = %d, want 4", got)
	}
}

func TestParseWindow(t *testing.T) {
	cfg := fiscal.DefaultConfig()

	tests := []struct {
		in     string
		months int
		label  string
	}{
		{"Sem 1 2024-2025", 7, "Sem 1 2024-2025"},
		{"sem 2 2024", 5, "Sem 2 2024-2025"},
		{"2024-2025", 12, "2024-2025"},
		{"Apr 2024", 1, "Apr 2024"},
	}

	for _, tt := range tests {
		w, err := fiscal.ParseWindow(tt.in)
		if err != nil {
			t.Fatalf("ParseWindow(%q): %v", tt.in, err)
		}
		if got := len(cfg.Months(w)); got != tt.months {
			t.Errorf("ParseWindow(%q) months = %d, want %d", tt.in, got, tt.months)
		}
		if w.String() != tt.label {
			t.Errorf("ParseWindow(%q) label = %q, want %q", tt.in, w.String(), tt.label)
		}
	}

	for _, bad := range []string{"Sem 3 2024-2025", "2024-2026", "", "foo bar baz qux"} {
		if _, err := fiscal.ParseWindow(bad); err == nil {
			t.Errorf("ParseWindow(%q) expected error", bad)
		}
	}
}

func TestContains(t *testing.T) {
	cfg := fiscal.DefaultConfig()
	w := fiscal.SemesterWindow(fiscal.Semester{Year: fiscal.StrategyYear{Start: 2024}, Half: 2})

	if !cfg.Contains(w, fiscal.NewMonth(2025, time.February)) {
		t.Error("Feb 2025 should be in Sem 2 2024-2025")
	}
	if cfg.Contains(w, fiscal.NewMonth(2024, time.October)) {
		t.Error("Oct 2024 should not be in Sem 2 2024-2025")
	}
}
