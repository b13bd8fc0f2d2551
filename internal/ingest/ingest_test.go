package ingest_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/christopherklint97/utilr/internal/allocation"
	"github.com/christopherklint97/utilr/internal/capacity"
	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/christopherklint97/utilr/internal/ingest"
	"github.com/christopherklint97/utilr/internal/projection"
	"github.com/christopherklint97/utilr/internal/timesheet"
)

// workbook builds an in-memory xlsx with rows on the first sheet.
func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestReadTimeEntries(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Last Name", "First Name", "Hours Date", "User Defined Code 3", "Project Name", "Task Name", "Entered Hours", "Comments", "Work Schedule Description"},
		{"Doe", "Jane", "2024-01-15", "BIL", "Acme", "Build", "7.5", "", "Standard"},
		{},
		{"Roe", "Rick", "01-16-24", "PTO", "Time Off", "Vacation", "8", "beach", "Part Time 80%"},
	})

	entries, err := ingest.ReadTimeEntries(buf, "")
	if err != nil {
		t.Fatalf("ReadTimeEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	e := entries[0]
	if e.Person != "Doe, Jane" || e.Code != "BIL" || e.Project != "Acme" || e.Schedule != "Standard" {
		t.Errorf("entry = %+v", e)
	}
	if !e.Date.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) || !e.Hours.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("date/hours = %s/%s", e.Date, e.Hours)
	}
	if !entries[1].Date.Equal(time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("short date parsed as %s", entries[1].Date)
	}

	agg := timesheet.NewAggregator(timesheet.DefaultRules(), nil)
	rows := agg.Aggregate(entries)
	if got := rows[1].Get(timesheet.TimeOff); !got.Equal(decimal.NewFromInt(8)) {
		t.Errorf("PTO code did not map to Time Off: %s", got)
	}
}

func TestReadTimeEntriesErrors(t *testing.T) {
	noHours := workbook(t, [][]any{{"User Name", "Hours Date"}, {"A", "2024-01-01"}})
	if _, err := ingest.ReadTimeEntries(noHours, ""); !errors.Is(err, ingest.ErrMissingColumn) {
		t.Errorf("missing hours column: %v", err)
	}

	badDate := workbook(t, [][]any{{"User Name", "Hours Date", "Entered Hours"}, {"A", "someday", "1"}})
	_, err := ingest.ReadTimeEntries(badDate, "")
	if err == nil || !strings.Contains(err.Error(), "row 2") {
		t.Errorf("bad date error = %v", err)
	}

	if _, err := ingest.ReadTimeEntries(workbook(t, [][]any{{"x"}}), "Missing"); err == nil {
		t.Error("expected error for missing sheet")
	}
}

func TestReadAllocations(t *testing.T) {
	buf := workbook(t, [][]any{
		{"User Name", "Project", "Entry Month", "Entry Year", "Hours"},
		{"X", "P1", "Apr", 2024, 10},
		{"X", "P2", "apr", 2024, 5},
		{"X", "Total", "Apr", 2024, 15},
	})

	records, err := ingest.ReadAllocations(buf, "")
	if err != nil {
		t.Fatalf("ReadAllocations: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (Total row skipped)", len(records))
	}
	if records[1].Month != fiscal.NewMonth(2024, time.April) || !records[1].Hours.Equal(decimal.NewFromInt(5)) {
		t.Errorf("record = %+v", records[1])
	}
}

func TestWriteGrid(t *testing.T) {
	calc := capacity.New(fiscal.DefaultConfig(), nil)
	e := allocation.NewEngine(calc, nil)
	apr := fiscal.NewMonth(2024, time.April)
	g, err := e.BuildGrid([]allocation.Record{
		{Person: "X", Project: "P1", Month: apr, Hours: decimal.NewFromInt(10)},
		{Person: "X", Project: "P2", Month: apr, Hours: decimal.NewFromInt(5)},
	}, allocation.Filter{Window: fiscal.MonthWindow(apr), Person: "X"}, allocation.ByProject)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := ingest.WriteGrid(&buf, g); err != nil {
		t.Fatalf("WriteGrid: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("Apr 2024")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 2 + Total", len(rows))
	}
	if rows[0][0] != "Project" || rows[0][1] != "Apr 2024" || rows[0][3] != "% FTE" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[3][0] != allocation.TotalLabel || rows[3][1] != "15" {
		t.Errorf("total row = %v", rows[3])
	}
}

func TestWriteProjection(t *testing.T) {
	calc := capacity.New(fiscal.DefaultConfig(), nil)
	p := projection.New(calc, nil, projection.WithClock(func() time.Time {
		return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	}))
	row := timesheet.ZeroTotals("A", fiscal.NewMonth(2024, time.March))
	row.Hours[timesheet.Billable] = decimal.NewFromInt(40)
	row.Total = decimal.NewFromInt(40)
	row.LastEntry = time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	res, err := p.Project([]timesheet.MonthlyClassTotals{row}, projection.Options{})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := ingest.WriteProjection(&buf, res); err != nil {
		t.Fatalf("WriteProjection: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, _ := f.GetRows("Utilization")
	if len(rows) != 2 || rows[1][0] != "Mar 2024" || rows[1][1] != "partial" {
		t.Errorf("rows = %v", rows)
	}
}

const icsFixture = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:1
DTSTAMP:20240101T000000Z
SUMMARY:Vacation
DTSTART;VALUE=DATE:20240607
DTEND;VALUE=DATE:20240611
END:VEVENT
BEGIN:VEVENT
UID:2
DTSTAMP:20240101T000000Z
SUMMARY:PTO dentist
DTSTART:20240612T130000Z
DTEND:20240612T150000Z
END:VEVENT
BEGIN:VEVENT
UID:3
DTSTAMP:20240101T000000Z
SUMMARY:Team sync
DTSTART:20240613T090000Z
DTEND:20240613T100000Z
END:VEVENT
END:VCALENDAR
`

func TestTimeOffFromCalendar(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	events, err := ingest.Events(strings.NewReader(strings.ReplaceAll(icsFixture, "\n", "\r\n")), from, to.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	entries := ingest.TimeOff(events, "Doe, Jane", from, to, ingest.TimeOffOptions{
		HoursPerDay: 8,
		Keywords:    []string{"vacation", "PTO"},
	})

	// Fri 7th and Mon 10th from the all-day event (weekend skipped), then
	// two hours on the 12th.
	want := map[int]int64{7: 8, 10: 8, 12: 2}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for _, e := range entries {
		h, ok := want[e.Date.Day()]
		if !ok {
			t.Errorf("unexpected time off on %s", e.Date.Format(time.DateOnly))
			continue
		}
		if !e.Hours.Equal(decimal.NewFromInt(h)) {
			t.Errorf("%s: %s hours, want %d", e.Date.Format(time.DateOnly), e.Hours, h)
		}
		if e.Classification != timesheet.TimeOff || e.Person != "Doe, Jane" {
			t.Errorf("entry = %+v", e)
		}
	}
}
