package ingest

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/christopherklint97/utilr/internal/allocation"
	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/christopherklint97/utilr/internal/projection"
	"github.com/christopherklint97/utilr/internal/timesheet"
)

var ErrMissingColumn = errors.New("missing required column")

// Header aliases accepted for each field, matched case-insensitively.
var (
	colUser       = []string{"User Name", "Person", "Name"}
	colLast       = []string{"Last Name"}
	colFirst      = []string{"First Name"}
	colDate       = []string{"Hours Date", "Date"}
	colClass      = []string{"Classification"}
	colCode       = []string{"User Defined Code 3", "Code"}
	colProject    = []string{"Project Name", "Project"}
	colTask       = []string{"Task Name", "Task"}
	colHours      = []string{"Entered Hours", "Hours"}
	colComments   = []string{"Comments", "Comment"}
	colSchedule   = []string{"Work Schedule Description", "Schedule"}
	colEntryMonth = []string{"Entry Month", "Month"}
	colEntryYear  = []string{"Entry Year", "Year"}
)

var dateLayouts = []string{
	time.DateOnly, "01-02-06", "1/2/06", "1/2/2006", "01/02/2006", "2006/01/02", time.RFC3339,
}

type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h
}

func (h header) index(aliases []string) int {
	for _, a := range aliases {
		if i, ok := h[strings.ToLower(a)]; ok {
			return i
		}
	}
	return -1
}

func (h header) require(aliases []string) (int, error) {
	if i := h.index(aliases); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("%w: %s", ErrMissingColumn, aliases[0])
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func openSheet(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return rows, nil
}

// ReadTimeEntries reads a timesheet export. The person is taken from a
// "User Name" column or built from "Last Name" and "First Name". Blank
// rows are skipped; a row with an unreadable date or hours value is an
// error naming the spreadsheet row.
func ReadTimeEntries(r io.Reader, sheet string) ([]timesheet.TimeEntry, error) {
	rows, err := openSheet(r, sheet)
	if err != nil {
		return nil, err
	}
	h := newHeader(rows[0])

	user, last, first := h.index(colUser), h.index(colLast), h.index(colFirst)
	if user < 0 && last < 0 {
		return nil, fmt.Errorf("%w: User Name or Last Name", ErrMissingColumn)
	}
	date, err := h.require(colDate)
	if err != nil {
		return nil, err
	}
	hours, err := h.require(colHours)
	if err != nil {
		return nil, err
	}
	class, code := h.index(colClass), h.index(colCode)
	project, task := h.index(colProject), h.index(colTask)
	comments, schedule := h.index(colComments), h.index(colSchedule)

	var entries []timesheet.TimeEntry
	for n, row := range rows[1:] {
		line := n + 2
		if strings.Join(row, "") == "" {
			continue
		}

		person := cellAt(row, user)
		if person == "" {
			person = timesheet.PersonName(cellAt(row, last), cellAt(row, first))
		}

		d, err := parseDate(cellAt(row, date))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		hv, err := parseHours(cellAt(row, hours))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		entries = append(entries, timesheet.TimeEntry{
			Person:         person,
			Date:           d,
			Classification: timesheet.Classification(cellAt(row, class)),
			Code:           cellAt(row, code),
			Project:        cellAt(row, project),
			Task:           cellAt(row, task),
			Hours:          hv,
			Comments:       cellAt(row, comments),
			Schedule:       cellAt(row, schedule),
		})
	}
	return entries, nil
}

// ReadAllocations reads planned hours in the flat layout of the planning
// table: person, project, entry month abbreviation, entry year, hours.
// Rows labelled Total are skipped.
func ReadAllocations(r io.Reader, sheet string) ([]allocation.Record, error) {
	rows, err := openSheet(r, sheet)
	if err != nil {
		return nil, err
	}
	h := newHeader(rows[0])

	cols := make([]int, 5)
	for i, aliases := range [][]string{colUser, colProject, colEntryMonth, colEntryYear, colHours} {
		if cols[i], err = h.require(aliases); err != nil {
			return nil, err
		}
	}

	var out []allocation.Record
	for n, row := range rows[1:] {
		line := n + 2
		person, project := cellAt(row, cols[0]), cellAt(row, cols[1])
		if person == "" && project == "" {
			continue
		}
		if person == allocation.TotalLabel || project == allocation.TotalLabel {
			continue
		}

		year, err := strconv.Atoi(cellAt(row, cols[3]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid year %q", line, cellAt(row, cols[3]))
		}
		m, err := fiscal.ParseMonth(cellAt(row, cols[2]), year)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		hv, err := parseHours(cellAt(row, cols[4]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		out = append(out, allocation.Record{Person: person, Project: project, Month: m, Hours: hv})
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// parseHours treats a blank cell as zero hours.
func parseHours(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	h, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid hours %q", s)
	}
	if h.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative hours %q", s)
	}
	return h, nil
}

// WriteGrid writes a grid as a sheet: the row axis, one column per month,
// Total and % FTE, followed by the Total row.
func WriteGrid(w io.Writer, g *allocation.Grid) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := g.Filter.Window.String()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	label := "User Name"
	if g.Axis == allocation.ByProject {
		label = "Project"
	}
	headers := []any{label}
	for _, m := range g.Months {
		headers = append(headers, m.String())
	}
	headers = append(headers, "Total", "% FTE")
	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}

	write := func(line int, row allocation.Row) error {
		values := []any{row.Key}
		for _, c := range row.Cells {
			if c.Planned {
				values = append(values, c.Hours.InexactFloat64())
			} else {
				values = append(values, nil)
			}
		}
		values = append(values, row.Total.InexactFloat64(), row.PercentFTE)
		return setRow(f, sheet, line, values)
	}
	for i, row := range g.Rows {
		if err := write(i+2, row); err != nil {
			return err
		}
	}
	if !g.NoData {
		if err := write(len(g.Rows)+2, g.Total); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// WriteProjection writes a projected series, one month per row.
func WriteProjection(w io.Writer, res projection.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Utilization"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	headers := []any{"Month", "State", "Billable", "Total", "MEH", "Utilization", "FTE",
		"Predicted Billable", "Predicted Total", "Avg Utilization", "Avg FTE"}
	for _, c := range timesheet.Classifications {
		headers = append(headers, string(c)+" %")
	}
	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}

	for i, r := range res.Rows {
		values := []any{
			r.Month.String(), r.State.String(),
			r.Billable.InexactFloat64(), r.Total.InexactFloat64(), r.MEH.InexactFloat64(),
			r.Utilization, r.FTE,
			r.PredictedBillable.InexactFloat64(), r.PredictedTotal.InexactFloat64(),
			r.AvgUtilization, r.AvgFTE,
		}
		for _, c := range timesheet.Classifications {
			values = append(values, r.Breakdown[c])
		}
		if err := setRow(f, sheet, i+2, values); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, line int, values []any) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, line)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("setting %s: %w", cell, err)
		}
	}
	return nil
}
