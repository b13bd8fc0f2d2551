package allocation

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownRow   = errors.New("unknown grid row")
	ErrUnknownMonth = errors.New("month not in grid window")
	ErrTotalRow     = errors.New("the Total row is derived and cannot be edited")
	ErrDuplicateRow = errors.New("row already exists")
	ErrNoFixedAxis  = errors.New("grid has no fixed person or project to flatten against")
)

// Cell is one (row, month) value. Planned distinguishes a planned zero
// from a month that has not been planned at all.
type Cell struct {
	Hours   decimal.Decimal
	Planned bool
	// Raw holds the last user edit when it could not be parsed.
	Raw     string
	Invalid bool
}

type Row struct {
	Key   string
	Cells []Cell
	Total decimal.Decimal
	// PercentFTE is Total divided by the grid's period capacity.
	PercentFTE float64
	// Flagged is set while any cell holds a non-numeric edit.
	Flagged bool
}

// Anomaly records a non-numeric edit that was coerced to zero.
type Anomaly struct {
	Row   string
	Month fiscal.Month
	Raw   string
}

// Grid is a dense row x month table of planned hours with a derived Total
// row and Total / % FTE columns.
type Grid struct {
	Axis   Axis
	Filter Filter
	Months []fiscal.Month
	Rows   []Row
	Total  Row
	// Capacity is the window's full-time capacity, fixed when the grid was
	// built and reused on every recompute.
	Capacity decimal.Decimal
	// NoData is set when no records matched the filter.
	NoData     bool
	Duplicates int
	Anomalies  []Anomaly

	ids map[cellKey]uuid.UUID
}

type cellKey struct {
	row   string
	month fiscal.Month
}

func (g *Grid) monthIndex(m fiscal.Month) int {
	for i, gm := range g.Months {
		if gm == m {
			return i
		}
	}
	return -1
}

func (g *Grid) rowIndex(key string) int {
	for i := range g.Rows {
		if g.Rows[i].Key == key {
			return i
		}
	}
	return -1
}

// Row returns the row keyed by key, including the Total row.
func (g *Grid) Row(key string) (Row, bool) {
	if key == TotalLabel {
		return g.Total, true
	}
	if i := g.rowIndex(key); i >= 0 {
		return g.Rows[i], true
	}
	return Row{}, false
}

func (g *Grid) locate(key string, m fiscal.Month) (int, int, error) {
	if key == TotalLabel {
		return 0, 0, ErrTotalRow
	}
	r := g.rowIndex(key)
	if r < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownRow, key)
	}
	c := g.monthIndex(m)
	if c < 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownMonth, m)
	}
	return r, c, nil
}

// Set applies a user edit. An empty string clears the cell back to
// unplanned. A value that does not parse as a number is stored as zero,
// the row is flagged and an Anomaly is recorded; any earlier anomaly for
// the same cell is dropped. Totals are recomputed
// with the grid's original capacity.
func (g *Grid) Set(key string, m fiscal.Month, raw string) error {
	r, c, err := g.locate(key, m)
	if err != nil {
		return err
	}

	g.Anomalies = slices.DeleteFunc(g.Anomalies, func(a Anomaly) bool {
		return a.Row == key && a.Month == m
	})

	s := strings.TrimSpace(raw)
	cell := &g.Rows[r].Cells[c]
	switch {
	case s == "":
		*cell = Cell{}
	default:
		h, err := decimal.NewFromString(s)
		if err != nil {
			*cell = Cell{Hours: decimal.Zero, Planned: true, Raw: raw, Invalid: true}
			g.Anomalies = append(g.Anomalies, Anomaly{Row: key, Month: m, Raw: raw})
		} else {
			*cell = Cell{Hours: h, Planned: true}
		}
	}
	g.recompute()
	return nil
}

// SetHours stores a numeric value directly.
func (g *Grid) SetHours(key string, m fiscal.Month, h decimal.Decimal) error {
	r, c, err := g.locate(key, m)
	if err != nil {
		return err
	}
	g.Anomalies = slices.DeleteFunc(g.Anomalies, func(a Anomaly) bool {
		return a.Row == key && a.Month == m
	})
	g.Rows[r].Cells[c] = Cell{Hours: h, Planned: true}
	g.recompute()
	return nil
}

// AddRow appends an empty, fully unplanned row. Adding a row to a NoData
// grid turns it into a regular grid.
func (g *Grid) AddRow(key string) error {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return fmt.Errorf("%w: empty key", ErrUnknownRow)
	case key == TotalLabel:
		return ErrTotalRow
	case g.rowIndex(key) >= 0:
		return fmt.Errorf("%w: %q", ErrDuplicateRow, key)
	}
	g.Rows = append(g.Rows, Row{Key: key, Cells: make([]Cell, len(g.Months))})
	g.NoData = false
	g.recompute()
	return nil
}

// recompute derives every row's Total and % FTE and the Total row from
// the non-Total rows only.
func (g *Grid) recompute() {
	total := Row{Key: TotalLabel, Cells: make([]Cell, len(g.Months))}
	for i := range total.Cells {
		total.Cells[i].Hours = decimal.Zero
	}

	for r := range g.Rows {
		row := &g.Rows[r]
		row.Total = decimal.Zero
		row.Flagged = false
		for c, cell := range row.Cells {
			if cell.Invalid {
				row.Flagged = true
			}
			if !cell.Planned {
				continue
			}
			row.Total = row.Total.Add(cell.Hours)
			total.Cells[c].Hours = total.Cells[c].Hours.Add(cell.Hours)
			total.Cells[c].Planned = true
		}
		row.PercentFTE = percentOf(row.Total, g.Capacity)
	}

	total.Total = decimal.Zero
	for _, cell := range total.Cells {
		total.Total = total.Total.Add(cell.Hours)
	}
	total.PercentFTE = percentOf(total.Total, g.Capacity)
	g.Total = total
}

// Records flattens the grid back into allocation records, skipping the
// Total row and unplanned cells. The fixed axis comes from the filter.
func (g *Grid) Records() ([]Record, error) {
	fixed := g.Filter.Person
	if g.Axis == ByPerson {
		fixed = g.Filter.Project
	}
	if fixed == "" && len(g.Rows) > 0 {
		return nil, ErrNoFixedAxis
	}

	var out []Record
	for _, row := range g.Rows {
		for c, cell := range row.Cells {
			if !cell.Planned {
				continue
			}
			m := g.Months[c]
			id, ok := g.ids[cellKey{row: row.Key, month: m}]
			if !ok {
				id = uuid.New()
				if g.ids == nil {
					g.ids = map[cellKey]uuid.UUID{}
				}
				g.ids[cellKey{row: row.Key, month: m}] = id
			}
			rec := Record{ID: id, Month: m, Hours: cell.Hours}
			if g.Axis == ByProject {
				rec.Project, rec.Person = row.Key, fixed
			} else {
				rec.Person, rec.Project = row.Key, fixed
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func percentOf(h, capacity decimal.Decimal) float64 {
	if capacity.IsZero() {
		return 0
	}
	return h.Div(capacity).InexactFloat64()
}
