package allocation

import (
	"github.com/shopspring/decimal"
)

// Band classifies a monthly total against one person's monthly capacity.
type Band int

const (
	BandNone Band = iota
	BandUnder
	BandFull
	BandOver
	BandCritical
)

func (b Band) String() string {
	switch b {
	case BandUnder:
		return "under"
	case BandFull:
		return "full"
	case BandOver:
		return "over"
	case BandCritical:
		return "critical"
	}
	return ""
}

// Shading assigns display bins to grid cells.
type Shading struct {
	Bins int
	// Cells holds one bin per row and month, -1 where nothing is planned.
	Cells [][]int
	// Total holds one bin per month for the Total row in the person view.
	Total []int
	// Bands holds one capacity band per month for the Total row in the
	// project view, where the rows add up to a single person's load.
	Bands []Band
}

var bandThresholds = []struct {
	factor float64
	band   Band
}{
	{1.2, BandCritical},
	{1.1, BandOver},
	{1.0, BandFull},
}

// Highlights bins planned cells linearly between the smallest and largest
// planned value. The Total row is banded against monthly capacity in the
// project view and binned linearly between the smallest and largest
// monthly total in the person view.
func (e *Engine) Highlights(g *Grid, bins int) (Shading, error) {
	if bins < 1 {
		bins = 5
	}
	s := Shading{Bins: bins, Cells: make([][]int, len(g.Rows))}

	var lo, hi decimal.Decimal
	seen := false
	for _, row := range g.Rows {
		for _, c := range row.Cells {
			if !c.Planned {
				continue
			}
			if !seen || c.Hours.LessThan(lo) {
				lo = c.Hours
			}
			if !seen || c.Hours.GreaterThan(hi) {
				hi = c.Hours
			}
			seen = true
		}
	}
	for r, row := range g.Rows {
		s.Cells[r] = make([]int, len(row.Cells))
		for c, cell := range row.Cells {
			if !cell.Planned {
				s.Cells[r][c] = -1
				continue
			}
			s.Cells[r][c] = linearBin(cell.Hours, lo, hi, bins)
		}
	}

	if g.Axis == ByProject {
		s.Bands = make([]Band, len(g.Months))
		for c, m := range g.Months {
			monthly, err := e.calc.Month(m, 1)
			if err != nil {
				return Shading{}, err
			}
			s.Bands[c] = band(g.Total.Cells[c].Hours, monthly)
		}
		return s, nil
	}

	s.Total = make([]int, len(g.Months))
	tlo, thi := decimal.Zero, decimal.Zero
	for c, cell := range g.Total.Cells {
		if c == 0 || cell.Hours.LessThan(tlo) {
			tlo = cell.Hours
		}
		if c == 0 || cell.Hours.GreaterThan(thi) {
			thi = cell.Hours
		}
	}
	for c, cell := range g.Total.Cells {
		s.Total[c] = linearBin(cell.Hours, tlo, thi, bins)
	}
	return s, nil
}

// linearBin places v in one of bins equal-width intervals over [lo, hi].
// The top interval is closed.
func linearBin(v, lo, hi decimal.Decimal, bins int) int {
	span := hi.Sub(lo)
	if !span.IsPositive() {
		return 0
	}
	b := int(v.Sub(lo).Div(span).Mul(decimal.NewFromInt(int64(bins))).IntPart())
	if b >= bins {
		b = bins - 1
	}
	if b < 0 {
		b = 0
	}
	return b
}

func band(total, monthly decimal.Decimal) Band {
	if !monthly.IsPositive() {
		return BandNone
	}
	for _, t := range bandThresholds {
		if total.GreaterThanOrEqual(monthly.Mul(decimal.NewFromFloat(t.factor))) {
			return t.band
		}
	}
	return BandUnder
}
