package allocation

import (
	"fmt"
	"slices"

	"github.com/christopherklint97/utilr/internal/capacity"
	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Engine struct {
	calc   *capacity.Calculator
	cfg    fiscal.Config
	logger *zap.Logger
}

func NewEngine(calc *capacity.Calculator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{calc: calc, cfg: calc.Config(), logger: logger}
}

// BuildGrid pivots records matching f into a dense grid keyed by axis with
// one column per month of the filter window. Duplicate (row, month) records
// are summed. When nothing matches, the returned grid has NoData set.
func (e *Engine) BuildGrid(records []Record, f Filter, axis Axis) (*Grid, error) {
	months := e.cfg.Months(f.Window)
	capHours, err := e.calc.PeriodCapacity(months, 1)
	if err != nil {
		return nil, fmt.Errorf("capacity for %s: %w", f.Window, err)
	}

	g := &Grid{
		Axis:     axis,
		Filter:   f,
		Months:   months,
		Capacity: capHours,
		ids:      map[cellKey]uuid.UUID{},
	}

	matched := lo.Filter(records, func(r Record, _ int) bool {
		if !e.cfg.Contains(f.Window, r.Month) || !f.match(r) {
			return false
		}
		if axis.key(r) == TotalLabel {
			e.logger.Warn("skipping record keyed by the Total label", zap.Stringer("month", r.Month))
			return false
		}
		return true
	})
	if len(matched) == 0 {
		g.NoData = true
		g.recompute()
		return g, nil
	}

	sums := make(map[cellKey]decimal.Decimal, len(matched))
	for _, r := range matched {
		k := cellKey{row: axis.key(r), month: r.Month}
		if prev, ok := sums[k]; ok {
			g.Duplicates++
			e.logger.Debug("summing duplicate allocation cell",
				zap.String("row", k.row), zap.Stringer("month", k.month))
			sums[k] = prev.Add(r.Hours)
			continue
		}
		sums[k] = r.Hours
		if r.ID != uuid.Nil {
			g.ids[k] = r.ID
		}
	}

	keys := lo.Uniq(lo.Map(matched, func(r Record, _ int) string { return axis.key(r) }))
	slices.Sort(keys)

	g.Rows = make([]Row, 0, len(keys))
	for _, key := range keys {
		row := Row{Key: key, Cells: make([]Cell, len(months))}
		for c, m := range months {
			if h, ok := sums[cellKey{row: key, month: m}]; ok {
				row.Cells[c] = Cell{Hours: h, Planned: true}
			}
		}
		g.Rows = append(g.Rows, row)
	}
	g.recompute()

	e.logger.Debug("built allocation grid",
		zap.Stringer("window", f.Window),
		zap.Stringer("axis", axis),
		zap.Int("rows", len(g.Rows)),
		zap.Int("duplicates", g.Duplicates))
	return g, nil
}
