package projection

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/christopherklint97/utilr/internal/capacity"
	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/christopherklint97/utilr/internal/timesheet"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNegativeTarget = errors.New("target rate must not be negative")

// State is the lifecycle position of a projected month.
type State int

const (
	// Actual months are fully covered by posted entries.
	Actual State = iota
	// PartiallyActual is the as-of month: actuals blended with a predicted
	// completion for its remaining business days.
	PartiallyActual
	// Predicted months lie strictly after the as-of month.
	Predicted
)

func (s State) String() string {
	switch s {
	case Actual:
		return "actual"
	case PartiallyActual:
		return "partial"
	case Predicted:
		return "predicted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Row is one month of a projected series.
type Row struct {
	Month        fiscal.Month
	StrategyYear fiscal.StrategyYear
	State        State

	Hours    map[timesheet.Classification]decimal.Decimal
	Billable decimal.Decimal
	Total    decimal.Decimal

	MEH decimal.Decimal
	// ToDate is the capacity elapsed within the month as of the last entry.
	// It equals MEH for Actual rows and is zero for Predicted rows.
	ToDate decimal.Decimal

	Utilization float64
	FTE         float64
	UtilToDate  float64
	FTEToDate   float64

	PredictedBillable decimal.Decimal
	PredictedTotal    decimal.Decimal

	AvgUtilization float64
	AvgFTE         float64

	// Breakdown is each classification's hours divided by MEH.
	Breakdown map[timesheet.Classification]float64
}

// Options tune a single projection.
type Options struct {
	// TargetRate overrides the trailing utilization, in percent. Zero
	// means use the as-of month's utilization to date.
	TargetRate float64
	// TargetFTE overrides the trailing FTE, in percent.
	TargetFTE float64
	// Fraction is the employment fraction; zero means full time.
	Fraction float64
	// FirstDay is the first day worked. MEH before it is not counted.
	FirstDay time.Time
	// LastDay is the last day with posted work; defaults to the latest
	// entry in the as-of month.
	LastDay time.Time
}

type YearEnd struct {
	Utilization float64
	FTE         float64
}

type Result struct {
	Person string
	// AsOf is nil when there was nothing to project.
	AsOf         *fiscal.Month
	ValidThrough time.Time
	Rows         []Row

	PredictedUtilization float64
	PredictedFTE         float64
	YearEnd              YearEnd
}

func (r Result) Empty() bool {
	return r.AsOf == nil
}

type Projector struct {
	calc   *capacity.Calculator
	cfg    fiscal.Config
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Projector)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Projector) { p.now = now }
}

func New(calc *capacity.Calculator, logger *zap.Logger, opts ...Option) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Projector{calc: calc, cfg: calc.Config(), now: time.Now, logger: logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Project turns one person's monthly totals into a series of actual,
// partially actual and predicted rows through the end of the as-of month's
// strategy year, with cumulative averages per strategy year. The input is
// not modified. An empty input yields an empty Result and no error.
func (p *Projector) Project(series []timesheet.MonthlyClassTotals, opts Options) (Result, error) {
	if !(opts.TargetRate >= 0 && opts.TargetFTE >= 0) {
		return Result{}, ErrNegativeTarget
	}
	if opts.Fraction == 0 {
		opts.Fraction = 1
	}
	if !(opts.Fraction > 0 && opts.Fraction <= 1) {
		return Result{}, fmt.Errorf("%w: %v", capacity.ErrInvalidFraction, opts.Fraction)
	}

	now := p.now().UTC()
	actuals := p.actualMonths(series, fiscal.MonthOf(now))
	if len(actuals) == 0 {
		return Result{Rows: []Row{}}, nil
	}

	months := make([]fiscal.Month, 0, len(actuals))
	for m := range actuals {
		months = append(months, m)
	}
	slices.SortFunc(months, func(a, b fiscal.Month) int { return a.Index() - b.Index() })
	first, asOf := months[0], months[len(months)-1]

	firstDay := dateOnly(opts.FirstDay)
	if firstDay.IsZero() {
		firstDay = first.Start()
	}
	lastDay := p.lastDay(opts.LastDay, actuals[asOf], asOf, now)

	res := Result{Person: series[0].Person, AsOf: &asOf, ValidThrough: lastDay}
	rows := make([]Row, 0, 12)

	for _, m := range fiscal.Span(first, asOf) {
		t, ok := actuals[m]
		if !ok {
			t = timesheet.ZeroTotals(res.Person, m)
		}
		row, err := p.actualRow(t, m, asOf, firstDay, lastDay, opts.Fraction)
		if err != nil {
			return Result{}, err
		}
		rows = append(rows, row)
	}

	boundary := &rows[len(rows)-1]
	res.PredictedUtilization = rate(opts.TargetRate, boundary.UtilToDate)
	res.PredictedFTE = rate(opts.TargetFTE, boundary.FTEToDate)

	remaining := boundary.MEH.Sub(boundary.ToDate)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	boundary.PredictedBillable = boundary.Billable.Add(remaining.Mul(decimal.NewFromFloat(res.PredictedUtilization)))
	boundary.PredictedTotal = boundary.Total.Add(remaining.Mul(decimal.NewFromFloat(res.PredictedFTE)))

	end := p.cfg.LastOf(p.cfg.StrategyYearOf(asOf))
	for m := asOf.Next(); !m.After(end); m = m.Next() {
		meh, err := p.calc.Month(m, opts.Fraction)
		if err != nil {
			return Result{}, fmt.Errorf("capacity for %s: %w", m, err)
		}
		row := Row{
			Month:             m,
			StrategyYear:      p.cfg.StrategyYearOf(m),
			State:             Predicted,
			Hours:             timesheet.ZeroTotals(res.Person, m).Hours,
			MEH:               meh,
			ToDate:            decimal.Zero,
			PredictedBillable: meh.Mul(decimal.NewFromFloat(res.PredictedUtilization)),
			PredictedTotal:    meh.Mul(decimal.NewFromFloat(res.PredictedFTE)),
		}
		row.Breakdown = breakdown(row.Hours, meh)
		rows = append(rows, row)
	}

	accumulate(rows)
	res.Rows = rows
	last := rows[len(rows)-1]
	res.YearEnd = YearEnd{Utilization: last.AvgUtilization, FTE: last.AvgFTE}

	p.logger.Debug("projected utilization",
		zap.String("person", res.Person),
		zap.Stringer("as_of", asOf),
		zap.Int("rows", len(rows)),
		zap.Float64("predicted_utilization", res.PredictedUtilization),
		zap.Float64("year_end_utilization", res.YearEnd.Utilization))
	return res, nil
}

// actualMonths indexes series by month, dropping months after the current
// month and summing any duplicate months.
func (p *Projector) actualMonths(series []timesheet.MonthlyClassTotals, current fiscal.Month) map[fiscal.Month]timesheet.MonthlyClassTotals {
	out := make(map[fiscal.Month]timesheet.MonthlyClassTotals, len(series))
	for _, s := range series {
		if s.Month.After(current) {
			p.logger.Debug("ignoring future month", zap.String("person", s.Person), zap.Stringer("month", s.Month))
			continue
		}
		prev, ok := out[s.Month]
		if !ok {
			prev = timesheet.ZeroTotals(s.Person, s.Month)
		}
		for c, h := range s.Hours {
			prev.Hours[c] = prev.Hours[c].Add(h)
		}
		prev.Total = prev.Total.Add(s.Total)
		if s.LastEntry.After(prev.LastEntry) {
			prev.LastEntry = s.LastEntry
		}
		out[s.Month] = prev
	}
	return out
}

func (p *Projector) lastDay(explicit time.Time, asOfTotals timesheet.MonthlyClassTotals, asOf fiscal.Month, now time.Time) time.Time {
	last := dateOnly(explicit)
	if last.IsZero() {
		last = dateOnly(asOfTotals.LastEntry)
	}
	if last.IsZero() || last.After(asOf.End()) {
		last = asOf.End()
	}
	if today := dateOnly(now); last.After(today) {
		last = today
	}
	return last
}

func (p *Projector) actualRow(t timesheet.MonthlyClassTotals, m, asOf fiscal.Month, firstDay, lastDay time.Time, fraction float64) (Row, error) {
	start := m.Start()
	if firstDay.After(start) {
		start = firstDay
	}
	meh, err := p.calc.Between(start, m.End(), fraction)
	if err != nil {
		return Row{}, fmt.Errorf("capacity for %s: %w", m, err)
	}

	row := Row{
		Month:        m,
		StrategyYear: p.cfg.StrategyYearOf(m),
		State:        Actual,
		Hours:        t.Hours,
		Billable:     t.Get(timesheet.Billable),
		Total:        t.Total,
		MEH:          meh,
		ToDate:       meh,
	}
	if m == asOf {
		row.State = PartiallyActual
		end := m.End()
		if lastDay.Before(end) {
			end = lastDay
		}
		if row.ToDate, err = p.calc.Between(start, end, fraction); err != nil {
			return Row{}, fmt.Errorf("capacity to date for %s: %w", m, err)
		}
	}

	row.Utilization = ratio(row.Billable, row.MEH)
	row.FTE = ratio(row.Total, row.MEH)
	row.UtilToDate = ratio(row.Billable, row.ToDate)
	row.FTEToDate = ratio(row.Total, row.ToDate)
	row.PredictedBillable = row.Billable
	row.PredictedTotal = row.Total
	row.Breakdown = breakdown(row.Hours, meh)
	return row, nil
}

// accumulate fills cumulative averages, restarting at each strategy year.
func accumulate(rows []Row) {
	var year fiscal.StrategyYear
	var sumB, sumT, sumMEH decimal.Decimal
	for i := range rows {
		if i == 0 || rows[i].StrategyYear != year {
			year = rows[i].StrategyYear
			sumB, sumT, sumMEH = decimal.Zero, decimal.Zero, decimal.Zero
		}
		sumB = sumB.Add(rows[i].PredictedBillable)
		sumT = sumT.Add(rows[i].PredictedTotal)
		sumMEH = sumMEH.Add(rows[i].MEH)
		rows[i].AvgUtilization = ratio(sumB, sumMEH)
		rows[i].AvgFTE = ratio(sumT, sumMEH)
	}
}

func breakdown(hours map[timesheet.Classification]decimal.Decimal, meh decimal.Decimal) map[timesheet.Classification]float64 {
	out := make(map[timesheet.Classification]float64, len(timesheet.Classifications))
	for _, c := range timesheet.Classifications {
		out[c] = ratio(hours[c], meh)
	}
	return out
}

func rate(targetPercent, trailing float64) float64 {
	if targetPercent > 0 {
		return targetPercent / 100
	}
	return trailing
}

func ratio(num, den decimal.Decimal) float64 {
	if den.IsZero() {
		return 0
	}
	return num.Div(den).InexactFloat64()
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
