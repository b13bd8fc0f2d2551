package projection

import (
	"context"
	"fmt"
	"slices"

	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/christopherklint97/utilr/internal/timesheet"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TeamRow is the mean across people for one month.
type TeamRow struct {
	Month          fiscal.Month
	People         int
	Utilization    float64
	FTE            float64
	AvgUtilization float64
	AvgFTE         float64
}

// Team averages projected rows month by month across results. Monthly
// utilization uses predicted hours so that partial and predicted months
// are comparable with actual ones. Empty results are skipped.
func Team(results []Result) []TeamRow {
	rows := lo.FlatMap(results, func(r Result, _ int) []Row { return r.Rows })
	byMonth := lo.GroupBy(rows, func(r Row) fiscal.Month { return r.Month })

	out := make([]TeamRow, 0, len(byMonth))
	for m, group := range byMonth {
		n := float64(len(group))
		tr := TeamRow{Month: m, People: len(group)}
		for _, r := range group {
			tr.Utilization += ratio(r.PredictedBillable, r.MEH) / n
			tr.FTE += ratio(r.PredictedTotal, r.MEH) / n
			tr.AvgUtilization += r.AvgUtilization / n
			tr.AvgFTE += r.AvgFTE / n
		}
		out = append(out, tr)
	}
	slices.SortFunc(out, func(a, b TeamRow) int { return a.Month.Index() - b.Month.Index() })
	return out
}

// Input is one person's work for ProjectAll.
type Input struct {
	Person  string
	Series  []timesheet.MonthlyClassTotals
	Options Options
}

// ProjectAll projects every input concurrently with at most limit workers
// (limit <= 0 means unbounded). It returns either every result or an
// error, never a partial map.
func (p *Projector) ProjectAll(ctx context.Context, inputs []Input, limit int) (map[string]Result, error) {
	results := make([]Result, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := p.Project(in.Series, in.Options)
			if err != nil {
				return fmt.Errorf("projecting %s: %w", in.Person, err)
			}
			r.Person = in.Person
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]Result, len(inputs))
	for _, r := range results {
		out[r.Person] = r
	}
	p.logger.Debug("projected team", zap.Int("people", len(out)))
	return out, nil
}
