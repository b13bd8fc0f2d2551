package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/christopherklint97/utilr/internal/ingest"
	"github.com/christopherklint97/utilr/internal/notify"
	"github.com/christopherklint97/utilr/internal/projection"
	"github.com/christopherklint97/utilr/internal/store"
	"github.com/christopherklint97/utilr/internal/timesheet"
	"github.com/christopherklint97/utilr/internal/tui"
)

var utilizationCmd = &cobra.Command{
	Use:     "utilization",
	Aliases: []string{"util"},
	Short:   "Project a person's utilization through the strategy year",
	RunE:    runUtilization,
}

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Average projected utilization across everyone",
	RunE:  runTeam,
}

var totalsCmd = &cobra.Command{
	Use:       "totals projects|tasks|people",
	Short:     "Sum hours by project, task or person",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"projects", "tasks", "people"},
	RunE:      runTotals,
}

func init() {
	for _, c := range []*cobra.Command{utilizationCmd, teamCmd} {
		c.Flags().Float64("target", 0, "Target utilization in percent (default: utilization to date)")
		c.Flags().Float64("fte-target", 0, "Target FTE in percent (default: FTE to date)")
		c.Flags().String("as-of", "", "Project as if today were this date, e.g. 2024-06-30 or \"last friday\"")
		c.Flags().Bool("notify", false, "Send a desktop alert when year-end utilization is below the configured minimum (default from config)")
	}
	utilizationCmd.Flags().String("person", "", "Person to report on (\"Last, First\")")
	utilizationCmd.Flags().String("export", "", "Also write the series to this .xlsx file")

	totalsCmd.Flags().String("from", "", "First day (default start of the strategy year)")
	totalsCmd.Flags().String("to", "", "Last day (default today)")
	totalsCmd.Flags().String("person", "", "Limit tasks to one person")
	totalsCmd.Flags().String("project", "", "Limit tasks to one project")
}

type projectFlags struct {
	target, fteTarget float64
	asOf              time.Time
	notify            bool
}

func readProjectFlags(cmd *cobra.Command, e *env) (projectFlags, error) {
	var pf projectFlags
	pf.target, _ = cmd.Flags().GetFloat64("target")
	pf.fteTarget, _ = cmd.Flags().GetFloat64("fte-target")
	pf.notify = e.cfg.Notifications.Enabled
	if cmd.Flags().Changed("notify") {
		pf.notify, _ = cmd.Flags().GetBool("notify")
	}

	asOf, _ := cmd.Flags().GetString("as-of")
	t, err := parseDay(asOf, time.Now())
	if err != nil {
		return pf, err
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	pf.asOf = t
	return pf, nil
}

// projectionInput loads a person's entries and turns them into projection
// input: monthly totals plus first/last day and employment fraction.
func projectionInput(e *env, entries []timesheet.TimeEntry, person string, pf projectFlags) projection.Input {
	agg := timesheet.NewAggregator(e.rules, e.logger)
	mine := timesheet.ForPerson(entries, person)

	opts := projection.Options{
		TargetRate: pf.target,
		TargetFTE:  pf.fteTarget,
		Fraction:   e.calc.FractionFor(timesheet.Schedules(mine)[person]),
	}
	if first, last, ok := timesheet.Span(mine, person, pf.asOf); ok {
		opts.FirstDay, opts.LastDay = first, last
	}
	return projection.Input{Person: person, Series: agg.Aggregate(mine), Options: opts}
}

func newProjector(e *env, asOf time.Time) *projection.Projector {
	return projection.New(e.calc, e.logger, projection.WithClock(func() time.Time { return asOf }))
}

func alert(e *env, res projection.Result) {
	n := notify.New(e.cfg.Notifications.MinUtilization, nil, e.logger)
	if sent, err := n.Check(res); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	} else if sent {
		fmt.Printf("Alert sent: %s below %.0f%% utilization\n", res.Person, e.cfg.Notifications.MinUtilization)
	}
}

func runUtilization(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	pf, err := readProjectFlags(cmd, e)
	if err != nil {
		return err
	}

	people, err := e.db.People(ctx)
	if err != nil {
		return err
	}
	flag, _ := cmd.Flags().GetString("person")
	person, err := resolvePerson(flag, people)
	if err != nil {
		return err
	}

	entries, err := e.db.ListEntries(ctx, store.EntryFilter{Person: person, To: pf.asOf})
	if err != nil {
		return err
	}
	in := projectionInput(e, entries, person, pf)

	res, err := newProjector(e, pf.asOf).Project(in.Series, in.Options)
	if err != nil {
		return err
	}
	res.Person = person

	fmt.Print(tui.RenderProjection(res))

	if path, _ := cmd.Flags().GetString("export"); path != "" {
		if err := writeFile(path, func(f *os.File) error { return ingest.WriteProjection(f, res) }); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	if pf.notify {
		alert(e, res)
	}
	return nil
}

func runTeam(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	pf, err := readProjectFlags(cmd, e)
	if err != nil {
		return err
	}

	entries, err := e.db.ListEntries(ctx, store.EntryFilter{To: pf.asOf})
	if err != nil {
		return err
	}
	people := timesheet.People(entries)
	inputs := make([]projection.Input, 0, len(people))
	for _, person := range people {
		inputs = append(inputs, projectionInput(e, entries, person, pf))
	}

	results, err := projectTeam(ctx, e, pf.asOf, inputs)
	if err != nil {
		return err
	}

	fmt.Print(tui.RenderTeam(projection.Team(results)))
	fmt.Printf("\n%d people\n", len(results))

	if pf.notify {
		for _, res := range results {
			alert(e, res)
		}
	}
	return nil
}

func projectTeam(ctx context.Context, e *env, asOf time.Time, inputs []projection.Input) ([]projection.Result, error) {
	byPerson, err := newProjector(e, asOf).ProjectAll(ctx, inputs, e.cfg.Planner.Workers)
	if err != nil {
		return nil, err
	}
	results := make([]projection.Result, 0, len(inputs))
	for _, in := range inputs {
		results = append(results, byPerson[in.Person])
	}
	e.logger.Debug("projected team", zap.Int("people", len(results)))
	return results, nil
}

func runTotals(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	from, to, err := importRange(cmd, e.cal)
	if err != nil {
		return err
	}
	person, _ := cmd.Flags().GetString("person")
	project, _ := cmd.Flags().GetString("project")

	raw, err := e.db.ListEntries(ctx, store.EntryFilter{From: from, To: to})
	if err != nil {
		return err
	}
	entries := timesheet.NewAggregator(e.rules, e.logger).Normalize(raw)

	period := fmt.Sprintf("%s to %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	switch args[0] {
	case "projects":
		fmt.Print(tui.RenderTotals("Hours by project, "+period, timesheet.ProjectTotals(entries, from, to)))
	case "tasks":
		if person != "" {
			fmt.Print(tui.RenderTotals(fmt.Sprintf("Tasks for %s, %s", person, period), timesheet.PersonTaskTotals(entries, from, to, person)))
			return nil
		}
		fmt.Print(tui.RenderTotals("Hours by task, "+period, timesheet.TaskTotals(entries, from, to, project)))
	case "people":
		fmt.Print(tui.RenderTotals("Hours by person, "+period, timesheet.PersonTotals(entries, from, to)))
	default:
		return fmt.Errorf("unknown totals %q: want projects, tasks or people", args[0])
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
