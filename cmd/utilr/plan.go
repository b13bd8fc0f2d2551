package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/christopherklint97/utilr/internal/allocation"
	"github.com/christopherklint97/utilr/internal/config"
	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/christopherklint97/utilr/internal/ingest"
	"github.com/christopherklint97/utilr/internal/store"
	"github.com/christopherklint97/utilr/internal/tui"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Show planned hours as a month grid",
	RunE:  runGrid,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Edit planned hours interactively",
	RunE:  runPlan,
}

func init() {
	for _, c := range []*cobra.Command{gridCmd, planCmd} {
		c.Flags().String("window", "", "Month (\"Apr 2024\"), semester (\"Sem 1 2024-2025\") or strategy year (\"2024-2025\")")
		c.Flags().String("by", "", "Row axis: person or project (default from config)")
		c.Flags().String("person", "", "Fix the grid to one person")
		c.Flags().String("project", "", "Fix the grid to one project")
	}
	gridCmd.Flags().String("export", "", "Also write the grid to this .xlsx file")
}

type gridRequest struct {
	filter allocation.Filter
	axis   allocation.Axis
}

func readGridFlags(cmd *cobra.Command, e *env) (gridRequest, error) {
	var req gridRequest

	window, _ := cmd.Flags().GetString("window")
	if window == "" {
		window = e.cfg.Planner.DefaultWindow
	}
	if window == "" {
		req.filter.Window = fiscal.SemesterWindow(e.cal.SemesterOf(fiscal.MonthOf(time.Now())))
	} else {
		w, err := fiscal.ParseWindow(window)
		if err != nil {
			return req, err
		}
		req.filter.Window = w
	}

	by, _ := cmd.Flags().GetString("by")
	if by == "" {
		by = e.cfg.Planner.Axis
	}
	axis, err := allocation.ParseAxis(by)
	if err != nil {
		return req, err
	}
	req.axis = axis

	req.filter.Person, _ = cmd.Flags().GetString("person")
	req.filter.Project, _ = cmd.Flags().GetString("project")
	return req, nil
}

func loadGrid(ctx context.Context, e *env, req gridRequest) (*allocation.Grid, *allocation.Engine, error) {
	scope := store.AllocationScope{
		Person:  req.filter.Person,
		Project: req.filter.Project,
		Months:  e.cal.Months(req.filter.Window),
	}
	records, err := e.db.ListAllocations(ctx, scope)
	if err != nil {
		return nil, nil, err
	}

	engine := allocation.NewEngine(e.calc, e.logger)
	g, err := engine.BuildGrid(records, req.filter, req.axis)
	if err != nil {
		return nil, nil, err
	}
	return g, engine, nil
}

func runGrid(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	req, err := readGridFlags(cmd, e)
	if err != nil {
		return err
	}
	g, engine, err := loadGrid(ctx, e, req)
	if err != nil {
		return err
	}
	sh, err := engine.Highlights(g, e.cfg.Planner.Bins)
	if err != nil {
		return err
	}

	fmt.Printf("%s by %s, capacity %s h\n\n", g.Filter.Window, g.Axis, g.Capacity.StringFixed(1))
	fmt.Print(tui.RenderGrid(g, sh, nil))

	if path, _ := cmd.Flags().GetString("export"); path != "" {
		if err := writeFile(path, func(f *os.File) error { return ingest.WriteGrid(f, g) }); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	req, err := readGridFlags(cmd, e)
	if err != nil {
		return err
	}
	byChanged := cmd.Flags().Changed("by")
	if req.axis, err = planAxis(req, byChanged); err != nil {
		return err
	}
	g, engine, err := loadGrid(ctx, e, req)
	if err != nil {
		return err
	}

	scope := store.ScopeOf(g)
	save := func(ctx context.Context, records []allocation.Record) error {
		return e.db.ReplaceAllocations(ctx, scope, records)
	}

	planner := tui.NewPlanner(engine, g, e.cfg.Planner.Bins, save)
	if _, err := tea.NewProgram(planner, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	if planner.Dirty() {
		fmt.Println("Quit without saving.")
	}
	if err := config.SavePlannerWindow(e.path, req.filter.Window.String()); err != nil {
		e.logger.Warn("remembering planner window", zap.Error(err))
	}
	return nil
}

// planAxis picks the row axis for an editable grid from the --person and
// --project filters. An explicit --by that contradicts them is an error.
func planAxis(req gridRequest, explicit bool) (allocation.Axis, error) {
	axis, err := req.filter.EditableAxis(req.axis)
	if err != nil {
		return axis, fmt.Errorf("%w: pass --person or --project", err)
	}
	if explicit && axis != req.axis {
		return axis, fmt.Errorf("--by %s conflicts with the fixed filter: a plan for one %s lists rows by %s",
			req.axis, req.axis, axis)
	}
	return axis, nil
}
