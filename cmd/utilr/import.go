package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/christopherklint97/utilr/internal/allocation"
	"github.com/christopherklint97/utilr/internal/clockify"
	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/christopherklint97/utilr/internal/ingest"
	"github.com/christopherklint97/utilr/internal/store"
	"github.com/christopherklint97/utilr/internal/timesheet"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import time entries or planned hours",
}

var importXLSXCmd = &cobra.Command{
	Use:   "xlsx FILE",
	Short: "Import a timesheet or planned-hours workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportXLSX,
}

var importICSCmd = &cobra.Command{
	Use:   "ics [SOURCE]",
	Short: "Import time off from an iCalendar URL or file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runImportICS,
}

var importClockifyCmd = &cobra.Command{
	Use:   "clockify",
	Short: "Import time entries from Clockify",
	RunE:  runImportClockify,
}

func init() {
	importXLSXCmd.Flags().String("sheet", "", "Sheet to read (default from config, then the active sheet)")
	importXLSXCmd.Flags().Bool("allocations", false, "The workbook holds planned hours rather than time entries")

	importICSCmd.Flags().String("person", "", "Person the time off belongs to (required)")
	importICSCmd.Flags().String("from", "", "First day to import (default start of the strategy year)")
	importICSCmd.Flags().String("to", "", "Last day to import (default today)")
	importICSCmd.Flags().StringSlice("keyword", []string{"vacation", "holiday", "pto", "leave", "off"}, "Only events whose summary contains one of these")
	importICSCmd.MarkFlagRequired("person")

	importClockifyCmd.Flags().String("from", "", "First day to import (default start of the strategy year)")
	importClockifyCmd.Flags().String("to", "", "Last day to import (default today)")
	importClockifyCmd.Flags().String("person", "", "Name to store entries under (default the Clockify user name)")

	importCmd.AddCommand(importXLSXCmd)
	importCmd.AddCommand(importICSCmd)
	importCmd.AddCommand(importClockifyCmd)
}

// importRange resolves --from/--to, defaulting to the current strategy year
// through today.
func importRange(cmd *cobra.Command, cal fiscal.Config) (time.Time, time.Time, error) {
	now := time.Now()
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")

	from, err := parseDay(fromFlag, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDay(toFlag, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from.IsZero() {
		from = cal.FirstOf(cal.StrategyYearOf(fiscal.MonthOf(now))).Start()
	}
	if to.IsZero() {
		to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	return from, to, nil
}

func runImportXLSX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	asAllocations, _ := cmd.Flags().GetBool("allocations")
	sheet, _ := cmd.Flags().GetString("sheet")
	if sheet == "" {
		sheet = e.cfg.Import.EntriesSheet
		if asAllocations {
			sheet = e.cfg.Import.AllocationsSheet
		}
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	if asAllocations {
		return importAllocations(ctx, e, f, sheet)
	}

	entries, err := ingest.ReadTimeEntries(f, sheet)
	if errors.Is(err, ingest.ErrMissingColumn) {
		return fmt.Errorf("%w (pass --sheet to read another sheet)", err)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No entries found.")
		return nil
	}

	dates := lo.Map(entries, func(t timesheet.TimeEntry, _ int) time.Time { return t.Date })
	from := slices.MinFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	to := slices.MaxFunc(dates, func(a, b time.Time) int { return a.Compare(b) })

	source := "xlsx:" + filepath.Base(args[0])
	if err := e.db.ReplaceEntries(ctx, source, from, to, entries); err != nil {
		return err
	}
	if err := e.db.SetState(ctx, "last_import", time.Now().Format(time.RFC3339)); err != nil {
		e.logger.Warn("recording import time", zap.Error(err))
	}

	fmt.Printf("Imported %d entries for %d people (%s to %s)\n",
		len(entries), len(timesheet.People(entries)), from.Format(time.DateOnly), to.Format(time.DateOnly))
	return nil
}

func importAllocations(ctx context.Context, e *env, f *os.File, sheet string) error {
	records, err := ingest.ReadAllocations(f, sheet)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No planned hours found.")
		return nil
	}

	months := lo.Uniq(lo.Map(records, func(r allocation.Record, _ int) fiscal.Month { return r.Month }))
	scope := store.AllocationScope{Months: months}
	if err := e.db.ReplaceAllocations(ctx, scope, records); err != nil {
		return err
	}
	fmt.Printf("Imported %d planned-hours records across %d months\n", len(records), len(months))
	return nil
}

func runImportICS(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	source := e.cfg.Import.CalendarSource
	if len(args) == 1 {
		source = args[0]
	}
	if source == "" {
		return errors.New("no calendar source: pass one or set import.calendar_source")
	}
	person, _ := cmd.Flags().GetString("person")
	keywords, _ := cmd.Flags().GetStringSlice("keyword")

	from, to, err := importRange(cmd, e.cal)
	if err != nil {
		return err
	}

	rc, err := ingest.OpenSource(ctx, source)
	if err != nil {
		return err
	}
	defer rc.Close()

	events, err := ingest.Events(rc, from, to.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	entries := ingest.TimeOff(events, person, from, to, ingest.TimeOffOptions{
		HoursPerDay: e.cal.HoursPerDay,
		Keywords:    keywords,
	})

	if err := e.db.ReplaceEntries(ctx, "ics:"+person, from, to, entries); err != nil {
		return err
	}
	fmt.Printf("Imported %d days of time off for %s from %d events\n", len(entries), person, len(events))
	return nil
}

func runImportClockify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.Clockify.APIKey == "" {
		return errors.New("clockify API key not configured: run 'utilr config' or set CLOCKIFY_API_KEY")
	}
	from, to, err := importRange(cmd, e.cal)
	if err != nil {
		return err
	}

	client := clockify.NewClient(e.cfg.Clockify.APIKey, e.cfg.Clockify.BaseURL, time.Hour, e.logger)
	user, err := client.GetUser(ctx)
	if err != nil {
		return err
	}
	workspaceID := e.cfg.Clockify.WorkspaceID
	if workspaceID == "" {
		workspaceID = user.DefaultWorkspace
	}

	projects, err := client.GetProjects(ctx, workspaceID)
	if err != nil {
		return err
	}
	raw, err := client.GetTimeEntries(ctx, workspaceID, user.ID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	person, _ := cmd.Flags().GetString("person")
	if person == "" {
		person = user.Name
	}
	entries := clockify.ToTimeEntries(raw, projects, person, clockifyMapping(e))

	if err := e.db.ReplaceEntries(ctx, "clockify:"+user.ID, from, to, entries); err != nil {
		return err
	}
	if err := e.db.SetState(ctx, "clockify_last_import", time.Now().Format(time.RFC3339)); err != nil {
		e.logger.Warn("recording import time", zap.Error(err))
	}

	fmt.Printf("Imported %d Clockify entries for %s (%s to %s)\n",
		len(entries), person, from.Format(time.DateOnly), to.Format(time.DateOnly))
	return nil
}

func clockifyMapping(e *env) clockify.Mapping {
	m := clockify.Mapping{Projects: map[string]timesheet.Classification{}}
	for project, class := range e.cfg.Clockify.ProjectClassifications {
		if c, ok := timesheet.ParseClassification(class); ok {
			m.Projects[project] = c
		}
	}
	m.Default, _ = timesheet.ParseClassification(e.cfg.Clockify.DefaultClassification)
	return m
}
