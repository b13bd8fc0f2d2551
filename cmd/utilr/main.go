package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	naturaldate "github.com/tj/go-naturaldate"
	"go.uber.org/zap"

	"github.com/christopherklint97/utilr/internal/capacity"
	"github.com/christopherklint97/utilr/internal/config"
	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/christopherklint97/utilr/internal/logging"
	"github.com/christopherklint97/utilr/internal/store"
	"github.com/christopherklint97/utilr/internal/timesheet"
)

var rootCmd = &cobra.Command{
	Use:           "utilr",
	Short:         "Utilization reports and allocation planning",
	Long:          "utilr imports timesheet hours, projects utilization through the end of the strategy year, and plans monthly hour allocations against capacity.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

var (
	flagConfig string
	flagDebug  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.config/utilr/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "verbose logging to stderr")

	configCmd.Flags().Bool("path", false, "Print the config path instead of opening an editor")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(utilizationCmd)
	rootCmd.AddCommand(teamCmd)
	rootCmd.AddCommand(totalsCmd)
	rootCmd.AddCommand(gridCmd)
	rootCmd.AddCommand(planCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// env bundles what every data command needs.
type env struct {
	cfg    *config.Config
	path   string
	logger *zap.Logger
	db     *store.DB
	cal    fiscal.Config
	calc   *capacity.Calculator
	rules  timesheet.Rules
}

func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.ConfigPath()
}

func setup(ctx context.Context) (*env, error) {
	logger, err := logging.New(flagDebug)
	if err != nil {
		return nil, err
	}

	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cal, err := cfg.Fiscal.Calendar()
	if err != nil {
		return nil, err
	}
	rules, err := cfg.Classification.Rules()
	if err != nil {
		return nil, err
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(ctx, store.Options{
		Driver:         cfg.Store.Driver,
		Path:           dbPath,
		DSN:            cfg.Store.DSN,
		ConnectTimeout: time.Duration(cfg.Store.ConnectTimeoutSeconds) * time.Second,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &env{
		cfg:    cfg,
		path:   path,
		logger: logger,
		db:     db,
		cal:    cal,
		calc:   capacity.New(cal, cfg.ScheduleRules()),
		rules:  rules,
	}, nil
}

func (e *env) Close() {
	e.db.Close()
	e.logger.Sync()
}

// parseDay parses a date flag: ISO dates or natural language such as
// "yesterday" or "last friday", relative to now.
func parseDay(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t, err = naturaldate.Parse(s, now, naturaldate.WithDirection(naturaldate.Past))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// resolvePerson picks the person to report on. With no flag it falls back to
// the only person in the database.
func resolvePerson(flag string, people []string) (string, error) {
	if flag != "" {
		for _, p := range people {
			if strings.EqualFold(p, flag) {
				return p, nil
			}
		}
		return "", fmt.Errorf("no entries for %q", flag)
	}
	switch len(people) {
	case 0:
		return "", errors.New("no time entries imported yet; run 'utilr import' first")
	case 1:
		return people[0], nil
	}
	return "", fmt.Errorf("several people found, pick one with --person: %s", strings.Join(people, "; "))
}

func runConfig(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if onlyPath, _ := cmd.Flags().GetBool("path"); onlyPath {
		fmt.Println(path)
		return nil
	}

	created, err := config.WriteDefault(path)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Wrote default config to %s\n", path)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", path, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	process, err := os.StartProcess(editor, []string{editor, path}, &proc)
	if err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", path)
		return nil
	}
	if _, err := process.Wait(); err != nil {
		return err
	}

	if _, err := config.LoadFrom(path); err != nil {
		return fmt.Errorf("config saved but invalid: %w", err)
	}
	return nil
}
