package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/christopherklint97/utilr/internal/config"
	"github.com/christopherklint97/utilr/internal/timesheet"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	cal, err := cfg.Fiscal.Calendar()
	if err != nil {
		t.Fatal(err)
	}
	if cal.FirstMonth != time.April || cal.SemesterSplitMonth != time.November || cal.HoursPerDay != 8 {
		t.Errorf("calendar = %+v", cal)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("driver = %q", cfg.Store.Driver)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[fiscal]
first_month = "January"
semester_split_month = "Jul"

[classification]
unbillable_policy = "keep"

[[schedules]]
match = "60"
fraction = 0.6

[planner]
axis = "person"
bins = 3
`)
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	cal, _ := cfg.Fiscal.Calendar()
	if cal.FirstMonth != time.January || cal.HoursPerDay != 8 {
		t.Errorf("calendar = %+v", cal)
	}
	rules, err := cfg.Classification.Rules()
	if err != nil {
		t.Fatal(err)
	}
	if rules.Unbillable != timesheet.UnbillableKeep {
		t.Errorf("policy = %q", rules.Unbillable)
	}
	if rules.Codes["IRD"] != timesheet.RnD {
		t.Errorf("default codes lost: %v", rules.Codes)
	}
	if got := cfg.ScheduleRules(); len(got) != 1 || got[0].Fraction != 0.6 {
		t.Errorf("schedules = %+v", got)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := map[string]string{
		"bad driver":     "[store]\ndriver = \"mysql\"\n",
		"postgres no dsn": "[store]\ndriver = \"postgres\"\n",
		"bad month":      "[fiscal]\nfirst_month = \"Smarch\"\n",
		"same months":    "[fiscal]\nfirst_month = \"Apr\"\nsemester_split_month = \"April\"\n",
		"bad fraction":   "[[schedules]]\nmatch = \"x\"\nfraction = 1.5\n",
		"bad policy":     "[classification]\nunbillable_policy = \"drop\"\n",
		"bad reclass":    "[classification]\nreclass_to = \"Fun\"\n",
		"bad clockify":   "[clockify.project_classifications]\nAcme = \"Fun\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := config.LoadFrom(writeConfig(t, body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("UTILR_DATABASE_URL", "postgres://u:p@localhost/utilr")
	t.Setenv("CLOCKIFY_API_KEY", "secret")

	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != "postgres" || !strings.Contains(cfg.Store.DSN, "localhost") {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Clockify.APIKey != "secret" {
		t.Errorf("api key not overridden")
	}
}

func TestWriteDefaultAndSavePlannerWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utilr", "config.toml")

	wrote, err := config.WriteDefault(path)
	if err != nil || !wrote {
		t.Fatalf("WriteDefault = %v, %v", wrote, err)
	}
	if wrote, _ := config.WriteDefault(path); wrote {
		t.Error("WriteDefault overwrote an existing file")
	}

	if err := config.SavePlannerWindow(path, "Sem 2 2024-2025"); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Planner.DefaultWindow != "Sem 2 2024-2025" {
		t.Errorf("default window = %q", cfg.Planner.DefaultWindow)
	}
	if cfg.Fiscal.FirstMonth != "Apr" {
		t.Errorf("other settings lost: %+v", cfg.Fiscal)
	}
}
