package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/christopherklint97/utilr/internal/capacity"
	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/christopherklint97/utilr/internal/timesheet"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Fiscal         FiscalConfig         `toml:"fiscal"`
	Store          StoreConfig          `toml:"store"`
	Classification ClassificationConfig `toml:"classification"`
	Schedules      []ScheduleRule       `toml:"schedules" validate:"dive"`
	Import         ImportConfig         `toml:"import"`
	Clockify       ClockifyConfig       `toml:"clockify"`
	Notifications  NotifyConfig         `toml:"notifications"`
	Planner        PlannerConfig        `toml:"planner"`
}

type FiscalConfig struct {
	FirstMonth         string `toml:"first_month" validate:"required"`
	SemesterSplitMonth string `toml:"semester_split_month" validate:"required"`
	HoursPerDay        int    `toml:"hours_per_day" validate:"min=1,max=24"`
}

type StoreConfig struct {
	Driver string `toml:"driver" validate:"oneof=sqlite postgres"`
	// Path is the sqlite file; empty means utilr.db in the config dir.
	Path string `toml:"path"`
	// DSN is the postgres connection string.
	DSN                   string `toml:"dsn" validate:"required_if=Driver postgres"`
	ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds" validate:"min=0"`
}

type ClassificationConfig struct {
	Codes            map[string]string `toml:"codes"`
	UnbillablePolicy string            `toml:"unbillable_policy" validate:"oneof=keep reclass"`
	UnbillableMatch  string            `toml:"unbillable_match"`
	ReclassTo        string            `toml:"reclass_to"`
	ProjectAliases   map[string]string `toml:"project_aliases"`
	Colors           map[string]string `toml:"colors"`
}

type ScheduleRule struct {
	Match    string  `toml:"match" validate:"required"`
	Fraction float64 `toml:"fraction" validate:"gt=0,lte=1"`
}

type ImportConfig struct {
	EntriesSheet     string `toml:"entries_sheet"`
	AllocationsSheet string `toml:"allocations_sheet"`
	CalendarSource   string `toml:"calendar_source"` // ICS URL or file path
}

type ClockifyConfig struct {
	APIKey      string `toml:"api_key"`
	WorkspaceID string `toml:"workspace_id"`
	BaseURL     string `toml:"base_url" validate:"omitempty,url"`
	// ProjectClassifications maps Clockify project names to classifications.
	ProjectClassifications map[string]string `toml:"project_classifications"`
	DefaultClassification  string            `toml:"default_classification"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
	// MinUtilization is a percentage; a projected year-end utilization
	// below it raises an alert.
	MinUtilization float64 `toml:"min_utilization" validate:"gte=0,lte=120"`
}

type PlannerConfig struct {
	Bins          int    `toml:"bins" validate:"min=1,max=9"`
	Axis          string `toml:"axis" validate:"oneof=person project"`
	DefaultWindow string `toml:"default_window"`
	Workers       int    `toml:"workers" validate:"min=0"`
}

func DefaultConfig() Config {
	rules := timesheet.DefaultRules()
	codes := make(map[string]string, len(rules.Codes))
	for k, v := range rules.Codes {
		codes[k] = string(v)
	}
	colors := make(map[string]string, len(rules.Colors))
	for k, v := range rules.Colors {
		colors[string(k)] = v
	}

	var schedules []ScheduleRule
	for _, s := range capacity.DefaultScheduleRules() {
		schedules = append(schedules, ScheduleRule{Match: s.Match, Fraction: s.Fraction})
	}

	return Config{
		Fiscal: FiscalConfig{
			FirstMonth:         "Apr",
			SemesterSplitMonth: "Nov",
			HoursPerDay:        8,
		},
		Store: StoreConfig{
			Driver:                "sqlite",
			ConnectTimeoutSeconds: 30,
		},
		Classification: ClassificationConfig{
			Codes:            codes,
			UnbillablePolicy: string(rules.Unbillable),
			UnbillableMatch:  rules.UnbillableMatch,
			ReclassTo:        string(rules.ReclassTo),
			ProjectAliases:   rules.ProjectAliases,
			Colors:           colors,
		},
		Schedules: schedules,
		Import: ImportConfig{
			EntriesSheet:     "Hours",
			AllocationsSheet: "Planned",
		},
		Clockify: ClockifyConfig{
			DefaultClassification: string(timesheet.Billable),
		},
		Notifications: NotifyConfig{
			Enabled:        true,
			MinUtilization: 70,
		},
		Planner: PlannerConfig{
			Bins:    5,
			Axis:    "project",
			Workers: 4,
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "utilr"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom decodes path over the defaults, applies environment overrides
// and validates the result. A missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("UTILR_DATABASE_URL"); v != "" {
		cfg.Store.DSN = v
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			cfg.Store.Driver = "postgres"
		}
	}
	if v := os.Getenv("CLOCKIFY_API_KEY"); v != "" {
		cfg.Clockify.APIKey = v
	}
	if v := os.Getenv("CLOCKIFY_WORKSPACE_ID"); v != "" {
		cfg.Clockify.WorkspaceID = v
	}
	if v := os.Getenv("CLOCKIFY_BASE_URL"); v != "" {
		cfg.Clockify.BaseURL = v
	}
}

// Validate checks struct tags and then the domain rules that tags cannot
// express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	if _, err := c.Fiscal.Calendar(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Classification.Rules(); err != nil {
		errs = append(errs, err)
	}
	for name, class := range c.Clockify.ProjectClassifications {
		if _, ok := timesheet.ParseClassification(class); !ok {
			errs = append(errs, fmt.Errorf("clockify project %q: unknown classification %q", name, class))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Calendar converts the fiscal section to a validated fiscal.Config.
func (f FiscalConfig) Calendar() (fiscal.Config, error) {
	first, err := fiscal.ParseMonthName(f.FirstMonth)
	if err != nil {
		return fiscal.Config{}, fmt.Errorf("fiscal.first_month: %w", err)
	}
	split, err := fiscal.ParseMonthName(f.SemesterSplitMonth)
	if err != nil {
		return fiscal.Config{}, fmt.Errorf("fiscal.semester_split_month: %w", err)
	}
	cal := fiscal.Config{FirstMonth: first, SemesterSplitMonth: split, HoursPerDay: f.HoursPerDay}
	if err := cal.Validate(); err != nil {
		return fiscal.Config{}, fmt.Errorf("fiscal: %w", err)
	}
	return cal, nil
}

// Rules converts the classification section to timesheet.Rules.
func (c ClassificationConfig) Rules() (timesheet.Rules, error) {
	r := timesheet.Rules{
		Codes:           make(map[string]timesheet.Classification, len(c.Codes)),
		Unbillable:      timesheet.UnbillablePolicy(c.UnbillablePolicy),
		UnbillableMatch: c.UnbillableMatch,
		ProjectAliases:  c.ProjectAliases,
		Colors:          make(map[timesheet.Classification]string, len(c.Colors)),
	}
	for code, name := range c.Codes {
		r.Codes[code] = timesheet.Classification(name)
	}
	if c.ReclassTo != "" {
		cl, ok := timesheet.ParseClassification(c.ReclassTo)
		if !ok {
			return timesheet.Rules{}, fmt.Errorf("classification.reclass_to: unknown classification %q", c.ReclassTo)
		}
		r.ReclassTo = cl
	}
	for name, color := range c.Colors {
		if cl, ok := timesheet.ParseClassification(name); ok {
			r.Colors[cl] = color
		}
	}
	if err := r.Validate(); err != nil {
		return timesheet.Rules{}, fmt.Errorf("classification: %w", err)
	}
	return r, nil
}

// ScheduleRules converts the [[schedules]] tables for the capacity calculator.
func (c *Config) ScheduleRules() []capacity.ScheduleRule {
	out := make([]capacity.ScheduleRule, 0, len(c.Schedules))
	for _, s := range c.Schedules {
		out = append(out, capacity.ScheduleRule{Match: s.Match, Fraction: s.Fraction})
	}
	return out
}

// DatabasePath resolves the sqlite file location.
func (c *Config) DatabasePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "utilr.db"), nil
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// WriteDefault writes the default config to path unless a file already
// exists there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}
	out, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return false, fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return false, fmt.Errorf("writing config: %w", err)
	}
	return true, nil
}

// SavePlannerWindow persists the planner's last window to path using a
// read-modify-write approach to preserve other settings.
func SavePlannerWindow(path, window string) error {
	cfg := make(map[string]any)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	planner, ok := cfg["planner"].(map[string]any)
	if !ok {
		planner = make(map[string]any)
	}
	planner["default_window"] = window
	cfg["planner"] = planner

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}
