package tui_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/christopherklint97/utilr/internal/allocation"
	"github.com/christopherklint97/utilr/internal/capacity"
	"github.com/christopherklint97/utilr/internal/fiscal"
	"github.com/christopherklint97/utilr/internal/projection"
	"github.com/christopherklint97/utilr/internal/timesheet"
	"github.com/christopherklint97/utilr/internal/tui"
)

var apr = fiscal.NewMonth(2024, time.April)

func newPlanner(t *testing.T, save tui.SaveFunc) (*tui.Planner, *allocation.Grid) {
	t.Helper()
	e := allocation.NewEngine(capacity.New(fiscal.DefaultConfig(), nil), nil)
	window := fiscal.SemesterWindow(fiscal.Semester{Year: fiscal.StrategyYear{Start: 2024}, Half: 1})
	g, err := e.BuildGrid([]allocation.Record{
		{Person: "X", Project: "P1", Month: apr, Hours: decimal.NewFromInt(10)},
		{Person: "X", Project: "P2", Month: apr, Hours: decimal.NewFromInt(5)},
	}, allocation.Filter{Window: window, Person: "X"}, allocation.ByProject)
	if err != nil {
		t.Fatal(err)
	}
	return tui.NewPlanner(e, g, 5, save), g
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(p *tui.Planner, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, m := range msgs {
		_, cmd = p.Update(m)
	}
	return cmd
}

func TestPlannerEditRecomputesTotals(t *testing.T) {
	p, g := newPlanner(t, nil)

	// Move right to May on P1 and plan 30 hours.
	send(p, keys("l"), tea.KeyMsg{Type: tea.KeyEnter}, keys("30"), tea.KeyMsg{Type: tea.KeyEnter})

	may := apr.Next()
	row, _ := g.Row("P1")
	if !row.Cells[1].Planned || !row.Cells[1].Hours.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("May cell = %+v", row.Cells[1])
	}
	if !row.Total.Equal(decimal.NewFromInt(40)) {
		t.Errorf("P1 total = %s, want 40", row.Total)
	}
	if !g.Total.Total.Equal(decimal.NewFromInt(45)) {
		t.Errorf("grid total = %s, want 45", g.Total.Total)
	}
	if !p.Dirty() {
		t.Error("planner should be dirty after an edit")
	}
	if view := p.View(); !strings.Contains(view, "30.0") || !strings.Contains(view, may.String()) {
		t.Errorf("view missing edit:\n%s", view)
	}
}

func TestPlannerNonNumericAndClear(t *testing.T) {
	p, g := newPlanner(t, nil)

	send(p, keys("j"), tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyBackspace},
		keys("abc"), tea.KeyMsg{Type: tea.KeyEnter})

	row, _ := g.Row("P2")
	if !row.Flagged || !row.Cells[0].Invalid {
		t.Fatalf("P2 = %+v, want flagged invalid cell", row)
	}
	if len(g.Anomalies) != 1 || g.Anomalies[0].Raw != "abc" {
		t.Errorf("anomalies = %+v", g.Anomalies)
	}
	view := p.View()
	t.Logf("view:\n%s", view)
	if !strings.Contains(view, "not a number") {
		t.Error("view does not report the anomaly")
	}

	send(p, keys("x"))
	row, _ = g.Row("P2")
	if row.Cells[0].Planned {
		t.Errorf("cleared cell still planned: %+v", row.Cells[0])
	}
	if !g.Total.Total.Equal(decimal.NewFromInt(10)) {
		t.Errorf("grid total = %s, want 10", g.Total.Total)
	}
}

func TestPlannerAddRow(t *testing.T) {
	p, g := newPlanner(t, nil)

	send(p, keys("a"), keys("P3"), tea.KeyMsg{Type: tea.KeyEnter})
	if _, ok := g.Row("P3"); !ok {
		t.Fatal("row P3 not added")
	}

	send(p, keys("a"), keys("Total"), tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(p.View(), "derived") {
		t.Error("adding a Total row should report an error")
	}
}

func TestPlannerSave(t *testing.T) {
	var saved []allocation.Record
	p, _ := newPlanner(t, func(_ context.Context, records []allocation.Record) error {
		saved = records
		return nil
	})

	send(p, tea.KeyMsg{Type: tea.KeyEnter}, keys("2"), tea.KeyMsg{Type: tea.KeyEnter})
	cmd := send(p, keys("s"))
	if cmd == nil {
		t.Fatal("save returned no command")
	}
	send(p, cmd())

	if len(saved) != 2 {
		t.Fatalf("saved %d records, want 2", len(saved))
	}
	for _, r := range saved {
		if r.Project == "P1" && !r.Hours.Equal(decimal.NewFromInt(2)) {
			t.Errorf("P1 saved as %s, want 2", r.Hours)
		}
	}
	if p.Dirty() {
		t.Error("planner still dirty after save")
	}
}

func TestPlannerEditDuringSaveStaysDirty(t *testing.T) {
	var saved []allocation.Record
	p, g := newPlanner(t, func(_ context.Context, records []allocation.Record) error {
		saved = records
		return nil
	})

	send(p, keys("x"))
	cmd := send(p, keys("s"))
	if cmd == nil {
		t.Fatal("save returned no command")
	}

	// Plan May on P1 before the save completes.
	send(p, keys("l"), tea.KeyMsg{Type: tea.KeyEnter}, keys("99"), tea.KeyMsg{Type: tea.KeyEnter})
	send(p, cmd())

	if row, _ := g.Row("P1"); !row.Cells[1].Hours.Equal(decimal.NewFromInt(99)) {
		t.Fatalf("May cell = %+v", row.Cells[1])
	}
	for _, r := range saved {
		if r.Month == apr.Next() {
			t.Errorf("save included an edit made after it started: %+v", r)
		}
	}
	if !p.Dirty() {
		t.Error("edit made during the save is reported as saved")
	}
	if cmd := send(p, keys("q")); cmd != nil {
		t.Error("quit should still ask about the unsaved edit")
	}
}

func TestPlannerSaveError(t *testing.T) {
	p, _ := newPlanner(t, func(context.Context, []allocation.Record) error {
		return errors.New("database locked")
	})
	send(p, keys("x"))
	cmd := send(p, keys("s"))
	send(p, cmd())

	if !p.Dirty() || !strings.Contains(p.View(), "database locked") {
		t.Error("failed save should keep edits and report the error")
	}
}

func TestPlannerQuitConfirmsUnsaved(t *testing.T) {
	p, _ := newPlanner(t, nil)
	if cmd := send(p, keys("q")); cmd == nil {
		t.Error("clean planner should quit on q")
	}

	p, _ = newPlanner(t, nil)
	send(p, keys("x"))
	if cmd := send(p, keys("q")); cmd != nil {
		t.Error("dirty planner quit without confirmation")
	}
	if cmd := send(p, keys("q")); cmd == nil {
		t.Error("second q should quit")
	}
}

func TestRenderGridNoData(t *testing.T) {
	e := allocation.NewEngine(capacity.New(fiscal.DefaultConfig(), nil), nil)
	g, err := e.BuildGrid(nil, allocation.Filter{Window: fiscal.MonthWindow(apr), Person: "X"}, allocation.ByProject)
	if err != nil {
		t.Fatal(err)
	}
	out := tui.RenderGrid(g, allocation.Shading{}, nil)
	if !strings.Contains(out, "No planned hours") {
		t.Errorf("NoData render:\n%s", out)
	}
}

func TestRenderProjection(t *testing.T) {
	calc := capacity.New(fiscal.DefaultConfig(), nil)
	pr := projection.New(calc, nil, projection.WithClock(func() time.Time {
		return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	}))
	row := timesheet.ZeroTotals("A", fiscal.NewMonth(2024, time.March))
	row.Hours[timesheet.Billable] = decimal.NewFromInt(40)
	row.Total = decimal.NewFromInt(40)
	row.LastEntry = time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	res, err := pr.Project([]timesheet.MonthlyClassTotals{row}, projection.Options{})
	if err != nil {
		t.Fatal(err)
	}

	out := tui.RenderProjection(res)
	for _, want := range []string{"Mar 2024", "partial", "Year end"} {
		if !strings.Contains(out, want) {
			t.Errorf("projection render missing %q:\n%s", want, out)
		}
	}
	if out := tui.RenderProjection(projection.Result{Person: "B"}); !strings.Contains(out, "No time entries") {
		t.Errorf("empty render = %q", out)
	}
}

func TestRenderTotals(t *testing.T) {
	out := tui.RenderTotals("Projects", []timesheet.Total{
		{Name: "Acme", Hours: decimal.NewFromInt(3)},
		{Name: "Lab", Hours: decimal.RequireFromString("4.5")},
	})
	if !strings.Contains(out, "Acme") || !strings.Contains(out, "7.5") {
		t.Errorf("totals render:\n%s", out)
	}
}
