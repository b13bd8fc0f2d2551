package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/utilr/internal/allocation"
)

type viewState int

const (
	gridView viewState = iota
	editView
	addRowView
)

// SaveFunc persists the grid's records. It runs off the UI goroutine and
// gets a snapshot taken when the save was requested.
type SaveFunc func(ctx context.Context, records []allocation.Record) error

type savedMsg struct {
	// edits is the planner's edit count when the snapshot was taken.
	edits int
	err   error
}

// Planner is an interactive editor over one allocation grid. Totals,
// % FTE and shading are recomputed after every edit.
type Planner struct {
	state   viewState
	engine  *allocation.Engine
	grid    *allocation.Grid
	shading allocation.Shading
	bins    int
	cursor  Cursor
	input   textinput.Model
	save    SaveFunc

	dirty       bool
	edits       int
	saving      bool
	confirmQuit bool
	status      string
	statusErr   bool
}

func NewPlanner(engine *allocation.Engine, grid *allocation.Grid, bins int, save SaveFunc) *Planner {
	ti := textinput.New()
	ti.CharLimit = 40
	ti.Width = 30

	p := &Planner{
		state:  gridView,
		engine: engine,
		grid:   grid,
		bins:   bins,
		input:  ti,
		save:   save,
	}
	p.refresh()
	return p
}

func (p *Planner) Init() tea.Cmd {
	return nil
}

// Grid returns the grid in its current, possibly unsaved, state.
func (p *Planner) Grid() *allocation.Grid {
	return p.grid
}

// Dirty reports whether there are edits that have not been saved.
func (p *Planner) Dirty() bool {
	return p.dirty
}

func (p *Planner) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return p, tea.Quit
		}
	case savedMsg:
		return p.handleSaved(msg)
	}

	switch p.state {
	case gridView:
		return p.updateGrid(msg)
	case editView, addRowView:
		return p.updateInput(msg)
	}
	return p, nil
}

func (p *Planner) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("utilr planner: %s", p.scopeLabel())))
	sb.WriteString("\n")
	sb.WriteString(subtitleStyle.Render(fmt.Sprintf("%s by %s, capacity %s h",
		p.grid.Filter.Window, p.grid.Axis, hours(p.grid.Capacity))))
	sb.WriteString("\n")

	var cur *Cursor
	if len(p.grid.Rows) > 0 {
		cur = &p.cursor
	}
	sb.WriteString(RenderGrid(p.grid, p.shading, cur))

	switch p.state {
	case editView:
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s %s\n", p.currentRow().Key, p.grid.Months[p.cursor.Col]))
		sb.WriteString(p.input.View())
		sb.WriteString("\n")
	case addRowView:
		sb.WriteString("\n")
		sb.WriteString(p.input.View())
		sb.WriteString("\n")
	}

	if p.status != "" {
		style := successStyle
		if p.statusErr {
			style = errorStyle
		}
		sb.WriteString("\n")
		sb.WriteString(style.Render(p.status))
		sb.WriteString("\n")
	}

	help := "Enter: edit cell • x: clear • a: add row • s: save • hjkl: move • q: quit"
	if p.state != gridView {
		help = "Enter: apply • Esc: cancel"
	}
	sb.WriteString(helpStyle.Render(help))

	return boxStyle.Render(sb.String())
}

func (p *Planner) scopeLabel() string {
	switch {
	case p.grid.Filter.Person != "":
		return p.grid.Filter.Person
	case p.grid.Filter.Project != "":
		return p.grid.Filter.Project
	}
	return "all"
}

func (p *Planner) currentRow() allocation.Row {
	return p.grid.Rows[p.cursor.Row]
}

func (p *Planner) updateGrid(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}

	key := keyMsg.String()
	if key != "q" && key != "esc" {
		p.confirmQuit = false
	}

	switch key {
	case "up", "k":
		if p.cursor.Row > 0 {
			p.cursor.Row--
		}
	case "down", "j":
		if p.cursor.Row < len(p.grid.Rows)-1 {
			p.cursor.Row++
		}
	case "left", "h":
		if p.cursor.Col > 0 {
			p.cursor.Col--
		}
	case "right", "l":
		if p.cursor.Col < len(p.grid.Months)-1 {
			p.cursor.Col++
		}
	case "enter", "e":
		return p.startEdit()
	case "x", "delete", "backspace":
		if len(p.grid.Rows) > 0 {
			p.apply("")
		}
	case "a":
		return p.startAddRow()
	case "s":
		if p.save == nil || p.saving {
			return p, nil
		}
		records, err := p.grid.Records()
		if err != nil {
			p.setStatus("Save failed: "+err.Error(), true)
			return p, nil
		}
		p.saving = true
		p.setStatus("Saving...", false)
		return p, p.saveGrid(records)
	case "q", "esc":
		if p.dirty && !p.confirmQuit {
			p.confirmQuit = true
			p.setStatus("Unsaved changes. Press q again to quit without saving.", true)
			return p, nil
		}
		return p, tea.Quit
	}
	return p, nil
}

func (p *Planner) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	p.saving = false
	if msg.err != nil {
		p.setStatus("Save failed: "+msg.err.Error(), true)
		return p, nil
	}
	if msg.edits != p.edits {
		p.setStatus("Saved earlier edits; newer changes are not saved yet", true)
		return p, nil
	}
	p.dirty = false
	p.setStatus(fmt.Sprintf("Saved at %s", time.Now().Format("15:04:05")), false)
	return p, nil
}

func (p *Planner) saveGrid(records []allocation.Record) tea.Cmd {
	save, edits := p.save, p.edits
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return savedMsg{edits: edits, err: save(ctx, records)}
	}
}

func (p *Planner) setStatus(s string, isErr bool) {
	p.status = s
	p.statusErr = isErr
}

// refresh recomputes the shading after the grid changed.
func (p *Planner) refresh() {
	sh, err := p.engine.Highlights(p.grid, p.bins)
	if err != nil {
		p.setStatus(err.Error(), true)
		return
	}
	p.shading = sh
}
