package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func (p *Planner) startEdit() (tea.Model, tea.Cmd) {
	if len(p.grid.Rows) == 0 {
		p.setStatus("No rows yet. Press a to add one.", true)
		return p, nil
	}

	c := p.currentRow().Cells[p.cursor.Col]
	value := ""
	switch {
	case c.Invalid:
		value = c.Raw
	case c.Planned:
		value = c.Hours.String()
	}

	p.state = editView
	p.input.SetValue(value)
	p.input.CursorEnd()
	p.input.Placeholder = "Hours"
	return p, p.input.Focus()
}

func (p *Planner) startAddRow() (tea.Model, tea.Cmd) {
	p.state = addRowView
	p.input.SetValue("")
	p.input.Placeholder = fmt.Sprintf("New %s", p.grid.Axis)
	return p, p.input.Focus()
}

func (p *Planner) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			if p.state == editView {
				p.apply(p.input.Value())
			} else {
				p.addRow(p.input.Value())
			}
			p.state = gridView
			p.input.Blur()
			return p, nil
		case "esc":
			p.state = gridView
			p.input.Blur()
			return p, nil
		}
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

// apply writes raw into the focused cell.
func (p *Planner) apply(raw string) {
	row := p.currentRow()
	m := p.grid.Months[p.cursor.Col]
	if err := p.grid.Set(row.Key, m, raw); err != nil {
		p.setStatus(err.Error(), true)
		return
	}
	p.dirty = true
	p.edits++
	p.refresh()

	if updated := p.currentRow(); updated.Cells[p.cursor.Col].Invalid {
		p.setStatus(fmt.Sprintf("%q is not a number; counted as 0 and flagged", raw), true)
		return
	}
	p.setStatus("", false)
}

func (p *Planner) addRow(key string) {
	if err := p.grid.AddRow(key); err != nil {
		p.setStatus(err.Error(), true)
		return
	}
	p.dirty = true
	p.edits++
	p.cursor = Cursor{Row: len(p.grid.Rows) - 1}
	p.refresh()
	p.setStatus(fmt.Sprintf("Added %s", key), false)
}
