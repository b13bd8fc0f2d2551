package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/christopherklint97/utilr/internal/allocation"
	"github.com/christopherklint97/utilr/internal/projection"
	"github.com/christopherklint97/utilr/internal/timesheet"
)

const cellWidth = 10

// Cursor marks the focused grid cell. Col indexes the grid's months.
type Cursor struct {
	Row, Col int
}

func hours(d decimal.Decimal) string {
	return d.StringFixed(1)
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

func pad(s string, w int) string {
	return lipgloss.NewStyle().Width(w).Render(s)
}

func padRight(s string, w int) string {
	return lipgloss.NewStyle().Width(w).Align(lipgloss.Right).Render(s)
}

func keyWidth(keys []string) int {
	return max(12, lo.Max(lo.Map(keys, func(k string, _ int) int { return lipgloss.Width(k) }))+2)
}

// RenderGrid draws g as a table with shaded cells, a Total row and the
// recorded anomalies. cur may be nil.
func RenderGrid(g *allocation.Grid, sh allocation.Shading, cur *Cursor) string {
	var sb strings.Builder

	label := "Person"
	if g.Axis == allocation.ByProject {
		label = "Project"
	}
	kw := keyWidth(append(lo.Map(g.Rows, func(r allocation.Row, _ int) string { return r.Key }), label))

	header := pad(label, kw)
	for _, m := range g.Months {
		header += padRight(m.String(), cellWidth)
	}
	header += padRight("Total", cellWidth) + padRight("% FTE", cellWidth)
	sb.WriteString(headerStyle.Render(header))
	sb.WriteString("\n")

	if g.NoData {
		sb.WriteString(dimStyle.Render("No planned hours in " + g.Filter.Window.String()))
		sb.WriteString("\n")
		return sb.String()
	}

	for i, row := range g.Rows {
		key := row.Key
		if row.Flagged {
			key += " !"
		}
		line := pad(key, kw)
		for j, c := range row.Cells {
			text := ""
			if c.Planned {
				text = hours(c.Hours)
			}
			if c.Invalid {
				text = c.Raw
			}
			style := lipgloss.NewStyle()
			if i < len(sh.Cells) && j < len(sh.Cells[i]) {
				style = shadeStyle(sh.Cells[i][j], sh.Bins)
			}
			if c.Invalid {
				style = warningStyle
			}
			if cur != nil && cur.Row == i && cur.Col == j {
				style = cursorStyle
				if text == "" {
					text = "_"
				}
			}
			line += style.Render(padRight(text, cellWidth))
		}
		line += padRight(hours(row.Total), cellWidth) + padRight(percent(row.PercentFTE), cellWidth)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	line := pad(allocation.TotalLabel, kw)
	for j, c := range g.Total.Cells {
		style := headerStyle
		switch {
		case j < len(sh.Bands) && sh.Bands[j] != allocation.BandNone:
			style = bandStyles[sh.Bands[j]]
		case j < len(sh.Total):
			style = shadeStyle(sh.Total[j], sh.Bins)
		}
		line += style.Render(padRight(hours(c.Hours), cellWidth))
	}
	line += headerStyle.Render(padRight(hours(g.Total.Total), cellWidth) + padRight(percent(g.Total.PercentFTE), cellWidth))
	sb.WriteString(line)
	sb.WriteString("\n")

	if len(g.Anomalies) > 0 {
		sb.WriteString("\n")
		for _, a := range g.Anomalies {
			sb.WriteString(warningStyle.Render(fmt.Sprintf("! %s %s: %q is not a number, counted as 0", a.Row, a.Month, a.Raw)))
			sb.WriteString("\n")
		}
	}
	if g.Duplicates > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("%d duplicate records summed", g.Duplicates)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderProjection draws one person's projected series.
func RenderProjection(res projection.Result) string {
	if res.Empty() {
		return dimStyle.Render(fmt.Sprintf("No time entries for %s", res.Person)) + "\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s, as of %s", res.Person, res.AsOf)))
	sb.WriteString("\n")

	cols := []string{"State", "Billable", "Total", "MEH", "Util", "FTE", "Avg Util", "Avg FTE"}
	header := pad("Month", cellWidth)
	for _, c := range cols {
		header += padRight(c, cellWidth)
	}
	sb.WriteString(headerStyle.Render(header))
	sb.WriteString("\n")

	for _, r := range res.Rows {
		billable, total, util, fte := r.Billable, r.Total, r.Utilization, r.FTE
		if r.State != projection.Actual {
			billable, total = r.PredictedBillable, r.PredictedTotal
			if !r.MEH.IsZero() {
				util = billable.Div(r.MEH).InexactFloat64()
				fte = total.Div(r.MEH).InexactFloat64()
			}
		}
		line := pad(r.Month.String(), cellWidth) +
			padRight(r.State.String(), cellWidth) +
			padRight(hours(billable), cellWidth) +
			padRight(hours(total), cellWidth) +
			padRight(hours(r.MEH), cellWidth) +
			padRight(percent(util), cellWidth) +
			padRight(percent(fte), cellWidth) +
			padRight(percent(r.AvgUtilization), cellWidth) +
			padRight(percent(r.AvgFTE), cellWidth)
		if r.State == projection.Predicted {
			line = dimStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	summary := fmt.Sprintf("Year end: %s utilization, %s FTE (trailing rate %s)",
		percent(res.YearEnd.Utilization), percent(res.YearEnd.FTE), percent(res.PredictedUtilization))
	sb.WriteString(helpStyle.Render(summary))
	sb.WriteString("\n")
	return sb.String()
}

// RenderTeam draws team-wide monthly averages.
func RenderTeam(rows []projection.TeamRow) string {
	if len(rows) == 0 {
		return dimStyle.Render("No projections") + "\n"
	}

	var sb strings.Builder
	header := pad("Month", cellWidth)
	for _, c := range []string{"People", "Util", "FTE", "Avg Util", "Avg FTE"} {
		header += padRight(c, cellWidth)
	}
	sb.WriteString(headerStyle.Render(header))
	sb.WriteString("\n")
	for _, r := range rows {
		sb.WriteString(pad(r.Month.String(), cellWidth) +
			padRight(fmt.Sprint(r.People), cellWidth) +
			padRight(percent(r.Utilization), cellWidth) +
			padRight(percent(r.FTE), cellWidth) +
			padRight(percent(r.AvgUtilization), cellWidth) +
			padRight(percent(r.AvgFTE), cellWidth))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderTotals draws a name/hours listing.
func RenderTotals(title string, totals []timesheet.Total) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	if len(totals) == 0 {
		sb.WriteString(dimStyle.Render("No entries"))
		sb.WriteString("\n")
		return sb.String()
	}

	kw := keyWidth(lo.Map(totals, func(t timesheet.Total, _ int) string { return t.Name }))
	sum := decimal.Zero
	for _, t := range totals {
		sb.WriteString(pad(t.Name, kw) + padRight(hours(t.Hours), cellWidth))
		sb.WriteString("\n")
		sum = sum.Add(t.Hours)
	}
	sb.WriteString(headerStyle.Render(pad(allocation.TotalLabel, kw) + padRight(hours(sum), cellWidth)))
	sb.WriteString("\n")
	return sb.String()
}
