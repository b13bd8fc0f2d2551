package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/christopherklint97/utilr/internal/allocation"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			MarginBottom(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")).
			Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Reverse(true).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			MarginTop(1)
)

// shades run from the lightest to the darkest cell background.
var shades = []lipgloss.Color{"194", "157", "120", "84", "41", "35", "29", "23", "22"}

func shadeStyle(bin, bins int) lipgloss.Style {
	if bin < 0 {
		return lipgloss.NewStyle()
	}
	i := 0
	if bins > 1 {
		i = bin * (len(shades) - 1) / (bins - 1)
	}
	fg := lipgloss.Color("0")
	if i >= len(shades)/2 {
		fg = lipgloss.Color("15")
	}
	return lipgloss.NewStyle().Background(shades[i]).Foreground(fg)
}

var bandStyles = map[allocation.Band]lipgloss.Style{
	allocation.BandUnder:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	allocation.BandFull:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	allocation.BandOver:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	allocation.BandCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
}
