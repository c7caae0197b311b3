package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/furnacesim/internal/dynamo"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	// Title is also used for CLI headings.
	Title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	Label = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	Value = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	Panel = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

// heat ramp from cold to hot
var (
	heatGlyphs = []rune(" .:-=+*#%@")
	heatColors = []lipgloss.Color{"17", "19", "27", "33", "45", "226", "220", "208", "202", "196"}
)

// ProgressBar renders fraction in [0, 1] as a bar of width cells.
func ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", width-filled))
}

// HeatMap renders a field with the axis on the left and the top of the
// furnace up, scaled between lo and hi. Each character shows the mean of
// the cells it covers.
func HeatMap(f *dynamo.Field, lo, hi float64, width, height int) string {
	if f == nil || f.Len() == 0 || width < 1 || height < 1 {
		return ""
	}
	if width > f.NR {
		width = f.NR
	}
	if height > f.NZ {
		height = f.NZ
	}
	span := hi - lo
	if !(span > 0) {
		span = 1
	}

	var b strings.Builder
	for row := height - 1; row >= 0; row-- {
		j0, j1 := row*f.NZ/height, (row+1)*f.NZ/height
		for col := 0; col < width; col++ {
			i0, i1 := col*f.NR/width, (col+1)*f.NR/width
			sum, n := 0.0, 0
			for i := i0; i < i1; i++ {
				for j := j0; j < j1; j++ {
					sum += f.At(i, j)
					n++
				}
			}
			level := (sum/float64(n) - lo) / span
			k := int(math.Round(level * float64(len(heatGlyphs)-1)))
			if k < 0 || math.IsNaN(level) {
				k = 0
			}
			if k >= len(heatGlyphs) {
				k = len(heatGlyphs) - 1
			}
			b.WriteString(lipgloss.NewStyle().Foreground(heatColors[k]).Render(string(heatGlyphs[k])))
		}
		if row > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
