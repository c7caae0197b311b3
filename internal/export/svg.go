// Package export renders stored runs as standalone SVG documents.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/furnacesim/internal/dynamo"
)

// ramp stops from cold to hot
var ramp = [][3]float64{
	{0x10, 0x18, 0x60},
	{0x20, 0x80, 0xd0},
	{0xf0, 0xe0, 0x40},
	{0xf0, 0x60, 0x10},
	{0xd0, 0x10, 0x10},
}

// heatColor maps level in [0, 1] onto the ramp.
func heatColor(level float64) string {
	if math.IsNaN(level) || level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	x := level * float64(len(ramp)-1)
	k := int(x)
	if k >= len(ramp)-1 {
		k = len(ramp) - 2
	}
	t := x - float64(k)
	var c [3]int
	for n := range c {
		c[n] = int(math.Round(ramp[k][n] + t*(ramp[k+1][n]-ramp[k][n])))
	}
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// FieldToSVG draws the full axial cross-section of the furnace: the (r, z)
// field mirrored about the axis, top of the furnace up, one square of scale
// pixels per node, coloured between lo and hi.
func FieldToSVG(f *dynamo.Field, lo, hi, scale float64) string {
	if f == nil || f.Len() == 0 {
		return ""
	}
	span := hi - lo
	if !(span > 0) {
		span = 1
	}

	cols := 2*f.NR - 1
	width := float64(cols) * scale
	height := float64(f.NZ) * scale

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g shape-rendering="crispEdges">
`, width, height, width, height))

	for col := 0; col < cols; col++ {
		i := col - (f.NR - 1)
		if i < 0 {
			i = -i
		}
		for j := 0; j < f.NZ; j++ {
			x := float64(col) * scale
			y := height - float64(j+1)*scale
			level := (f.At(i, j) - lo) / span
			sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>
`, x, y, scale, scale, heatColor(level)))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// SeriesToSVG draws ys against xs as a polyline.
func SeriesToSVG(xs, ys []float64, width, height int, strokeColor string) string {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n < 2 {
		return ""
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for k := 0; k < n; k++ {
		minX, maxX = math.Min(minX, xs[k]), math.Max(maxX, xs[k])
		minY, maxY = math.Min(minY, ys[k]), math.Max(maxY, ys[k])
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for k := 0; k < n; k++ {
		x := (xs[k] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[k]-minY)/rangeY*float64(height)

		if k == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
