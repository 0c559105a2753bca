package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/vitals/internal/monitor"
)

// sparkBlocks give eight vertical levels per cell, lowest first.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Braille cells are a 2x4 dot matrix starting at U+2800. brailleBits maps
// [row][col], row 0 at the top, to the bit for that dot.
const brailleBase = '\u2800'

var brailleBits = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// values extracts the value column of a series.
func values(points []monitor.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// bounds returns the plotting range. Percent series use a fixed 0-100 scale
// so graphs of the same kind compare at a glance.
func bounds(data []float64, percent bool) (lo, hi float64) {
	if percent || len(data) == 0 {
		return 0, 100
	}
	lo, hi = data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo > 0 {
		lo = 0
	}
	return lo, hi
}

func scale(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	n := (v - lo) / (hi - lo)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// resample averages data down to size buckets. Shorter input is returned as is.
func resample(data []float64, size int) []float64 {
	if size <= 0 || len(data) <= size {
		return data
	}
	out := make([]float64, size)
	ratio := float64(len(data)) / float64(size)
	for i := range out {
		start := int(float64(i) * ratio)
		end := int(float64(i+1) * ratio)
		if end <= start {
			end = start + 1
		}
		sum := 0.0
		for _, v := range data[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

// Sparkline renders a one-row block graph, right-aligned within width.
func Sparkline(data []float64, width int, percent bool, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	data = resample(data, width)
	lo, hi := bounds(data, percent)

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", width-len(data)))
	for _, v := range data {
		idx := int(scale(v, lo, hi) * float64(len(sparkBlocks)-1))
		b.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Render(b.String())
}

// BrailleGraph renders data as a width x height braille area chart. Each
// cell holds two samples and four vertical levels. Data fills from the right.
func BrailleGraph(data []float64, width, height int, percent bool, color lipgloss.Color) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	slots := width * 2
	data = resample(data, slots)
	lo, hi := bounds(data, percent)
	levels := height * 4

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(string(brailleBase), width))
	}

	offset := slots - len(data)
	for i, v := range data {
		x := offset + i
		col, sub := x/2, x%2
		dots := int(scale(v, lo, hi) * float64(levels))
		if dots == 0 && v > lo {
			dots = 1
		}
		for d := 0; d < dots; d++ {
			row := height - 1 - d/4
			grid[row][col] |= rune(1) << brailleBits[3-d%4][sub]
		}
	}

	lines := make([]string, height)
	style := lipgloss.NewStyle().Foreground(color)
	for r, cells := range grid {
		lines[r] = style.Render(string(cells))
	}
	return strings.Join(lines, "\n")
}
