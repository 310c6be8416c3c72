package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/labdash/internal/telemetry"
)

// Braille character rendering for high-resolution terminal graphs.
//
// Braille patterns use a 2x4 dot matrix per character:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// Unicode braille starts at U+2800 (empty) and uses bit patterns:
// bit 0 = dot 1, bit 1 = dot 2, bit 2 = dot 3, bit 3 = dot 4,
// bit 4 = dot 5, bit 5 = dot 6, bit 6 = dot 7, bit 7 = dot 8

const brailleBase = '\u2800'

// sparklineBlocks are block characters for 8-level vertical resolution (lowest to highest).
var sparklineBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Gap markers drawn under a chart where samples are missing.
const (
	markerTimeout     = '·'
	markerDecodeError = '×'
)

// brailleDots maps row/column to the bit offset for braille pattern
// [row][col] where row is 0-3 (top to bottom) and col is 0-1 (left to right)
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// chartPoint is one plotted position: a reading, or a gap with its cause.
type chartPoint struct {
	value  float64
	status telemetry.Status
}

// seriesPoints extracts the primary or secondary readings of a series.
func seriesPoints(samples []telemetry.Sample, secondary bool) []chartPoint {
	points := make([]chartPoint, len(samples))
	for i, s := range samples {
		v := s.Primary
		if secondary {
			v = s.Secondary
		}
		points[i] = chartPoint{value: v, status: s.Status}
	}
	return points
}

// resamplePoints compresses points to at most target positions. Each bucket
// keeps its peak reading and its most severe status so spikes and gaps
// survive the compression. Shorter input is returned unchanged.
func resamplePoints(points []chartPoint, target int) []chartPoint {
	if target <= 0 {
		return nil
	}
	if len(points) <= target {
		return points
	}

	out := make([]chartPoint, target)
	bucket := float64(len(points)) / float64(target)
	for i := 0; i < target; i++ {
		start := int(float64(i) * bucket)
		end := int(float64(i+1) * bucket)
		if end > len(points) {
			end = len(points)
		}
		if start >= end {
			start = end - 1
		}

		p := chartPoint{status: telemetry.StatusValid}
		for _, q := range points[start:end] {
			if q.status > p.status {
				p.status = q.status
			}
			if q.status == telemetry.StatusValid && q.value > p.value {
				p.value = q.value
			}
		}
		out[i] = p
	}
	return out
}

// normalizeValue converts a value to 0-1 range given min/max bounds.
func normalizeValue(val, minVal, maxVal float64) float64 {
	if maxVal > minVal {
		return (val - minVal) / (maxVal - minVal)
	}
	return 0.5
}

// clampInt clamps an integer to a range [0, maxVal].
func clampInt(val, maxVal int) int {
	if val < 0 {
		return 0
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// renderBrailleChart draws points as a braille area chart scaled to
// [0, maxVal], followed by a marker row that flags timeouts and decode
// errors under the columns where they happened.
//
// Each character column holds two points; the chart is right-aligned so the
// newest sample is always at the right edge. colorFor picks each column's
// color from its peak value.
func renderBrailleChart(points []chartPoint, width, height int, maxVal float64, colorFor func(float64) lipgloss.Color) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	totalDots := height * 4
	targetPoints := width * 2
	resampled := resamplePoints(points, targetPoints)

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(string(brailleBase), width))
	}
	colMax := make([]float64, width)
	colStatus := make([]telemetry.Status, width)

	offset := targetPoints - len(resampled)
	for i, p := range resampled {
		pos := i + offset
		col := pos / 2
		if col >= width {
			continue
		}
		if p.status > colStatus[col] {
			colStatus[col] = p.status
		}
		if p.status != telemetry.StatusValid {
			continue
		}
		if p.value > colMax[col] {
			colMax[col] = p.value
		}

		normalized := normalizeValue(clampFloat(p.value, 0, maxVal), 0, maxVal)
		dotHeight := clampInt(int(normalized*float64(totalDots)+0.5), totalDots)
		subCol := pos % 2
		for dot := 0; dot < dotHeight; dot++ {
			row := height - 1 - dot/4
			subRow := 3 - dot%4
			grid[row][col] |= rune(1 << brailleDots[subRow][subCol])
		}
	}

	lines := make([]string, 0, height+1)
	for _, row := range grid {
		var b strings.Builder
		for col, ch := range row {
			style := lipgloss.NewStyle().Foreground(colorFor(colMax[col]))
			b.WriteString(style.Render(string(ch)))
		}
		lines = append(lines, b.String())
	}
	lines = append(lines, renderMarkerRow(colStatus))

	return strings.Join(lines, "\n")
}

// renderMarkerRow renders one character per column: blank for valid data,
// a dot for a timeout, a cross for a decode error.
func renderMarkerRow(statuses []telemetry.Status) string {
	timeoutStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	errorStyle := lipgloss.NewStyle().Foreground(ColorCritical)

	var b strings.Builder
	for _, s := range statuses {
		switch s {
		case telemetry.StatusTimeout:
			b.WriteString(timeoutStyle.Render(string(markerTimeout)))
		case telemetry.StatusDecodeError:
			b.WriteString(errorStyle.Render(string(markerDecodeError)))
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// renderSparkline renders a single-row block sparkline scaled to
// [0, maxVal]. Gaps are drawn with their marker glyph.
func renderSparkline(points []chartPoint, width int, maxVal float64, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	resampled := resamplePoints(points, width)

	var b strings.Builder
	if pad := width - len(resampled); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	for _, p := range resampled {
		switch p.status {
		case telemetry.StatusTimeout:
			b.WriteRune(markerTimeout)
		case telemetry.StatusDecodeError:
			b.WriteRune(markerDecodeError)
		default:
			normalized := normalizeValue(clampFloat(p.value, 0, maxVal), 0, maxVal)
			idx := clampInt(int(normalized*float64(len(sparklineBlocks)-1)), len(sparklineBlocks)-1)
			b.WriteRune(sparklineBlocks[idx])
		}
	}
	return lipgloss.NewStyle().Foreground(color).Render(b.String())
}
