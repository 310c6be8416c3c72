package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/labdash/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Force TrueColor output in tests so color codes are exercised.
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func valid(v float64) chartPoint {
	return chartPoint{value: v, status: telemetry.StatusValid}
}

func gap(s telemetry.Status) chartPoint {
	return chartPoint{status: s}
}

func plainLines(s string) []string {
	return strings.Split(ansi.Strip(s), "\n")
}

func TestSeriesPoints(t *testing.T) {
	samples := []telemetry.Sample{
		telemetry.NewSample(time.Time{}, telemetry.Pair{Primary: 42, Secondary: 65}),
		telemetry.SentinelSample(time.Time{}, telemetry.StatusTimeout),
	}

	primary := seriesPoints(samples, false)
	secondary := seriesPoints(samples, true)

	assert.Equal(t, []chartPoint{valid(42), gap(telemetry.StatusTimeout)}, primary)
	assert.Equal(t, []chartPoint{valid(65), gap(telemetry.StatusTimeout)}, secondary)
}

func TestResamplePoints(t *testing.T) {
	tests := []struct {
		name     string
		points   []chartPoint
		target   int
		expected []chartPoint
	}{
		{
			name:     "shorter input unchanged",
			points:   []chartPoint{valid(1), valid(2)},
			target:   5,
			expected: []chartPoint{valid(1), valid(2)},
		},
		{
			name:     "keeps peaks",
			points:   []chartPoint{valid(1), valid(9), valid(3), valid(2)},
			target:   2,
			expected: []chartPoint{valid(9), valid(3)},
		},
		{
			name:     "worst status wins",
			points:   []chartPoint{valid(5), gap(telemetry.StatusTimeout), gap(telemetry.StatusDecodeError), gap(telemetry.StatusTimeout)},
			target:   2,
			expected: []chartPoint{{value: 5, status: telemetry.StatusTimeout}, gap(telemetry.StatusDecodeError)},
		},
		{
			name:     "zero target",
			points:   []chartPoint{valid(1)},
			target:   0,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resamplePoints(tt.points, tt.target))
		})
	}
}

func TestRenderBrailleChartFull(t *testing.T) {
	points := make([]chartPoint, 8)
	for i := range points {
		points[i] = valid(100)
	}

	lines := plainLines(renderBrailleChart(points, 4, 1, 100, MetricColor))
	require.Len(t, lines, 2)
	assert.Equal(t, "⣿⣿⣿⣿", lines[0])
	assert.Equal(t, "    ", lines[1])
}

func TestRenderBrailleChartRightAligned(t *testing.T) {
	lines := plainLines(renderBrailleChart([]chartPoint{valid(100)}, 2, 1, 100, MetricColor))
	require.Len(t, lines, 2)
	assert.Equal(t, "\u2800\u28b8", lines[0])
}

func TestRenderBrailleChartMarksGaps(t *testing.T) {
	tests := []struct {
		name   string
		points []chartPoint
		plot   string
		marker string
	}{
		{"timeout", []chartPoint{valid(100), gap(telemetry.StatusTimeout)}, "⡇", "·"},
		{"decode error", []chartPoint{gap(telemetry.StatusDecodeError), valid(100)}, "⢸", "×"},
		{"all valid", []chartPoint{valid(100), valid(100)}, "⣿", " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := plainLines(renderBrailleChart(tt.points, 1, 1, 100, MetricColor))
			require.Len(t, lines, 2)
			assert.Equal(t, tt.plot, lines[0])
			assert.Equal(t, tt.marker, lines[1])
		})
	}
}

func TestRenderBrailleChartClampsOutOfScale(t *testing.T) {
	// 150 on a 0-100 scale draws as full height rather than overflowing.
	lines := plainLines(renderBrailleChart([]chartPoint{valid(150), valid(150)}, 1, 2, 100, MetricColor))
	require.Len(t, lines, 3)
	assert.Equal(t, "⣿", lines[0])
	assert.Equal(t, "⣿", lines[1])
}

func TestRenderBrailleChartInvalidSize(t *testing.T) {
	assert.Empty(t, renderBrailleChart([]chartPoint{valid(1)}, 0, 1, 100, MetricColor))
	assert.Empty(t, renderBrailleChart([]chartPoint{valid(1)}, 1, 0, 100, MetricColor))
}

func TestRenderSparkline(t *testing.T) {
	tests := []struct {
		name     string
		points   []chartPoint
		width    int
		expected string
	}{
		{"low and high", []chartPoint{valid(0), valid(100)}, 2, "▁█"},
		{"padded left", []chartPoint{valid(0), valid(100)}, 4, "  ▁█"},
		{"gaps", []chartPoint{gap(telemetry.StatusTimeout), gap(telemetry.StatusDecodeError)}, 2, "·×"},
		{"zero width", []chartPoint{valid(1)}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ansi.Strip(renderSparkline(tt.points, tt.width, 100, ColorUsage))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, 0.5, normalizeValue(50, 0, 100))
	assert.Equal(t, 0.0, normalizeValue(0, 0, 100))
	assert.Equal(t, 0.5, normalizeValue(3, 3, 3), "flat range maps to the middle")
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 0, clampInt(-3, 10))
	assert.Equal(t, 10, clampInt(11, 10))
	assert.Equal(t, 4, clampInt(4, 10))
}
