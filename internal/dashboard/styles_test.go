package dashboard

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/rileyhilliard/labdash/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestMetricColor(t *testing.T) {
	tests := []struct {
		percent  float64
		expected lipgloss.Color
	}{
		{0, ColorHealthy},
		{69.9, ColorHealthy},
		{70, ColorWarning},
		{89.9, ColorWarning},
		{90, ColorCritical},
		{100, ColorCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, MetricColor(tt.percent), "percent %.1f", tt.percent)
	}
}

func TestTemperatureColor(t *testing.T) {
	assert.Equal(t, ColorHealthy, TemperatureColor(60))
	assert.Equal(t, ColorWarning, TemperatureColor(75))
	assert.Equal(t, ColorCritical, TemperatureColor(85))
}

func TestStatusGlyph(t *testing.T) {
	tests := []struct {
		status telemetry.Status
		glyph  string
	}{
		{telemetry.StatusValid, GlyphOK},
		{telemetry.StatusTimeout, GlyphTimeout},
		{telemetry.StatusDecodeError, GlyphDecodeError},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			glyph, _ := StatusGlyph(tt.status)
			assert.Equal(t, tt.glyph, glyph)
		})
	}
}

func TestThinProgressBar(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		percent  float64
		expected string
	}{
		{"empty", 4, 0, "────"},
		{"half", 4, 50, "━━──"},
		{"full", 4, 100, "━━━━"},
		{"clamped", 4, 150, "━━━━"},
		{"minimum width", 0, 100, "━"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ansi.Strip(ThinProgressBar(tt.width, tt.percent)))
		})
	}
}

func TestSectionFrame(t *testing.T) {
	header := ansi.Strip(SectionHeader("Beast", "◉", 20))
	assert.Equal(t, 20, lipgloss.Width(header))
	assert.True(t, strings.HasPrefix(header, "╭─ Beast "))
	assert.True(t, strings.HasSuffix(header, "◉ ╮"))

	footer := ansi.Strip(SectionFooter(20))
	assert.Equal(t, "╰"+strings.Repeat("─", 18)+"╯", footer)

	content := strings.Split(ansi.Strip(SectionContentLine("a\nbb", 10)), "\n")
	assert.Equal(t, []string{"│ a      │", "│ bb     │"}, content)
}
