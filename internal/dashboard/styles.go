package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/labdash/internal/telemetry"
)

// Dashboard color palette
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F")
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	// Accent matches the lab's signage blue.
	ColorAccent    = lipgloss.Color("#63B0E3")
	ColorAccentDim = lipgloss.Color("#3F7FA8")

	ColorUsage       = lipgloss.Color("#00FFFF")
	ColorTemperature = lipgloss.Color("#FF8800")
)

// Thresholds for metric severity levels
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0

	// Temperature thresholds in °C.
	TempWarningThreshold  = 75.0
	TempCriticalThreshold = 85.0
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)
)

// Status glyphs for the last sample of a source.
const (
	GlyphOK          = "◉"
	GlyphTimeout     = "◌"
	GlyphDecodeError = "✗"
	GlyphWaiting     = "◐"
)

// MetricColor returns the appropriate color for a percentage-based metric.
// Uses threshold-based coloring: green < 70%, yellow 70-90%, red > 90%.
func MetricColor(percent float64) lipgloss.Color {
	return colorWithThresholds(percent, WarningThreshold, CriticalThreshold)
}

// TemperatureColor returns the color for a GPU temperature in °C.
func TemperatureColor(celsius float64) lipgloss.Color {
	return colorWithThresholds(celsius, TempWarningThreshold, TempCriticalThreshold)
}

func colorWithThresholds(v, warning, critical float64) lipgloss.Color {
	switch {
	case v >= critical:
		return ColorCritical
	case v >= warning:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// StatusGlyph returns the glyph and style for a sample status.
func StatusGlyph(s telemetry.Status) (string, lipgloss.Style) {
	switch s {
	case telemetry.StatusValid:
		return GlyphOK, lipgloss.NewStyle().Foreground(ColorHealthy)
	case telemetry.StatusTimeout:
		return GlyphTimeout, lipgloss.NewStyle().Foreground(ColorWarning)
	default:
		return GlyphDecodeError, lipgloss.NewStyle().Foreground(ColorCritical)
	}
}

// ThinProgressBar renders a line-based bar using ━ for filled segments and
// ─ for empty ones, colored by severity.
func ThinProgressBar(width int, percent float64) string {
	if width < 1 {
		width = 1
	}
	percent = clampFloat(percent, 0, 100)

	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
	return lipgloss.NewStyle().Foreground(MetricColor(percent)).Render(bar)
}

// SectionHeader renders a section header with the title on the left and value on the right.
// Format: ╭─ Title ────────────────────────────── Value ╮
func SectionHeader(title, value string, width int) string {
	if width < 10 {
		width = 10
	}

	leftWidth := 3 + lipgloss.Width(title) + 1
	rightWidth := 1 + lipgloss.Width(value) + 2
	fillWidth := width - leftWidth - rightWidth
	if fillWidth < 1 {
		fillWidth = 1
	}
	middle := strings.Repeat("─", fillWidth)

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	valueStyle := lipgloss.NewStyle().Foreground(ColorTextSecondary)

	return borderStyle.Render("╭─ ") +
		PanelTitleStyle.Render(title) +
		borderStyle.Render(" "+middle+" ") +
		valueStyle.Render(value) +
		borderStyle.Render(" ╮")
}

// SectionFooter renders the bottom border of a section.
// Format: ╰──────────────────────────────────────────╯
func SectionFooter(width int) string {
	if width < 2 {
		width = 2
	}
	middle := strings.Repeat("─", width-2)
	return lipgloss.NewStyle().Foreground(ColorBorder).Render("╰" + middle + "╯")
}

// SectionContentLine renders a content line with left and right borders, padded to width.
// Format: │ content                                  │
// Multi-line content is framed line by line.
func SectionContentLine(content string, width int) string {
	if width < 4 {
		width = 4
	}

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	innerWidth := width - 4

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		padding := innerWidth - lipgloss.Width(line)
		if padding < 0 {
			padding = 0
		}
		lines[i] = borderStyle.Render("│") + " " + line + strings.Repeat(" ", padding) + " " + borderStyle.Render("│")
	}
	return strings.Join(lines, "\n")
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
