package dashboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/labdash/internal/telemetry"
)

// Surface is one rendered section of a panel, cached by the scheduler
// until its source publishes again.
type Surface struct {
	Content string
	Width   int
	Status  telemetry.Status
	Taken   time.Time
}

// Layout is the space available to each panel section. The model owns it
// and updates it on resize; render functions read it on the same loop.
type Layout struct {
	PanelWidth  int
	ChartHeight int
	ProcessRows int
}

// Minimum sizes below which sections are clipped rather than shrunk.
const (
	minPanelWidth  = 30
	minChartHeight = 1
)

// innerWidth is the usable width inside a section's borders.
func (l *Layout) innerWidth() int {
	w := l.PanelWidth
	if w < minPanelWidth {
		w = minPanelWidth
	}
	return w - 4
}

func (l *Layout) chartHeight() int {
	if l.ChartHeight < minChartHeight {
		return minChartHeight
	}
	return l.ChartHeight
}

// GPURenderer returns the render function for GPU monitors: per GPU, a
// summary line and usage and temperature charts.
func GPURenderer(layout *Layout) telemetry.RenderFunc[Surface] {
	return func(snap telemetry.Snapshot) (Surface, error) {
		if snap.Kind != telemetry.KindGPU {
			return Surface{}, fmt.Errorf("gpu renderer got a %s snapshot", snap.Kind)
		}

		width := layout.innerWidth()
		height := layout.chartHeight()

		var blocks []string
		for i, series := range snap.Series {
			if len(series) == 0 {
				continue
			}
			blocks = append(blocks,
				gpuSummary(i, series[len(series)-1]),
				renderBrailleChart(seriesPoints(series, false), width, height, 100, MetricColor),
				renderBrailleChart(seriesPoints(series, true), width, height, telemetry.MaxTemperature, TemperatureColor),
			)
		}

		return Surface{
			Content: strings.Join(blocks, "\n"),
			Width:   width,
			Status:  snap.Status,
			Taken:   snap.Time,
		}, nil
	}
}

func gpuSummary(index int, last telemetry.Sample) string {
	label := LabelStyle.Render(fmt.Sprintf("GPU %d", index))
	if !last.Valid() {
		glyph, style := StatusGlyph(last.Status)
		return label + "  " + style.Render(glyph+" "+last.Status.String())
	}

	usage := lipgloss.NewStyle().Foreground(MetricColor(last.Primary)).
		Render(fmt.Sprintf("%.0f%%", last.Primary))
	temp := lipgloss.NewStyle().Foreground(TemperatureColor(last.Secondary)).
		Render(fmt.Sprintf("%.0f°C", last.Secondary))
	return label + "  " + MutedStyle.Render("usage ") + usage + "  " + MutedStyle.Render("temp ") + temp
}

// HostRenderer returns the render function for host monitors: CPU and RAM
// bars with their history, then the busiest processes.
func HostRenderer(layout *Layout) telemetry.RenderFunc[Surface] {
	return func(snap telemetry.Snapshot) (Surface, error) {
		if snap.Kind != telemetry.KindHost {
			return Surface{}, fmt.Errorf("host renderer got a %s snapshot", snap.Kind)
		}
		if len(snap.Series) == 0 || len(snap.Series[0]) == 0 {
			return Surface{}, fmt.Errorf("host snapshot has no samples")
		}

		width := layout.innerWidth()
		series := snap.Series[0]
		last := series[len(series)-1]

		lines := []string{
			hostMetricLine("CPU", last, false, width),
			hostMetricLine("RAM", last, true, width),
		}
		if layout.ProcessRows > 0 && len(snap.Processes) > 0 {
			lines = append(lines, "", processTable(snap.Processes, layout.ProcessRows, width))
		}

		return Surface{
			Content: strings.Join(lines, "\n"),
			Width:   width,
			Status:  snap.Status,
			Taken:   snap.Time,
		}, nil
	}
}

// hostMetricLine renders "CPU  12.5% ━━━───  ▁▂▃▅" for one reading.
func hostMetricLine(label string, last telemetry.Sample, secondary bool, width int) string {
	value := last.Primary
	if secondary {
		value = last.Secondary
	}

	head := PanelTitleStyle.Render(fmt.Sprintf("%-4s", label))
	if !last.Valid() {
		glyph, style := StatusGlyph(last.Status)
		return head + " " + style.Render(glyph+" "+last.Status.String())
	}

	pct := lipgloss.NewStyle().Foreground(MetricColor(value)).Render(fmt.Sprintf("%5.1f%%", value))
	barWidth := (width - 12) / 2
	if barWidth < 4 {
		barWidth = 4
	}
	return head + " " + pct + " " + ThinProgressBar(barWidth, value)
}

// HostHistory renders CPU and RAM sparklines from a monitor's full series.
// It is cheap enough to run every frame.
func HostHistory(series []telemetry.Sample, width int) string {
	if width <= 6 {
		return ""
	}
	cpu := renderSparkline(seriesPoints(series, false), width-5, 100, ColorUsage)
	ram := renderSparkline(seriesPoints(series, true), width-5, 100, ColorAccentDim)
	return MutedStyle.Render("cpu  ") + cpu + "\n" + MutedStyle.Render("ram  ") + ram
}

// Process table column widths, excluding the name column which takes the rest.
const (
	colUser = 10
	colCPU  = 7
	colMem  = 7
	colPID  = 7
	// Each cell carries one column of padding on both sides.
	cellPadding = 2
)

// processTable renders up to rows processes with the bubbles table widget.
func processTable(procs []telemetry.Process, rows, width int) string {
	nameWidth := width - (colUser + colCPU + colMem + colPID) - 5*cellPadding
	if nameWidth < 8 {
		nameWidth = 8
	}

	if len(procs) > rows {
		procs = procs[:rows]
	}
	tableRows := make([]table.Row, len(procs))
	for i, p := range procs {
		tableRows[i] = table.Row{
			p.User,
			fmt.Sprintf("%.2f", p.CPUPercent),
			fmt.Sprintf("%.2f", p.MemoryPercent),
			strconv.Itoa(int(p.PID)),
			p.Name,
		}
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "USER", Width: colUser},
			{Title: "CPU%", Width: colCPU},
			{Title: "MEM%", Width: colMem},
			{Title: "PID", Width: colPID},
			{Title: "NAME", Width: nameWidth},
		}),
		table.WithRows(tableRows),
		table.WithFocused(false),
		table.WithHeight(len(tableRows)+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		Bold(true).
		Foreground(ColorAccent)
	s.Cell = s.Cell.
		Foreground(ColorTextPrimary)
	s.Selected = s.Cell
	t.SetStyles(s)

	return trimTrailingBlankLines(t.View())
}

func trimTrailingBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
