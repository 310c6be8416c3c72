package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/labdash/internal/telemetry"
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(m.marquee.Render(m.width)))
	b.WriteString("\n\n")

	b.WriteString(m.renderPanels())

	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderPanels lays the panels out side by side, or stacked on narrow screens.
func (m Model) renderPanels() string {
	if len(m.panels) == 0 {
		return LabelStyle.Render("No sources configured")
	}

	width := m.layout.PanelWidth
	if width < minPanelWidth {
		width = minPanelWidth
	}

	rendered := make([]string, len(m.panels))
	for i, p := range m.panels {
		rendered[i] = m.renderPanel(p, width)
	}

	if m.width < BreakpointColumns {
		return lipgloss.JoinVertical(lipgloss.Left, rendered...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// renderPanel renders one machine: host section then GPU section.
func (m Model) renderPanel(p *panelView, width int) string {
	inner := width - 4
	var sections []string

	if p.host != nil {
		var body []string
		if surface, ok := p.hostArt.Surface(); ok {
			body = append(body, surface.Content)
		} else {
			body = append(body, MutedStyle.Render("waiting for host telemetry"))
		}
		if series := p.host.Series(); len(series) > 0 {
			if history := HostHistory(series[0], inner); history != "" {
				body = append(body, history)
			}
		}
		if note := renderFailureNote(p.hostArt); note != "" {
			body = append(body, note)
		}
		sections = append(sections, strings.Join(body, "\n"))
	}

	if p.gpu != nil {
		var body []string
		if surface, ok := p.gpuArt.Surface(); ok {
			body = append(body, surface.Content)
		} else {
			body = append(body, MutedStyle.Render("waiting for gpu telemetry"))
		}
		if note := renderFailureNote(p.gpuArt); note != "" {
			body = append(body, note)
		}
		sections = append(sections, strings.Join(body, "\n"))
	}

	lines := []string{SectionHeader(p.name, m.panelStatus(p), width)}
	for i, s := range sections {
		if i > 0 {
			lines = append(lines, SectionContentLine("", width))
		}
		lines = append(lines, SectionContentLine(s, width))
	}
	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// renderFailureNote marks an artifact whose last rebuild failed.
func renderFailureNote(a *telemetry.Artifact[Surface]) string {
	if a == nil || a.Err() == nil {
		return ""
	}
	return MutedStyle.Render(GlyphDecodeError + " render failed, showing last view")
}

// panelStatus summarizes a panel's sources for its header, worst first.
func (m Model) panelStatus(p *panelView) string {
	worst := telemetry.StatusValid
	seen := false
	for _, mon := range []*telemetry.Monitor{p.host, p.gpu} {
		if mon == nil {
			continue
		}
		snap, ok := mon.Publisher.Latest()
		if !ok {
			continue
		}
		seen = true
		if snap.Status > worst {
			worst = snap.Status
		}
	}
	if !seen {
		return GlyphWaiting
	}
	glyph, style := StatusGlyph(worst)
	return style.Render(glyph)
}

// renderFooter renders the per-source status line and key hints.
func (m Model) renderFooter() string {
	now := m.now()
	parts := make([]string, 0, len(m.monitors)+1)
	for _, mon := range m.monitors {
		parts = append(parts, sourceStatus(mon, now))
	}
	parts = append(parts, "q quit", "? help")
	return FooterStyle.Render(strings.Join(parts, " | "))
}

// sourceStatus renders "Beast/gpu ◉ ok 3s" for one monitor.
func sourceStatus(mon *telemetry.Monitor, now time.Time) string {
	snap, ok := mon.Publisher.Latest()
	if !ok {
		return mon.Name + " " + GlyphWaiting + " waiting"
	}
	glyph, style := StatusGlyph(snap.Status)
	return fmt.Sprintf("%s %s %s", mon.Name, style.Render(glyph+" "+snap.Status.String()), formatAge(now.Sub(snap.Time)))
}

// formatAge renders a duration the way the status line shows it.
func formatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
