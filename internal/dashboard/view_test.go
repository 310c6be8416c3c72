package dashboard

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/rileyhilliard/labdash/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAge(t *testing.T) {
	tests := []struct {
		age      time.Duration
		expected string
	}{
		{-time.Second, "0s"},
		{0, "0s"},
		{42 * time.Second, "42s"},
		{90 * time.Second, "1m"},
		{59 * time.Minute, "59m"},
		{3 * time.Hour, "3h"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatAge(tt.age))
		})
	}
}

func TestSourceStatus(t *testing.T) {
	mon := testMonitor("Beast", telemetry.KindGPU, 1, fixedSource(telemetry.Reading{}, telemetry.ErrDecode))
	assert.Equal(t, "Beast/gpu "+GlyphWaiting+" waiting", sourceStatus(mon, testClock))

	stepAll(t, []*telemetry.Monitor{mon})
	got := ansi.Strip(sourceStatus(mon, testClock.Add(7*time.Second)))
	assert.Equal(t, "Beast/gpu "+GlyphDecodeError+" decode error 7s", got)
}

func TestPanelStatusShowsWorstSource(t *testing.T) {
	monitors := []*telemetry.Monitor{
		testMonitor("Beast", telemetry.KindHost, 1, fixedSource(telemetry.Reading{Pairs: []telemetry.Pair{{Primary: 1, Secondary: 1}}}, nil)),
		testMonitor("Beast", telemetry.KindGPU, 1, fixedSource(telemetry.Reading{}, telemetry.ErrTimeout)),
	}
	m := newTestModel(monitors)
	assert.Equal(t, GlyphWaiting, m.panelStatus(m.panels[0]))

	stepAll(t, monitors[:1])
	assert.Equal(t, GlyphOK, ansi.Strip(m.panelStatus(m.panels[0])))

	stepAll(t, monitors[1:])
	assert.Equal(t, GlyphTimeout, ansi.Strip(m.panelStatus(m.panels[0])))
}

func TestRenderPanelFramesEverySection(t *testing.T) {
	monitors := labMonitors()
	m := newTestModel(monitors)
	stepAll(t, monitors)
	m.scheduler.Frame(testClock)

	out := m.renderPanel(m.panels[0], 60)
	lines := strings.Split(ansi.Strip(out), "\n")
	require.Greater(t, len(lines), 3)

	assert.True(t, strings.HasPrefix(lines[0], "╭─ Beast"))
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "╰"))
	for _, line := range lines[1 : len(lines)-1] {
		assert.True(t, strings.HasPrefix(line, "│"), line)
	}
	for _, line := range lines {
		assert.Equal(t, 60, lipgloss.Width(line), line)
	}

	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "cpu  ", "host history follows the host surface")
	assert.Contains(t, joined, "GPU 1")
}

func TestRenderPanelsWithoutSources(t *testing.T) {
	m := newTestModel(nil)
	assert.Contains(t, ansi.Strip(m.View()), "No sources configured")
}

func TestRenderDashboardStacksOnNarrowScreens(t *testing.T) {
	m := newTestModel(labMonitors())
	m.width, m.height = 60, 80
	m.resizeLayout()

	view := ansi.Strip(m.renderDashboard())
	beast := strings.Index(view, "╭─ Beast")
	beauty := strings.Index(view, "╭─ Beauty")
	require.True(t, beast >= 0 && beauty >= 0)

	// Stacked panels start on different lines at the same column.
	lineOf := func(idx int) int { return strings.Count(view[:idx], "\n") }
	assert.Less(t, lineOf(beast), lineOf(beauty))
}

func TestRenderFailureNote(t *testing.T) {
	pub := telemetry.NewPublisher[telemetry.Snapshot]()
	s := telemetry.NewScheduler[Surface](0, nil)
	fail := false
	a := s.Register("Beast/gpu", pub, func(snap telemetry.Snapshot) (Surface, error) {
		if fail {
			return Surface{}, errors.New("chart too narrow")
		}
		return Surface{Content: "ok"}, nil
	})

	assert.Empty(t, renderFailureNote(nil))
	assert.Empty(t, renderFailureNote(a), "no note before any render")

	pub.RequestUpdate(gpuSnapshot(telemetry.Pair{Primary: 1, Secondary: 30}))
	require.Equal(t, 1, s.Frame(testClock))
	assert.Empty(t, renderFailureNote(a))

	fail = true
	pub.RequestUpdate(gpuSnapshot(telemetry.Pair{Primary: 2, Secondary: 31}))
	s.Frame(testClock.Add(time.Second))
	assert.Equal(t, GlyphDecodeError+" render failed, showing last view", ansi.Strip(renderFailureNote(a)))
}
