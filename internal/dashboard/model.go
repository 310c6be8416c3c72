package dashboard

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/labdash/internal/logger"
	"github.com/rileyhilliard/labdash/internal/telemetry"
)

// Width breakpoints for layout
const (
	// Below this the panels stack vertically instead of side by side.
	BreakpointColumns = 100
)

// Options configures a dashboard Model.
type Options struct {
	Title          string
	MarqueeSpeed   int
	FrameInterval  time.Duration
	RenderInterval time.Duration
	ProcessRows    int
	Logger         logger.Logger

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// panelView groups the monitors and artifacts shown in one column.
type panelView struct {
	name string
	host *telemetry.Monitor
	gpu  *telemetry.Monitor

	hostArt *telemetry.Artifact[Surface]
	gpuArt  *telemetry.Artifact[Surface]
}

// Model is the Bubble Tea model for the lab dashboard.
type Model struct {
	panels    []*panelView
	monitors  []*telemetry.Monitor
	scheduler *telemetry.Scheduler[Surface]
	layout    *Layout
	marquee   *Marquee

	frameInterval time.Duration
	now           func() time.Time

	width    int
	height   int
	frames   int
	quitting bool
	showHelp bool
}

// frameMsg is one render-loop tick.
type frameMsg time.Time

// NewModel creates a dashboard over the given monitors. Monitors sharing a
// panel name are drawn in the same column, in first-seen order.
func NewModel(monitors []*telemetry.Monitor, opts Options) Model {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = time.Second / 60
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}

	layout := &Layout{ProcessRows: opts.ProcessRows, ChartHeight: 2}
	scheduler := telemetry.NewScheduler[Surface](opts.RenderInterval, opts.Logger)

	var panels []*panelView
	byName := make(map[string]*panelView)
	for _, mon := range monitors {
		p, ok := byName[mon.Panel]
		if !ok {
			p = &panelView{name: mon.Panel}
			byName[mon.Panel] = p
			panels = append(panels, p)
		}
		switch mon.Kind {
		case telemetry.KindHost:
			p.host = mon
			p.hostArt = scheduler.Register(mon.Name, mon.Publisher, HostRenderer(layout))
		case telemetry.KindGPU:
			p.gpu = mon
			p.gpuArt = scheduler.Register(mon.Name, mon.Publisher, GPURenderer(layout))
		}
	}

	return Model{
		panels:        panels,
		monitors:      monitors,
		scheduler:     scheduler,
		layout:        layout,
		marquee:       NewMarquee(opts.Title, opts.MarqueeSpeed),
		frameInterval: opts.FrameInterval,
		now:           opts.Now,
	}
}

// Init starts the frame ticker.
func (m Model) Init() tea.Cmd {
	return m.frameCmd()
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLayout()
		m.scheduler.Refresh(m.now())

	case frameMsg:
		m.frames++
		m.marquee.Advance()
		m.scheduler.Frame(time.Time(msg))
		return m, m.frameCmd()
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

// Quitting reports whether the user asked to exit.
func (m Model) Quitting() bool {
	return m.quitting
}

// Frames returns how many frame ticks have been processed.
func (m Model) Frames() int {
	return m.frames
}

func (m Model) frameCmd() tea.Cmd {
	return tea.Tick(m.frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// resizeLayout splits the screen between panels. Each panel gets a GPU
// block of (summary + 2 charts + 2 marker rows) per GPU and a host block.
func (m *Model) resizeLayout() {
	columns := len(m.panels)
	if columns == 0 {
		columns = 1
	}
	stacked := m.width < BreakpointColumns
	if stacked {
		m.layout.PanelWidth = m.width
	} else {
		m.layout.PanelWidth = m.width / columns
	}

	// Header, marquee, footer and borders.
	available := m.height - 6
	gpus := 0
	hostLines := 0
	for _, p := range m.panels {
		n := 0
		if p.gpu != nil {
			n = p.gpu.Channels
		}
		h := 0
		if p.host != nil {
			h = 4 + m.layout.ProcessRows
		}
		if stacked {
			gpus += n
			hostLines += h + 2
		} else {
			gpus = max(gpus, n)
			hostLines = max(hostLines, h)
		}
	}
	if gpus == 0 {
		return
	}

	// Per GPU: summary line plus, per chart, height rows and one marker row.
	perGPU := (available - hostLines) / gpus
	m.layout.ChartHeight = clampInt((perGPU-3)/2, 8)
	if m.layout.ChartHeight < minChartHeight {
		m.layout.ChartHeight = minChartHeight
	}
}
