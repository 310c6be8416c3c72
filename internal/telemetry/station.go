package telemetry

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rileyhilliard/labdash/internal/config"
	"github.com/rileyhilliard/labdash/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Monitor is one monitored source with its buffers, publisher and receiver.
type Monitor struct {
	// Name is "<panel>/<kind>", e.g. "Beast/gpu".
	Name      string
	Panel     string
	Kind      Kind
	Channels  int
	Publisher *Publisher[Snapshot]
	Receiver  *Receiver

	buffers []*RollingBuffer
	source  SampleSource
}

// MonitorConfig describes a Monitor to build.
type MonitorConfig struct {
	Panel    string
	Kind     Kind
	Channels int
	Capacity int
	Interval time.Duration
	Source   SampleSource
	Logger   logger.Logger
	Now      func() time.Time
}

// MonitorName joins a panel name and a kind.
func MonitorName(panel string, kind Kind) string {
	return panel + "/" + kind.String()
}

// NewMonitor creates a monitor whose buffers start full of zero samples.
func NewMonitor(cfg MonitorConfig) *Monitor {
	channels := cfg.Channels
	if channels <= 0 || cfg.Kind == KindHost {
		channels = 1
	}

	buffers := make([]*RollingBuffer, channels)
	for i := range buffers {
		buffers[i] = NewBaselineBuffer(cfg.Capacity)
	}

	name := MonitorName(cfg.Panel, cfg.Kind)
	pub := NewPublisher[Snapshot]()
	m := &Monitor{
		Name:      name,
		Panel:     cfg.Panel,
		Kind:      cfg.Kind,
		Channels:  channels,
		Publisher: pub,
		buffers:   buffers,
		source:    cfg.Source,
	}
	m.Receiver = NewReceiver(ReceiverConfig{
		Name:      name,
		Kind:      cfg.Kind,
		Source:    cfg.Source,
		Buffers:   buffers,
		Publisher: pub,
		Interval:  cfg.Interval,
		Logger:    cfg.Logger,
		Now:       cfg.Now,
	})
	return m
}

// Series returns a copy of every channel's samples, oldest first.
func (m *Monitor) Series() [][]Sample {
	out := make([][]Sample, len(m.buffers))
	for i, buf := range m.buffers {
		out[i] = buf.Snapshot()
	}
	return out
}

// Buffer returns the rolling buffer for one channel.
func (m *Monitor) Buffer(channel int) *RollingBuffer {
	return m.buffers[channel]
}

// Source returns the monitor's sample source.
func (m *Monitor) Source() SampleSource {
	return m.source
}

// Station owns every Monitor and the lifetime of their receivers.
type Station struct {
	monitors []*Monitor
	log      logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	stopped bool
}

// NewStation wraps already-built monitors.
func NewStation(monitors []*Monitor, log logger.Logger) *Station {
	if log == nil {
		log = logger.Noop()
	}
	return &Station{monitors: monitors, log: log}
}

// BuildStation creates one Monitor per configured source. Listening sources
// bind their sockets here; if any bind fails, sockets already bound are
// closed and the bind error is returned.
func BuildStation(cfg *config.Config, log logger.Logger) (*Station, error) {
	if log == nil {
		log = logger.Noop()
	}

	var monitors []*Monitor
	closeAll := func() {
		for _, m := range monitors {
			closeSource(m, log)
		}
	}

	for _, panel := range cfg.Panels {
		feeds := []struct {
			kind Kind
			src  *config.SourceConfig
		}{
			{KindHost, panel.Host},
			{KindGPU, panel.GPU},
		}
		for _, feed := range feeds {
			if feed.src == nil {
				continue
			}
			source, err := newSource(cfg, feed.kind, feed.src)
			if err != nil {
				closeAll()
				return nil, err
			}
			monitors = append(monitors, NewMonitor(MonitorConfig{
				Panel:    panel.Name,
				Kind:     feed.kind,
				Channels: channelsFor(feed.kind, feed.src),
				Capacity: cfg.BufferCapacity,
				Interval: cfg.PollInterval,
				Source:   source,
				Logger:   log,
			}))
			log.Debug("%s: %s source ready", MonitorName(panel.Name, feed.kind), feed.src.Mode)
		}
	}

	return NewStation(monitors, log), nil
}

func channelsFor(kind Kind, src *config.SourceConfig) int {
	if kind == KindHost {
		return 1
	}
	return src.Channels()
}

func newSource(cfg *config.Config, kind Kind, src *config.SourceConfig) (SampleSource, error) {
	channels := channelsFor(kind, src)
	if src.Mode == config.ModeLocal {
		if kind == KindHost {
			return NewLocalHostSource(src.TopProcesses, DefaultQueryTimeout), nil
		}
		return NewLocalGPUSource(channels, DefaultQueryTimeout), nil
	}
	udp, err := ListenUDP(src.Bind, src.Port, kind, channels, cfg.ReceiveTimeout)
	if err != nil {
		return nil, err
	}
	return udp, nil
}

// Monitors returns the station's monitors in configuration order.
func (s *Station) Monitors() []*Monitor {
	return s.monitors
}

// Monitor looks up a monitor by name.
func (s *Station) Monitor(name string) (*Monitor, bool) {
	for _, m := range s.monitors {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Start launches one receiver goroutine per monitor. Calling it again, or
// after Shutdown, does nothing.
func (s *Station) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group != nil || s.stopped {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range s.monitors {
		r := m.Receiver
		g.Go(func() error {
			return r.Run(gctx)
		})
	}
	s.group = g
	s.log.Info("started %d receivers", len(s.monitors))
}

// Shutdown stops every receiver, waits for them to return, then closes the
// sources that hold resources. Close failures are logged. Safe to call more
// than once.
func (s *Station) Shutdown() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel, g := s.cancel, s.group
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if g != nil {
		_ = g.Wait()
	}
	for _, m := range s.monitors {
		closeSource(m, s.log)
	}
	s.log.Info("station stopped")
}

func closeSource(m *Monitor, log logger.Logger) {
	c, ok := m.source.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("%s: closing source: %v", m.Name, err)
	}
}
