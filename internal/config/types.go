package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Source modes.
const (
	// ModeListen receives telemetry datagrams on a UDP port.
	ModeListen = "listen"
	// ModeLocal queries the local machine directly.
	ModeLocal = "local"
)

// Config represents the complete labdash.yaml configuration file.
// Everything here is read once at startup; there is no reload.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Title scrolls across the top of the screen.
	Title string `yaml:"title" mapstructure:"title"`

	// BufferCapacity is the number of samples retained per series.
	BufferCapacity int `yaml:"buffer_capacity" mapstructure:"buffer_capacity"`

	// PollInterval is the pause between two acquisitions of one source.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// ReceiveTimeout bounds how long a listener waits for one datagram.
	ReceiveTimeout time.Duration `yaml:"receive_timeout" mapstructure:"receive_timeout"`

	// RenderInterval throttles chart and table regeneration.
	RenderInterval time.Duration `yaml:"render_interval" mapstructure:"render_interval"`

	// FrameRate is the number of redraws per second.
	FrameRate int `yaml:"frame_rate" mapstructure:"frame_rate"`

	// MarqueeSpeed is how many columns the title moves per frame.
	MarqueeSpeed int `yaml:"marquee_speed" mapstructure:"marquee_speed"`

	// LogFile receives all log output while the dashboard owns the terminal.
	LogFile string `yaml:"log_file" mapstructure:"log_file"`

	Panels []PanelConfig `yaml:"panels" mapstructure:"panels"`
	Mirror MirrorConfig  `yaml:"mirror" mapstructure:"mirror"`
}

// PanelConfig is one column of the dashboard: a machine with its CPU/RAM
// feed and its GPU feed. Either feed may be omitted.
type PanelConfig struct {
	Name string        `yaml:"name" mapstructure:"name"`
	Host *SourceConfig `yaml:"host,omitempty" mapstructure:"host"`
	GPU  *SourceConfig `yaml:"gpu,omitempty" mapstructure:"gpu"`
}

// SourceConfig describes where one monitored source gets its samples.
type SourceConfig struct {
	// Mode is "listen" or "local".
	Mode string `yaml:"mode" mapstructure:"mode"`

	// Bind is the local address to listen on; empty means all interfaces.
	Bind string `yaml:"bind,omitempty" mapstructure:"bind"`

	// Port is the UDP port for listen mode.
	Port int `yaml:"port,omitempty" mapstructure:"port"`

	// GPUs is the number of accelerators reported by a GPU source.
	GPUs int `yaml:"gpus,omitempty" mapstructure:"gpus"`

	// TopProcesses caps the process table of a local host source.
	TopProcesses int `yaml:"top_processes,omitempty" mapstructure:"top_processes"`
}

// MirrorConfig controls the optional read-only HTTP/WebSocket mirror.
type MirrorConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Addr is the listen address, e.g. "127.0.0.1:8080".
	Addr string `yaml:"addr" mapstructure:"addr"`

	// PushInterval is how often websocket clients receive fresh series.
	PushInterval time.Duration `yaml:"push_interval" mapstructure:"push_interval"`
}

// Defaults shared by DefaultConfig and the loader.
const (
	DefaultTitle          = "Welcome to the lab"
	DefaultBufferCapacity = 360
	DefaultPollInterval   = 5 * time.Second
	DefaultReceiveTimeout = 12 * time.Second
	DefaultRenderInterval = 5 * time.Second
	DefaultFrameRate      = 60
	DefaultMarqueeSpeed   = 1
	DefaultTopProcesses   = 10
	DefaultMirrorAddr     = "127.0.0.1:8080"
	DefaultPushInterval   = 5 * time.Second
)

// DefaultConfig returns a Config with the stock two-machine lab layout:
// each panel has a host listener and a two-GPU listener.
func DefaultConfig() *Config {
	return &Config{
		Version:        CurrentConfigVersion,
		Title:          DefaultTitle,
		BufferCapacity: DefaultBufferCapacity,
		PollInterval:   DefaultPollInterval,
		ReceiveTimeout: DefaultReceiveTimeout,
		RenderInterval: DefaultRenderInterval,
		FrameRate:      DefaultFrameRate,
		MarqueeSpeed:   DefaultMarqueeSpeed,
		Panels: []PanelConfig{
			{
				Name: "Beast",
				Host: &SourceConfig{Mode: ModeListen, Port: 12347, TopProcesses: DefaultTopProcesses},
				GPU:  &SourceConfig{Mode: ModeListen, Port: 12345, GPUs: 2},
			},
			{
				Name: "Beauty",
				Host: &SourceConfig{Mode: ModeListen, Port: 12348, TopProcesses: DefaultTopProcesses},
				GPU:  &SourceConfig{Mode: ModeListen, Port: 12346, GPUs: 2},
			},
		},
		Mirror: MirrorConfig{
			Enabled:      false,
			Addr:         DefaultMirrorAddr,
			PushInterval: DefaultPushInterval,
		},
	}
}

// FrameInterval converts FrameRate into a tick period.
func (c *Config) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second / DefaultFrameRate
	}
	return time.Second / time.Duration(c.FrameRate)
}

// Channels returns how many series a GPU source carries.
func (s *SourceConfig) Channels() int {
	if s.GPUs <= 0 {
		return 1
	}
	return s.GPUs
}
