package config

import (
	"github.com/rileyhilliard/labdash/internal/errors"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with durations spelled the way people write
// them ("5s" rather than 5000000000).
type fileConfig struct {
	Version        int           `yaml:"version"`
	Title          string        `yaml:"title"`
	BufferCapacity int           `yaml:"buffer_capacity"`
	PollInterval   string        `yaml:"poll_interval"`
	ReceiveTimeout string        `yaml:"receive_timeout"`
	RenderInterval string        `yaml:"render_interval"`
	FrameRate      int           `yaml:"frame_rate"`
	MarqueeSpeed   int           `yaml:"marquee_speed"`
	LogFile        string        `yaml:"log_file,omitempty"`
	Panels         []PanelConfig `yaml:"panels"`
	Mirror         fileMirror    `yaml:"mirror"`
}

type fileMirror struct {
	Enabled      bool   `yaml:"enabled"`
	Addr         string `yaml:"addr"`
	PushInterval string `yaml:"push_interval"`
}

// Marshal renders cfg as YAML that Load reads back to the same Config.
func Marshal(cfg *Config) ([]byte, error) {
	fc := fileConfig{
		Version:        cfg.Version,
		Title:          cfg.Title,
		BufferCapacity: cfg.BufferCapacity,
		PollInterval:   cfg.PollInterval.String(),
		ReceiveTimeout: cfg.ReceiveTimeout.String(),
		RenderInterval: cfg.RenderInterval.String(),
		FrameRate:      cfg.FrameRate,
		MarqueeSpeed:   cfg.MarqueeSpeed,
		LogFile:        cfg.LogFile,
		Panels:         cfg.Panels,
		Mirror: fileMirror{
			Enabled:      cfg.Mirror.Enabled,
			Addr:         cfg.Mirror.Addr,
			PushInterval: cfg.Mirror.PushInterval.String(),
		},
	}

	data, err := yaml.Marshal(fc)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}
	return data, nil
}
