package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/labdash/internal/errors"
)

// Limits enforced by Validate.
const (
	MinBufferCapacity = 2
	MaxBufferCapacity = 100000
	MaxFrameRate      = 240
	MaxGPUsPerSource  = 16
	MinPollInterval   = 100 * time.Millisecond
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but labdash only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade labdash or lower the version field.")
	}

	if err := validateTiming(cfg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the timing settings in labdash.yaml.")
	}

	if err := validatePanels(cfg.Panels); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'panels' section in labdash.yaml.")
	}

	if err := validateMirror(cfg.Mirror); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'mirror' section in labdash.yaml.")
	}

	return nil
}

func validateTiming(cfg *Config) error {
	if cfg.BufferCapacity < MinBufferCapacity || cfg.BufferCapacity > MaxBufferCapacity {
		return fmt.Errorf("buffer_capacity must be between %d and %d, got %d", MinBufferCapacity, MaxBufferCapacity, cfg.BufferCapacity)
	}
	if cfg.PollInterval < MinPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", MinPollInterval, cfg.PollInterval)
	}
	if cfg.ReceiveTimeout <= 0 {
		return fmt.Errorf("receive_timeout must be positive, got %s", cfg.ReceiveTimeout)
	}
	if cfg.RenderInterval <= 0 {
		return fmt.Errorf("render_interval must be positive, got %s", cfg.RenderInterval)
	}
	if cfg.FrameRate < 1 || cfg.FrameRate > MaxFrameRate {
		return fmt.Errorf("frame_rate must be between 1 and %d, got %d", MaxFrameRate, cfg.FrameRate)
	}
	if cfg.MarqueeSpeed < 0 {
		return fmt.Errorf("marquee_speed cannot be negative")
	}
	return nil
}

func validatePanels(panels []PanelConfig) error {
	if len(panels) == 0 {
		return fmt.Errorf("at least one panel is required")
	}

	names := make(map[string]bool)
	endpoints := make(map[string]string)

	for i, p := range panels {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("panel #%d has no name", i+1)
		}
		if strings.Contains(name, "/") {
			return fmt.Errorf("panel name '%s' cannot contain '/'", name)
		}
		if names[name] {
			return fmt.Errorf("panel name '%s' is used twice", name)
		}
		names[name] = true

		if p.Host == nil && p.GPU == nil {
			return fmt.Errorf("panel '%s' needs a host or gpu source", name)
		}

		for _, ref := range []struct {
			label string
			src   *SourceConfig
		}{{"host", p.Host}, {"gpu", p.GPU}} {
			if ref.src == nil {
				continue
			}
			where := name + "." + ref.label
			if err := validateSource(where, ref.label, ref.src); err != nil {
				return err
			}
			if ref.src.Mode != ModeListen {
				continue
			}
			key := net.JoinHostPort(ref.src.Bind, strconv.Itoa(ref.src.Port))
			if other, dup := endpoints[key]; dup {
				return fmt.Errorf("%s and %s both listen on %s", other, where, key)
			}
			endpoints[key] = where
		}
	}
	return nil
}

func validateSource(where, kind string, src *SourceConfig) error {
	switch src.Mode {
	case ModeListen:
		if src.Port < 1 || src.Port > 65535 {
			return fmt.Errorf("%s: port must be between 1 and 65535, got %d", where, src.Port)
		}
	case ModeLocal:
	default:
		return fmt.Errorf("%s: mode must be '%s' or '%s', got '%s'", where, ModeListen, ModeLocal, src.Mode)
	}

	if kind == "gpu" && (src.GPUs < 0 || src.GPUs > MaxGPUsPerSource) {
		return fmt.Errorf("%s: gpus must be between 1 and %d, got %d", where, MaxGPUsPerSource, src.GPUs)
	}
	if src.TopProcesses < 0 {
		return fmt.Errorf("%s: top_processes cannot be negative", where)
	}
	return nil
}

func validateMirror(m MirrorConfig) error {
	if !m.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(m.Addr); err != nil {
		return fmt.Errorf("mirror.addr '%s' is not host:port: %v", m.Addr, err)
	}
	if m.PushInterval <= 0 {
		return fmt.Errorf("mirror.push_interval must be positive, got %s", m.PushInterval)
	}
	return nil
}
