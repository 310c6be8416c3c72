package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/labdash/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "labdash.yaml"
	// GlobalConfigDir is the directory for the per-user config.
	GlobalConfigDir = ".config/labdash"
	// GlobalConfigFile is the per-user config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. LABDASH_POLL_INTERVAL.
	EnvPrefix = "LABDASH"
)

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'labdash init' to create a config file, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. labdash.yaml in current directory
// 3. ~/.config/labdash/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if home, _ := os.UserHomeDir(); home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults if not found.
// Environment overrides apply in both cases.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return parseConfig(newViper(), "")
	}

	return Load(path)
}

// newViper builds a viper instance with defaults and env overrides wired.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers scalar defaults so env overrides are visible to
// Unmarshal even when the file does not mention the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", CurrentConfigVersion)
	v.SetDefault("title", DefaultTitle)
	v.SetDefault("buffer_capacity", DefaultBufferCapacity)
	v.SetDefault("poll_interval", DefaultPollInterval.String())
	v.SetDefault("receive_timeout", DefaultReceiveTimeout.String())
	v.SetDefault("render_interval", DefaultRenderInterval.String())
	v.SetDefault("frame_rate", DefaultFrameRate)
	v.SetDefault("marquee_speed", DefaultMarqueeSpeed)
	v.SetDefault("log_file", "")
	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.addr", DefaultMirrorAddr)
	v.SetDefault("mirror.push_interval", DefaultPushInterval.String())
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	// A configured panel list replaces the stock layout instead of being
	// merged element by element into it.
	if v.IsSet("panels") {
		cfg.Panels = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		source := path
		if source == "" {
			source = "the environment"
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+source)
	}

	cfg.LogFile = ExpandTilde(cfg.LogFile)
	for i := range cfg.Panels {
		for _, src := range []*SourceConfig{cfg.Panels[i].Host, cfg.Panels[i].GPU} {
			if src == nil {
				continue
			}
			src.Mode = strings.ToLower(strings.TrimSpace(src.Mode))
			if src.Mode == "" {
				src.Mode = ModeListen
			}
		}
		if host := cfg.Panels[i].Host; host != nil && host.TopProcesses == 0 {
			host.TopProcesses = DefaultTopProcesses
		}
	}

	return cfg, nil
}
