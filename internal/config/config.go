// Package config loads host settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ironsheep/image-filter-host/internal/plugin"
)

const (
	// SupportedSchema is the only schema_version accepted in config files.
	SupportedSchema = "v1"

	// EnvPrefix prefixes every environment override. Nested keys are joined
	// with a double underscore, e.g. IMAGE_FILTER__LOG__LEVEL=debug.
	EnvPrefix = "IMAGE_FILTER__"

	// DefaultFile is read when no path is given and the file exists in the
	// working directory.
	DefaultFile = "image-filter.yaml"

	// DefaultPluginDir is the plugin directory relative to the working
	// directory.
	DefaultPluginDir = "plugins"
)

// LogCfg selects the log level and handler format.
type LogCfg struct {
	Level string `koanf:"level" yaml:"level"` // debug|info|warn|error
	JSON  bool   `koanf:"json" yaml:"json"`
}

// MetricsCfg says where metrics go. Both fields are optional.
type MetricsCfg struct {
	Textfile string `koanf:"textfile" yaml:"textfile,omitempty"` // write after a one-shot run
	Addr     string `koanf:"addr" yaml:"addr,omitempty"`         // serve /metrics in serve mode
}

// Config is the host configuration after file, environment and defaults
// have been merged.
type Config struct {
	SchemaVersion string     `koanf:"schema_version" yaml:"schema_version"`
	PluginDir     string     `koanf:"plugin_dir" yaml:"plugin_dir"`
	Mode          string     `koanf:"mode" yaml:"mode"` // native|builtin|auto
	Log           LogCfg     `koanf:"log" yaml:"log"`
	Metrics       MetricsCfg `koanf:"metrics" yaml:"metrics"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	var c Config
	applyDefaults(&c)
	return c
}

// Load merges YAML (if present) with env-vars and applies defaults.
//
// An explicit path must exist. An empty path reads DefaultFile when it is
// present and otherwise starts from defaults alone.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	src, required := path, true
	if src == "" {
		src, required = DefaultFile, false
	}
	if err := k.Load(file.Provider(src), yaml.Parser()); err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read config %s: %w", src, err)
		}
	}

	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Config{}, fmt.Errorf("config schema_version %q not supported (want %s)", sv, SupportedSchema)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps IMAGE_FILTER__LOG__LEVEL to log.level.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func applyDefaults(c *Config) {
	if c.SchemaVersion == "" {
		c.SchemaVersion = SupportedSchema
	}
	if c.PluginDir == "" {
		c.PluginDir = DefaultPluginDir
	}
	if c.Mode == "" {
		c.Mode = string(plugin.ModeNative)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	if _, err := plugin.ParseMode(c.Mode); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (want debug, info, warn or error)", c.Log.Level)
	}
	return nil
}

// PluginMode returns the validated registry mode.
func (c Config) PluginMode() plugin.Mode {
	m, err := plugin.ParseMode(c.Mode)
	if err != nil {
		return plugin.ModeNative
	}
	return m
}

// YAML renders the effective configuration in the file format Load reads.
func (c Config) YAML() ([]byte, error) {
	return yamlv3.Marshal(c)
}
