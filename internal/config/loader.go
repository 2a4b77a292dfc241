// Package config loads core.PipelineConfig from a YAML file via viper,
// with HIGHWAY_EVENT_-prefixed environment variable overrides — the same
// viper/mapstructure loading shape the teacher repo uses for its own
// config surface.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
)

const envPrefix = "HIGHWAY_EVENT"

// Load reads path (YAML), applies environment overrides prefixed
// HIGHWAY_EVENT_, fills zero-valued tunables with their documented
// defaults, and validates the stage-dependency rules.
func Load(path string) (*core.PipelineConfig, error) {
	v := viper.New()

	dir := filepath.Dir(path)
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	v.SetConfigName(strings.TrimSuffix(filename, ext))
	v.SetConfigType(strings.TrimPrefix(ext, "."))
	v.AddConfigPath(dir)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg core.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LogConfig is the logging surface internal/log decodes alongside the
// pipeline config — kept separate because it is consumed by the process
// bootstrap (cmd), not by the core. Mirrors the teacher's own logger
// config shape: a level, a handler format, and a list of fan-out outputs.
type LogConfig struct {
	Level   string         `mapstructure:"level"`
	Format  string         `mapstructure:"format"`
	Outputs []OutputConfig `mapstructure:"outputs"`
}

// OutputConfig configures one log sink: console, a lumberjack-rotated
// file, or a Loki push endpoint.
type OutputConfig struct {
	Type string `mapstructure:"type"`

	// file
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`

	// loki
	Endpoint      string            `mapstructure:"endpoint"`
	Labels        map[string]string `mapstructure:"labels"`
	BatchSize     int               `mapstructure:"batch_size"`
	FlushInterval string            `mapstructure:"flush_interval"`
}

// LoadLogConfig reads the `log:` section of the same file Load reads the
// pipeline config from.
func LoadLogConfig(path string) (*LogConfig, error) {
	v := viper.New()
	dir := filepath.Dir(path)
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	v.SetConfigName(strings.TrimSuffix(filename, ext))
	v.SetConfigType(strings.TrimPrefix(ext, "."))
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &LogConfig{Level: "info"}
	if err := v.UnmarshalKey("log", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal log section: %w", err)
	}
	return cfg, nil
}
