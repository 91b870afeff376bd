// Package config loads ecsrtctl's runtime configuration from a YAML file,
// environment variables (ECSRT_ prefixed), and command-line flags, using
// Viper for the merge.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration for an ecsrtctl process.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Wasm      WasmConfig      `yaml:"wasm"`
}

// LogConfig configures internal/logging's output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig configures ecs.ExecutionOptions defaults.
type SchedulerConfig struct {
	Parallel bool `yaml:"parallel"`
	TickHz   int  `yaml:"tick_hz" mapstructure:"tick_hz"`
}

// MetricsConfig configures the prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// WasmConfig configures the wasmhost.Host's module loading.
type WasmConfig struct {
	ModuleDir string `yaml:"module_dir" mapstructure:"module_dir"`
}

// Load merges defaults, an optional config file, ECSRT_-prefixed
// environment variables, and any flags already bound to v, returning the
// validated result.
func Load(v *viper.Viper) (*Config, error) {
	applyDefaults(v)
	v.SetEnvPrefix("ecsrt")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("scheduler.parallel", false)
	v.SetDefault("scheduler.tick_hz", 60)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("wasm.module_dir", "")
}

func validate(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug|info|warn|error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text|json", cfg.Log.Format)
	}
	if cfg.Scheduler.TickHz <= 0 {
		return fmt.Errorf("scheduler.tick_hz must be positive, got %d", cfg.Scheduler.TickHz)
	}
	return nil
}
