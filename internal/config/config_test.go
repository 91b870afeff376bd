package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigName("nonexistent")
	v.AddConfigPath(t.TempDir())

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format)
	require.Equal(t, 60, cfg.Scheduler.TickHz)
	require.False(t, cfg.Scheduler.Parallel)
	require.False(t, cfg.Metrics.Enabled)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	v := viper.New()
	v.SetConfigName("nonexistent")
	v.AddConfigPath(t.TempDir())
	v.Set("log.level", "verbose")

	_, err := Load(v)
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveTickRate(t *testing.T) {
	v := viper.New()
	v.SetConfigName("nonexistent")
	v.AddConfigPath(t.TempDir())
	v.Set("scheduler.tick_hz", 0)

	_, err := Load(v)
	require.Error(t, err)
}
