package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 16*time.Millisecond, cfg.StopwatchInterval)
	assert.Equal(t, 200*time.Millisecond, cfg.CountdownInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, 30*time.Second, cfg.HourglassDuration)
	assert.True(t, cfg.Sound)
	assert.True(t, cfg.Bell)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("TIMEMASTER_STOPWATCH_INTERVAL", "10ms")
	t.Setenv("TIMEMASTER_COUNTDOWN_INTERVAL", "100ms")
	t.Setenv("TIMEMASTER_SOUND", "false")
	t.Setenv("TIMEMASTER_VOLUME", "-1.5")
	t.Setenv("TIMEMASTER_LOG_LEVEL", "debug")
	t.Setenv("TIMEMASTER_METRICS_ADDR", "127.0.0.1:9091")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.StopwatchInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.CountdownInterval)
	assert.False(t, cfg.Sound)
	assert.Equal(t, -1.5, cfg.Volume)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9091", cfg.MetricsAddr)
	assert.Equal(t, 50*time.Millisecond, cfg.FrameInterval, "untouched keys keep defaults")
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparseable duration", "TIMEMASTER_FRAME_INTERVAL", "soon"},
		{"interval too small", "TIMEMASTER_COUNTDOWN_INTERVAL", "10us"},
		{"non-numeric volume", "TIMEMASTER_VOLUME", "loud"},
		{"volume out of range", "TIMEMASTER_VOLUME", "9"},
		{"unknown log level", "TIMEMASTER_LOG_LEVEL", "chatty"},
		{"zero hourglass", "TIMEMASTER_HOURGLASS_DURATION", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timemaster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
countdown_interval: 250ms
hourglass_duration: 1m
bell: false
volume: -2
`), 0o644))

	cfg, err := Load(nil, path)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.CountdownInterval)
	assert.Equal(t, time.Minute, cfg.HourglassDuration)
	assert.False(t, cfg.Bell)
	assert.Equal(t, -2.0, cfg.Volume)
	assert.True(t, cfg.Sound)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timemaster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o644))
	t.Setenv("TIMEMASTER_LOG_LEVEL", "error")

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_ExplicitValueBeatsEnv(t *testing.T) {
	t.Setenv("TIMEMASTER_LOG_LEVEL", "error")

	v := viper.New()
	v.Set("log_level", "debug")

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"stopwatch interval", func(c *Config) { c.StopwatchInterval = 0 }},
		{"frame interval", func(c *Config) { c.FrameInterval = -time.Second }},
		{"hourglass", func(c *Config) { c.HourglassDuration = 0 }},
		{"volume", func(c *Config) { c.Volume = -11 }},
		{"log level", func(c *Config) { c.LogLevel = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()

	assert.Contains(t, s, "Countdown: 200ms")
	assert.Contains(t, s, "File:  discard")
	assert.Contains(t, s, "Metrics: disabled")
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tm.log")

	cfg := DefaultConfig()
	cfg.LogFile = path
	logger, closeLog, err := NewLogger(cfg)
	require.NoError(t, err)

	logger.Info("hello", "k", "v")
	logger.Debug("hidden")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.NotContains(t, string(data), "hidden")
}

func TestNewLogger_DiscardsWithoutFile(t *testing.T) {
	logger, closeLog, err := NewLogger(DefaultConfig())
	require.NoError(t, err)
	logger.Info("nowhere")
	assert.NoError(t, closeLog())
}

func TestNewLogger_BadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "loudest"
	_, _, err := NewLogger(cfg)
	assert.Error(t, err)
}
