package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/BYTE-6D65/timemaster/pkg/countdown"
	"github.com/BYTE-6D65/timemaster/pkg/hourglass"
	"github.com/BYTE-6D65/timemaster/pkg/render"
	"github.com/BYTE-6D65/timemaster/pkg/scheduler"
	"github.com/BYTE-6D65/timemaster/pkg/stopwatch"
)

// EnvPrefix is prepended to every config key when read from the environment,
// e.g. TIMEMASTER_STOPWATCH_INTERVAL=16ms.
const EnvPrefix = "TIMEMASTER"

// Config holds all tunable parameters for timemaster.
// Values can be set via:
//  1. Command-line flags (bound into viper by the CLI)
//  2. Environment variables (TIMEMASTER_*)
//  3. A YAML config file
//
// Precedence: Flags > Env Vars > Config File > Defaults
type Config struct {
	// Sampling
	StopwatchInterval time.Duration `mapstructure:"stopwatch_interval"` // Stopwatch display refresh
	CountdownInterval time.Duration `mapstructure:"countdown_interval"` // Countdown sampler period
	FrameInterval     time.Duration `mapstructure:"frame_interval"`     // Clock face redraw period
	HourglassDuration time.Duration `mapstructure:"hourglass_duration"` // Sand run time

	// Notifications
	Sound  bool    `mapstructure:"sound"`  // Play the chime when a countdown finishes
	Volume float64 `mapstructure:"volume"` // Chime volume, base 2 (0 = unchanged)
	Bell   bool    `mapstructure:"bell"`   // Ring the terminal bell

	// Observability
	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`     // "" = discard while the TUI runs
	MetricsAddr string `mapstructure:"metrics_addr"` // "" = no /metrics endpoint

	PrefsFile string `mapstructure:"prefs_file"` // "" = XDG config dir
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		StopwatchInterval: stopwatch.DefaultInterval,
		CountdownInterval: countdown.DefaultInterval,
		FrameInterval:     render.DefaultInterval,
		HourglassDuration: hourglass.DefaultDuration,

		Sound:  true,
		Volume: 0,
		Bell:   true,

		LogLevel: "info",
	}
}

// SetDefaults registers every key's default on v. Keys must be known to viper
// for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("stopwatch_interval", d.StopwatchInterval)
	v.SetDefault("countdown_interval", d.CountdownInterval)
	v.SetDefault("frame_interval", d.FrameInterval)
	v.SetDefault("hourglass_duration", d.HourglassDuration)
	v.SetDefault("sound", d.Sound)
	v.SetDefault("volume", d.Volume)
	v.SetDefault("bell", d.Bell)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("prefs_file", d.PrefsFile)
}

// Load reads the configuration from v. Defaults and the TIMEMASTER_ env
// prefix are installed on v; if path is non-empty the YAML file is read too.
// A nil v uses a fresh viper instance.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, cfg.Validate()
}

// LoadFromEnv returns DefaultConfig overridden by any TIMEMASTER_* env vars.
func LoadFromEnv() (Config, error) {
	return Load(nil, "")
}

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks that configuration values are sensible.
func (c *Config) Validate() error {
	intervals := []struct {
		name string
		d    time.Duration
	}{
		{"stopwatch_interval", c.StopwatchInterval},
		{"countdown_interval", c.CountdownInterval},
		{"frame_interval", c.FrameInterval},
	}
	for _, iv := range intervals {
		if iv.d < scheduler.MinInterval {
			return fmt.Errorf("%w: %s must be >= %s, got %s", ErrInvalidConfig, iv.name, scheduler.MinInterval, iv.d)
		}
	}

	if c.HourglassDuration <= 0 {
		return fmt.Errorf("%w: hourglass_duration must be > 0, got %s", ErrInvalidConfig, c.HourglassDuration)
	}

	if c.Volume < -10 || c.Volume > 4 {
		return fmt.Errorf("%w: volume must be between -10 and 4, got %.2f", ErrInvalidConfig, c.Volume)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err)
	}

	return nil
}

// String returns a human-readable summary of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf(`Timemaster Configuration:
  Sampling:
    Stopwatch: %s
    Countdown: %s
    Frames:    %s
    Hourglass: %s

  Notifications:
    Sound:  %t (volume %.1f)
    Bell:   %t

  Logging:
    Level: %s
    File:  %s

  Metrics: %s
  Prefs:   %s
`,
		c.StopwatchInterval,
		c.CountdownInterval,
		c.FrameInterval,
		c.HourglassDuration,
		c.Sound, c.Volume,
		c.Bell,
		c.LogLevel,
		orDefault(c.LogFile, "discard"),
		orDefault(c.MetricsAddr, "disabled"),
		orDefault(c.PrefsFile, "xdg default"),
	)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
