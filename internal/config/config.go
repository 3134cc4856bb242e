package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/cyclectl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	HeartbeatInterval uint32 `mapstructure:"heartbeat_interval"`
	CycleTimeMs       uint32 `mapstructure:"cycle_time_ms"`
	MaxTick           uint32 `mapstructure:"max_tick"`
	Platform          string `mapstructure:"platform"`
	TemperatureLimit  int    `mapstructure:"temperature_limit"`
	ProbeIntervalMs   uint32 `mapstructure:"probe_interval_ms"`
	LogLevel          string `mapstructure:"log_level"`
	Telemetry         bool   `mapstructure:"telemetry"`
	TelemetryDB       string `mapstructure:"database"`
	BatchSize         int    `mapstructure:"batch_size"`
	MetricsAddr       string `mapstructure:"metrics_addr"`
	PIDDir            string `mapstructure:"pid_dir"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"heartbeat-interval": "heartbeat_interval",
	"cycle-time":         "cycle_time_ms",
	"max-tick":           "max_tick",
	"platform":           "platform",
	"temperature-limit":  "temperature_limit",
	"probe-interval":     "probe_interval_ms",
	"log-level":          "log_level",
	"telemetry":          "telemetry",
	"database":           "database",
	"batch-size":         "batch_size",
	"metrics-addr":       "metrics_addr",
	"pid-dir":            "pid_dir",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to the configuration file")
	fs.Uint32("heartbeat-interval", DefaultHeartbeatIntervalCycles, "Cycles between heartbeats")
	fs.Uint32("cycle-time", DefaultCycleTimeMs, "Cycle period in milliseconds")
	fs.Uint32("max-tick", DefaultMaxTickValue, "Largest valid tick value")
	fs.String("platform", DefaultPlatform, "Platform backend (host, nvml)")
	fs.Int("temperature-limit", DefaultTemperatureLimit, "GPU temperature fault limit in Celsius (nvml platform)")
	fs.Uint32("probe-interval", DefaultProbeIntervalMs, "Sensor probe interval in milliseconds, 0 disables probes")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Bool("telemetry", false, "Record heartbeats to the telemetry database")
	fs.String("database", DefaultTelemetryDB, "Telemetry database path")
	fs.Int("batch-size", DefaultBatchSize, "Heartbeats buffered before a database flush")
	fs.String("metrics-addr", "", "Listen address for Prometheus metrics, empty disables")
	fs.String("pid-dir", DefaultPIDDir, "Directory for the PID file")
}

// Load reads configuration from defaults, the config file, the
// environment and flags, in increasing order of precedence. flags may be nil.
func Load(flags *pflag.FlagSet, opts ...Option) (*Config, error) {
	errFactory := errors.New()
	o := options{envPrefix: EnvPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errFactory.Wrap(errors.ErrBindFlags, err)
				}
			}
		}
		if f := flags.Lookup("config"); f != nil && f.Changed && o.configPath == "" {
			o.configPath = f.Value.String()
		}
	}

	if o.configPath == "" {
		o.configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if err := readConfigFile(v, o.configPath); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("heartbeat_interval", DefaultHeartbeatIntervalCycles)
	v.SetDefault("cycle_time_ms", DefaultCycleTimeMs)
	v.SetDefault("max_tick", uint32(DefaultMaxTickValue))
	v.SetDefault("platform", DefaultPlatform)
	v.SetDefault("temperature_limit", DefaultTemperatureLimit)
	v.SetDefault("probe_interval_ms", DefaultProbeIntervalMs)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("telemetry", false)
	v.SetDefault("database", DefaultTelemetryDB)
	v.SetDefault("batch_size", DefaultBatchSize)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("pid_dir", DefaultPIDDir)
}

func readConfigFile(v *viper.Viper, path string) error {
	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}

	// The default file is optional.
	if _, err := os.Stat(DefaultConfigFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	v.SetConfigFile(DefaultConfigFile)
	return v.ReadInConfig()
}

// Validate checks every field against its allowed range.
func (c *Config) Validate() error {
	errFactory := errors.New()
	invalid := func(code errors.ErrorCode, field string, value interface{}, reason string) error {
		return errFactory.Wrap(code, &fieldError{field: field, value: value, reason: reason})
	}

	if c.HeartbeatInterval == 0 {
		return invalid(errors.ErrInvalidInterval, "heartbeat_interval", c.HeartbeatInterval, "must be positive")
	}
	if c.CycleTimeMs == 0 || c.CycleTimeMs > MaxCycleTimeMs {
		return invalid(errors.ErrInvalidCycle, "cycle_time_ms", c.CycleTimeMs, "must be in (0, 1000]")
	}
	if c.MaxTick == 0 {
		return invalid(errors.ErrInvalidConfig, "max_tick", c.MaxTick, "must be positive")
	}
	if c.Platform != "host" && c.Platform != "nvml" {
		return invalid(errors.ErrInvalidConfig, "platform", c.Platform, "must be host or nvml")
	}
	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return invalid(errors.ErrInvalidLogLevel, "log_level", c.LogLevel, "must be debug, info, warning or error")
	}
	if c.Telemetry && c.TelemetryDB == "" {
		return invalid(errors.ErrInvalidConfig, "database", c.TelemetryDB, "required when telemetry is enabled")
	}
	if c.BatchSize < 0 {
		return invalid(errors.ErrInvalidConfig, "batch_size", c.BatchSize, "must not be negative")
	}

	return nil
}

// CycleTime returns the scheduling period.
func (c *Config) CycleTime() time.Duration {
	return time.Duration(c.CycleTimeMs) * time.Millisecond
}

// ProbeInterval returns the sensor probe period, zero when disabled.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalMs) * time.Millisecond
}
