package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/cyclectl/internal/config"
	"codeberg.org/mutker/cyclectl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cyclectl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestBuildTimeDefaults(t *testing.T) {
	assert.Greater(t, config.DefaultHeartbeatIntervalCycles, 0)
	assert.Greater(t, config.DefaultCycleTimeMs, 0)
	assert.LessOrEqual(t, config.DefaultCycleTimeMs, 1000)
	assert.EqualValues(t, uint32(0xFFFFFFFF), uint32(config.DefaultMaxTickValue))
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
heartbeat_interval = 50
cycle_time_ms = 20
max_tick = 100000
platform = "host"
log_level = "debug"
telemetry = true
database = "/path/to/heartbeats.db"
batch_size = 3
metrics_addr = ":9100"
`)
	t.Setenv("CYCLECTL_CONFIG", path)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.EqualValues(t, 50, cfg.HeartbeatInterval)
	assert.EqualValues(t, 20, cfg.CycleTimeMs)
	assert.EqualValues(t, 100000, cfg.MaxTick)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Telemetry)
	assert.Equal(t, "/path/to/heartbeats.db", cfg.TelemetryDB)
	assert.Equal(t, 3, cfg.BatchSize)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, 20*time.Millisecond, cfg.CycleTime())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CYCLECTL_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	_, err := config.Load(nil)
	require.Error(t, err, "an explicit config path must exist")

	cfg, err := config.Load(nil, config.WithConfigFile(writeConfig(t, "")))
	require.NoError(t, err)

	assert.EqualValues(t, config.DefaultHeartbeatIntervalCycles, cfg.HeartbeatInterval)
	assert.EqualValues(t, config.DefaultCycleTimeMs, cfg.CycleTimeMs)
	assert.EqualValues(t, uint32(config.DefaultMaxTickValue), cfg.MaxTick)
	assert.Equal(t, config.DefaultPlatform, cfg.Platform)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.False(t, cfg.Telemetry)
	assert.Equal(t, time.Second, cfg.ProbeInterval())
}

func TestDefaultConfigFileIsOptional(t *testing.T) {
	if _, err := os.Stat(config.DefaultConfigFile); err == nil {
		t.Skipf("%s exists on this host", config.DefaultConfigFile)
	}
	t.Setenv("CYCLECTL_CONFIG", "")

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.EqualValues(t, config.DefaultHeartbeatIntervalCycles, cfg.HeartbeatInterval)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	path := writeConfig(t, "This is not a valid TOML file\n")

	_, err := config.Load(nil, config.WithConfigFile(path))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "cycle_time_ms = 20\n")
	t.Setenv("CYCLECTL_CYCLE_TIME_MS", "40")

	cfg, err := config.Load(nil, config.WithConfigFile(path))
	require.NoError(t, err)
	assert.EqualValues(t, 40, cfg.CycleTimeMs)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("CYCLECTL_HEARTBEAT_INTERVAL", "7")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--heartbeat-interval", "9", "--log-level", "warning"}))

	cfg, err := config.Load(fs, config.WithConfigFile(writeConfig(t, "")))
	require.NoError(t, err)
	assert.EqualValues(t, 9, cfg.HeartbeatInterval)
	assert.Equal(t, "warning", cfg.LogLevel)
}

func TestConfigFlag(t *testing.T) {
	path := writeConfig(t, "heartbeat_interval = 12\n")
	t.Setenv("CYCLECTL_CONFIG", "")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path}))

	cfg, err := config.Load(fs)
	require.NoError(t, err)
	assert.EqualValues(t, 12, cfg.HeartbeatInterval)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			HeartbeatInterval: 1000,
			CycleTimeMs:       10,
			MaxTick:           1 << 20,
			Platform:          "host",
			LogLevel:          "info",
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		code   errors.ErrorCode
		field  string
	}{
		{"zero interval", func(c *config.Config) { c.HeartbeatInterval = 0 }, errors.ErrInvalidInterval, "heartbeat_interval"},
		{"zero cycle", func(c *config.Config) { c.CycleTimeMs = 0 }, errors.ErrInvalidCycle, "cycle_time_ms"},
		{"cycle over limit", func(c *config.Config) { c.CycleTimeMs = 1001 }, errors.ErrInvalidCycle, "cycle_time_ms"},
		{"zero max tick", func(c *config.Config) { c.MaxTick = 0 }, errors.ErrInvalidConfig, "max_tick"},
		{"unknown platform", func(c *config.Config) { c.Platform = "esp32" }, errors.ErrInvalidConfig, "platform"},
		{"bad log level", func(c *config.Config) { c.LogLevel = "invalid" }, errors.ErrInvalidLogLevel, "log_level"},
		{"telemetry without db", func(c *config.Config) { c.Telemetry = true }, errors.ErrInvalidConfig, "database"},
		{"negative batch", func(c *config.Config) { c.BatchSize = -1 }, errors.ErrInvalidConfig, "batch_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code))

			var ve config.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field())
			assert.NotEmpty(t, ve.Reason())
		})
	}

	cfg := valid()
	cfg.CycleTimeMs = config.MaxCycleTimeMs
	assert.NoError(t, cfg.Validate())
}

func TestInvalidLogLevelFromFile(t *testing.T) {
	path := writeConfig(t, `log_level = "invalid"`+"\n")

	_, err := config.Load(nil, config.WithConfigFile(path))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}
