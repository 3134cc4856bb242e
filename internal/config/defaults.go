package config

import "math"

// Build-time defaults.
const (
	DefaultHeartbeatIntervalCycles = 1000
	DefaultCycleTimeMs             = 10
	MaxCycleTimeMs                 = 1000
	DefaultMaxTickValue            = math.MaxUint32

	DefaultPlatform         = "host"
	DefaultTemperatureLimit = 90
	DefaultProbeIntervalMs  = 1000
	DefaultLogLevel         = "info"
	DefaultTelemetryDB      = "/var/lib/cyclectl/heartbeats.db"
	DefaultBatchSize        = 10
	DefaultPIDDir           = "/run"
	DefaultConfigFile       = "/etc/cyclectl.toml"
	EnvPrefix               = "CYCLECTL"
)

// Each constant below fails to compile when its bound is violated:
// a negative untyped constant cannot be converted to uint.
const (
	_ uint = DefaultHeartbeatIntervalCycles - 1   // interval > 0
	_ uint = DefaultCycleTimeMs - 1               // cycle time > 0
	_ uint = MaxCycleTimeMs - DefaultCycleTimeMs  // cycle time <= 1000
	_ uint = math.MaxUint32 - DefaultMaxTickValue // fits the tick width
)
