// Package platform provides the tick source and platform initialization
// the cycle depends on.
package platform

import (
	"codeberg.org/mutker/cyclectl/internal/config"
	"codeberg.org/mutker/cyclectl/internal/core"
	"codeberg.org/mutker/cyclectl/internal/errors"
	"codeberg.org/mutker/cyclectl/internal/logger"
)

// New selects the platform named in cfg.
func New(cfg *config.Config, log logger.Logger) (Platform, error) {
	maxTick := WithMaxTick(core.Tick(cfg.MaxTick))

	switch cfg.Platform {
	case "host", "":
		return NewHost(log, maxTick), nil
	case "nvml":
		return NewNVML(log, cfg.TemperatureLimit, maxTick), nil
	default:
		return nil, errors.New().WithData(ErrUnknown, cfg.Platform)
	}
}
