package metrics

import "codeberg.org/mutker/cyclectl/internal/errors"

const (
	namespace = "cyclectl"

	// Cycle durations are expected well below the 10ms period.
	cycleBucketStart  = 0.00001
	cycleBucketFactor = 2
	cycleBucketCount  = 14
)

type Config struct {
	Enabled bool
	Addr    string
}

func DefaultConfig() Config {
	return Config{
		Enabled: false, // Disabled by default
	}
}

func (c Config) Validate() error {
	if c.Enabled && c.Addr == "" {
		return errors.New().New(ErrInvalidAddr)
	}
	return nil
}
