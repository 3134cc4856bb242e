package platform

import "codeberg.org/mutker/cyclectl/internal/core"

// TickSource supplies the current platform tick.
type TickSource interface {
	Tick() (core.Tick, error)
}

// Probe checks the health of one sensor channel.
type Probe interface {
	Sensor() core.SensorID
	Check() error
}

// Platform is the hardware abstraction the cycle runs on. Init must
// complete before the first Tick.
type Platform interface {
	TickSource
	Init() error
	Shutdown() error
	Probes() []Probe
}

type probeFunc struct {
	sensor core.SensorID
	check  func() error
}

func (p probeFunc) Sensor() core.SensorID { return p.sensor }
func (p probeFunc) Check() error          { return p.check() }

// NewProbe builds a Probe from a check function.
func NewProbe(sensor core.SensorID, check func() error) Probe {
	return probeFunc{sensor: sensor, check: check}
}
