package core

// TroubleCodeRecorder receives sensor faults reported into the core.
// Implementations must be safe to call from the cycle goroutine and
// must not block.
type TroubleCodeRecorder interface {
	RecordFault(sensor SensorID)
}

// RecorderFunc adapts a function to TroubleCodeRecorder.
type RecorderFunc func(sensor SensorID)

func (f RecorderFunc) RecordFault(sensor SensorID) {
	f(sensor)
}

// acknowledger accepts faults and does nothing else.
type acknowledger struct{}

func (acknowledger) RecordFault(SensorID) {}

// Option configures a Core.
type Option func(*Core)

// WithRecorder sets the recorder that ReportSensorFault forwards to.
// A nil recorder keeps the default acknowledger.
func WithRecorder(r TroubleCodeRecorder) Option {
	return func(c *Core) {
		if r != nil {
			c.recorder = r
		}
	}
}
