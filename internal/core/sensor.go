package core

// SensorID identifies a monitored sensor channel.
type SensorID uint8

const (
	SensorSystemTick SensorID = iota
	SensorTemperature
	SensorVoltage

	sensorCount
)

var sensorNames = [sensorCount]string{
	SensorSystemTick:  "system_tick",
	SensorTemperature: "temperature",
	SensorVoltage:     "voltage",
}

// Valid reports whether s is a member of the enumeration.
func (s SensorID) Valid() bool {
	return s < sensorCount
}

func (s SensorID) String() string {
	if !s.Valid() {
		return "unknown"
	}

	return sensorNames[s]
}

// Sensors lists every known sensor channel.
func Sensors() []SensorID {
	ids := make([]SensorID, 0, sensorCount)
	for s := SensorID(0); s < sensorCount; s++ {
		ids = append(ids, s)
	}

	return ids
}
