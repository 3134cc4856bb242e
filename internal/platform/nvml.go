package platform

import (
	"sync"

	"codeberg.org/mutker/cyclectl/internal/core"
	"codeberg.org/mutker/cyclectl/internal/errors"
	"codeberg.org/mutker/cyclectl/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// temperatureReader is the subset of nvml.Device the probe needs.
type temperatureReader interface {
	GetTemperature(sensorType nvml.TemperatureSensors) (uint32, nvml.Return)
}

// NVML is a Host platform that also watches the first GPU's temperature.
type NVML struct {
	*Host
	limit int
	log   logger.Logger

	mu          sync.Mutex
	device      nvml.Device
	initialized bool
}

func NewNVML(log logger.Logger, temperatureLimit int, opts ...HostOption) *NVML {
	return &NVML{
		Host:  NewHost(log, opts...),
		limit: temperatureLimit,
		log:   log,
	}
}

func (n *NVML) Init() error {
	errFactory := errors.New()
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.initialized {
		return nil
	}

	if ret := nvml.Init(); !isNVMLSuccess(ret) {
		return errFactory.Wrap(ErrInitFailed, newNVMLError(ret))
	}

	device, ret := nvml.DeviceGetHandleByIndex(0)
	if !isNVMLSuccess(ret) {
		nvml.Shutdown()
		return errFactory.Wrap(ErrDeviceNotFound, newNVMLError(ret))
	}

	if name, ret := device.GetName(); isNVMLSuccess(ret) {
		n.log.Info().Msgf("Detected GPU: %v", name)
	} else {
		n.log.Warn().Msgf("Failed to get GPU name: %v", nvml.ErrorString(ret))
	}

	if err := n.Host.Init(); err != nil {
		nvml.Shutdown()
		return err
	}

	n.device = device
	n.initialized = true

	return nil
}

func (n *NVML) Shutdown() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return nil
	}

	n.initialized = false
	_ = n.Host.Shutdown()

	if ret := nvml.Shutdown(); !isNVMLSuccess(ret) {
		return errors.New().Wrap(ErrShutdownFailed, newNVMLError(ret))
	}

	return nil
}

func (n *NVML) Probes() []Probe {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return nil
	}

	return []Probe{newTemperatureProbe(n.device, n.limit)}
}

func newTemperatureProbe(dev temperatureReader, limit int) Probe {
	return NewProbe(core.SensorTemperature, func() error {
		errFactory := errors.New()

		temp, ret := dev.GetTemperature(nvml.TEMPERATURE_GPU)
		if !isNVMLSuccess(ret) {
			return errFactory.Wrap(ErrTemperatureReadFailed, newNVMLError(ret))
		}

		if limit > 0 && int(temp) >= limit {
			return errFactory.WithData(ErrTemperatureLimit, struct {
				Temperature int
				Limit       int
			}{
				Temperature: int(temp),
				Limit:       limit,
			})
		}

		return nil
	})
}
