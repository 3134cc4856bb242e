package platform

import (
	"codeberg.org/mutker/cyclectl/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	// Lifecycle Errors
	ErrNotInitialized = errors.ErrorCode("platform_not_initialized")
	ErrInitFailed     = errors.ErrorCode("platform_init_failed")
	ErrShutdownFailed = errors.ErrorCode("platform_shutdown_failed")
	ErrUnknown        = errors.ErrorCode("platform_unknown")

	// Device Errors
	ErrDeviceNotFound        = errors.ErrorCode("platform_device_not_found")
	ErrTemperatureReadFailed = errors.ErrorCode("platform_temperature_read_failed")
	ErrTemperatureLimit      = errors.ErrorCode("platform_temperature_limit_exceeded")
)

type nvmlError struct {
	ret nvml.Return
}

func (e *nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

func newNVMLError(ret nvml.Return) error {
	if ret == nvml.SUCCESS {
		return nil
	}
	return &nvmlError{ret: ret}
}

func isNVMLSuccess(ret nvml.Return) bool {
	return ret == nvml.SUCCESS
}
