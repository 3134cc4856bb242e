package metrics

import "codeberg.org/mutker/cyclectl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidAddr   = errors.ErrorCode("metrics_invalid_addr")

	// Registration Errors
	ErrRegister = errors.ErrorCode("metrics_register_failed")

	// Server Errors
	ErrListen          = errors.ErrInitMetrics
	ErrServe           = errors.ErrorCode("metrics_serve_failed")
	ErrServiceShutdown = errors.ErrShutdownFailed
)
