package telemetry

import "codeberg.org/mutker/cyclectl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("telemetry_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("telemetry_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("telemetry_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("telemetry_schema_migration_failed")
	ErrSchemaVersionMismatch  = errors.ErrorCode("telemetry_schema_version_mismatch")
	ErrTransactionFailed      = errors.ErrorCode("telemetry_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("telemetry_storage_access_failed")
	ErrStorageInit   = errors.ErrInitTelemetry
	ErrStorageClose  = errors.ErrCloseTelemetry

	// Service Errors
	ErrServiceShutdown = errors.ErrShutdownFailed
	ErrClosed          = errors.ErrorCode("telemetry_closed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
