package telemetry

import (
	"context"

	"codeberg.org/mutker/cyclectl/internal/monitor"
)

// Store persists heartbeats and reads them back
type Store interface {
	monitor.HeartbeatSink
	Recent(ctx context.Context, limit int) ([]monitor.Heartbeat, error)
	Close() error
}

// Repository defines the interface for heartbeat storage
type Repository interface {
	Record(hb monitor.Heartbeat) error
	Recent(ctx context.Context, limit int) ([]monitor.Heartbeat, error)
	Close() error
}

// Reader reads heartbeats without writing or migrating
type Reader interface {
	Recent(ctx context.Context, limit int) ([]monitor.Heartbeat, error)
	Close() error
}
