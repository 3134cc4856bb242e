package monitor

import (
	"context"
	"time"

	"codeberg.org/mutker/cyclectl/internal/core"
)

// Heartbeat is the liveness observation emitted every interval cycles.
type Heartbeat struct {
	Tick       core.OptionalTick
	CycleCount uint64
	Timestamp  time.Time
	Session    string
}

// HeartbeatSink receives heartbeats. Emit is called from the cycle
// goroutine and should return quickly.
type HeartbeatSink interface {
	Emit(ctx context.Context, hb Heartbeat) error
}

// SinkFunc adapts a function to HeartbeatSink.
type SinkFunc func(ctx context.Context, hb Heartbeat) error

func (f SinkFunc) Emit(ctx context.Context, hb Heartbeat) error {
	return f(ctx, hb)
}

// Option configures a Service.
type Option func(*Service)

// WithInterval sets the number of cycles between heartbeats.
func WithInterval(cycles uint32) Option {
	return func(s *Service) {
		s.interval = cycles
	}
}

// WithMaxTick sets the largest tick accepted from the tick source.
func WithMaxTick(maxTick core.Tick) Option {
	return func(s *Service) {
		s.maxTick = maxTick
	}
}

// WithClock replaces time.Now for heartbeat timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSession stamps every heartbeat with id.
func WithSession(id string) Option {
	return func(s *Service) {
		s.session = id
	}
}
