package monitor

import (
	"context"

	"codeberg.org/mutker/cyclectl/internal/errors"
	"codeberg.org/mutker/cyclectl/internal/logger"
)

// LogSink writes each heartbeat as an info log line.
type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(_ context.Context, hb Heartbeat) error {
	s.log.Info().
		Str("tick", hb.Tick.String()).
		Uint64("cycles", hb.CycleCount).
		Str("session", hb.Session).
		Msg("Heartbeat")

	return nil
}

// MultiSink emits to every sink, even after one fails, and joins the errors.
type MultiSink []HeartbeatSink

func (m MultiSink) Emit(ctx context.Context, hb Heartbeat) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Emit(ctx, hb); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
