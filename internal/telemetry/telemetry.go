// Package telemetry records heartbeats to a local sqlite database.
package telemetry

import (
	"context"

	"codeberg.org/mutker/cyclectl/internal/errors"
	"codeberg.org/mutker/cyclectl/internal/logger"
	"codeberg.org/mutker/cyclectl/internal/monitor"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopStore struct{}

// NewService opens the heartbeat store, or returns a no-op store when
// telemetry is disabled.
func NewService(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Telemetry disabled, using no-op store")
		return &noopStore{}, nil
	}

	repo, err := NewRepository(cfg, log.With("telemetry"))
	if err != nil {
		return nil, err
	}

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Emit(ctx context.Context, hb monitor.Heartbeat) error {
	errFactory := errors.New()

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(hb); err != nil {
			return errFactory.Wrap(ErrStorageAccess, err)
		}
	}

	return nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]monitor.Heartbeat, error) {
	return s.repo.Recent(ctx, limit)
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrServiceShutdown, err)
	}
	return nil
}

func (*noopStore) Emit(_ context.Context, _ monitor.Heartbeat) error {
	return nil
}

func (*noopStore) Recent(_ context.Context, _ int) ([]monitor.Heartbeat, error) {
	return nil, nil
}

func (*noopStore) Close() error {
	return nil
}
