// Package scheduler invokes the control cycle at a fixed period.
package scheduler

import (
	"context"
	"time"

	"codeberg.org/mutker/cyclectl/internal/core"
	"codeberg.org/mutker/cyclectl/internal/errors"
	"codeberg.org/mutker/cyclectl/internal/logger"
	"codeberg.org/mutker/cyclectl/internal/platform"
)

// Cycler runs one control cycle.
type Cycler interface {
	RunCycle(ctx context.Context)
}

// FaultReporter receives probe failures.
type FaultReporter interface {
	ReportSensorFault(sensor core.SensorID)
}

// Observer is told how long each cycle took.
type Observer interface {
	ObserveCycle(d time.Duration)
}

// Scheduler calls a Cycler once per period from a single goroutine.
type Scheduler struct {
	cycler   Cycler
	period   time.Duration
	log      logger.Logger
	observer Observer

	probes        []platform.Probe
	probeInterval time.Duration
	faults        FaultReporter
	probeFailing  map[core.SensorID]bool

	overruns uint64
}

type Option func(*Scheduler)

// WithObserver reports each cycle's duration to o.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// WithProbes checks probes every interval and reports failures to faults.
// A zero interval disables probing.
func WithProbes(probes []platform.Probe, interval time.Duration, faults FaultReporter) Option {
	return func(s *Scheduler) {
		s.probes = probes
		s.probeInterval = interval
		s.faults = faults
	}
}

// New builds a Scheduler. A nil log discards output.
func New(cycler Cycler, period time.Duration, log logger.Logger, opts ...Option) (*Scheduler, error) {
	errFactory := errors.New()

	if cycler == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "cycler is required")
	}
	if period <= 0 {
		return nil, errFactory.WithData(errors.ErrInvalidCycle, period)
	}

	if log == nil {
		log = logger.Nop()
	}

	s := &Scheduler{
		cycler:       cycler,
		period:       period,
		log:          log.With("scheduler"),
		probeFailing: make(map[core.SensorID]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.probes) > 0 && s.faults == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "probes need a fault reporter")
	}

	return s, nil
}

// Run executes cycles every period until ctx is done. Cycles and probe
// checks share one goroutine, so they never overlap.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	var probeC <-chan time.Time
	if len(s.probes) > 0 && s.probeInterval > 0 {
		probeTicker := time.NewTicker(s.probeInterval)
		defer probeTicker.Stop()
		probeC = probeTicker.C
	}

	s.log.Info().
		Dur("period", s.period).
		Int("probes", len(s.probes)).
		Msg("Scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Uint64("overruns", s.overruns).Msg("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.cycle(ctx)
		case <-probeC:
			s.checkProbes()
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	start := time.Now()
	s.cycler.RunCycle(ctx)
	elapsed := time.Since(start)

	if s.observer != nil {
		s.observer.ObserveCycle(elapsed)
	}

	if elapsed > s.period {
		s.overruns++
		s.log.Debug().Dur("elapsed", elapsed).Dur("period", s.period).Msg("Cycle overran its period")
	}
}

func (s *Scheduler) checkProbes() {
	for _, p := range s.probes {
		sensor := p.Sensor()
		if err := p.Check(); err != nil {
			s.faults.ReportSensorFault(sensor)
			if !s.probeFailing[sensor] {
				s.log.Warn().Err(err).Str("sensor", sensor.String()).Msg("Sensor probe failed")
				s.probeFailing[sensor] = true
			}
			continue
		}

		if s.probeFailing[sensor] {
			s.log.Info().Str("sensor", sensor.String()).Msg("Sensor probe recovered")
			s.probeFailing[sensor] = false
		}
	}
}

// Overruns returns the number of cycles that took longer than the period.
// Call it only after Run has returned.
func (s *Scheduler) Overruns() uint64 {
	return s.overruns
}
