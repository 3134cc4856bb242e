// Package monitor drives one control cycle: it samples the tick source,
// feeds the core and emits a heartbeat every fixed number of cycles.
package monitor

import (
	"context"
	"math"
	"sync"
	"time"

	"codeberg.org/mutker/cyclectl/internal/core"
	"codeberg.org/mutker/cyclectl/internal/errors"
	"codeberg.org/mutker/cyclectl/internal/logger"
	"codeberg.org/mutker/cyclectl/internal/platform"
)

// DefaultInterval is the heartbeat interval in cycles when none is set.
const DefaultInterval = 1000

// Service runs control cycles against a core and emits heartbeats. Calls
// to RunCycle are serialized.
type Service struct {
	core     *core.Core
	ticks    platform.TickSource
	sink     HeartbeatSink
	log      logger.Logger
	interval uint32
	maxTick  core.Tick
	now      func() time.Time
	session  string

	mu         sync.Mutex
	counter    uint32
	heartbeats uint64
	sinkErrors uint64
	tickFault  bool
}

// New builds a Service. A nil sink logs heartbeats through log.
func New(c *core.Core, ticks platform.TickSource, sink HeartbeatSink, log logger.Logger, opts ...Option) (*Service, error) {
	errFactory := errors.New()

	if c == nil || ticks == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "core and tick source are required")
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Service{
		core:     c,
		ticks:    ticks,
		sink:     sink,
		log:      log.With("monitor"),
		interval: DefaultInterval,
		maxTick:  math.MaxUint32,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.interval == 0 {
		return nil, errFactory.WithData(errors.ErrInvalidInterval, s.interval)
	}
	if s.sink == nil {
		s.sink = NewLogSink(s.log)
	}

	return s, nil
}

// RunCycle performs one cycle. It never fails: a tick source error or an
// out of range tick runs the core with an absent tick and is reported as
// a system tick fault, and sink errors are logged.
func (s *Service) RunCycle(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.core.Run(s.sample())

	s.counter++
	if s.counter < s.interval {
		return
	}
	s.counter = 0
	s.heartbeats++

	tick, cycles := s.core.Snapshot()
	hb := Heartbeat{
		Tick:       tick,
		CycleCount: cycles,
		Timestamp:  s.now(),
		Session:    s.session,
	}

	if err := s.sink.Emit(ctx, hb); err != nil {
		s.sinkErrors++
		s.log.Warn().Err(err).Uint64("cycles", cycles).Msg("Failed to emit heartbeat")
	}
}

func (s *Service) sample() core.OptionalTick {
	errFactory := errors.New()

	tick, err := s.ticks.Tick()
	if err == nil && tick > s.maxTick {
		err = errFactory.WithData(errors.ErrTickRange, tick)
	}

	if err != nil {
		if !s.tickFault {
			s.log.Warn().Err(err).Msg("Tick source fault, keeping last tick")
			s.tickFault = true
		}
		s.core.ReportSensorFault(core.SensorSystemTick)

		return core.Absent()
	}

	if s.tickFault {
		s.log.Info().Uint32("tick", uint32(tick)).Msg("Tick source recovered")
		s.tickFault = false
	}

	return core.Present(tick)
}

// HeartbeatCounter returns the cycles counted toward the next heartbeat.
func (s *Service) HeartbeatCounter() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Heartbeats returns the number of heartbeats emitted.
func (s *Service) Heartbeats() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeats
}

// SinkErrors returns the number of failed heartbeat emissions.
func (s *Service) SinkErrors() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sinkErrors
}

// Interval returns the configured heartbeat interval in cycles.
func (s *Service) Interval() uint32 {
	return s.interval
}

// Core returns the application core the service drives.
func (s *Service) Core() *core.Core {
	return s.core
}
