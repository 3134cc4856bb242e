// Package dtc provides recorders for sensor faults reported into the
// core. Trouble codes are not persisted; recorders only acknowledge,
// log and count.
package dtc

import (
	"sync"
	"time"

	"codeberg.org/mutker/cyclectl/internal/core"
	"codeberg.org/mutker/cyclectl/internal/logger"
)

// DefaultQuietPeriod is how long a sensor must stay fault free before its
// next fault starts a new episode.
const DefaultQuietPeriod = 5 * time.Second

type LogOption func(*logRecorder)

// WithQuietPeriod sets the gap that ends a fault episode. Non-positive
// values are ignored.
func WithQuietPeriod(d time.Duration) LogOption {
	return func(r *logRecorder) {
		if d > 0 {
			r.quiet = d
		}
	}
}

// WithLogClock replaces time.Now.
func WithLogClock(now func() time.Time) LogOption {
	return func(r *logRecorder) {
		r.now = now
	}
}

type episode struct {
	last    time.Time
	repeats uint64
}

type logRecorder struct {
	log   logger.Logger
	quiet time.Duration
	now   func() time.Time

	mu       sync.Mutex
	episodes map[core.SensorID]*episode
}

// Log returns a recorder that warns on the first fault of each episode per
// sensor and logs repeats at debug level.
func Log(log logger.Logger, opts ...LogOption) core.TroubleCodeRecorder {
	r := &logRecorder{
		log:      log,
		quiet:    DefaultQuietPeriod,
		now:      time.Now,
		episodes: make(map[core.SensorID]*episode),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *logRecorder) RecordFault(sensor core.SensorID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	ep, ok := r.episodes[sensor]
	if !ok || now.Sub(ep.last) > r.quiet {
		var previous uint64
		if ok {
			previous = ep.repeats + 1
		}
		r.episodes[sensor] = &episode{last: now}
		r.log.Warn().
			Str("sensor", sensor.String()).
			Uint64("previous_episode_faults", previous).
			Msg("Sensor fault reported")
		return
	}

	ep.last = now
	ep.repeats++
	r.log.Debug().
		Str("sensor", sensor.String()).
		Uint64("repeats", ep.repeats).
		Msg("Sensor fault repeated")
}

// Multi fans a fault out to every non-nil recorder in order.
func Multi(recorders ...core.TroubleCodeRecorder) core.TroubleCodeRecorder {
	return core.RecorderFunc(func(sensor core.SensorID) {
		for _, r := range recorders {
			if r != nil {
				r.RecordFault(sensor)
			}
		}
	})
}

// Tally counts faults per sensor.
type Tally struct {
	mu     sync.Mutex
	counts map[core.SensorID]uint64
}

func NewTally() *Tally {
	return &Tally{counts: make(map[core.SensorID]uint64)}
}

func (t *Tally) RecordFault(sensor core.SensorID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[sensor]++
}

// Count returns the faults recorded for sensor.
func (t *Tally) Count(sensor core.SensorID) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[sensor]
}

// Snapshot returns a copy of all counts.
func (t *Tally) Snapshot() map[core.SensorID]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[core.SensorID]uint64, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}

	return out
}
