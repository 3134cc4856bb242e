package platform

import (
	"math"
	"sync"
	"time"

	"codeberg.org/mutker/cyclectl/internal/core"
	"codeberg.org/mutker/cyclectl/internal/errors"
	"codeberg.org/mutker/cyclectl/internal/logger"
)

// DefaultTickPeriod is the duration of one tick.
const DefaultTickPeriod = time.Millisecond

// Host derives ticks from the monotonic clock: the number of tick periods
// elapsed since Init, wrapping after maxTick.
type Host struct {
	period  time.Duration
	maxTick core.Tick
	now    func() time.Time
	log    logger.Logger

	mu          sync.RWMutex
	start       time.Time
	initialized bool
}

type HostOption func(*Host)

// WithMaxTick sets the largest tick value; the counter wraps to zero after
// it. Zero is ignored.
func WithMaxTick(maxTick core.Tick) HostOption {
	return func(h *Host) {
		if maxTick > 0 {
			h.maxTick = maxTick
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) HostOption {
	return func(h *Host) {
		h.now = now
	}
}

// WithTickPeriod sets the tick duration. Non-positive values are ignored.
func WithTickPeriod(period time.Duration) HostOption {
	return func(h *Host) {
		if period > 0 {
			h.period = period
		}
	}
}

func NewHost(log logger.Logger, opts ...HostOption) *Host {
	h := &Host{
		period:  DefaultTickPeriod,
		maxTick: math.MaxUint32,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Init starts the tick counter at zero. Calling it again is a no-op.
func (h *Host) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.initialized {
		return nil
	}

	h.start = h.now()
	h.initialized = true
	h.log.Info().Dur("tick_period", h.period).Msg("Host platform initialized")

	return nil
}

func (h *Host) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.initialized = false

	return nil
}

func (h *Host) Tick() (core.Tick, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.initialized {
		return 0, errors.New().New(ErrNotInitialized)
	}

	elapsed := h.now().Sub(h.start)
	if elapsed < 0 {
		elapsed = 0
	}

	ticks := uint64(elapsed / h.period)

	//nolint:gosec // G115: the modulus keeps the value within maxTick
	return core.Tick(ticks % (uint64(h.maxTick) + 1)), nil
}

func (*Host) Probes() []Probe {
	return nil
}
