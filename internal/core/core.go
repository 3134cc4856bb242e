// Package core holds the hardware independent application state: the
// last accepted tick and the number of cycles run.
package core

import "sync"

// Core accumulates ticks and cycles. The zero value is not usable; call New.
//
// Core is safe for concurrent use. The reference deployment has a single
// cycle goroutine, but fault reports may arrive from probe loops.
type Core struct {
	mu         sync.RWMutex
	lastTick   OptionalTick
	cycleCount uint64
	recorder   TroubleCodeRecorder
}

// New returns a Core with no tick recorded and a zero cycle count.
func New(opts ...Option) *Core {
	c := &Core{recorder: acknowledger{}}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run processes one cycle. A present tick replaces the last tick; an
// absent one leaves it untouched. The cycle count always advances and
// wraps at the uint64 range.
func (c *Core) Run(tick OptionalTick) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tick.IsPresent() {
		c.lastTick = tick
	}
	c.cycleCount++
}

// ReportSensorFault forwards a fault to the configured recorder. It does
// not touch the tick or cycle state.
func (c *Core) ReportSensorFault(sensor SensorID) {
	c.recorder.RecordFault(sensor)
}

// LastTick returns the last accepted tick, absent until the first Run
// with a present tick.
func (c *Core) LastTick() OptionalTick {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastTick
}

// CycleCount returns the number of Run calls since New or Reset.
func (c *Core) CycleCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.cycleCount
}

// Snapshot returns the last tick and cycle count under one lock.
func (c *Core) Snapshot() (OptionalTick, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastTick, c.cycleCount
}

// Reset clears the tick and cycle state. The recorder is kept.
func (c *Core) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastTick = Absent()
	c.cycleCount = 0
}
