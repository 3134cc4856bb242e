package core

import "strconv"

// Tick is a platform counter value in tick units since platform init.
// It may wrap at the counter width.
type Tick uint32

// OptionalTick is either a present Tick or no sample at all.
type OptionalTick struct {
	value Tick
	ok    bool
}

// Present wraps t as a present sample.
func Present(t Tick) OptionalTick {
	return OptionalTick{value: t, ok: true}
}

// Absent is the "no new sample this cycle" value.
func Absent() OptionalTick {
	return OptionalTick{}
}

// Get returns the tick and whether it is present.
func (o OptionalTick) Get() (Tick, bool) {
	return o.value, o.ok
}

// IsPresent reports whether o carries a tick.
func (o OptionalTick) IsPresent() bool {
	return o.ok
}

// ValueOr returns the tick, or fallback when absent.
func (o OptionalTick) ValueOr(fallback Tick) Tick {
	if o.ok {
		return o.value
	}

	return fallback
}

func (o OptionalTick) String() string {
	if !o.ok {
		return "none"
	}

	return strconv.FormatUint(uint64(o.value), 10)
}
