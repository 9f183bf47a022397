package pulse

import "time"

// Clock provides monotonic time in milliseconds.
// All temporal decisions (throttle windows, cooldowns) are made against a
// Clock so they can be driven deterministically in tests.
type Clock interface {
	// Now returns the current monotonic time in milliseconds. The zero point
	// is arbitrary; only differences between readings are meaningful.
	Now() int64
}

// realClock measures monotonic time since process-local creation.
// time.Since uses the monotonic reading of the stored base, so readings are
// immune to wall-clock adjustments.
type realClock struct {
	base time.Time
}

// NewClock returns the default monotonic clock.
func NewClock() Clock {
	return &realClock{base: time.Now()}
}

func (c *realClock) Now() int64 {
	return time.Since(c.base).Milliseconds()
}
