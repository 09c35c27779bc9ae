package hftcore

import "time"

// Clock returns the current time in nanoseconds. The book stamps orders and
// notifications with it; tests inject a deterministic fake.
type Clock func() int64

// SystemClock reads the wall clock.
func SystemClock() int64 {
	return time.Now().UnixNano()
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	now  int64
	step int64
}

// NewManualClock starts at start and advances by step on every reading.
func NewManualClock(start, step int64) *ManualClock {
	return &ManualClock{now: start, step: step}
}

// Now returns the current reading and then advances by the step.
func (c *ManualClock) Now() int64 {
	t := c.now
	c.now += c.step
	return t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.now += int64(d)
}
