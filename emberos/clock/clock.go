// Package clock implements the system tick counter.
//
// A periodic hardware interrupt calls Advance; everything else reads the
// counter with Now. Ticks wrap, so ordering must go through Before/Diff.
package clock

import "sync/atomic"

// Tick is one unit of the wrapping system clock.
type Tick uint32

// HalfRange is the largest distance between two ticks that still orders
// correctly under signed-difference comparison.
const HalfRange = 1 << 31

// DefaultTicksPerSecond matches the 1ms tick of the host and TinyGo HALs.
const DefaultTicksPerSecond = 1000

// Diff returns a-b as a signed distance.
func Diff(a, b Tick) int32 { return int32(a - b) }

// Before reports whether a comes before b.
func Before(a, b Tick) bool { return Diff(a, b) < 0 }

// Add returns t+d, wrapping.
func (t Tick) Add(d Tick) Tick { return t + d }

// Clock is a monotonically increasing, wrapping tick counter.
//
// Now, Seconds and Uptime are safe from interrupt and main context.
// Advance has exactly one caller: the tick interrupt.
type Clock struct {
	ticks   atomic.Uint32
	seconds atomic.Uint32

	perSecond uint32
	sub       uint32 // ticks into the current second, owned by Advance
}

// New returns a clock advancing ticksPerSecond times per second.
func New(ticksPerSecond uint32) *Clock {
	if ticksPerSecond == 0 {
		ticksPerSecond = DefaultTicksPerSecond
	}
	return &Clock{perSecond: ticksPerSecond}
}

// TicksPerSecond returns the tick rate.
func (c *Clock) TicksPerSecond() uint32 { return c.perSecond }

// Now returns the current tick.
func (c *Clock) Now() Tick { return Tick(c.ticks.Load()) }

// Seconds returns whole seconds since boot.
func (c *Clock) Seconds() uint32 { return c.seconds.Load() }

// Advance increments the counter by one tick and returns the new value.
func (c *Clock) Advance() Tick {
	c.sub++
	if c.sub >= c.perSecond {
		c.sub = 0
		c.seconds.Add(1)
	}
	return Tick(c.ticks.Add(1))
}

// Uptime returns a consistent (seconds, ticks) pair.
//
// The two counters are separate words; the seconds value is re-read until
// it is stable around the tick read.
func (c *Clock) Uptime() (seconds uint32, ticks Tick) {
	for {
		s := c.seconds.Load()
		t := c.ticks.Load()
		if c.seconds.Load() == s {
			return s, Tick(t)
		}
	}
}

// Set forces the counter to t. Tests and platform bring-up only.
func (c *Clock) Set(t Tick) {
	c.ticks.Store(uint32(t))
}
