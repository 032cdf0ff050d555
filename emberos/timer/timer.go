// Package timer provides passive interval timers: they only answer whether
// an interval has passed and never notify anyone. The etimer and ctimer
// services build notifications on top of them.
package timer

import "ember/emberos/clock"

// Timer measures one interval against a tick clock.
type Timer struct {
	start    clock.Tick
	interval clock.Tick
}

// Set starts the timer at now for interval ticks.
func (t *Timer) Set(now, interval clock.Tick) {
	t.start = now
	t.interval = interval
}

// Reset moves the timer forward by exactly one interval from its previous
// start, so a periodic timer keeps its phase even when it is serviced late.
func (t *Timer) Reset() {
	t.start += t.interval
}

// Restart starts the timer again at now with the same interval.
func (t *Timer) Restart(now clock.Tick) {
	t.start = now
}

// Expired reports whether now has reached the expiration tick. It stays
// true for half the tick range after expiry.
func (t *Timer) Expired(now clock.Tick) bool {
	return clock.Diff(now, t.Expiration()) >= 0
}

// Remaining returns the ticks left until expiry, or 0 once expired.
func (t *Timer) Remaining(now clock.Tick) clock.Tick {
	d := clock.Diff(t.Expiration(), now)
	if d <= 0 {
		return 0
	}
	return clock.Tick(d)
}

func (t *Timer) Expiration() clock.Tick { return t.start + t.interval }
func (t *Timer) Start() clock.Tick      { return t.start }
func (t *Timer) Interval() clock.Tick   { return t.interval }
