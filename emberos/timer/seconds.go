package timer

import "math"

// Seconds is a timer on the clock's seconds counter, for intervals too long
// for the tick counter.
type Seconds struct {
	start    uint32
	interval uint32
}

func (s *Seconds) Set(now, interval uint32) {
	s.start = now
	s.interval = interval
}

func (s *Seconds) Reset() { s.start += s.interval }

func (s *Seconds) Restart(now uint32) { s.start = now }

func (s *Seconds) Expired(now uint32) bool {
	return int32(now-s.Expiration()) >= 0
}

func (s *Seconds) Remaining(now uint32) uint32 {
	d := int32(s.Expiration() - now)
	if d <= 0 {
		return 0
	}
	return uint32(d)
}

// Elapsed returns the seconds since the timer was started, saturating at
// math.MaxInt32.
func (s *Seconds) Elapsed(now uint32) uint32 {
	d := now - s.start
	if d > math.MaxInt32 {
		return math.MaxInt32
	}
	return d
}

func (s *Seconds) Expiration() uint32 { return s.start + s.interval }
func (s *Seconds) Interval() uint32   { return s.interval }
