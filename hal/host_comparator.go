//go:build !tinygo

package hal

import (
	"sync"
	"time"
)

// HostComparatorRate is the host compare timer rate, that of a 32 kHz
// watch crystal.
const HostComparatorRate = 32768

// hostComparator derives its counter from the monotonic clock. Compare
// matches are raised from a timer goroutine, which is the host's stand-in
// for interrupt context.
type hostComparator struct {
	start time.Time

	mu      sync.Mutex
	timer   *time.Timer
	handler func()
}

func newHostComparator() *hostComparator {
	return &hostComparator{start: time.Now()}
}

func (c *hostComparator) TicksPerSecond() uint32 { return HostComparatorRate }

func (c *hostComparator) Now() uint32 {
	us := uint64(time.Since(c.start) / time.Microsecond)
	return uint32(us * HostComparatorRate / 1_000_000)
}

func (c *hostComparator) SetHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

func (c *hostComparator) Schedule(target uint32) {
	var d time.Duration
	if delta := int32(target - c.Now()); delta > 0 {
		d = time.Duration(delta) * time.Second / HostComparatorRate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(d, c.fire)
}

func (c *hostComparator) fire() {
	c.mu.Lock()
	fn := c.handler
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
