// Package rtimer schedules one callback at a precise time on a hardware
// compare timer.
//
// There is a single slot. Arming a timer while another is pending replaces
// it; the replaced callback never runs. Callbacks run in interrupt context:
// they must not block and may only use the interrupt-safe kernel
// operations (Post, Poll). A callback may arm the next timer, which is how
// periodic real-time tasks chain themselves.
package rtimer

import (
	"errors"
	"sync"
	"sync/atomic"

	"ember/emberos/clock"
)

var ErrNoCallback = errors.New("rtimer: nil callback")

// Hardware is a free-running counter with one compare channel.
type Hardware interface {
	// Now returns the counter value.
	Now() uint32
	// Schedule arms the compare channel to raise the handler once the
	// counter reaches target. Re-arming replaces the previous target. A
	// target in the past raises the handler as soon as possible, but never
	// from inside Schedule.
	Schedule(target uint32)
	// SetHandler installs the compare handler.
	SetHandler(fn func())
	// TicksPerSecond returns the counter rate.
	TicksPerSecond() uint32
}

// Callback runs when the timer is due.
type Callback func(t *Timer, data any)

// Timer is one real-time timer. It must not move while pending.
type Timer struct {
	target clock.Tick
	fn     Callback
	data   any
}

// Target returns the time the timer was last armed for.
func (t *Timer) Target() clock.Tick { return t.target }

type Stats struct {
	Fired    uint64
	Replaced uint64
	// Stale counts compare matches raised before the target was reached.
	Stale uint64
}

// Scheduler owns the slot and the hardware.
type Scheduler struct {
	hw Hardware

	// mu is the critical section around the slot; it is never held while a
	// callback runs.
	mu   sync.Mutex
	next *Timer

	fired    atomic.Uint64
	replaced atomic.Uint64
	stale    atomic.Uint64
}

// New takes over hw's compare handler.
func New(hw Hardware) *Scheduler {
	s := &Scheduler{hw: hw}
	hw.SetHandler(s.run)
	return s
}

// Set arms t to call fn(t, data) at target, replacing whatever was pending.
// Safe from the main thread and from callbacks.
func (s *Scheduler) Set(t *Timer, target clock.Tick, fn Callback, data any) error {
	if fn == nil {
		return ErrNoCallback
	}
	s.mu.Lock()
	if s.next != nil {
		s.replaced.Add(1)
	}
	t.target = target
	t.fn = fn
	t.data = data
	s.next = t
	s.hw.Schedule(uint32(target))
	s.mu.Unlock()
	return nil
}

// Now returns the real-time counter.
func (s *Scheduler) Now() clock.Tick { return clock.Tick(s.hw.Now()) }

// Second returns the number of real-time ticks per second.
func (s *Scheduler) Second() uint32 { return s.hw.TicksPerSecond() }

// Pending reports whether a timer is armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next != nil
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Fired:    s.fired.Load(),
		Replaced: s.replaced.Load(),
		Stale:    s.stale.Load(),
	}
}

// run is the compare handler.
func (s *Scheduler) run() {
	s.mu.Lock()
	t := s.next
	if t == nil {
		s.mu.Unlock()
		return
	}
	if clock.Before(s.Now(), t.target) {
		s.stale.Add(1)
		s.hw.Schedule(uint32(t.target))
		s.mu.Unlock()
		return
	}
	s.next = nil
	fn, data := t.fn, t.data
	s.mu.Unlock()

	s.fired.Add(1)
	fn(t, data)
}
