// Package ctimer runs a function when a timer expires. Callbacks run on the
// main thread from the callback timer process, so they may use any
// main-thread kernel operation but must not block.
package ctimer

import (
	"errors"

	"ember/emberos/clock"
	"ember/emberos/etimer"
	"ember/emberos/kernel"
	"ember/emberos/pt"
)

const ProcessName = "callback timer"

var ErrNoCallback = errors.New("ctimer: nil callback")

// Callback is called once per expiry.
type Callback func(c *Timer)

// Timer is a callback timer. It must stay at the same address while armed.
type Timer struct {
	et    etimer.Timer
	fn    Callback
	owner kernel.PID
	next  *Timer

	// Data is handed back to the callback untouched.
	Data any
}

// Owner returns the process that armed the timer.
func (c *Timer) Owner() kernel.PID { return c.owner }

// Service is the callback timer process.
type Service struct {
	k   *kernel.Kernel
	et  *etimer.Service
	pid kernel.PID

	list *Timer
}

// New registers the service process. The caller starts it after the event
// timer service.
func New(k *kernel.Kernel, et *etimer.Service) (*Service, error) {
	s := &Service{k: k, et: et}
	pid, err := k.Register(kernel.Definition{
		Name:   ProcessName,
		Thread: s.run,
	})
	if err != nil {
		return nil, err
	}
	s.pid = pid
	return s, nil
}

func (s *Service) PID() kernel.PID { return s.pid }

// Set arms c to call fn interval ticks from now. owner ties the timer to a
// process: it is stopped when that process exits.
func (s *Service) Set(owner kernel.PID, c *Timer, interval clock.Tick, fn Callback, data any) error {
	if fn == nil {
		return ErrNoCallback
	}
	c.fn = fn
	c.Data = data
	c.owner = owner
	s.et.Set(s.pid, &c.et, interval)
	s.link(c)
	return nil
}

// Reset re-arms c one interval after its previous expiration.
func (s *Service) Reset(c *Timer) {
	s.et.Reset(&c.et)
	s.link(c)
}

// Restart re-arms c one interval from now.
func (s *Service) Restart(c *Timer) {
	s.et.Restart(&c.et)
	s.link(c)
}

// Stop disarms c; its callback will not run.
func (s *Service) Stop(c *Timer) {
	s.et.Stop(&c.et)
	s.unlink(c)
}

// Expired reports whether c is not armed.
func (s *Service) Expired(c *Timer) bool { return s.et.Expired(&c.et) }

func (s *Service) link(c *Timer) {
	for t := s.list; t != nil; t = t.next {
		if t == c {
			return
		}
	}
	c.next = s.list
	s.list = c
}

func (s *Service) unlink(c *Timer) {
	for pp := &s.list; *pp != nil; pp = &(*pp).next {
		if *pp == c {
			*pp = c.next
			c.next = nil
			return
		}
	}
}

func (s *Service) find(et *etimer.Timer) *Timer {
	for t := s.list; t != nil; t = t.next {
		if &t.et == et {
			return t
		}
	}
	return nil
}

const waitEvent pt.LC = 1

func (s *Service) run(ctx *kernel.Context, ev kernel.Event) pt.Result {
	switch ctx.LC() {
	case pt.Start:
		fallthrough
	case waitEvent:
		for ctx.WaitEvent(waitEvent) {
			switch ev.Kind {
			case kernel.EventTimer:
				et, _ := ev.Data.(*etimer.Timer)
				if c := s.find(et); c != nil {
					s.unlink(c)
					c.fn(c)
				}
			case kernel.EventExited:
				if pid, ok := ev.Data.(kernel.PID); ok {
					s.stopOwnedBy(pid)
				}
			}
		}
	}
	return pt.Yielded
}

func (s *Service) stopOwnedBy(owner kernel.PID) {
	for t := s.list; t != nil; {
		next := t.next
		if t.owner == owner {
			s.Stop(t)
		}
		t = next
	}
}
