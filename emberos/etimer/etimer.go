// Package etimer turns timers into events: an expired timer posts
// kernel.EventTimer to the process that owns it.
//
// The service is a kernel process. The tick interrupt calls Check, which
// polls the service once the earliest timer is due; the poll handler posts
// the events on the main thread.
package etimer

import (
	"errors"
	"sync/atomic"

	"github.com/joeycumines/logiface"

	"ember/emberos/clock"
	"ember/emberos/kernel"
	"ember/emberos/pt"
	"ember/emberos/timer"
)

const ProcessName = "event timer"

// Timer is an event timer. The zero value is a stopped timer; it is
// armed by Service.Set and must stay at the same address while armed.
type Timer struct {
	t     timer.Timer
	owner kernel.PID
	armed bool
	next  *Timer
}

// Owner returns the process the timer posts to.
func (t *Timer) Owner() kernel.PID { return t.owner }

// Service is the event timer process.
type Service struct {
	k   *kernel.Kernel
	clk *clock.Clock
	log *logiface.Logger[logiface.Event]
	pid kernel.PID

	// list is touched by the main thread only.
	list *Timer

	// pending and next summarise list for Check.
	pending atomic.Bool
	next    atomic.Uint32
}

// New registers the service process. The caller starts it.
func New(k *kernel.Kernel, clk *clock.Clock) (*Service, error) {
	s := &Service{k: k, clk: clk, log: k.Logger()}
	pid, err := k.Register(kernel.Definition{
		Name:   ProcessName,
		Thread: s.run,
		Poll:   s.poll,
	})
	if err != nil {
		return nil, err
	}
	s.pid = pid
	return s, nil
}

// PID returns the service's process handle.
func (s *Service) PID() kernel.PID { return s.pid }

// Check polls the service if the earliest timer has expired at now.
// Called from the tick interrupt; O(1).
func (s *Service) Check(now clock.Tick) {
	if !s.pending.Load() {
		return
	}
	if clock.Diff(now, clock.Tick(s.next.Load())) >= 0 {
		s.k.Poll(s.pid)
	}
}

// Set arms t to post EventTimer to owner interval ticks from now.
func (s *Service) Set(owner kernel.PID, t *Timer, interval clock.Tick) {
	t.t.Set(s.clk.Now(), interval)
	s.add(owner, t)
}

// Reset re-arms t one interval after its previous expiration.
func (s *Service) Reset(t *Timer) {
	t.t.Reset()
	s.add(t.owner, t)
}

// Restart re-arms t one interval from now.
func (s *Service) Restart(t *Timer) {
	t.t.Restart(s.clk.Now())
	s.add(t.owner, t)
}

// Adjust shifts t's start by delta ticks.
func (s *Service) Adjust(t *Timer, delta clock.Tick) {
	t.t.Set(t.t.Start()+delta, t.t.Interval())
	s.update()
}

// Stop disarms t. Its event will not be posted.
func (s *Service) Stop(t *Timer) {
	s.remove(t)
	s.update()
}

// Expired reports whether t is not armed: it was never set, has been
// stopped, or its event has been posted.
func (s *Service) Expired(t *Timer) bool { return !t.armed }

func (s *Service) ExpirationTime(t *Timer) clock.Tick { return t.t.Expiration() }
func (s *Service) StartTime(t *Timer) clock.Tick      { return t.t.Start() }

// Pending reports whether any timer is armed.
func (s *Service) Pending() bool { return s.list != nil }

// NextExpiration returns the expiration of the earliest armed timer, or 0.
func (s *Service) NextExpiration() clock.Tick {
	if s.list == nil {
		return 0
	}
	return clock.Tick(s.next.Load())
}

func (s *Service) add(owner kernel.PID, t *Timer) {
	t.owner = owner
	if !t.armed {
		t.armed = true
		t.next = s.list
		s.list = t
	}
	s.update()
}

func (s *Service) remove(t *Timer) {
	if !t.armed {
		return
	}
	for pp := &s.list; *pp != nil; pp = &(*pp).next {
		if *pp == t {
			*pp = t.next
			break
		}
	}
	t.next = nil
	t.armed = false
}

// update recomputes the summary read by Check.
func (s *Service) update() {
	if s.list == nil {
		s.pending.Store(false)
		return
	}
	now := s.clk.Now()
	earliest := s.list.t.Expiration()
	for t := s.list.next; t != nil; t = t.next {
		if exp := t.t.Expiration(); clock.Diff(exp, now) < clock.Diff(earliest, now) {
			earliest = exp
		}
	}
	s.next.Store(uint32(earliest))
	s.pending.Store(true)
}

const waitEvent pt.LC = 1

func (s *Service) run(ctx *kernel.Context, ev kernel.Event) pt.Result {
	switch ctx.LC() {
	case pt.Start:
		fallthrough
	case waitEvent:
		for ctx.WaitEvent(waitEvent) {
			if ev.Kind == kernel.EventExited {
				if pid, ok := ev.Data.(kernel.PID); ok {
					s.purge(pid)
				}
			}
		}
	}
	return pt.Yielded
}

// poll posts the events of every expired timer. A timer whose event does
// not fit in the queue stays armed and is retried on the next tick.
func (s *Service) poll(ctx *kernel.Context) {
	now := s.clk.Now()
	var retry int
	for t := s.list; t != nil; {
		next := t.next
		if t.t.Expired(now) {
			err := ctx.Post(t.owner, kernel.EventTimer, t)
			switch {
			case err == nil:
				s.remove(t)
			case errors.Is(err, kernel.ErrQueueFull):
				retry++
			default:
				s.log.Debug().
					Int("owner", int(t.owner)).
					Err(err).
					Log("etimer: owner gone, timer dropped")
				s.remove(t)
			}
		}
		t = next
	}
	if retry > 0 {
		s.log.Debug().Int("timers", retry).Log("etimer: queue full, retrying")
	}
	s.update()
}

func (s *Service) purge(owner kernel.PID) {
	var n int
	for t := s.list; t != nil; {
		next := t.next
		if t.owner == owner {
			s.remove(t)
			n++
		}
		t = next
	}
	if n > 0 {
		s.log.Debug().
			Int("owner", int(owner)).
			Int("timers", n).
			Log("etimer: purged timers of exited process")
		s.update()
	}
}
