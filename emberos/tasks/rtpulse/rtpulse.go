// Package rtpulse runs a periodic real-time callback. The callback chains
// itself on the compare timer and counts pulses in interrupt context; the
// process only reports them.
package rtpulse

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"

	"ember/emberos/clock"
	"ember/emberos/kernel"
	"ember/emberos/pt"
	"ember/emberos/rtimer"
)

const ProcessName = "rt pulse"

type Task struct {
	k      *kernel.Kernel
	rt     *rtimer.Scheduler
	log    *logiface.Logger[logiface.Event]
	period clock.Tick
	every  uint32

	timer   rtimer.Timer
	pid     kernel.PID
	stopped atomic.Bool

	pulses   atomic.Uint32
	maxLate  atomic.Uint32
	reported uint32
}

// New registers the task. period is in rtimer ticks; the poll handler logs
// once every reportEvery pulses.
func New(k *kernel.Kernel, rt *rtimer.Scheduler, period clock.Tick, reportEvery uint32) (*Task, error) {
	if period == 0 {
		period = 1
	}
	if reportEvery == 0 {
		reportEvery = 1
	}
	t := &Task{
		k:      k,
		rt:     rt,
		log:    k.Logger(),
		period: period,
		every:  reportEvery,
	}
	pid, err := k.Register(kernel.Definition{
		Name:   ProcessName,
		Thread: t.run,
		Poll:   t.poll,
		Exit:   func(*kernel.Context) { t.stopped.Store(true) },
	})
	if err != nil {
		return nil, err
	}
	t.pid = pid
	return t, nil
}

func (t *Task) PID() kernel.PID { return t.pid }

// Pulses returns the number of callbacks so far. Interrupt-safe.
func (t *Task) Pulses() uint32 { return t.pulses.Load() }

// MaxLatency returns the largest delay, in rtimer ticks, between a target
// and the callback that served it.
func (t *Task) MaxLatency() uint32 { return t.maxLate.Load() }

const waitEvent pt.LC = 1

func (t *Task) run(ctx *kernel.Context, ev kernel.Event) pt.Result {
	switch ctx.LC() {
	case pt.Start:
		t.stopped.Store(false)
		t.pulses.Store(0)
		t.reported = 0
		if err := t.rt.Set(&t.timer, t.rt.Now().Add(t.period), t.pulse, nil); err != nil {
			t.log.Err().Err(err).Log("rt pulse: arm failed")
			return ctx.Exit()
		}
		fallthrough
	case waitEvent:
		ctx.WaitEvent(waitEvent)
	}
	return pt.Yielded
}

// pulse runs in interrupt context.
func (t *Task) pulse(tm *rtimer.Timer, _ any) {
	if t.stopped.Load() {
		return
	}
	if late := clock.Diff(t.rt.Now(), tm.Target()); late > 0 && uint32(late) > t.maxLate.Load() {
		t.maxLate.Store(uint32(late))
	}
	t.pulses.Add(1)
	// Chain from the target, not from now, so latency does not accumulate.
	_ = t.rt.Set(tm, tm.Target().Add(t.period), t.pulse, nil)
	t.k.Poll(t.pid)
}

func (t *Task) poll(ctx *kernel.Context) {
	n := t.pulses.Load()
	if n-t.reported < t.every {
		return
	}
	t.reported = n - n%t.every
	t.log.Info().
		Int("pulses", int(n)).
		Int("max_latency", int(t.maxLate.Load())).
		Log("rt pulse")
}
