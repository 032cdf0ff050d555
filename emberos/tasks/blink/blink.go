// Package blink toggles an LED on an event timer.
package blink

import (
	"ember/emberos/clock"
	"ember/emberos/etimer"
	"ember/emberos/kernel"
	"ember/emberos/pt"
)

const ProcessName = "blink"

// LED is the pin the task drives.
type LED interface {
	High()
	Low()
}

// Task toggles its LED every half period, so the LED completes one cycle
// per period.
type Task struct {
	et   *etimer.Service
	led  LED
	half clock.Tick

	timer   etimer.Timer
	on      bool
	toggles uint32
	pid     kernel.PID
}

// New registers the task. A period below two ticks is raised to two.
func New(k *kernel.Kernel, et *etimer.Service, led LED, period clock.Tick) (*Task, error) {
	if period < 2 {
		period = 2
	}
	t := &Task{et: et, led: led, half: period / 2}
	pid, err := k.Register(kernel.Definition{
		Name:   ProcessName,
		Thread: t.run,
		Exit:   func(*kernel.Context) { t.set(false) },
	})
	if err != nil {
		return nil, err
	}
	t.pid = pid
	return t, nil
}

func (t *Task) PID() kernel.PID { return t.pid }

// Toggles returns how many times the LED has changed state.
func (t *Task) Toggles() uint32 { return t.toggles }

// On reports the LED state.
func (t *Task) On() bool { return t.on }

const waitTimer pt.LC = 1

func (t *Task) run(ctx *kernel.Context, ev kernel.Event) pt.Result {
	switch ctx.LC() {
	case pt.Start:
		t.toggles = 0
		t.set(false)
		t.et.Set(ctx.PID(), &t.timer, t.half)
		fallthrough
	case waitTimer:
		for ctx.WaitEventUntil(waitTimer, ev.Kind == kernel.EventTimer && ev.Data == &t.timer) {
			t.set(!t.on)
			t.toggles++
			// Reset keeps the phase even if this event was delivered late.
			t.et.Reset(&t.timer)
		}
	}
	return pt.Yielded
}

func (t *Task) set(on bool) {
	t.on = on
	if t.led == nil {
		return
	}
	if on {
		t.led.High()
	} else {
		t.led.Low()
	}
}
