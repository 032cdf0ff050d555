// Package sensorlog logs sensor changes and samples one sensor
// periodically.
package sensorlog

import (
	"github.com/joeycumines/logiface"

	"ember/emberos/clock"
	"ember/emberos/ctimer"
	"ember/emberos/kernel"
	"ember/emberos/pt"
	"ember/emberos/sensors"
)

const ProcessName = "sensor log"

type Task struct {
	svc      *sensors.Service
	ct       *ctimer.Service
	log      *logiface.Logger[logiface.Event]
	sample   string
	interval clock.Tick

	timer   ctimer.Timer
	pid     kernel.PID
	reports uint32
	failed  uint32
}

// New registers the task. Every interval ticks it reads the sensor named
// sample; an empty name or zero interval disables sampling.
func New(k *kernel.Kernel, svc *sensors.Service, ct *ctimer.Service, sample string, interval clock.Tick) (*Task, error) {
	t := &Task{
		svc:      svc,
		ct:       ct,
		log:      k.Logger(),
		sample:   sample,
		interval: interval,
	}
	pid, err := k.Register(kernel.Definition{
		Name:   ProcessName,
		Thread: t.run,
	})
	if err != nil {
		return nil, err
	}
	t.pid = pid
	return t, nil
}

func (t *Task) PID() kernel.PID { return t.pid }

// Reports returns the number of readings logged.
func (t *Task) Reports() uint32 { return t.reports }

// Errors returns the number of failed reads.
func (t *Task) Errors() uint32 { return t.failed }

const waitEvent pt.LC = 1

func (t *Task) run(ctx *kernel.Context, ev kernel.Event) pt.Result {
	switch ctx.LC() {
	case pt.Start:
		if t.sample != "" && t.interval > 0 {
			if err := t.ct.Set(ctx.PID(), &t.timer, t.interval, t.sampled, nil); err != nil {
				t.log.Err().Err(err).Log("sensor log: sampling disabled")
			}
		}
		fallthrough
	case waitEvent:
		for ctx.WaitEvent(waitEvent) {
			if ev.Kind != t.svc.Event() {
				continue
			}
			if sn, ok := ev.Data.(sensors.Sensor); ok {
				t.report(sn, "sensor changed")
			}
		}
	}
	return pt.Yielded
}

func (t *Task) sampled(c *ctimer.Timer) {
	if sn, ok := t.svc.Find(t.sample); ok {
		t.report(sn, "sensor sample")
	}
	t.ct.Reset(c)
}

func (t *Task) report(sn sensors.Sensor, msg string) {
	v, err := sn.Value(0)
	if err != nil {
		t.failed++
		t.log.Warning().
			Str("sensor", sn.Name()).
			Err(err).
			Log("sensor read failed")
		return
	}
	t.reports++
	t.log.Info().
		Str("sensor", sn.Name()).
		Int("value", v).
		Log(msg)
}
