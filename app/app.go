// Package app assembles the OS on a HAL: kernel, clock, timer services,
// sensors, console and the demo tasks.
package app

import (
	"context"
	"errors"

	"github.com/joeycumines/logiface"
	"golang.org/x/sync/errgroup"
	"tinygo.org/x/drivers"

	"ember/emberos/clock"
	"ember/emberos/ctimer"
	"ember/emberos/etimer"
	"ember/emberos/kernel"
	"ember/emberos/rtimer"
	"ember/emberos/sensors"
	"ember/emberos/services/console"
	"ember/emberos/tasks/blink"
	"ember/emberos/tasks/rtpulse"
	"ember/emberos/tasks/sensorlog"
	"ember/hal"
	"ember/internal/buildinfo"
	"ember/internal/klog"
)

// Sensor names.
const (
	SensorTemperature = "temperature"
	SensorButton      = "button"
)

type Config struct {
	QueueSize    int
	MaxProcesses int
	LogLevel     logiface.Level

	Blink     bool
	RTPulse   bool
	SensorLog bool
	Console   bool
}

func DefaultConfig() Config {
	return Config{
		QueueSize:    kernel.DefaultQueueSize,
		MaxProcesses: kernel.DefaultMaxProcesses,
		LogLevel:     logiface.LevelInformational,
		Blink:        true,
		RTPulse:      true,
		SensorLog:    true,
		Console:      true,
	}
}

type system struct {
	h   hal.HAL
	log *logiface.Logger[logiface.Event]

	k   *kernel.Kernel
	clk *clock.Clock
	et  *etimer.Service
	ct  *ctimer.Service
	rt  *rtimer.Scheduler
	sns *sensors.Service
	con *console.Console

	blink     *blink.Task
	rtpulse   *rtpulse.Task
	sensorlog *sensorlog.Task

	ticks <-chan uint64
	seq   uint64
}

// New initializes and starts the OS with the default config.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, DefaultConfig())
}

// NewWithConfig initializes and starts the OS and returns its step
// function: each call raises the ticks that have arrived and then
// dispatches until there is no work left. The host runners call it once
// per frame.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := newSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return s.step
}

// Run starts the OS and dispatches until ctx is done. Ticks are taken in
// their own goroutine, which plays the part of the tick interrupt.
func Run(ctx context.Context, h hal.HAL, cfg Config) error {
	s, err := newSystem(h, cfg)
	if err != nil {
		return err
	}
	return s.run(ctx)
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	s := &system{h: h}

	out := h.Logger()
	if cfg.Console {
		if d := h.Display(); d != nil {
			s.con = console.New(d.Framebuffer())
			out = console.Tee(out, s.con)
		}
	}
	s.log = klog.New(out, cfg.LogLevel)
	installPanicHandler(h, s.log)

	s.k = kernel.New(kernel.Config{
		MaxProcesses: cfg.MaxProcesses,
		QueueSize:    cfg.QueueSize,
		Logger:       s.log,
	})

	rate := uint32(clock.DefaultTicksPerSecond)
	if t := h.Time(); t != nil {
		s.ticks = t.Ticks()
		if r := t.TicksPerSecond(); r > 0 {
			rate = r
		}
	}
	s.clk = clock.New(rate)

	var err error
	if s.et, err = etimer.New(s.k, s.clk); err != nil {
		return nil, err
	}
	if s.ct, err = ctimer.New(s.k, s.et); err != nil {
		return nil, err
	}
	boot := []kernel.PID{s.et.PID(), s.ct.PID()}

	if s.con != nil {
		pid, err := s.con.Register(s.k)
		if err != nil {
			return nil, err
		}
		boot = append(boot, pid)
	}

	var sns []sensors.Sensor
	if th := h.Thermometer(); th != nil {
		sns = append(sns, sensors.NewMeasured(SensorTemperature, th, drivers.Temperature, th.Temperature))
	}
	if b := h.Button(); b != nil {
		sns = append(sns, sensors.NewButton(SensorButton, b))
	}
	if s.sns, err = sensors.New(s.k, sns...); err != nil {
		return nil, err
	}
	boot = append(boot, s.sns.PID())

	if cmp := h.Comparator(); cmp != nil {
		s.rt = rtimer.New(cmp)
	}

	if cfg.Blink && h.LED() != nil {
		if s.blink, err = blink.New(s.k, s.et, h.LED(), clock.Tick(rate)); err != nil {
			return nil, err
		}
		boot = append(boot, s.blink.PID())
	}
	if cfg.RTPulse && s.rt != nil {
		// 16 pulses a second, reported every 10 seconds.
		period := clock.Tick(s.rt.Second() / 16)
		if s.rtpulse, err = rtpulse.New(s.k, s.rt, period, 160); err != nil {
			return nil, err
		}
		boot = append(boot, s.rtpulse.PID())
	}
	if cfg.SensorLog {
		if s.sensorlog, err = sensorlog.New(s.k, s.sns, s.ct, SensorTemperature, clock.Tick(5*rate)); err != nil {
			return nil, err
		}
		boot = append(boot, s.sensorlog.PID())
	}

	if err := s.sns.ActivateAll(); err != nil {
		s.log.Warning().Err(err).Log("sensor activation failed")
	}
	if err := s.k.Autostart(boot...); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("build", buildinfo.String()).
		Int("procs", s.k.Len()).
		Int("hz", int(rate)).
		Log("ember started")
	return s, nil
}

// tickTo does the tick interrupt's work for every tick up to seq. Ticks
// lost by the source are caught up here.
func (s *system) tickTo(seq uint64) {
	for s.seq < seq {
		s.seq++
		s.et.Check(s.clk.Advance())
	}
}

func (s *system) step() error {
drain:
	for {
		select {
		case seq, ok := <-s.ticks:
			if !ok {
				s.ticks = nil
				break drain
			}
			s.tickTo(seq)
		default:
			break drain
		}
	}
	s.k.RunUntilIdle()
	return nil
}

func (s *system) run(ctx context.Context) error {
	parent := ctx
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.pumpTicks(ctx) })
	g.Go(func() error { return s.k.Run(ctx) })

	err := g.Wait()
	if err != nil && parent.Err() != nil && errors.Is(err, parent.Err()) {
		return nil
	}
	return err
}

func (s *system) pumpTicks(ctx context.Context) error {
	ticks := s.ticks
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case seq, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			s.tickTo(seq)
		}
	}
}
