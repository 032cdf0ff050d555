// Package sensors is the sensor registry. Drivers report new readings
// with Changed, from interrupt context if need be, and the sensors process
// broadcasts the change to every process on the main thread.
package sensors

import (
	"errors"
	"sync/atomic"

	"github.com/joeycumines/logiface"

	"ember/emberos/kernel"
	"ember/emberos/pt"
)

const ProcessName = "sensors"

var (
	ErrInactive = errors.New("sensors: sensor not active")
	ErrChannel  = errors.New("sensors: no such channel")
)

// Sensor is the capability set every sensor exposes.
type Sensor interface {
	Name() string
	Activate() error
	Deactivate() error
	Active() bool
	// Value reads one channel of the latest reading.
	Value(channel int) (int, error)
}

// notifier is implemented by sensors that detect changes themselves.
type notifier interface {
	bind(changed func(Sensor))
}

// Service is the sensors process.
type Service struct {
	k   *kernel.Kernel
	log *logiface.Logger[logiface.Event]
	pid kernel.PID
	ev  kernel.EventKind

	sensors []Sensor
	changed []atomic.Bool
}

// New allocates the sensors event and registers the process. The set of
// sensors is fixed from here on.
func New(k *kernel.Kernel, sensors ...Sensor) (*Service, error) {
	ev, err := k.AllocEvent()
	if err != nil {
		return nil, err
	}
	s := &Service{
		k:       k,
		log:     k.Logger(),
		ev:      ev,
		sensors: sensors,
		changed: make([]atomic.Bool, len(sensors)),
	}
	s.pid, err = k.Register(kernel.Definition{
		Name:   ProcessName,
		Thread: s.run,
		Poll:   s.poll,
	})
	if err != nil {
		return nil, err
	}
	for _, sn := range sensors {
		if n, ok := sn.(notifier); ok {
			n.bind(s.Changed)
		}
	}
	return s, nil
}

func (s *Service) PID() kernel.PID { return s.pid }

// Event returns the kind broadcast for sensor changes. Event data is the
// Sensor.
func (s *Service) Event() kernel.EventKind { return s.ev }

// Changed flags sn as having a new reading. Interrupt-safe.
func (s *Service) Changed(sn Sensor) {
	for i, x := range s.sensors {
		if x == sn {
			s.changed[i].Store(true)
			s.k.Poll(s.pid)
			return
		}
	}
}

// Find returns the sensor called name.
func (s *Service) Find(name string) (Sensor, bool) {
	for _, sn := range s.sensors {
		if sn.Name() == name {
			return sn, true
		}
	}
	return nil, false
}

func (s *Service) All() []Sensor { return s.sensors }

// ActivateAll activates every sensor; failures are joined.
func (s *Service) ActivateAll() error {
	var errs []error
	for _, sn := range s.sensors {
		if err := sn.Activate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) DeactivateAll() error {
	var errs []error
	for _, sn := range s.sensors {
		if err := sn.Deactivate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const waitEvent pt.LC = 1

func (s *Service) run(ctx *kernel.Context, ev kernel.Event) pt.Result {
	switch ctx.LC() {
	case pt.Start:
		s.log.Info().Int("sensors", len(s.sensors)).Log("sensors ready")
		fallthrough
	case waitEvent:
		// nothing to do on events; changes arrive as polls
		ctx.WaitEvent(waitEvent)
	}
	return pt.Yielded
}

// poll broadcasts every flagged sensor. A change that does not fit in the
// queue is dropped; the next change reports the latest reading anyway.
func (s *Service) poll(ctx *kernel.Context) {
	for i := range s.sensors {
		if !s.changed[i].Swap(false) {
			continue
		}
		if err := ctx.Post(kernel.Broadcast, s.ev, s.sensors[i]); err != nil {
			s.log.Warning().
				Str("sensor", s.sensors[i].Name()).
				Err(err).
				Log("sensor change not broadcast")
		}
	}
}
