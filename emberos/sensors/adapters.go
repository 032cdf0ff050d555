package sensors

import (
	"sync/atomic"

	"tinygo.org/x/drivers"
)

// Measured adapts a TinyGo driver to Sensor. Each Value call asks the
// driver for a fresh measurement and returns read's result on channel 0.
type Measured struct {
	name   string
	dev    drivers.Sensor
	which  drivers.Measurement
	read   func() int32
	active atomic.Bool
}

func NewMeasured(name string, dev drivers.Sensor, which drivers.Measurement, read func() int32) *Measured {
	return &Measured{name: name, dev: dev, which: which, read: read}
}

func (m *Measured) Name() string { return m.name }

func (m *Measured) Activate() error {
	m.active.Store(true)
	return nil
}

func (m *Measured) Deactivate() error {
	m.active.Store(false)
	return nil
}

func (m *Measured) Active() bool { return m.active.Load() }

func (m *Measured) Value(channel int) (int, error) {
	if !m.active.Load() {
		return 0, ErrInactive
	}
	if channel != 0 {
		return 0, ErrChannel
	}
	if err := m.dev.Update(m.which); err != nil {
		return 0, err
	}
	return int(m.read()), nil
}

// Input is a two-state input, such as a push button, that reports its
// edges.
type Input interface {
	Pressed() bool
	OnChange(fn func(pressed bool))
}

// Button adapts an Input to Sensor. Channel 0 is the current state (0 or
// 1), channel 1 the number of presses while active. Every press while
// active is reported as a change.
type Button struct {
	name    string
	in      Input
	active  atomic.Bool
	presses atomic.Uint32
	changed func(Sensor)
}

func NewButton(name string, in Input) *Button {
	b := &Button{name: name, in: in}
	in.OnChange(b.edge)
	return b
}

func (b *Button) bind(changed func(Sensor)) { b.changed = changed }

func (b *Button) edge(pressed bool) {
	if !pressed || !b.active.Load() {
		return
	}
	b.presses.Add(1)
	if b.changed != nil {
		b.changed(b)
	}
}

func (b *Button) Name() string { return b.name }

func (b *Button) Activate() error {
	b.active.Store(true)
	return nil
}

func (b *Button) Deactivate() error {
	b.active.Store(false)
	return nil
}

func (b *Button) Active() bool { return b.active.Load() }

func (b *Button) Value(channel int) (int, error) {
	if !b.active.Load() {
		return 0, ErrInactive
	}
	switch channel {
	case 0:
		if b.in.Pressed() {
			return 1, nil
		}
		return 0, nil
	case 1:
		return int(b.presses.Load()), nil
	default:
		return 0, ErrChannel
	}
}
