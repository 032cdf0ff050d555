//go:build !tinygo

package hal

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"
)

// hostButton is pressed from the window's keyboard.
type hostButton struct {
	pressed atomic.Bool

	mu sync.Mutex
	fn func(pressed bool)
}

func (b *hostButton) Pressed() bool { return b.pressed.Load() }

func (b *hostButton) OnChange(fn func(pressed bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fn = fn
}

func (b *hostButton) set(pressed bool) {
	if b.pressed.Swap(pressed) == pressed {
		return
	}
	b.mu.Lock()
	fn := b.fn
	b.mu.Unlock()
	if fn != nil {
		fn(pressed)
	}
}

// hostThermometer simulates a room whose temperature drifts around 21 °C
// with a ten minute period.
type hostThermometer struct {
	start time.Time
	milli atomic.Int32
}

var _ drivers.Sensor = (*hostThermometer)(nil)

func newHostThermometer() *hostThermometer {
	return &hostThermometer{start: time.Now()}
}

func (t *hostThermometer) Update(which drivers.Measurement) error {
	if which&drivers.Temperature == 0 {
		return nil
	}
	phase := time.Since(t.start).Seconds() / 600 * 2 * math.Pi
	t.milli.Store(int32(21000 + 1500*math.Sin(phase)))
	return nil
}

func (t *hostThermometer) Temperature() int32 { return t.milli.Load() }
