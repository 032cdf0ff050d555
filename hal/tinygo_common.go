//go:build tinygo && baremetal

package hal

import (
	"machine"
	"time"

	"tinygo.org/x/drivers"
)

type tinyGoDisplay struct {
	fb Framebuffer
}

func (d tinyGoDisplay) Framebuffer() Framebuffer { return d.fb }

const tinyGoTickRate = 1000

type tinyGoTime struct {
	ch  chan uint64
	seq uint64
}

func newTinyGoTime() *tinyGoTime {
	t := &tinyGoTime{ch: make(chan uint64, 16)}
	go func() {
		ticker := time.NewTicker(time.Second / tinyGoTickRate)
		defer ticker.Stop()
		for range ticker.C {
			t.seq++
			select {
			case t.ch <- t.seq:
			default:
			}
		}
	}()
	return t
}

func (t *tinyGoTime) Ticks() <-chan uint64   { return t.ch }
func (t *tinyGoTime) TicksPerSecond() uint32 { return tinyGoTickRate }

// tinyGoComparator counts microseconds since boot; compare matches are
// raised by the runtime timer.
type tinyGoComparator struct {
	start   time.Time
	timer   *time.Timer
	handler func()
}

func newTinyGoComparator() *tinyGoComparator {
	return &tinyGoComparator{start: time.Now()}
}

func (c *tinyGoComparator) TicksPerSecond() uint32 { return 1_000_000 }
func (c *tinyGoComparator) SetHandler(fn func())   { c.handler = fn }

func (c *tinyGoComparator) Now() uint32 {
	return uint32(time.Since(c.start) / time.Microsecond)
}

func (c *tinyGoComparator) Schedule(target uint32) {
	var d time.Duration
	if delta := int32(target - c.Now()); delta > 0 {
		d = time.Duration(delta) * time.Microsecond
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(d, c.fire)
}

func (c *tinyGoComparator) fire() {
	if c.handler != nil {
		c.handler()
	}
}

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type pinLED struct {
	pin machine.Pin
}

func (l *pinLED) High() { l.pin.High() }
func (l *pinLED) Low()  { l.pin.Low() }

// pinButton is an active-low button with a pull-up.
type pinButton struct {
	pin machine.Pin
	fn  func(pressed bool)
}

func newPinButton(pin machine.Pin) *pinButton {
	b := &pinButton{pin: pin}
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	pin.SetInterrupt(machine.PinFalling|machine.PinRising, func(machine.Pin) {
		if b.fn != nil {
			b.fn(b.Pressed())
		}
	})
	return b
}

func (b *pinButton) Pressed() bool                  { return !b.pin.Get() }
func (b *pinButton) OnChange(fn func(pressed bool)) { b.fn = fn }

// chipThermometer reads the on-die temperature sensor.
type chipThermometer struct {
	milli int32
}

func (t *chipThermometer) Update(which drivers.Measurement) error {
	if which&drivers.Temperature != 0 {
		t.milli = machine.ReadTemperature()
	}
	return nil
}

func (t *chipThermometer) Temperature() int32 { return t.milli }

type stubFramebuffer struct {
	w      int
	h      int
	format PixelFormat
}

func (f *stubFramebuffer) Width() int             { return f.w }
func (f *stubFramebuffer) Height() int            { return f.h }
func (f *stubFramebuffer) Format() PixelFormat    { return f.format }
func (f *stubFramebuffer) StrideBytes() int       { return f.w * 2 }
func (f *stubFramebuffer) Buffer() []byte         { return nil }
func (f *stubFramebuffer) ClearRGB(r, g, b uint8) {}
func (f *stubFramebuffer) Present() error         { return ErrNotImplemented }
