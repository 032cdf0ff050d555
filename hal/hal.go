package hal

import (
	"errors"

	"tinygo.org/x/drivers"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Time is the periodic tick interrupt. Each value received from Ticks is
// one tick; the sequence number lets a slow reader see how many it missed.
type Time interface {
	Ticks() <-chan uint64
	TicksPerSecond() uint32
}

// Comparator is a free-running counter with one compare channel; the
// handler runs in interrupt context.
type Comparator interface {
	Now() uint32
	Schedule(target uint32)
	SetHandler(fn func())
	TicksPerSecond() uint32
}

// Button is a push button. OnChange handlers run in interrupt context.
type Button interface {
	Pressed() bool
	OnChange(fn func(pressed bool))
}

// Thermometer measures temperature in milli-degrees Celsius after
// Update(drivers.Temperature).
type Thermometer interface {
	drivers.Sensor
	Temperature() int32
}

// HAL provides the only contact point between the OS and the outside world.
//
// Optional devices may be nil.
type HAL interface {
	Logger() Logger
	LED() LED
	Display() Display
	Time() Time
	Comparator() Comparator
	Button() Button
	Thermometer() Thermometer
}
