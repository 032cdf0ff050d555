//go:build tinygo && baremetal

package hal

import "machine"

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	fb     Framebuffer
	t      *tinyGoTime
	cmp    *tinyGoComparator
	btn    *pinButton
	therm  *chipThermometer
}

// New returns a Pico 2 (RP2350) HAL implementation.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1. Button: GP15 to ground.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	return &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		led:    &pinLED{pin: ledPin},
		fb:     &stubFramebuffer{w: 320, h: 320, format: PixelFormatRGB565},
		t:      newTinyGoTime(),
		cmp:    newTinyGoComparator(),
		btn:    newPinButton(machine.GP15),
		therm:  &chipThermometer{},
	}
}

func (h *tinyGoHAL) Logger() Logger           { return h.logger }
func (h *tinyGoHAL) LED() LED                 { return h.led }
func (h *tinyGoHAL) Display() Display         { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Time() Time               { return h.t }
func (h *tinyGoHAL) Comparator() Comparator   { return h.cmp }
func (h *tinyGoHAL) Button() Button           { return h.btn }
func (h *tinyGoHAL) Thermometer() Thermometer { return h.therm }
