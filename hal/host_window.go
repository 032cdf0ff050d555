//go:build !tinygo && cgo

package hal

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"ember/internal/buildinfo"
)

// RunWindow starts a desktop window that displays the framebuffer. Space
// is the button, Escape quits; the dot in the corner is the LED. It blocks
// until the window closes.
func RunWindow(newApp func(HAL) func() error) error {
	h := New().(*hostHAL)
	step := newApp(h)

	g := &hostGame{h: h, step: step}
	ebiten.SetWindowTitle("ember (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*2, h.fb.height*2)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h    *hostHAL
	step func() error

	// rgb565 is the last presented frame, rgba its expansion for ebiten.
	rgb565 []byte
	rgba   []byte
	fbImg  *ebiten.Image
}

var ledColor = color.RGBA{R: 0xFF, G: 0x40, B: 0x20, A: 0xFF}

func (g *hostGame) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.h.btn.set(true)
	case inpututil.IsKeyJustReleased(ebiten.KeySpace):
		g.h.btn.set(false)
	}
	g.h.t.step()
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.fbImg == nil {
		g.rgb565 = make([]byte, fb.width*fb.height*2)
		g.rgba = make([]byte, fb.width*fb.height*4)
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	fb.snapshotRGB565(g.rgb565)
	for px := 0; px < fb.width*fb.height; px++ {
		r, gg, b := rgb888From565(uint16(g.rgb565[2*px]) | uint16(g.rgb565[2*px+1])<<8)
		g.rgba[4*px] = r
		g.rgba[4*px+1] = gg
		g.rgba[4*px+2] = b
		g.rgba[4*px+3] = 0xFF
	}
	g.fbImg.WritePixels(g.rgba)
	screen.DrawImage(g.fbImg, nil)

	if g.h.led.isOn() {
		vector.DrawFilledCircle(screen, float32(fb.width-8), 8, 4, ledColor, true)
	}
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
