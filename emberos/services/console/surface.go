package console

import (
	"image/color"

	"tinygo.org/x/drivers"

	"ember/hal"
)

// surface draws on an RGB565 framebuffer for the terminal.
type surface struct {
	fb hal.Framebuffer
}

var _ drivers.Displayer = (*surface)(nil)

func (d *surface) ok() bool {
	return d.fb != nil && d.fb.Format() == hal.PixelFormatRGB565 && d.fb.Buffer() != nil
}

func (d *surface) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *surface) SetPixel(x, y int16, c color.RGBA) {
	if !d.ok() {
		return
	}
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}
	buf := d.fb.Buffer()
	off := iy*d.fb.StrideBytes() + ix*2
	if off+1 >= len(buf) {
		return
	}
	p := rgb565(c)
	buf[off] = byte(p)
	buf[off+1] = byte(p >> 8)
}

func (d *surface) Display() error {
	if d.fb == nil {
		return nil
	}
	return d.fb.Present()
}

func (d *surface) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if !d.ok() {
		return nil
	}
	w, h := d.fb.Width(), d.fb.Height()
	x0, x1 := clamp(int(x), 0, w), clamp(int(x)+int(width), 0, w)
	y0, y1 := clamp(int(y), 0, h), clamp(int(y)+int(height), 0, h)

	p := rgb565(c)
	lo, hi := byte(p), byte(p>>8)
	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		row := buf[py*stride:]
		for px := x0; px < x1 && px*2+1 < len(row); px++ {
			row[px*2] = lo
			row[px*2+1] = hi
		}
	}
	return nil
}

// ScrollUp moves the picture up by lines rows and clears the bottom.
func (d *surface) ScrollUp(lines int16, bg color.RGBA) error {
	if !d.ok() || lines <= 0 {
		return nil
	}
	w, h := d.fb.Width(), d.fb.Height()
	n := int(lines)
	if n >= h {
		return d.FillRectangle(0, 0, int16(w), int16(h), bg)
	}
	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	end := h * stride
	if end > len(buf) {
		end = len(buf)
	}
	copy(buf, buf[n*stride:end])
	return d.FillRectangle(0, int16(h-n), int16(w), int16(n), bg)
}

// The framebuffer has no hardware scrolling or rotation.
func (d *surface) SetScroll(int16) {}

func (d *surface) SetRotation(drivers.Rotation) error { return nil }

func rgb565(c color.RGBA) uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
