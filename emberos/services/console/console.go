// Package console shows log lines on the framebuffer through a VT100
// terminal.
//
// Lines may be written from any goroutine; they are buffered and drawn on
// the main thread when the console process is polled.
package console

import (
	"sync"
	"sync/atomic"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"

	"ember/emberos/kernel"
	"ember/emberos/pt"
	"ember/hal"
)

const (
	ProcessName = "console"

	// maxPending bounds the bytes buffered between flushes; lines past it
	// are dropped.
	maxPending = 4096
)

// Console is a hal.Logger that renders to a framebuffer.
type Console struct {
	fb   hal.Framebuffer
	surf *surface
	term *tinyterm.Terminal

	mu      sync.Mutex
	pending []byte
	dropped atomic.Uint32

	k   atomic.Pointer[kernel.Kernel]
	pid kernel.PID
}

var _ hal.Logger = (*Console)(nil)

// New creates a console on fb. A nil fb gives a console that discards
// everything.
func New(fb hal.Framebuffer) *Console {
	c := &Console{fb: fb, surf: &surface{fb: fb}}
	if fb != nil {
		c.reset()
	}
	return c
}

func (c *Console) reset() {
	c.term = tinyterm.NewTerminal(c.surf)
	c.term.Configure(&tinyterm.Config{
		Font:              &proggy.TinySZ8pt7b,
		FontHeight:        10,
		FontOffset:        7,
		UseSoftwareScroll: true,
	})
	c.fb.ClearRGB(0, 0, 0)
	_ = c.fb.Present()
}

// Register adds the console process to k. Once it is started, every write
// polls it.
func (c *Console) Register(k *kernel.Kernel) (kernel.PID, error) {
	pid, err := k.Register(kernel.Definition{
		Name:   ProcessName,
		Thread: c.run,
		Poll:   func(*kernel.Context) { c.Flush() },
	})
	if err != nil {
		return kernel.NoPID, err
	}
	c.pid = pid
	c.k.Store(k)
	return pid, nil
}

func (c *Console) WriteLineString(s string) {
	c.mu.Lock()
	ok := c.append(s)
	c.mu.Unlock()
	c.written(ok)
}

func (c *Console) WriteLineBytes(b []byte) {
	c.mu.Lock()
	ok := c.append(string(b))
	c.mu.Unlock()
	c.written(ok)
}

func (c *Console) append(line string) bool {
	if c.term == nil {
		return false
	}
	if len(c.pending)+len(line)+2 > maxPending {
		c.dropped.Add(1)
		return false
	}
	c.pending = append(c.pending, line...)
	c.pending = append(c.pending, '\r', '\n')
	return true
}

func (c *Console) written(ok bool) {
	if !ok {
		return
	}
	if k := c.k.Load(); k != nil {
		k.Poll(c.pid)
	}
}

// Dropped returns the number of lines lost to a full buffer.
func (c *Console) Dropped() uint32 { return c.dropped.Load() }

// Flush draws the buffered lines. Main thread only.
func (c *Console) Flush() {
	if c.term == nil {
		return
	}
	c.mu.Lock()
	buf := c.pending
	c.pending = nil
	c.mu.Unlock()
	if len(buf) == 0 {
		return
	}
	_, _ = c.term.Write(buf)
	c.term.Display()
}

// Clear blanks the screen and drops anything not yet drawn. Main thread
// only.
func (c *Console) Clear() {
	if c.fb == nil {
		return
	}
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
	c.reset()
}

const waitEvent pt.LC = 1

func (c *Console) run(ctx *kernel.Context, ev kernel.Event) pt.Result {
	switch ctx.LC() {
	case pt.Start:
		fallthrough
	case waitEvent:
		if ctx.WaitEvent(waitEvent) && ev.Kind == kernel.EventExit {
			c.Flush()
		}
	}
	return pt.Yielded
}
