package kernel

import (
	"github.com/joeycumines/logiface"

	"ember/emberos/pt"
)

// Context is what a process body sees of the kernel. It embeds the
// process's protothread state, so the pt primitives are called on it
// directly.
type Context struct {
	*pt.PT

	k   *Kernel
	pid PID
	ev  Event
}

// PID returns the handle of the running process.
func (c *Context) PID() PID { return c.pid }

// Name returns the declared name of the running process.
func (c *Context) Name() string { return c.k.procs[c.pid].def.Name }

func (c *Context) Kernel() *Kernel { return c.k }

// Event returns the event the process is being invoked with.
func (c *Context) Event() Event { return c.ev }

func (c *Context) Logger() *logiface.Logger[logiface.Event] { return c.k.log }

// Post queues an event from this process.
func (c *Context) Post(to PID, kind EventKind, data any) error {
	return c.k.post(to, Event{Kind: kind, Data: data, From: c.pid})
}

// PostSync delivers an event from this process immediately.
func (c *Context) PostSync(to PID, kind EventKind, data any) error {
	return c.k.postSync(to, Event{Kind: kind, Data: data, From: c.pid})
}

// Poll requests a poll of this process.
func (c *Context) Poll() { c.k.Poll(c.pid) }

// Exit ends the process from inside its body: return its result.
func (c *Context) Exit() pt.Result { return c.PT.Exit() }

// WaitEvent suspends until the next event of any kind.
func (c *Context) WaitEvent(lc pt.LC) bool { return c.YieldUntil(lc, true) }

// WaitEventUntil suspends until an event arrives for which cond, evaluated
// on re-entry, is true.
func (c *Context) WaitEventUntil(lc pt.LC, cond bool) bool { return c.YieldUntil(lc, cond) }

// Pause gives every other process a turn: it posts EventContinue to itself
// and waits for it.
func (c *Context) Pause(lc pt.LC) bool {
	if c.Arriving(lc) {
		if err := c.Post(c.pid, EventContinue, nil); err != nil {
			c.k.log.Warning().
				Int("pid", int(c.pid)).
				Err(err).
				Log("pause: continue not queued")
		}
	}
	return c.YieldUntil(lc, c.ev.Kind == EventContinue)
}
