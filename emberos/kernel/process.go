package kernel

import (
	"errors"
	"sync/atomic"

	"ember/emberos/pt"
)

const maxWatchers = 4

// Thread is a process body. It is a protothread: it switches on
// ctx.LC() and returns at every suspension point.
type Thread func(ctx *Context, ev Event) pt.Result

// Definition declares a process.
type Definition struct {
	Name   string
	Thread Thread

	// Poll, if set, runs instead of resuming Thread when the process has
	// been polled.
	Poll func(ctx *Context)

	// Exit, if set, runs once when the process leaves the table, whether
	// it ended by itself or was asked to exit.
	Exit func(ctx *Context)
}

// State is the lifecycle state of a process.
type State uint32

const (
	// StateDormant: registered, never started.
	StateDormant State = iota
	// StateRunning: its code is on the call stack right now.
	StateRunning
	// StateWaiting: started and suspended, waiting for an event.
	StateWaiting
	// StateExited: finished; the slot stays in the table.
	StateExited
)

func (s State) String() string {
	switch s {
	case StateDormant:
		return "dormant"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

type process struct {
	def Definition
	pt  pt.PT
	ctx Context

	state atomic.Uint32
	poll  atomic.Bool

	// exitPending is set when Exit is called while the body is on the
	// call stack.
	exitPending bool

	watchers [maxWatchers]func(PID)
	nwatch   uint8
}

func (p *process) getState() State  { return State(p.state.Load()) }
func (p *process) setState(s State) { p.state.Store(uint32(s)) }

func (p *process) live() bool {
	s := p.getState()
	return s == StateRunning || s == StateWaiting
}

// Register adds a process to the table and returns its handle. The process
// stays dormant until Start. Main-thread only.
func (k *Kernel) Register(def Definition) (PID, error) {
	if def.Thread == nil {
		return NoPID, ErrNoThread
	}
	n := int(k.count.Load())
	if n >= len(k.procs) {
		return NoPID, ErrTableFull
	}
	pid := PID(n)
	p := &k.procs[n]
	p.def = def
	p.ctx = Context{PT: &p.pt, k: k, pid: pid}
	p.setState(StateDormant)
	k.count.Store(int32(n + 1))
	return pid, nil
}

func (k *Kernel) lookup(pid PID) (*process, error) {
	if int(pid) >= k.Len() {
		return nil, ErrNoProcess
	}
	return &k.procs[pid], nil
}

// Start runs a dormant or exited process from the top. Its body executes
// once with EventInit (Data = data) before Start returns.
//
// Starting a started process is reported with ErrAlreadyStarted and has
// no effect. Main-thread only.
func (k *Kernel) Start(pid PID, data any) error {
	p, err := k.lookup(pid)
	if err != nil {
		return err
	}
	if p.live() {
		k.log.Warning().
			Int("pid", int(pid)).
			Str("proc", p.def.Name).
			Log("start of running process ignored")
		return ErrAlreadyStarted
	}

	p.pt.Init()
	p.exitPending = false
	p.poll.Store(false)
	p.nwatch = 0
	p.setState(StateWaiting)

	k.log.Debug().
		Int("pid", int(pid)).
		Str("proc", p.def.Name).
		Log("process started")

	k.call(pid, Event{Kind: EventInit, Data: data, From: k.current})
	return nil
}

// Autostart starts pids in order. All are attempted; failures are joined.
func (k *Kernel) Autostart(pids ...PID) error {
	var errs []error
	for _, pid := range pids {
		if err := k.Start(pid, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Exit stops a process. A suspended process is resumed one last time with
// EventExit; if its code is executing now, that happens as soon as it
// returns. Exiting a process that is not running returns ErrNotRunning.
// Main-thread only.
func (k *Kernel) Exit(pid PID) error {
	p, err := k.lookup(pid)
	if err != nil {
		return err
	}
	switch p.getState() {
	case StateWaiting:
		k.exitProcess(pid)
		return nil
	case StateRunning:
		p.exitPending = true
		return nil
	default:
		return ErrNotRunning
	}
}

// Poll asks for the process's poll handler to run before any queued event
// is delivered. Interrupt-safe, O(1); unknown or stopped processes are
// ignored.
func (k *Kernel) Poll(pid PID) {
	if int(pid) >= k.Len() {
		return
	}
	p := &k.procs[pid]
	if !p.live() {
		return
	}
	p.poll.Store(true)
	k.pollRequested.Store(true)
	k.signal()
}

// OnExit registers fn to be called once when pid exits. Main-thread only.
func (k *Kernel) OnExit(pid PID, fn func(PID)) error {
	p, err := k.lookup(pid)
	if err != nil {
		return err
	}
	if !p.live() {
		return ErrNotRunning
	}
	if int(p.nwatch) >= maxWatchers {
		return ErrTooManyWatch
	}
	p.watchers[p.nwatch] = fn
	p.nwatch++
	return nil
}

// Name returns the declared name of pid.
func (k *Kernel) Name(pid PID) string {
	p, err := k.lookup(pid)
	if err != nil {
		return ""
	}
	return p.def.Name
}

// State returns the lifecycle state of pid. Interrupt-safe.
func (k *Kernel) State(pid PID) State {
	p, err := k.lookup(pid)
	if err != nil {
		return StateDormant
	}
	return p.getState()
}

// IsRunning reports whether pid has been started and has not exited.
func (k *Kernel) IsRunning(pid PID) bool {
	p, err := k.lookup(pid)
	return err == nil && p.live()
}

// Lookup finds a process by name.
func (k *Kernel) Lookup(name string) (PID, bool) {
	n := k.Len()
	for i := 0; i < n; i++ {
		if k.procs[i].def.Name == name {
			return PID(i), true
		}
	}
	return NoPID, false
}

// exitProcess gives a suspended process its final EventExit invocation and
// removes it.
func (k *Kernel) exitProcess(pid PID) {
	p := &k.procs[pid]
	p.exitPending = false

	prev := k.current
	k.current = pid
	p.setState(StateRunning)
	p.ctx.ev = Event{Kind: EventExit, From: prev}
	if p.pt.Begin() {
		p.pt.Finish(k.invoke(pid, p, p.ctx.ev))
	}
	k.current = prev

	k.finish(pid)
}

// finish marks pid exited and notifies the exit hook, the watchers and
// every other waiting process, each exactly once.
func (k *Kernel) finish(pid PID) {
	p := &k.procs[pid]
	p.setState(StateExited)
	p.exitPending = false
	p.poll.Store(false)

	// Taken before the exit hook, which may restart the process.
	watchers, n := p.watchers, p.nwatch
	p.watchers = [maxWatchers]func(PID){}
	p.nwatch = 0

	if p.def.Exit != nil {
		prev := k.current
		k.current = pid
		p.ctx.ev = Event{Kind: EventExit, From: prev}
		p.def.Exit(&p.ctx)
		k.current = prev
	}

	for _, fn := range watchers[:n] {
		if fn != nil {
			fn(pid)
		}
	}

	k.log.Debug().
		Int("pid", int(pid)).
		Str("proc", p.def.Name).
		Log("process exited")

	count := k.Len()
	for i := 0; i < count; i++ {
		if PID(i) != pid {
			k.call(PID(i), Event{Kind: EventExited, Data: pid, From: pid})
		}
	}
}
