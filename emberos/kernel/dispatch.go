package kernel

import "ember/emberos/pt"

// Post queues an event for to, or for every live process if to is
// Broadcast. Interrupt-safe, O(1), never blocks.
//
// A full queue drops the event and returns ErrQueueFull. Posting to a
// process that is not running fails without touching the queue.
func (k *Kernel) Post(to PID, kind EventKind, data any) error {
	return k.post(to, Event{Kind: kind, Data: data, From: NoPID})
}

func (k *Kernel) post(to PID, ev Event) error {
	if to != Broadcast {
		p, err := k.lookup(to)
		if err != nil {
			return err
		}
		switch p.getState() {
		case StateExited:
			return ErrProcessExited
		case StateDormant:
			return ErrNotRunning
		}
	}
	if !k.queue.push(queuedEvent{to: to, ev: ev}) {
		k.dropped.Add(1)
		return ErrQueueFull
	}
	k.posted.Add(1)
	k.signal()
	return nil
}

// PostSync delivers an event to a single process immediately, on the
// caller's stack. A target that is not suspended (including the caller
// itself) does not receive it. Main-thread only.
func (k *Kernel) PostSync(to PID, kind EventKind, data any) error {
	return k.postSync(to, Event{Kind: kind, Data: data, From: k.current})
}

func (k *Kernel) postSync(to PID, ev Event) error {
	p, err := k.lookup(to)
	if err != nil {
		return err
	}
	switch p.getState() {
	case StateExited:
		return ErrProcessExited
	case StateDormant:
		return ErrNotRunning
	}
	k.call(to, ev)
	return nil
}

// RunOnce runs one dispatch pass and returns the remaining work, as
// Pending would.
//
// If any poll is outstanding, every polled process is serviced, in table
// order. Only when no poll is outstanding afterwards is one queued event
// delivered. Main-thread only, and not from process code.
func (k *Kernel) RunOnce() int {
	if k.dispatching {
		k.Fatal("dispatcher re-entered from process %d", k.current)
	}
	k.dispatching = true
	prev := k.current
	defer func() {
		// a recovered process panic must not leave the dispatcher marked busy
		k.dispatching = false
		k.current = prev
	}()
	k.passes.Add(1)

	if k.pollRequested.Load() {
		k.runPolls()
	}
	if !k.pollRequested.Load() {
		k.deliverOne()
	}
	k.reportDrops()

	return k.Pending()
}

func (k *Kernel) runPolls() {
	k.pollRequested.Store(false)
	n := k.Len()
	for i := 0; i < n; i++ {
		p := &k.procs[i]
		if !p.poll.Swap(false) {
			continue
		}
		if p.getState() != StateWaiting {
			continue
		}
		k.polls.Add(1)
		if p.def.Poll == nil {
			k.call(PID(i), Event{Kind: EventPoll, From: NoPID})
			continue
		}
		k.callPoll(PID(i))
	}
}

func (k *Kernel) deliverOne() {
	qe, ok := k.queue.pop()
	if !ok {
		return
	}
	if qe.to == Broadcast {
		n := k.Len()
		for i := 0; i < n; i++ {
			k.call(PID(i), qe.ev)
		}
	} else {
		if int(qe.to) >= k.Len() {
			k.Fatal("queued event %s for unknown process %d", qe.ev.Kind, qe.to)
		}
		k.call(qe.to, qe.ev)
	}
	k.delivered.Add(1)
}

func (k *Kernel) reportDrops() {
	d := k.dropped.Load()
	if d == k.reportedDrops {
		return
	}
	k.log.Warning().
		Uint64("dropped", d-k.reportedDrops).
		Uint64("total", d).
		Log("event queue overflow")
	k.reportedDrops = d
}

// call resumes a suspended process with ev. Processes that are not
// suspended are skipped.
func (k *Kernel) call(pid PID, ev Event) {
	p := &k.procs[pid]
	if p.getState() != StateWaiting {
		return
	}

	prev := k.current
	k.current = pid
	p.setState(StateRunning)
	p.ctx.ev = ev

	r := pt.Ended
	if p.pt.Begin() {
		r = p.pt.Finish(k.invoke(pid, p, ev))
	}
	k.current = prev

	switch {
	case !pt.Alive(r):
		k.finish(pid)
	case p.exitPending:
		k.exitProcess(pid)
	default:
		p.setState(StateWaiting)
	}
}

func (k *Kernel) callPoll(pid PID) {
	p := &k.procs[pid]

	prev := k.current
	k.current = pid
	p.setState(StateRunning)
	p.ctx.ev = Event{Kind: EventPoll, From: NoPID}
	k.guard(pid, p, func() { p.def.Poll(&p.ctx) })
	k.current = prev

	if p.exitPending {
		k.exitProcess(pid)
		return
	}
	p.setState(StateWaiting)
}

func (k *Kernel) invoke(pid PID, p *process, ev Event) (r pt.Result) {
	k.guard(pid, p, func() { r = p.def.Thread(&p.ctx, ev) })
	return r
}

// guard reports a panic in process code to the panic handler before
// letting it continue up the stack.
func (k *Kernel) guard(pid PID, p *process, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			k.log.Emerg().
				Int("pid", int(pid)).
				Str("proc", p.def.Name).
				Log("process panicked")
			triggerPanic(PanicInfo{PID: pid, Name: p.def.Name, Value: v})
			panic(v)
		}
	}()
	fn()
}
