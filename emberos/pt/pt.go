// Package pt implements protothreads: stackless coroutines whose whole
// suspended state is one resume point.
//
// A protothread body is an explicit state machine. It switches on LC(),
// and every place it can suspend is a named LC constant:
//
//	const (
//		waitReady pt.LC = iota + 1
//		waitDone
//	)
//
//	func (w *worker) run(p *pt.PT) pt.Result {
//		switch p.LC() {
//		case pt.Start:
//			w.n = 0
//			fallthrough
//		case waitReady:
//			if !p.WaitUntil(waitReady, w.ready()) {
//				return pt.Waiting
//			}
//			w.n++
//			return p.Yield(waitDone)
//		case waitDone:
//		}
//		return p.End()
//	}
//
// Locals do not survive a suspension; anything needed after a resume must
// live in the owner's struct (w.n above).
package pt

// LC is a resume point.
type LC uint16

const (
	// Start is the resume point of a fresh or restarted protothread.
	Start LC = 0

	terminal LC = 0xFFFF
)

// Result is the outcome of one invocation of a protothread body.
type Result uint8

const (
	// Waiting means the body is blocked on a condition.
	Waiting Result = iota
	// Yielded means the body gave up control voluntarily.
	Yielded
	// Exited means the body left early through Exit.
	Exited
	// Ended means the body ran to its end.
	Ended
)

func (r Result) String() string {
	switch r {
	case Waiting:
		return "waiting"
	case Yielded:
		return "yielded"
	case Exited:
		return "exited"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Alive reports whether r leaves the protothread schedulable.
func Alive(r Result) bool { return r < Exited }

// PT is the state of one protothread.
type PT struct {
	lc LC

	// fresh is set at the start of each invocation and cleared by the first
	// suspension point the body reaches.
	fresh bool
}

// Thread is a standalone protothread body.
type Thread func(p *PT) Result

// Init rewinds p to Start.
func (p *PT) Init() {
	p.lc = Start
	p.fresh = false
}

// LC returns the resume point.
func (p *PT) LC() LC { return p.lc }

// Done reports whether p has reached its terminal point.
func (p *PT) Done() bool { return p.lc == terminal }

// Begin marks the start of an invocation. It returns false once p is done,
// in which case the body must not run.
func (p *PT) Begin() bool {
	if p.lc == terminal {
		return false
	}
	p.fresh = true
	return true
}

// Finish records the result of an invocation.
func (p *PT) Finish(r Result) Result {
	if !Alive(r) {
		p.lc = terminal
	}
	p.fresh = false
	return r
}

// Schedule runs t once, honouring the entry and exit contracts: a done
// protothread is not invoked again.
func Schedule(p *PT, t Thread) Result {
	if !p.Begin() {
		return Ended
	}
	return p.Finish(t(p))
}

// Arriving reports whether control is flowing into lc from earlier code in
// this invocation, rather than resuming at lc.
func (p *PT) Arriving(lc LC) bool {
	return !p.fresh || p.lc != lc
}

// WaitUntil records lc as the resume point and reports whether cond holds.
// The caller returns Waiting when it does not.
func (p *PT) WaitUntil(lc LC, cond bool) bool {
	p.lc = lc
	p.fresh = false
	return cond
}

// WaitWhile is WaitUntil with the condition inverted.
func (p *PT) WaitWhile(lc LC, cond bool) bool {
	return p.WaitUntil(lc, !cond)
}

// YieldUntil suspends at least once at lc and then until cond holds.
// The caller returns Yielded when it reports false.
func (p *PT) YieldUntil(lc LC, cond bool) bool {
	if p.Arriving(lc) {
		p.lc = lc
		p.fresh = false
		return false
	}
	p.fresh = false
	return cond
}

// Yield saves lc as the resume point. The next invocation continues at lc.
func (p *PT) Yield(lc LC) Result {
	p.lc = lc
	p.fresh = false
	return Yielded
}

// WaitThread records lc and reports whether the child protothread whose
// latest result is child has finished.
func (p *PT) WaitThread(lc LC, child Result) bool {
	return p.WaitUntil(lc, !Alive(child))
}

// Restart rewinds to Start; the next invocation runs the body from the top.
func (p *PT) Restart() Result {
	p.Init()
	return Waiting
}

// Exit stops the protothread early.
func (p *PT) Exit() Result {
	p.lc = terminal
	return Exited
}

// End marks the end of the body.
func (p *PT) End() Result {
	p.lc = terminal
	return Ended
}
