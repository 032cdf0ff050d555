//go:build !tinygo

package hal

import (
	"context"
	"time"
)

// HostTickRate is the host tick interrupt rate.
const HostTickRate = 1000

type hostTime struct {
	ch  chan uint64
	seq uint64

	last time.Time
	acc  time.Duration
}

func newHostTime() *hostTime {
	return &hostTime{ch: make(chan uint64, 1024)}
}

func (t *hostTime) Ticks() <-chan uint64   { return t.ch }
func (t *hostTime) TicksPerSecond() uint32 { return HostTickRate }

// step raises as many ticks as real time has advanced since the last call.
func (t *hostTime) step() {
	now := time.Now()
	if t.last.IsZero() {
		t.last = now
		t.acc = 0
		t.stepN(1)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	const tickDur = time.Second / HostTickRate
	ticks := uint64(t.acc / tickDur)
	if ticks == 0 {
		return
	}
	t.acc = t.acc % tickDur
	t.stepN(ticks)
}

func (t *hostTime) stepN(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}

// run raises ticks in real time until ctx is done.
func (t *hostTime) run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / HostTickRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.step()
		}
	}
}
