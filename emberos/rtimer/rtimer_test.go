package rtimer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ember/emberos/clock"
)

// fakeHW is a manually advanced compare timer.
type fakeHW struct {
	now     uint32
	target  uint32
	armed   bool
	handler func()
}

func (h *fakeHW) Now() uint32            { return h.now }
func (h *fakeHW) TicksPerSecond() uint32 { return 32768 }
func (h *fakeHW) SetHandler(fn func())   { h.handler = fn }

func (h *fakeHW) Schedule(target uint32) {
	h.target = target
	h.armed = true
}

// advance moves the counter one tick at a time, raising the handler on a
// compare match.
func (h *fakeHW) advance(n uint32) {
	for i := uint32(0); i < n; i++ {
		h.now++
		if h.armed && int32(h.now-h.target) >= 0 {
			h.armed = false
			h.handler()
		}
	}
}

// interrupt raises the handler without a compare match.
func (h *fakeHW) interrupt() {
	h.armed = false
	h.handler()
}

type call struct {
	at   clock.Tick
	data any
}

func TestSecondArmReplacesFirst(t *testing.T) {
	hw := &fakeHW{}
	s := New(hw)
	var calls []call
	cb := func(tm *Timer, data any) { calls = append(calls, call{at: s.Now(), data: data}) }

	var a, b Timer
	require.NoError(t, s.Set(&a, 100, cb, "first"))
	require.NoError(t, s.Set(&b, 150, cb, "second"))
	assert.True(t, s.Pending())

	hw.advance(200)
	assert.Equal(t, []call{{at: 150, data: "second"}}, calls)
	assert.False(t, s.Pending())
	assert.Equal(t, Stats{Fired: 1, Replaced: 1}, s.Stats())
}

func TestStaleMatchIsIgnored(t *testing.T) {
	hw := &fakeHW{}
	s := New(hw)
	fired := 0

	var tm Timer
	require.NoError(t, s.Set(&tm, 100, func(*Timer, any) { fired++ }, nil))

	hw.advance(50)
	hw.interrupt()
	assert.Equal(t, 0, fired)
	assert.True(t, hw.armed)
	assert.Equal(t, uint32(100), hw.target)

	hw.advance(50)
	assert.Equal(t, 1, fired)
	assert.Equal(t, uint64(1), s.Stats().Stale)
}

func TestCallbackChainsNextTimer(t *testing.T) {
	hw := &fakeHW{now: 0xFFFFFF00}
	s := New(hw)
	var at []clock.Tick

	const period = 0x40
	var tm Timer
	var cb Callback
	cb = func(tm *Timer, data any) {
		at = append(at, s.Now())
		if len(at) < 5 {
			require.NoError(t, s.Set(tm, tm.Target()+period, cb, nil))
		}
	}
	require.NoError(t, s.Set(&tm, s.Now()+period, cb, nil))

	hw.advance(0x400)
	assert.Equal(t, []clock.Tick{0xFFFFFF40, 0xFFFFFF80, 0xFFFFFFC0, 0, 0x40}, at)
	assert.Equal(t, Stats{Fired: 5}, s.Stats())
}

func TestNilCallbackRejected(t *testing.T) {
	s := New(&fakeHW{})
	var tm Timer

	require.ErrorIs(t, s.Set(&tm, 10, nil, nil), ErrNoCallback)
	assert.False(t, s.Pending())
	assert.Equal(t, uint32(32768), s.Second())
}
