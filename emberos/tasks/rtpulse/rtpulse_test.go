package rtpulse

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ember/emberos/kernel"
	"ember/emberos/rtimer"
)

type fakeHW struct {
	now     uint32
	target  uint32
	armed   bool
	handler func()
	hits    []uint32
}

func (h *fakeHW) Now() uint32            { return h.now }
func (h *fakeHW) TicksPerSecond() uint32 { return 32768 }
func (h *fakeHW) SetHandler(fn func())   { h.handler = fn }

func (h *fakeHW) Schedule(target uint32) {
	h.target = target
	h.armed = true
}

func (h *fakeHW) advance(n uint32) {
	for i := uint32(0); i < n; i++ {
		h.now++
		if h.armed && int32(h.now-h.target) >= 0 {
			h.armed = false
			h.hits = append(h.hits, h.now)
			h.handler()
		}
	}
}

func newLogger(buf *bytes.Buffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(buf)),
		stumpy.L.WithLevel(logiface.LevelInformational),
	).Logger()
}

func TestPulsesChainAtExactPeriod(t *testing.T) {
	var buf bytes.Buffer
	k := kernel.New(kernel.Config{Logger: newLogger(&buf)})
	hw := &fakeHW{now: 0xFFFF_FF00}
	task, err := New(k, rtimer.New(hw), 64, 4)
	require.NoError(t, err)
	require.NoError(t, k.Start(task.PID(), nil))

	for i := 0; i < 8; i++ {
		hw.advance(64)
		k.RunUntilIdle()
	}

	assert.Equal(t, uint32(8), task.Pulses())
	assert.Equal(t, []uint32{
		0xFFFF_FF40, 0xFFFF_FF80, 0xFFFF_FFC0, 0,
		0x40, 0x80, 0xC0, 0x100,
	}, hw.hits)
	assert.Zero(t, task.MaxLatency())
	assert.Equal(t, 2, strings.Count(buf.String(), `"msg":"rt pulse"`))
}

func TestPollCoalescesPulses(t *testing.T) {
	var buf bytes.Buffer
	k := kernel.New(kernel.Config{Logger: newLogger(&buf)})
	hw := &fakeHW{}
	task, err := New(k, rtimer.New(hw), 10, 1)
	require.NoError(t, err)
	require.NoError(t, k.Start(task.PID(), nil))

	// Several pulses before the dispatcher runs make a single report.
	hw.advance(50)
	k.RunUntilIdle()

	assert.Equal(t, uint32(5), task.Pulses())
	assert.Equal(t, 1, strings.Count(buf.String(), `"pulses":5`))
}

func TestExitStopsChain(t *testing.T) {
	k := kernel.New(kernel.Config{})
	hw := &fakeHW{}
	task, err := New(k, rtimer.New(hw), 10, 1)
	require.NoError(t, err)
	require.NoError(t, k.Start(task.PID(), nil))

	hw.advance(30)
	k.RunUntilIdle()
	require.Equal(t, uint32(3), task.Pulses())

	require.NoError(t, k.Exit(task.PID()))
	hw.advance(100)
	k.RunUntilIdle()
	assert.Equal(t, uint32(3), task.Pulses())
	assert.False(t, hw.armed)
}

func TestLatencyDoesNotShiftPhase(t *testing.T) {
	k := kernel.New(kernel.Config{})
	hw := &fakeHW{}
	s := rtimer.New(hw)
	task, err := New(k, s, 100, 1)
	require.NoError(t, err)
	require.NoError(t, k.Start(task.PID(), nil))

	// The compare interrupt is held off for 7 ticks.
	hw.armed = false
	hw.now = 107
	hw.handler()

	assert.Equal(t, uint32(7), task.MaxLatency())
	assert.Equal(t, uint32(200), hw.target)
}
