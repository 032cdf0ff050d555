package blink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ember/emberos/clock"
	"ember/emberos/etimer"
	"ember/emberos/kernel"
)

type fakeLED struct {
	levels []bool
}

func (l *fakeLED) High() { l.levels = append(l.levels, true) }
func (l *fakeLED) Low()  { l.levels = append(l.levels, false) }

type system struct {
	k   *kernel.Kernel
	clk *clock.Clock
	et  *etimer.Service
}

func newSystem(t *testing.T) *system {
	t.Helper()
	s := &system{
		k:   kernel.New(kernel.Config{}),
		clk: clock.New(1000),
	}
	var err error
	s.et, err = etimer.New(s.k, s.clk)
	require.NoError(t, err)
	require.NoError(t, s.k.Start(s.et.PID(), nil))
	return s
}

func (s *system) tick(n int) {
	for i := 0; i < n; i++ {
		s.et.Check(s.clk.Advance())
		s.k.RunUntilIdle()
	}
}

func TestBlinkTogglesEveryHalfPeriod(t *testing.T) {
	s := newSystem(t)
	led := &fakeLED{}
	task, err := New(s.k, s.et, led, 100)
	require.NoError(t, err)
	require.NoError(t, s.k.Start(task.PID(), nil))

	assert.Equal(t, []bool{false}, led.levels)

	s.tick(49)
	assert.Zero(t, task.Toggles())

	s.tick(1)
	assert.Equal(t, uint32(1), task.Toggles())
	assert.True(t, task.On())

	s.tick(950)
	assert.Equal(t, uint32(20), task.Toggles())
	assert.False(t, task.On())
	assert.Equal(t, false, led.levels[len(led.levels)-1])
}

func TestBlinkKeepsPhaseWhenLate(t *testing.T) {
	s := newSystem(t)
	task, err := New(s.k, s.et, &fakeLED{}, 40)
	require.NoError(t, err)
	require.NoError(t, s.k.Start(task.PID(), nil))

	// The dispatcher stalls for 5 ticks past the first expiry.
	for i := 0; i < 25; i++ {
		s.clk.Advance()
	}
	s.et.Check(s.clk.Now())
	s.k.RunUntilIdle()
	require.Equal(t, uint32(1), task.Toggles())

	// The next expiry is at 40, not 45.
	s.tick(14)
	assert.Equal(t, uint32(1), task.Toggles())
	s.tick(1)
	assert.Equal(t, uint32(2), task.Toggles())
}

func TestBlinkExitTurnsLEDOff(t *testing.T) {
	s := newSystem(t)
	led := &fakeLED{}
	task, err := New(s.k, s.et, led, 10)
	require.NoError(t, err)
	require.NoError(t, s.k.Start(task.PID(), nil))

	s.tick(5)
	require.True(t, task.On())

	require.NoError(t, s.k.Exit(task.PID()))
	assert.False(t, task.On())
	assert.False(t, led.levels[len(led.levels)-1])
	assert.False(t, s.et.Pending())

	s.tick(50)
	assert.Equal(t, uint32(1), task.Toggles())
}
