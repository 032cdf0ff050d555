package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ember/emberos/clock"
)

func TestTimerScenario(t *testing.T) {
	var tm Timer
	tm.Set(0, 100)

	assert.False(t, tm.Expired(99))
	assert.True(t, tm.Expired(100))

	tm.Reset()
	assert.Equal(t, clock.Tick(100), tm.Start())
	assert.Equal(t, clock.Tick(200), tm.Expiration())
	assert.False(t, tm.Expired(199))
	assert.True(t, tm.Expired(200))
}

func TestTimerRestartUsesNow(t *testing.T) {
	var tm Timer
	tm.Set(0, 100)
	tm.Restart(150)

	assert.Equal(t, clock.Tick(250), tm.Expiration())
	assert.Equal(t, clock.Tick(100), tm.Interval())
}

func TestTimerResetKeepsPhaseWhenLate(t *testing.T) {
	var tm Timer
	tm.Set(0, 10)

	// serviced 3 ticks late, twice
	assert.True(t, tm.Expired(13))
	tm.Reset()
	assert.True(t, tm.Expired(23))
	tm.Reset()
	assert.Equal(t, clock.Tick(30), tm.Expiration())
}

func TestTimerExpiredAcrossWrap(t *testing.T) {
	starts := []clock.Tick{0, 1, 0x7FFFFFF0, 0x80000000, 0xFFFFFF00, 0xFFFFFFFF}
	intervals := []clock.Tick{1, 100, 0x1000, clock.HalfRange - 1}

	for _, start := range starts {
		for _, interval := range intervals {
			var tm Timer
			tm.Set(start, interval)
			exp := start + interval

			if tm.Expired(exp - 1) {
				t.Fatalf("Set(%#x, %#x): Expired(exp-1) = true, want false", start, interval)
			}
			for _, after := range []clock.Tick{0, 1, 1000, clock.HalfRange - 1} {
				if !tm.Expired(exp + after) {
					t.Fatalf("Set(%#x, %#x): Expired(exp+%#x) = false, want true", start, interval, after)
				}
			}
		}
	}
}

func TestTimerRemaining(t *testing.T) {
	var tm Timer
	tm.Set(0xFFFFFFF0, 0x20)

	assert.Equal(t, clock.Tick(0x20), tm.Remaining(0xFFFFFFF0))
	assert.Equal(t, clock.Tick(0x10), tm.Remaining(0))
	assert.Equal(t, clock.Tick(0), tm.Remaining(0x10))
	assert.Equal(t, clock.Tick(0), tm.Remaining(0x50))
}

func TestSecondsTimer(t *testing.T) {
	var s Seconds
	s.Set(0xFFFFFFFE, 5)

	assert.False(t, s.Expired(2))
	assert.True(t, s.Expired(3))
	assert.Equal(t, uint32(4), s.Remaining(0xFFFFFFFF))
	assert.Equal(t, uint32(3), s.Elapsed(1))

	s.Reset()
	assert.Equal(t, uint32(8), s.Expiration())
}
