package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers"

	"ember/emberos/clock"
	"ember/hal"
)

type lineLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineLog) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}

func (l *lineLog) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func (l *lineLog) count(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

type fakeLED struct{ on bool }

func (l *fakeLED) High() { l.on = true }
func (l *fakeLED) Low()  { l.on = false }

type fakeTime struct{ ch chan uint64 }

func (t *fakeTime) Ticks() <-chan uint64   { return t.ch }
func (t *fakeTime) TicksPerSecond() uint32 { return 100 }

type fakeComparator struct{}

func (fakeComparator) Now() uint32            { return 0 }
func (fakeComparator) Schedule(uint32)        {}
func (fakeComparator) SetHandler(func())      {}
func (fakeComparator) TicksPerSecond() uint32 { return 32768 }

type fakeButton struct{ fn func(bool) }

func (b *fakeButton) Pressed() bool                  { return false }
func (b *fakeButton) OnChange(fn func(pressed bool)) { b.fn = fn }

type fakeThermometer struct{}

func (fakeThermometer) Update(drivers.Measurement) error { return nil }
func (fakeThermometer) Temperature() int32               { return 23125 }

type fakeHAL struct {
	log  *lineLog
	led  *fakeLED
	time *fakeTime
	btn  *fakeButton
}

func newFakeHAL() *fakeHAL {
	return &fakeHAL{
		log:  &lineLog{},
		led:  &fakeLED{},
		time: &fakeTime{ch: make(chan uint64, 64)},
		btn:  &fakeButton{},
	}
}

func (h *fakeHAL) Logger() hal.Logger           { return h.log }
func (h *fakeHAL) LED() hal.LED                 { return h.led }
func (h *fakeHAL) Display() hal.Display         { return nil }
func (h *fakeHAL) Time() hal.Time               { return h.time }
func (h *fakeHAL) Comparator() hal.Comparator   { return fakeComparator{} }
func (h *fakeHAL) Button() hal.Button           { return h.btn }
func (h *fakeHAL) Thermometer() hal.Thermometer { return fakeThermometer{} }

func TestSystemStartsEveryProcess(t *testing.T) {
	h := newFakeHAL()
	s, err := newSystem(h, DefaultConfig())
	require.NoError(t, err)

	for _, name := range []string{"event timer", "callback timer", "sensors", "blink", "rt pulse", "sensor log"} {
		pid, ok := s.k.Lookup(name)
		require.True(t, ok, name)
		assert.True(t, s.k.IsRunning(pid), name)
	}
	assert.Equal(t, uint32(100), s.clk.TicksPerSecond())
	assert.Equal(t, 1, h.log.count(`"msg":"ember started"`))
}

func TestDisabledTasksAreNotRegistered(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Blink = false
	cfg.RTPulse = false
	cfg.SensorLog = false
	s, err := newSystem(newFakeHAL(), cfg)
	require.NoError(t, err)

	for _, name := range []string{"blink", "rt pulse", "sensor log"} {
		_, ok := s.k.Lookup(name)
		assert.False(t, ok, name)
	}
}

func TestStepDrainsTicks(t *testing.T) {
	h := newFakeHAL()
	s, err := newSystem(h, DefaultConfig())
	require.NoError(t, err)

	for seq := uint64(1); seq <= 50; seq++ {
		h.time.ch <- seq
	}
	require.NoError(t, s.step())
	assert.Equal(t, clock.Tick(50), s.clk.Now())
	assert.True(t, h.led.on)

	// A tick the source dropped is caught up from the sequence number.
	h.time.ch <- 100
	require.NoError(t, s.step())
	assert.Equal(t, clock.Tick(100), s.clk.Now())
	assert.False(t, h.led.on)
}

func TestSensorLogSamplesTemperature(t *testing.T) {
	h := newFakeHAL()
	s, err := newSystem(h, DefaultConfig())
	require.NoError(t, err)

	s.tickTo(500)
	s.k.RunUntilIdle()
	assert.Equal(t, uint32(1), s.sensorlog.Reports())
	assert.Equal(t, 1, h.log.count(`"value":23125`))
}

func TestButtonPressIsLogged(t *testing.T) {
	h := newFakeHAL()
	s, err := newSystem(h, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, h.btn.fn)

	h.btn.fn(true)
	h.btn.fn(false)
	s.k.RunUntilIdle()
	assert.Equal(t, 1, h.log.count(`"sensor":"button"`))
}

func TestRunDispatchesUntilCancelled(t *testing.T) {
	h := newFakeHAL()
	s, err := newSystem(h, DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.run(ctx) }()

	for seq := uint64(1); seq <= 50; seq++ {
		h.time.ch <- seq
	}
	require.Eventually(t, func() bool { return s.clk.Now() == 50 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLogLevelDisabledSilencesLogs(t *testing.T) {
	h := newFakeHAL()
	cfg := DefaultConfig()
	cfg.LogLevel = logiface.LevelDisabled
	_, err := newSystem(h, cfg)
	require.NoError(t, err)
	assert.Zero(t, h.log.count("ember started"))
}
