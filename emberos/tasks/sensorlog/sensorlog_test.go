package sensorlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ember/emberos/clock"
	"ember/emberos/ctimer"
	"ember/emberos/etimer"
	"ember/emberos/kernel"
	"ember/emberos/sensors"
)

type fakeSensor struct {
	name   string
	value  int
	active bool
}

func (f *fakeSensor) Name() string      { return f.name }
func (f *fakeSensor) Activate() error   { f.active = true; return nil }
func (f *fakeSensor) Deactivate() error { f.active = false; return nil }
func (f *fakeSensor) Active() bool      { return f.active }

func (f *fakeSensor) Value(int) (int, error) {
	if !f.active {
		return 0, sensors.ErrInactive
	}
	return f.value, nil
}

type system struct {
	k    *kernel.Kernel
	clk  *clock.Clock
	et   *etimer.Service
	svc  *sensors.Service
	task *Task
	buf  bytes.Buffer
}

func newSystem(t *testing.T, sample string, interval clock.Tick, sns ...sensors.Sensor) *system {
	t.Helper()
	s := &system{clk: clock.New(1000)}
	s.k = kernel.New(kernel.Config{
		Logger: stumpy.L.New(
			stumpy.L.WithStumpy(stumpy.WithWriter(&s.buf)),
			stumpy.L.WithLevel(logiface.LevelInformational),
		).Logger(),
	})
	var err error
	s.et, err = etimer.New(s.k, s.clk)
	require.NoError(t, err)
	ct, err := ctimer.New(s.k, s.et)
	require.NoError(t, err)
	s.svc, err = sensors.New(s.k, sns...)
	require.NoError(t, err)
	s.task, err = New(s.k, s.svc, ct, sample, interval)
	require.NoError(t, err)
	require.NoError(t, s.k.Autostart(s.et.PID(), ct.PID(), s.svc.PID(), s.task.PID()))
	return s
}

func (s *system) tick(n int) {
	for i := 0; i < n; i++ {
		s.et.Check(s.clk.Advance())
		s.k.RunUntilIdle()
	}
}

func TestSamplesPeriodically(t *testing.T) {
	temp := &fakeSensor{name: "temp", value: 21500}
	s := newSystem(t, "temp", 100, temp)
	require.NoError(t, s.svc.ActivateAll())

	s.tick(99)
	assert.Zero(t, s.task.Reports())

	s.tick(201)
	assert.Equal(t, uint32(3), s.task.Reports())
	assert.Equal(t, 3, strings.Count(s.buf.String(), `"msg":"sensor sample"`))
	assert.Contains(t, s.buf.String(), `"sensor":"temp"`)
	assert.Contains(t, s.buf.String(), `"value":21500`)
}

func TestLogsBroadcastChanges(t *testing.T) {
	btn := &fakeSensor{name: "button", value: 1}
	s := newSystem(t, "", 0, btn)
	require.NoError(t, s.svc.ActivateAll())

	s.svc.Changed(btn)
	s.k.RunUntilIdle()

	assert.Equal(t, uint32(1), s.task.Reports())
	assert.Contains(t, s.buf.String(), `"msg":"sensor changed"`)
}

func TestInactiveSensorCountsError(t *testing.T) {
	temp := &fakeSensor{name: "temp"}
	s := newSystem(t, "temp", 10, temp)

	s.tick(10)
	assert.Zero(t, s.task.Reports())
	assert.Equal(t, uint32(1), s.task.Errors())
	assert.Contains(t, s.buf.String(), `"msg":"sensor read failed"`)
}

func TestExitStopsSampling(t *testing.T) {
	temp := &fakeSensor{name: "temp", active: true}
	s := newSystem(t, "temp", 10, temp)

	s.tick(10)
	require.Equal(t, uint32(1), s.task.Reports())

	require.NoError(t, s.k.Exit(s.task.PID()))
	s.tick(100)
	assert.Equal(t, uint32(1), s.task.Reports())
	assert.False(t, s.et.Pending())
}
