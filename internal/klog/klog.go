// Package klog builds the structured logger used throughout the system:
// logiface events, encoded as JSON by stumpy, one line per event on a
// hal.Logger.
package klog

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"ember/hal"
)

// New returns a logger writing to out at level. It returns nil, which
// logs nothing, if out is nil or level is disabled.
func New(out hal.Logger, level logiface.Level) *logiface.Logger[logiface.Event] {
	if out == nil || !level.Enabled() {
		return nil
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(NewLineWriter(out)),
			stumpy.WithLevelField(`lvl`),
		),
		stumpy.L.WithLevel(level),
	).Logger()
}

// LineWriter splits a byte stream into lines for a hal.Logger.
type LineWriter struct {
	out hal.Logger

	mu      sync.Mutex
	partial []byte
}

func NewLineWriter(out hal.Logger) *LineWriter {
	return &LineWriter{out: out}
}

// Write forwards each complete line; a trailing partial line is kept until
// its newline arrives.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			w.partial = append(w.partial, p...)
			break
		}
		line := p[:i]
		if len(w.partial) > 0 {
			line = append(w.partial, line...)
			w.partial = w.partial[:0]
		}
		w.out.WriteLineBytes(bytes.TrimSuffix(line, []byte{'\r'}))
		p = p[i+1:]
	}
	return n, nil
}

// ParseLevel maps a level name to a logiface level. It accepts the names
// logiface prints plus a few common aliases.
func ParseLevel(s string) (logiface.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "off", "none":
		return logiface.LevelDisabled, nil
	case "emerg", "emergency":
		return logiface.LevelEmergency, nil
	case "alert":
		return logiface.LevelAlert, nil
	case "crit", "critical":
		return logiface.LevelCritical, nil
	case "err", "error":
		return logiface.LevelError, nil
	case "warning", "warn":
		return logiface.LevelWarning, nil
	case "notice":
		return logiface.LevelNotice, nil
	case "info", "informational":
		return logiface.LevelInformational, nil
	case "debug":
		return logiface.LevelDebug, nil
	case "trace":
		return logiface.LevelTrace, nil
	}
	return logiface.LevelDisabled, fmt.Errorf("klog: unknown level %q", s)
}
