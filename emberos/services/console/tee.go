package console

import "ember/hal"

type tee []hal.Logger

// Tee returns a logger writing every line to each of loggers. Nil entries
// are skipped.
func Tee(loggers ...hal.Logger) hal.Logger {
	var t tee
	for _, l := range loggers {
		if l != nil {
			t = append(t, l)
		}
	}
	return t
}

func (t tee) WriteLineString(s string) {
	for _, l := range t {
		l.WriteLineString(s)
	}
}

func (t tee) WriteLineBytes(b []byte) {
	for _, l := range t {
		l.WriteLineBytes(b)
	}
}
