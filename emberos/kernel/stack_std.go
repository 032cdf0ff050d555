//go:build !tinygo

package kernel

import "runtime"

// maxStack bounds the captured trace; the panic screen shows far less.
const maxStack = 8 << 10

// captureStack returns the trace of the calling goroutine only.
func captureStack() []byte {
	buf := make([]byte, maxStack)
	return buf[:runtime.Stack(buf, false)]
}
