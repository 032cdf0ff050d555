package kernel

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// PanicInfo describes a panic raised by process code or by the kernel
// itself.
type PanicInfo struct {
	PID   PID
	Name  string
	Value any
	Stack []byte
}

var (
	panicActive atomic.Bool
	panicOnce   sync.Once

	panicHandler atomic.Value // func(PanicInfo)
)

// InPanicMode reports whether a panic has been raised.
func InPanicMode() bool {
	return panicActive.Load()
}

// SetPanicHandler installs a process-wide panic handler.
//
// The handler is invoked at most once (on the first panic). It must not panic.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

func triggerPanic(info PanicInfo) {
	panicOnce.Do(func() {
		panicActive.Store(true)
		info.Stack = captureStack()
		if v := panicHandler.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}

// Fatal halts on an internal inconsistency. The kernel cannot continue
// past one, so it reports through the panic handler and panics.
func (k *Kernel) Fatal(format string, args ...any) {
	msg := fmt.Sprintf("kernel: "+format, args...)
	k.log.Emerg().Log(msg)
	info := PanicInfo{PID: k.current, Value: msg}
	if int(k.current) < k.Len() {
		info.Name = k.procs[k.current].def.Name
	}
	triggerPanic(info)
	panic(msg)
}
