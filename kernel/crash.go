package kernel

import (
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
)

// PanicInfo describes a thread body that panicked.
type PanicInfo struct {
	Thread ThreadID
	Name   string
	Value  any
	Stack  []byte
}

// CrashInfo describes a fatal kernel abort.
type CrashInfo struct {
	Thread  ThreadID
	Name    string
	Message string
	Stack   []byte
}

var (
	crashActive atomic.Bool
	crashOnce   sync.Once

	crashHandler atomic.Value // func(CrashInfo)
)

// Crashed reports whether the kernel has aborted.
func Crashed() bool {
	return crashActive.Load()
}

// SetCrashHandler installs a process-wide crash handler.
//
// The handler is invoked at most once (on the first crash). It must not panic.
// Without a handler the process exits.
func SetCrashHandler(fn func(CrashInfo)) {
	crashHandler.Store(fn)
}

// Crash aborts the kernel: the crash handler runs once and the calling
// thread halts forever. It never returns.
func (h *Host) Crash(message string) {
	gid := goroutineID()
	h.mu.Lock()
	info := CrashInfo{Thread: h.currentLocked(gid), Message: message}
	if t, ok := h.running[gid]; ok {
		info.Name = t.attr.Name
	}
	h.mu.Unlock()

	triggerCrash(info)
	select {}
}

func triggerCrash(info CrashInfo) {
	crashOnce.Do(func() {
		crashActive.Store(true)
		info.Stack = captureStack()
		if v := crashHandler.Load(); v != nil {
			if fn, ok := v.(func(CrashInfo)); ok && fn != nil {
				fn(info)
				return
			}
		}
		glog.Exitf("kernel: crash in %s (%s): %s", info.Thread, info.Name, info.Message)
	})
}
