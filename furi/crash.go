package furi

import "furi/kernel"

// Crash aborts the kernel with message. The crash handler runs and the
// calling thread halts; Crash never returns.
func Crash(k kernel.Threads, message string) {
	k.Crash(message)
	panic("unreachable")
}

// Check crashes the kernel when cond is false.
func Check(k kernel.Threads, cond bool, message string) {
	if !cond {
		Crash(k, message)
	}
}
