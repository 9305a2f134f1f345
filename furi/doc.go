// Package furi wraps the kernel's handle-based primitives in types that own
// their handles: records, mutexes, threads, stream buffers and message queues.
//
// Every constructor takes the slice of the kernel surface it needs, so any
// kernel.Kernel implementation (kernel.Host on a development machine) can back
// it. Blocking calls take a Duration in ticks; Forever disables the timeout.
package furi
