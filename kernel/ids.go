package kernel

import "fmt"

// MutexID identifies a kernel mutex. The zero ID is invalid.
type MutexID uint32

// StreamID identifies a kernel stream buffer. The zero ID is invalid.
type StreamID uint32

// QueueID identifies a kernel message queue. The zero ID is invalid.
type QueueID uint32

// RecordID identifies one open reference to a named record. The zero ID is invalid.
type RecordID uint32

// ThreadID identifies a thread known to the kernel.
//
// Goroutines that were not spawned through the kernel still get a stable ID
// (with ForeignThread set) so they can own mutexes.
type ThreadID uint64

// ForeignThread marks IDs of threads the kernel did not create.
const ForeignThread ThreadID = 1 << 63

// Foreign reports whether the thread was created outside the kernel.
func (id ThreadID) Foreign() bool { return id&ForeignThread != 0 }

func (id ThreadID) String() string {
	if id == 0 {
		return "none"
	}
	if id.Foreign() {
		return fmt.Sprintf("foreign:%d", uint64(id&^ForeignThread))
	}
	return fmt.Sprintf("thread:%d", uint64(id))
}

// MutexKind selects plain or recursive locking semantics.
type MutexKind uint8

const (
	MutexNormal MutexKind = iota
	MutexRecursive
)

func (k MutexKind) String() string {
	switch k {
	case MutexNormal:
		return "normal"
	case MutexRecursive:
		return "recursive"
	default:
		return "unknown"
	}
}

// Priority is a kernel scheduling priority. Higher values run first.
type Priority uint8

const (
	PriorityNone    Priority = 0 // use the default (Normal)
	PriorityIdle    Priority = 1
	PriorityLowest  Priority = 14
	PriorityLow     Priority = 15
	PriorityNormal  Priority = 16
	PriorityHigh    Priority = 17
	PriorityHighest Priority = 18
	PriorityISR     Priority = 31
)

// Spawnable reports whether threads may be created at this priority.
func (p Priority) Spawnable() bool {
	switch p {
	case PriorityNone, PriorityIdle, PriorityLowest, PriorityLow,
		PriorityNormal, PriorityHigh, PriorityHighest:
		return true
	}
	return false
}

func (p Priority) String() string {
	switch p {
	case PriorityNone:
		return "none"
	case PriorityIdle:
		return "idle"
	case PriorityLowest:
		return "lowest"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityHighest:
		return "highest"
	case PriorityISR:
		return "isr"
	default:
		return fmt.Sprintf("priority(%d)", uint8(p))
	}
}

// ThreadState is the lifecycle state reported to thread state callbacks.
type ThreadState uint8

const (
	ThreadStateStopped ThreadState = iota
	ThreadStateStarting
	ThreadStateRunning
)

func (s ThreadState) String() string {
	switch s {
	case ThreadStateStopped:
		return "stopped"
	case ThreadStateStarting:
		return "starting"
	case ThreadStateRunning:
		return "running"
	default:
		return "unknown"
	}
}
