package furi

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"furi/kernel"
)

// DefaultStackSize is used when the builder sets no stack size.
const DefaultStackSize = 1024

// Thread priorities, lowest to highest.
const (
	PriorityIdle    = kernel.PriorityIdle
	PriorityLowest  = kernel.PriorityLowest
	PriorityLow     = kernel.PriorityLow
	PriorityNormal  = kernel.PriorityNormal
	PriorityHigh    = kernel.PriorityHigh
	PriorityHighest = kernel.PriorityHighest
)

// Builder configures a thread before it is spawned.
type Builder struct {
	k         kernel.Threads
	name      string
	stackSize int
	priority  kernel.Priority
	heapTrace bool
}

// NewBuilder returns a builder with the default stack size and priority.
func NewBuilder(k kernel.Threads) *Builder {
	return &Builder{k: k, stackSize: DefaultStackSize, priority: kernel.PriorityNormal}
}

// Name names the thread for diagnostics.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// StackSize sets the stack size in bytes.
func (b *Builder) StackSize(size int) *Builder {
	b.stackSize = size
	return b
}

// Priority sets the scheduling priority.
func (b *Builder) Priority(p kernel.Priority) *Builder {
	b.priority = p
	return b
}

// HeapTrace makes the kernel account the kernel heap the thread allocates
// and frees. Read it back with Thread.HeapSize.
func (b *Builder) HeapTrace() *Builder {
	b.heapTrace = true
	return b
}

func (b *Builder) validate() error {
	if strings.IndexByte(b.name, 0) >= 0 {
		return fail("spawn", fmt.Errorf("%w: name contains NUL", ErrInvalidConfig))
	}
	if b.stackSize <= 0 {
		return fail("spawn", fmt.Errorf("%w: stack size %d", ErrInvalidConfig, b.stackSize))
	}
	if !b.priority.Spawnable() {
		return fail("spawn", fmt.Errorf("%w: priority %s", ErrInvalidConfig, b.priority))
	}
	return nil
}

// Spawn starts entry on a new thread. The value it returns is the thread's
// exit code.
func (b *Builder) Spawn(entry func() int32) (*JoinHandle[int32], error) {
	return spawn(b, entry, func(rc int32) int32 { return rc })
}

// Spawn starts entry on a new thread configured by b. Join returns the
// value entry produced.
func Spawn[T any](b *Builder, entry func() T) (*JoinHandle[T], error) {
	var out T
	body := func() int32 {
		out = entry()
		return 0
	}
	return spawn(b, body, func(int32) T { return out })
}

// Go spawns entry with default settings.
func Go(k kernel.Threads, entry func() int32) (*JoinHandle[int32], error) {
	return NewBuilder(k).Spawn(entry)
}

func spawn[T any](b *Builder, body func() int32, value func(rc int32) T) (*JoinHandle[T], error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	finished := new(atomic.Bool)
	id, st := b.k.ThreadAlloc(kernel.ThreadAttr{
		Name:      b.name,
		StackSize: b.stackSize,
		Priority:  b.priority,
		HeapTrace: b.heapTrace,
		Body: func() int32 {
			defer finished.Store(true)
			return body()
		},
	})
	if st != kernel.StatusOK {
		return nil, statusErr("spawn", st)
	}
	h := &JoinHandle[T]{thread: &Thread{k: b.k, id: id, name: b.name}, value: value, finished: finished}
	if st := b.k.ThreadStart(id); st != kernel.StatusOK {
		b.k.ThreadFree(id)
		return nil, statusErr("spawn", st)
	}
	return h, nil
}

// Join states.
const (
	handleRunning int32 = iota
	handleJoined
	handleDetached
)

// JoinHandle is the owned right to join a thread. It must end in exactly one
// of Join, Detach or Close.
type JoinHandle[T any] struct {
	thread   *Thread
	value    func(rc int32) T
	state    atomic.Int32
	finished *atomic.Bool
}

// Thread returns the underlying thread.
func (h *JoinHandle[T]) Thread() *Thread { return h.thread }

// Join waits for the thread to finish, frees it, and returns its value.
// Joining twice or after Detach returns ErrAlreadyConsumed. A panicking
// thread is reported as *PanicError.
func (h *JoinHandle[T]) Join() (T, error) {
	var zero T
	if !h.state.CompareAndSwap(handleRunning, handleJoined) {
		return zero, fail("join", ErrAlreadyConsumed)
	}
	k, id := h.thread.k, h.thread.id
	if st := k.ThreadJoin(id); st != kernel.StatusOK {
		h.state.Store(handleRunning)
		if st == kernel.StatusErrorResource {
			return zero, fail("join", ErrWouldDeadlock)
		}
		return zero, statusErr("join", st)
	}
	rc := k.ThreadReturnCode(id)
	info := k.ThreadPanic(id)
	k.ThreadFree(id)
	if info != nil {
		return zero, &PanicError{Thread: info.Name, Value: info.Value, Stack: info.Stack}
	}
	return h.value(rc), nil
}

// Detach gives the thread to the kernel, which frees it when it stops.
func (h *JoinHandle[T]) Detach() error {
	if !h.state.CompareAndSwap(handleRunning, handleDetached) {
		return fail("detach", ErrAlreadyConsumed)
	}
	return statusErr("detach", h.thread.k.ThreadDetach(h.thread.id))
}

// IsFinished reports whether the thread body has returned or panicked. It
// stays accurate after Detach, when the kernel may already have reused the ID.
func (h *JoinHandle[T]) IsFinished() bool {
	return h.finished.Load()
}

// Close applies the drop policy: a handle still owning its thread joins it,
// discarding the value. Close after Join or Detach is a no-op.
func (h *JoinHandle[T]) Close() error {
	if h.state.Load() != handleRunning {
		return nil
	}
	_, err := h.Join()
	return err
}

// Thread is a handle to a kernel thread.
type Thread struct {
	k    kernel.Threads
	id   kernel.ThreadID
	name string
}

// Current returns the calling thread.
func Current(k kernel.Threads) *Thread {
	id := k.ThreadCurrent()
	return &Thread{k: k, id: id, name: k.ThreadName(id)}
}

// ID returns the kernel thread ID.
func (t *Thread) ID() kernel.ThreadID { return t.id }

// Name returns the thread name, or "" if unnamed.
func (t *Thread) Name() string { return t.name }

func (t *Thread) String() string {
	if t.name == "" {
		return t.id.String()
	}
	return fmt.Sprintf("%s(%s)", t.name, t.id)
}

// HeapSize returns the kernel heap the thread holds: bytes it allocated
// minus bytes it freed. Threads spawned without HeapTrace report
// ErrInvalidConfig.
func (t *Thread) HeapSize() (int64, error) {
	n, st := t.k.ThreadHeapSize(t.id)
	if st != kernel.StatusOK {
		return 0, statusErr("heap size", st)
	}
	return n, nil
}

// Yield gives up the rest of the timeslice.
func Yield(k kernel.Threads) { k.ThreadYield() }

// Sleep blocks the calling thread for d.
func Sleep(k kernel.Threads, d Duration) { k.Delay(d.ticks()) }

// SleepFor blocks the calling thread for wall time d, rounded up to whole
// ticks at the kernel's tick rate.
func SleepFor(k kernel.Threads, d time.Duration) {
	k.Delay(kernel.TicksFor(d, k.TickHz()))
}
