package furi

import (
	"sync/atomic"

	"furi/kernel"
)

// Mutex guards a value of type T with a RawLock. The value is reachable
// only through a Guard.
type Mutex[T any] struct {
	raw   RawLock
	owned *RawMutex
	value T
}

// NewMutex allocates a plain kernel mutex guarding value.
func NewMutex[T any](k kernel.Mutexes, value T) (*Mutex[T], error) {
	return newKernelMutex(k, kernel.MutexNormal, value)
}

// NewRecursiveMutex allocates a recursive kernel mutex guarding value. The
// holding thread may lock again and must unlock once per lock.
func NewRecursiveMutex[T any](k kernel.Mutexes, value T) (*Mutex[T], error) {
	return newKernelMutex(k, kernel.MutexRecursive, value)
}

func newKernelMutex[T any](k kernel.Mutexes, kind kernel.MutexKind, value T) (*Mutex[T], error) {
	raw, err := NewRawMutex(k, kind)
	if err != nil {
		return nil, err
	}
	return &Mutex[T]{raw: raw, owned: raw, value: value}, nil
}

// NewMutexOver guards value with an existing lock. Close does not free it.
func NewMutexOver[T any](raw RawLock, value T) *Mutex[T] {
	return &Mutex[T]{raw: raw, value: value}
}

// Raw returns the underlying lock.
func (m *Mutex[T]) Raw() RawLock { return m.raw }

// Lock blocks until the calling thread holds the mutex.
func (m *Mutex[T]) Lock() (*Guard[T], error) {
	if err := m.raw.Acquire(); err != nil {
		return nil, err
	}
	return &Guard[T]{m: m}, nil
}

// TryLock waits at most timeout. ok is false if the wait expired.
func (m *Mutex[T]) TryLock(timeout Duration) (g *Guard[T], ok bool, err error) {
	ok, err = m.raw.TryAcquire(timeout)
	if err != nil || !ok {
		return nil, false, err
	}
	return &Guard[T]{m: m}, true, nil
}

// With runs fn while holding the mutex. The lock is released on every
// return path, including a panic in fn.
func (m *Mutex[T]) With(fn func(v *T) error) (err error) {
	g, err := m.Lock()
	if err != nil {
		return err
	}
	defer func() {
		if uerr := g.Unlock(); err == nil {
			err = uerr
		}
	}()
	return fn(g.Value())
}

// Close frees a kernel mutex created by NewMutex or NewRecursiveMutex.
func (m *Mutex[T]) Close() error {
	if m.owned == nil {
		return nil
	}
	return m.owned.Close()
}

// Guard is proof that the calling thread holds a Mutex. Unlock releases it
// exactly once; the idiom is
//
//	g, err := m.Lock()
//	if err != nil {
//		return err
//	}
//	defer g.Unlock()
type Guard[T any] struct {
	m        *Mutex[T]
	released atomic.Bool
}

// Value returns the guarded value. It must not be used after Unlock.
func (g *Guard[T]) Value() *T {
	return &g.m.value
}

// Unlock releases the mutex. A second Unlock returns ErrAlreadyConsumed. An
// Unlock from a thread other than the holder returns ErrNotOwner and leaves
// the guard live.
func (g *Guard[T]) Unlock() error {
	if !g.released.CompareAndSwap(false, true) {
		return fail("guard unlock", ErrAlreadyConsumed)
	}
	if err := g.m.raw.Release(); err != nil {
		g.released.Store(false)
		return err
	}
	return nil
}
