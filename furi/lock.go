package furi

import (
	"sync"
	"sync/atomic"

	"furi/kernel"
)

// RawLock is the capability set shared by every lock in this package.
// Higher-level helpers (Mutex, Cond, AsLocker) are written against it, so
// plain and recursive mutexes compose the same way.
type RawLock interface {
	// Acquire blocks until the calling thread holds the lock.
	Acquire() error
	// TryAcquire waits at most timeout. It reports false on timeout.
	TryAcquire(timeout Duration) (bool, error)
	// Release gives up one level of ownership held by the calling thread.
	Release() error
}

// RawMutex owns one kernel mutex.
type RawMutex struct {
	k      kernel.Mutexes
	id     kernel.MutexID
	kind   kernel.MutexKind
	closed atomic.Bool
}

var _ RawLock = (*RawMutex)(nil)

// NewRawMutex allocates a kernel mutex of the given kind.
func NewRawMutex(k kernel.Mutexes, kind kernel.MutexKind) (*RawMutex, error) {
	id, st := k.MutexAlloc(kind)
	if st != kernel.StatusOK {
		return nil, statusErr("mutex alloc", st)
	}
	return &RawMutex{k: k, id: id, kind: kind}, nil
}

// Kind returns the locking semantics.
func (m *RawMutex) Kind() kernel.MutexKind { return m.kind }

// Acquire blocks until the mutex is held.
func (m *RawMutex) Acquire() error {
	_, err := m.acquire(kernel.WaitForever)
	return err
}

// TryAcquire waits at most timeout for the mutex.
func (m *RawMutex) TryAcquire(timeout Duration) (bool, error) {
	return m.acquire(timeout.ticks())
}

func (m *RawMutex) acquire(timeout kernel.Ticks) (bool, error) {
	if m.closed.Load() {
		return false, fail("mutex acquire", ErrClosed)
	}
	switch st := m.k.MutexAcquire(m.id, timeout); st {
	case kernel.StatusOK:
		return true, nil
	case kernel.StatusErrorTimeout, kernel.StatusErrorResource:
		return false, nil
	case kernel.StatusError:
		return false, fail("mutex acquire", ErrWouldDeadlock)
	default:
		return false, statusErr("mutex acquire", st)
	}
}

// Release drops one level of ownership. A caller that does not hold the
// mutex gets ErrNotOwner and the mutex is left untouched.
func (m *RawMutex) Release() error {
	if m.closed.Load() {
		return fail("mutex release", ErrClosed)
	}
	switch st := m.k.MutexRelease(m.id); st {
	case kernel.StatusOK:
		return nil
	case kernel.StatusErrorResource:
		return fail("mutex release", ErrNotOwner)
	default:
		return statusErr("mutex release", st)
	}
}

// HeldByCurrent reports whether the calling thread owns the mutex.
func (m *RawMutex) HeldByCurrent() bool {
	owner := m.k.MutexOwner(m.id)
	return owner != 0 && owner == m.k.ThreadCurrent()
}

// Owner returns the owning thread, or 0 if free.
func (m *RawMutex) Owner() kernel.ThreadID {
	return m.k.MutexOwner(m.id)
}

// Close frees the kernel mutex. It fails with ErrBusy while held or waited on.
func (m *RawMutex) Close() error {
	if m.closed.Load() {
		return fail("mutex close", ErrAlreadyConsumed)
	}
	switch st := m.k.MutexFree(m.id); st {
	case kernel.StatusOK:
		m.closed.Store(true)
		return nil
	case kernel.StatusErrorResource:
		return fail("mutex close", ErrBusy)
	default:
		return statusErr("mutex close", st)
	}
}

// AsLocker adapts l to sync.Locker. Like sync.Mutex, misuse panics.
func AsLocker(l RawLock) sync.Locker {
	return locker{l}
}

type locker struct{ l RawLock }

func (x locker) Lock() {
	if err := x.l.Acquire(); err != nil {
		panic(err)
	}
}

func (x locker) Unlock() {
	if err := x.l.Release(); err != nil {
		panic(err)
	}
}
