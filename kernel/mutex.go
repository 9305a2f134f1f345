package kernel

import "github.com/golang/glog"

type mutexObj struct {
	kind    MutexKind
	owner   ThreadID
	depth   uint32
	waiters []*waiter
}

// waiter is a thread parked on a mutex. The releasing thread hands
// ownership over directly by setting granted and closing ready.
type waiter struct {
	tid     ThreadID
	prio    Priority
	ready   chan struct{}
	granted bool
}

// enqueue keeps waiters ordered by priority, FIFO among equals.
func enqueue(ws []*waiter, w *waiter) []*waiter {
	i := len(ws)
	for i > 0 && ws[i-1].prio < w.prio {
		i--
	}
	ws = append(ws, nil)
	copy(ws[i+1:], ws[i:])
	ws[i] = w
	return ws
}

func dequeue(ws []*waiter, w *waiter) []*waiter {
	for i, x := range ws {
		if x == w {
			return append(ws[:i], ws[i+1:]...)
		}
	}
	return ws
}

// MutexAlloc creates a mutex.
func (h *Host) MutexAlloc(kind MutexKind) (MutexID, Status) {
	if kind != MutexNormal && kind != MutexRecursive {
		return 0, StatusErrorParameter
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.reserve(mutexCost) {
		return 0, StatusErrorNoMemory
	}
	id := MutexID(h.mutexes.put(&mutexObj{kind: kind}))
	logf("kernel: mutex %d alloc (%s)", id, kind)
	return id, StatusOK
}

// MutexFree destroys a mutex. A mutex that is held or waited on is not freed.
func (h *Host) MutexFree(id MutexID) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.mutexes.get(uint32(id))
	if !ok {
		return StatusErrorParameter
	}
	if m.owner != 0 || len(m.waiters) > 0 {
		glog.Warningf("kernel: mutex %d free refused: owner=%s waiters=%d", id, m.owner, len(m.waiters))
		return StatusErrorResource
	}
	h.mutexes.drop(uint32(id))
	h.release(mutexCost)
	logf("kernel: mutex %d free", id)
	return StatusOK
}

// MutexAcquire takes the mutex for the calling thread.
func (h *Host) MutexAcquire(id MutexID, timeout Ticks) Status {
	gid := goroutineID()

	h.mu.Lock()
	m, ok := h.mutexes.get(uint32(id))
	if !ok {
		h.mu.Unlock()
		return StatusErrorParameter
	}
	tid := h.currentLocked(gid)
	switch {
	case m.owner == 0:
		m.owner, m.depth = tid, 1
		h.mu.Unlock()
		return StatusOK
	case m.owner == tid:
		if m.kind == MutexRecursive {
			m.depth++
			h.mu.Unlock()
			return StatusOK
		}
		h.mu.Unlock()
		return StatusError
	case timeout == 0:
		h.mu.Unlock()
		return StatusErrorResource
	}

	w := &waiter{tid: tid, prio: h.priorityLocked(tid), ready: make(chan struct{})}
	m.waiters = enqueue(m.waiters, w)
	h.mu.Unlock()

	dl := h.newDeadline(timeout)
	defer dl.stop()
	if !dl.wait(w.ready) {
		return StatusOK
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if w.granted {
		return StatusOK
	}
	m.waiters = dequeue(m.waiters, w)
	return StatusErrorTimeout
}

// MutexRelease drops one level of ownership. When the mutex becomes free it
// is handed to the highest-priority waiter.
func (h *Host) MutexRelease(id MutexID) Status {
	gid := goroutineID()

	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.mutexes.get(uint32(id))
	if !ok {
		return StatusErrorParameter
	}
	tid := h.currentLocked(gid)
	if m.owner == 0 || m.owner != tid {
		return StatusErrorResource
	}
	m.depth--
	if m.depth > 0 {
		return StatusOK
	}
	m.owner = 0
	if len(m.waiters) > 0 {
		w := m.waiters[0]
		m.waiters = m.waiters[1:]
		m.owner, m.depth = w.tid, 1
		w.granted = true
		close(w.ready)
	}
	return StatusOK
}

// MutexOwner returns the owning thread, or 0 if the mutex is free or unknown.
func (h *Host) MutexOwner(id MutexID) ThreadID {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.mutexes.get(uint32(id)); ok {
		return m.owner
	}
	return 0
}
