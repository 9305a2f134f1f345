package kernel

import (
	"strings"

	"github.com/golang/glog"
)

type threadObj struct {
	id   ThreadID
	attr ThreadAttr
	cost int64

	state    ThreadState
	started  bool
	detached bool
	gid      int64
	done     chan struct{}

	ret   int32
	panic *PanicInfo
	heap  int64

	flags        uint32
	flagsChanged chan struct{}
}

func (t *threadObj) stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// ThreadAlloc creates a thread in the stopped state.
func (h *Host) ThreadAlloc(attr ThreadAttr) (ThreadID, Status) {
	if attr.Body == nil || strings.IndexByte(attr.Name, 0) >= 0 {
		return 0, StatusErrorParameter
	}
	if attr.StackSize < h.cfg.MinStackSize || attr.StackSize > h.cfg.MaxStackSize {
		return 0, StatusErrorParameter
	}
	if attr.Priority == PriorityNone {
		attr.Priority = PriorityNormal
	}
	if !attr.Priority.Spawnable() {
		return 0, StatusErrorParameter
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.threads.len() >= h.cfg.MaxThreads {
		return 0, StatusErrorNoMemory
	}
	cost := int64(attr.StackSize + threadCost)
	if !h.reserve(cost) {
		return 0, StatusErrorNoMemory
	}
	t := &threadObj{
		attr:         attr,
		cost:         cost,
		done:         make(chan struct{}),
		flagsChanged: make(chan struct{}),
	}
	t.id = ThreadID(h.threads.put(t))
	if attr.HeapTrace {
		h.traced++
	}
	logf("kernel: thread %d alloc name=%q stack=%d prio=%s", t.id, attr.Name, attr.StackSize, attr.Priority)
	return t.id, StatusOK
}

// ThreadStart runs the thread body. A thread starts at most once.
func (h *Host) ThreadStart(id ThreadID) Status {
	h.mu.Lock()
	t, ok := h.lookupThreadLocked(id)
	if !ok {
		h.mu.Unlock()
		return StatusErrorParameter
	}
	if t.started {
		h.mu.Unlock()
		return StatusErrorResource
	}
	t.started = true
	h.mu.Unlock()

	h.setState(t, ThreadStateStarting)
	go h.run(t)
	return StatusOK
}

func (h *Host) run(t *threadObj) {
	gid := goroutineID()
	h.mu.Lock()
	t.gid = gid
	h.running[gid] = t
	h.mu.Unlock()

	h.setState(t, ThreadStateRunning)
	ret, info := h.invoke(t)

	h.mu.Lock()
	delete(h.running, gid)
	t.gid = 0
	t.ret = ret
	t.panic = info
	h.mu.Unlock()

	h.setState(t, ThreadStateStopped)

	// done closes under the same lock hold as the detached check, so exactly
	// one of run and ThreadDetach frees a detached thread.
	h.mu.Lock()
	close(t.done)
	if t.detached {
		h.freeThreadLocked(t)
	}
	h.mu.Unlock()
}

func (h *Host) invoke(t *threadObj) (ret int32, info *PanicInfo) {
	defer func() {
		if v := recover(); v != nil {
			info = &PanicInfo{Thread: t.id, Name: t.attr.Name, Value: v, Stack: captureStack()}
			ret = -1
			glog.Errorf("kernel: thread %d (%s) panicked: %v", t.id, t.attr.Name, v)
		}
	}()
	return t.attr.Body(), nil
}

func (h *Host) setState(t *threadObj, s ThreadState) {
	h.mu.Lock()
	t.state = s
	cb := t.attr.OnState
	h.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

func (h *Host) lookupThreadLocked(id ThreadID) (*threadObj, bool) {
	if id == 0 || id.Foreign() {
		return nil, false
	}
	return h.threads.get(uint32(id))
}

func (h *Host) freeThreadLocked(t *threadObj) {
	h.threads.drop(uint32(t.id))
	h.release(t.cost)
	if t.attr.HeapTrace {
		h.traced--
	}
	logf("kernel: thread %d free", t.id)
}

// ThreadJoin blocks until the thread stops. A thread cannot join itself.
func (h *Host) ThreadJoin(id ThreadID) Status {
	gid := goroutineID()
	h.mu.Lock()
	t, ok := h.lookupThreadLocked(id)
	if !ok {
		h.mu.Unlock()
		return StatusErrorParameter
	}
	if !t.started || t.detached || (t.gid != 0 && t.gid == gid) {
		h.mu.Unlock()
		return StatusErrorResource
	}
	done := t.done
	h.mu.Unlock()

	<-done
	return StatusOK
}

// ThreadDetach hands the thread to the kernel, which frees it once stopped.
func (h *Host) ThreadDetach(id ThreadID) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.lookupThreadLocked(id)
	if !ok {
		return StatusErrorParameter
	}
	if !t.started || t.detached {
		return StatusErrorResource
	}
	t.detached = true
	if t.stopped() {
		h.freeThreadLocked(t)
	}
	return StatusOK
}

// ThreadFree releases a thread that never started or has stopped.
func (h *Host) ThreadFree(id ThreadID) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.lookupThreadLocked(id)
	if !ok {
		return StatusErrorParameter
	}
	if t.detached || (t.started && !t.stopped()) {
		return StatusErrorResource
	}
	h.freeThreadLocked(t)
	return StatusOK
}

// ThreadState returns the lifecycle state. Unknown threads report stopped.
func (h *Host) ThreadState(id ThreadID) ThreadState {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.lookupThreadLocked(id); ok {
		return t.state
	}
	return ThreadStateStopped
}

// ThreadReturnCode returns the body's result once the thread has stopped.
func (h *Host) ThreadReturnCode(id ThreadID) int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.lookupThreadLocked(id); ok {
		return t.ret
	}
	return 0
}

// ThreadPanic returns details if the body panicked, or nil.
func (h *Host) ThreadPanic(id ThreadID) *PanicInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.lookupThreadLocked(id); ok {
		return t.panic
	}
	return nil
}

// ThreadName returns the thread name, or "" for unknown and foreign threads.
func (h *Host) ThreadName(id ThreadID) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.lookupThreadLocked(id); ok {
		return t.attr.Name
	}
	return ""
}

// ThreadHeapSize returns the bytes a heap-traced thread has allocated minus
// those it freed. Threads without HeapTrace report StatusErrorParameter.
func (h *Host) ThreadHeapSize(id ThreadID) (int64, Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.lookupThreadLocked(id)
	if !ok || !t.attr.HeapTrace {
		return 0, StatusErrorParameter
	}
	return t.heap, StatusOK
}
