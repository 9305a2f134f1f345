package kernel

import (
	"sync"
	"testing"
	"time"
)

func waitersOf(h *Host, id MutexID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.mutexes.get(uint32(id))
	if !ok {
		return -1
	}
	return len(m.waiters)
}

func TestMutexAcquireRelease(t *testing.T) {
	h := New(DefaultConfig())
	id, st := h.MutexAlloc(MutexNormal)
	if st != StatusOK {
		t.Fatalf("MutexAlloc() = %s", st)
	}

	if st := h.MutexAcquire(id, WaitForever); st != StatusOK {
		t.Fatalf("MutexAcquire() = %s, want ok", st)
	}
	if owner := h.MutexOwner(id); owner != h.ThreadCurrent() {
		t.Fatalf("MutexOwner() = %s, want %s", owner, h.ThreadCurrent())
	}
	if st := h.MutexAcquire(id, 0); st != StatusError {
		t.Fatalf("MutexAcquire() by owner = %s, want %s", st, StatusError)
	}
	if st := h.MutexFree(id); st != StatusErrorResource {
		t.Fatalf("MutexFree() while held = %s, want %s", st, StatusErrorResource)
	}
	if st := h.MutexRelease(id); st != StatusOK {
		t.Fatalf("MutexRelease() = %s, want ok", st)
	}
	if st := h.MutexRelease(id); st != StatusErrorResource {
		t.Fatalf("MutexRelease() unheld = %s, want %s", st, StatusErrorResource)
	}
	if st := h.MutexFree(id); st != StatusOK {
		t.Fatalf("MutexFree() = %s, want ok", st)
	}
	if st := h.MutexAcquire(id, 0); st != StatusErrorParameter {
		t.Fatalf("MutexAcquire() after free = %s, want %s", st, StatusErrorParameter)
	}
}

func TestMutexRecursiveDepth(t *testing.T) {
	h := New(DefaultConfig())
	id, _ := h.MutexAlloc(MutexRecursive)

	for i := 0; i < 3; i++ {
		if st := h.MutexAcquire(id, 0); st != StatusOK {
			t.Fatalf("MutexAcquire() #%d = %s", i, st)
		}
	}

	other := make(chan Status, 1)
	probe := func() {
		go func() { other <- h.MutexAcquire(id, 0) }()
	}

	for i := 0; i < 2; i++ {
		h.MutexRelease(id)
		probe()
		if st := <-other; st != StatusErrorResource {
			t.Fatalf("foreign acquire after %d releases = %s, want %s", i+1, st, StatusErrorResource)
		}
	}
	h.MutexRelease(id)
	if owner := h.MutexOwner(id); owner != 0 {
		t.Fatalf("MutexOwner() = %s after final release, want none", owner)
	}
}

func TestMutexNonOwnerRelease(t *testing.T) {
	h := New(DefaultConfig())
	id, _ := h.MutexAlloc(MutexNormal)
	h.MutexAcquire(id, WaitForever)

	res := make(chan Status, 1)
	go func() { res <- h.MutexRelease(id) }()
	if st := <-res; st != StatusErrorResource {
		t.Fatalf("MutexRelease() by non-owner = %s, want %s", st, StatusErrorResource)
	}
	if st := h.MutexRelease(id); st != StatusOK {
		t.Fatalf("MutexRelease() by owner = %s, want ok", st)
	}
}

func TestMutexAcquireTimeout(t *testing.T) {
	h := New(DefaultConfig())
	id, _ := h.MutexAlloc(MutexNormal)
	h.MutexAcquire(id, WaitForever)

	res := make(chan Status, 1)
	start := time.Now()
	go func() { res <- h.MutexAcquire(id, 20) }()
	if st := <-res; st != StatusErrorTimeout {
		t.Fatalf("MutexAcquire(20) = %s, want %s", st, StatusErrorTimeout)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("MutexAcquire(20) returned after %v, want >= 20ms", elapsed)
	}
	if n := waitersOf(h, id); n != 0 {
		t.Fatalf("waiters = %d after timeout, want 0", n)
	}
}

func TestMutexHandsOffByPriority(t *testing.T) {
	h := New(DefaultConfig())
	id, _ := h.MutexAlloc(MutexNormal)
	h.MutexAcquire(id, WaitForever)

	var (
		mu    sync.Mutex
		order []string
	)
	spawn := func(name string, prio Priority) ThreadID {
		tid, st := h.ThreadAlloc(ThreadAttr{
			Name:      name,
			StackSize: 1024,
			Priority:  prio,
			Body: func() int32 {
				if st := h.MutexAcquire(id, WaitForever); st != StatusOK {
					return 1
				}
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				h.MutexRelease(id)
				return 0
			},
		})
		if st != StatusOK {
			t.Fatalf("ThreadAlloc(%s) = %s", name, st)
		}
		h.ThreadStart(tid)
		return tid
	}

	low := spawn("low", PriorityLow)
	for waitersOf(h, id) != 1 {
		time.Sleep(time.Millisecond)
	}
	high := spawn("high", PriorityHigh)
	for waitersOf(h, id) != 2 {
		time.Sleep(time.Millisecond)
	}

	h.MutexRelease(id)
	for _, tid := range []ThreadID{low, high} {
		h.ThreadJoin(tid)
		if rc := h.ThreadReturnCode(tid); rc != 0 {
			t.Fatalf("thread %s rc = %d", tid, rc)
		}
		h.ThreadFree(tid)
	}
	if len(order) != 2 || order[0] != "high" || order[1] != "low" {
		t.Fatalf("acquire order = %v, want [high low]", order)
	}
}

func TestMutexAllocNoMemory(t *testing.T) {
	h := New(Config{HeapBytes: mutexCost})
	if _, st := h.MutexAlloc(MutexNormal); st != StatusOK {
		t.Fatalf("first MutexAlloc() = %s", st)
	}
	if _, st := h.MutexAlloc(MutexNormal); st != StatusErrorNoMemory {
		t.Fatalf("second MutexAlloc() = %s, want %s", st, StatusErrorNoMemory)
	}
}
