package kernel

import (
	"encoding/binary"
	"runtime"
	"sync"
	"testing"
)

func newTestQueue(t *testing.T, slots, size int) (*Host, QueueID) {
	t.Helper()
	h := New(DefaultConfig())
	id, st := h.QueueAlloc(slots, size)
	if st != StatusOK {
		t.Fatalf("QueueAlloc() = %s, want ok", st)
	}
	return h, id
}

func TestQueueGetEmpty(t *testing.T) {
	h, id := newTestQueue(t, 8, 4)

	buf := make([]byte, 4)
	if st := h.QueueGet(id, buf, 0); st != StatusErrorResource {
		t.Fatalf("QueueGet() = %s, want %s", st, StatusErrorResource)
	}
	if st := h.QueueGet(id, buf, 5); st != StatusErrorTimeout {
		t.Fatalf("QueueGet(5) = %s, want %s", st, StatusErrorTimeout)
	}
}

func TestQueuePutFull(t *testing.T) {
	const slots = 8
	h, id := newTestQueue(t, slots, 4)
	msg := make([]byte, 4)

	for i := 0; i < slots; i++ {
		if st := h.QueuePut(id, msg, 0); st != StatusOK {
			t.Fatalf("QueuePut() = %s at slot %d, want ok", st, i)
		}
	}
	if st := h.QueuePut(id, msg, 0); st != StatusErrorResource {
		t.Fatalf("QueuePut() = %s when full, want %s", st, StatusErrorResource)
	}
	if n := h.QueueSpace(id); n != 0 {
		t.Fatalf("QueueSpace() = %d, want 0", n)
	}

	for i := 0; i < slots; i++ {
		if st := h.QueueGet(id, msg, 0); st != StatusOK {
			t.Fatalf("QueueGet() = %s at slot %d, want ok", st, i)
		}
	}
}

func TestQueueRejectsWrongSize(t *testing.T) {
	h, id := newTestQueue(t, 2, 4)
	if st := h.QueuePut(id, []byte("toolong"), 0); st != StatusErrorParameter {
		t.Fatalf("QueuePut() = %s, want %s", st, StatusErrorParameter)
	}
	if st := h.QueueGet(id, make([]byte, 2), 0); st != StatusErrorParameter {
		t.Fatalf("QueueGet() = %s, want %s", st, StatusErrorParameter)
	}
}

func TestQueueReset(t *testing.T) {
	h, id := newTestQueue(t, 4, 1)
	for i := 0; i < 3; i++ {
		h.QueuePut(id, []byte{byte(i)}, 0)
	}
	if st := h.QueueReset(id); st != StatusOK {
		t.Fatalf("QueueReset() = %s", st)
	}
	if n := h.QueueCount(id); n != 0 {
		t.Fatalf("QueueCount() = %d after reset, want 0", n)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	oldProcs := runtime.GOMAXPROCS(1)
	defer runtime.GOMAXPROCS(oldProcs)

	const (
		producers = 4
		perProd   = 2_000
		total     = producers * perProd
	)

	h, id := newTestQueue(t, 8, 4)

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(producers)
	for producerID := 0; producerID < producers; producerID++ {
		go func(producerID int) {
			defer wg.Done()
			<-start
			var msg [4]byte
			for i := 0; i < perProd; i++ {
				binary.LittleEndian.PutUint32(msg[:], uint32(producerID*perProd+i))
				if st := h.QueuePut(id, msg[:], WaitForever); st != StatusOK {
					t.Errorf("QueuePut() = %s", st)
					return
				}
			}
		}(producerID)
	}
	close(start)

	seen := make([]bool, total)
	var msg [4]byte
	for i := 0; i < total; i++ {
		if st := h.QueueGet(id, msg[:], WaitForever); st != StatusOK {
			t.Fatalf("QueueGet() = %s", st)
		}
		got := binary.LittleEndian.Uint32(msg[:])
		if int(got) >= total {
			t.Fatalf("QueueGet() id = %d, want < %d", got, total)
		}
		if seen[got] {
			t.Fatalf("QueueGet() duplicate id %d", got)
		}
		seen[got] = true
	}

	wg.Wait()
	if st := h.QueueFree(id); st != StatusOK {
		t.Fatalf("QueueFree() = %s", st)
	}
}
