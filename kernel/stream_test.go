package kernel

import (
	"bytes"
	"testing"
	"time"
)

func TestStreamWrapAround(t *testing.T) {
	h := New(DefaultConfig())
	id, st := h.StreamAlloc(8, 1)
	if st != StatusOK {
		t.Fatalf("StreamAlloc() = %s", st)
	}

	buf := make([]byte, 8)
	for round := 0; round < 5; round++ {
		in := []byte{byte(round), 1, 2, 3, 4, 5}
		if n := h.StreamSend(id, in, 0); n != len(in) {
			t.Fatalf("round %d: StreamSend() = %d, want %d", round, n, len(in))
		}
		n := h.StreamReceive(id, buf, 0)
		if !bytes.Equal(buf[:n], in) {
			t.Fatalf("round %d: StreamReceive() = %v, want %v", round, buf[:n], in)
		}
	}
}

func TestStreamShortWriteWhenFull(t *testing.T) {
	h := New(DefaultConfig())
	id, _ := h.StreamAlloc(4, 1)

	if n := h.StreamSend(id, []byte("abcdef"), 0); n != 4 {
		t.Fatalf("StreamSend() = %d, want 4", n)
	}
	start := time.Now()
	if n := h.StreamSend(id, []byte("x"), 10); n != 0 {
		t.Fatalf("StreamSend() on full = %d, want 0", n)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("StreamSend() blocked %v", elapsed)
	}
}

func TestStreamTriggerLevel(t *testing.T) {
	h := New(DefaultConfig())
	id, _ := h.StreamAlloc(16, 4)

	got := make(chan int, 1)
	go func() {
		buf := make([]byte, 16)
		got <- h.StreamReceive(id, buf, WaitForever)
	}()

	h.StreamSend(id, []byte("ab"), 0)
	select {
	case n := <-got:
		t.Fatalf("StreamReceive() woke with %d bytes below trigger", n)
	case <-time.After(20 * time.Millisecond):
	}
	h.StreamSend(id, []byte("cd"), 0)
	if n := <-got; n != 4 {
		t.Fatalf("StreamReceive() = %d, want 4", n)
	}
}

func TestStreamReceiveTimeoutReturnsPartial(t *testing.T) {
	h := New(DefaultConfig())
	id, _ := h.StreamAlloc(16, 8)
	h.StreamSend(id, []byte("abc"), 0)

	buf := make([]byte, 16)
	if n := h.StreamReceive(id, buf, 10); n != 3 {
		t.Fatalf("StreamReceive() = %d, want 3 at deadline", n)
	}
}

func TestStreamAllocValidates(t *testing.T) {
	h := New(DefaultConfig())
	if _, st := h.StreamAlloc(4, 5); st != StatusErrorParameter {
		t.Fatalf("StreamAlloc(4, 5) = %s, want %s", st, StatusErrorParameter)
	}
	if _, st := h.StreamAlloc(0, 0); st != StatusErrorParameter {
		t.Fatalf("StreamAlloc(0, 0) = %s, want %s", st, StatusErrorParameter)
	}
	if _, st := h.StreamAlloc(1<<20, 1); st != StatusErrorNoMemory {
		t.Fatalf("StreamAlloc(1MiB) = %s, want %s", st, StatusErrorNoMemory)
	}
}

func TestStreamFreeRefusedWhileBlocked(t *testing.T) {
	h := New(DefaultConfig())
	id, _ := h.StreamAlloc(4, 1)
	done := make(chan int, 1)
	go func() { done <- h.StreamReceive(id, make([]byte, 4), WaitForever) }()

	for {
		h.mu.Lock()
		s, _ := h.streams.get(uint32(id))
		w := s.waiters
		h.mu.Unlock()
		if w == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if st := h.StreamFree(id); st != StatusErrorResource {
		t.Fatalf("StreamFree() = %s, want %s", st, StatusErrorResource)
	}
	h.StreamSend(id, []byte{1}, 0)
	<-done
	if st := h.StreamFree(id); st != StatusOK {
		t.Fatalf("StreamFree() = %s, want ok", st)
	}
}
