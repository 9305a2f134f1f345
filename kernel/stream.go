package kernel

import "github.com/golang/glog"

// streamObj is a byte ring. head and tail count bytes written and read since
// the last reset; head-tail is the fill level.
type streamObj struct {
	buf     []byte
	head    uint64
	tail    uint64
	trigger int

	data    chan struct{} // closed when bytes arrive
	space   chan struct{} // closed when bytes are consumed
	waiters int
}

func (s *streamObj) used() int { return int(s.head - s.tail) }
func (s *streamObj) free() int { return len(s.buf) - s.used() }

func (s *streamObj) write(p []byte) int {
	n := len(p)
	if f := s.free(); n > f {
		n = f
	}
	if n == 0 {
		return 0
	}
	size := uint64(len(s.buf))
	at := int(s.head % size)
	c := copy(s.buf[at:], p[:n])
	copy(s.buf, p[c:n])
	s.head += uint64(n)
	return n
}

func (s *streamObj) read(p []byte) int {
	n := len(p)
	if u := s.used(); n > u {
		n = u
	}
	if n == 0 {
		return 0
	}
	size := uint64(len(s.buf))
	at := int(s.tail % size)
	c := copy(p[:n], s.buf[at:])
	copy(p[c:n], s.buf)
	s.tail += uint64(n)
	return n
}

// StreamAlloc creates a stream buffer holding size bytes. A trigger level of
// 0 is treated as 1.
func (h *Host) StreamAlloc(size, trigger int) (StreamID, Status) {
	if size <= 0 || trigger < 0 || trigger > size {
		return 0, StatusErrorParameter
	}
	if trigger == 0 {
		trigger = 1
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.reserve(int64(size + streamCost)) {
		return 0, StatusErrorNoMemory
	}
	s := &streamObj{
		buf:     make([]byte, size),
		trigger: trigger,
		data:    make(chan struct{}),
		space:   make(chan struct{}),
	}
	id := StreamID(h.streams.put(s))
	logf("kernel: stream %d alloc size=%d trigger=%d", id, size, trigger)
	return id, StatusOK
}

// StreamFree destroys a stream buffer. A stream with blocked callers is not freed.
func (h *Host) StreamFree(id StreamID) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.streams.get(uint32(id))
	if !ok {
		return StatusErrorParameter
	}
	if s.waiters > 0 {
		glog.Warningf("kernel: stream %d free refused: %d blocked callers", id, s.waiters)
		return StatusErrorResource
	}
	h.streams.drop(uint32(id))
	h.release(int64(len(s.buf) + streamCost))
	logf("kernel: stream %d free", id)
	return StatusOK
}

// StreamSend copies as much of data as fits before the timeout and returns
// the number of bytes written.
func (h *Host) StreamSend(id StreamID, data []byte, timeout Ticks) int {
	var dl *deadline
	defer func() { dl.stop() }()

	sent := 0
	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		s, ok := h.streams.get(uint32(id))
		if !ok {
			return sent
		}
		if n := s.write(data[sent:]); n > 0 {
			sent += n
			notify(&s.data)
		}
		if sent == len(data) || timeout == 0 {
			return sent
		}
		if dl == nil {
			dl = h.newDeadline(timeout)
		}
		ch := s.space
		s.waiters++
		h.mu.Unlock()
		expired := dl.wait(ch)
		h.mu.Lock()
		s.waiters--
		if expired {
			if n := s.write(data[sent:]); n > 0 {
				sent += n
				notify(&s.data)
			}
			return sent
		}
	}
}

// StreamReceive blocks until the trigger level (capped at len(buf)) is
// buffered or the timeout passes, then reads what is available.
func (h *Host) StreamReceive(id StreamID, buf []byte, timeout Ticks) int {
	if len(buf) == 0 {
		return 0
	}
	var dl *deadline
	defer func() { dl.stop() }()

	expired := false
	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		s, ok := h.streams.get(uint32(id))
		if !ok {
			return 0
		}
		want := s.trigger
		if want > len(buf) {
			want = len(buf)
		}
		if s.used() >= want || timeout == 0 || expired {
			n := s.read(buf)
			if n > 0 {
				notify(&s.space)
			}
			return n
		}
		if dl == nil {
			dl = h.newDeadline(timeout)
		}
		ch := s.data
		s.waiters++
		h.mu.Unlock()
		expired = dl.wait(ch)
		h.mu.Lock()
		s.waiters--
	}
}

// StreamReset discards buffered bytes. It runs under the kernel lock, so no
// reader observes a mix of bytes from before and after the reset.
func (h *Host) StreamReset(id StreamID) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.streams.get(uint32(id))
	if !ok {
		return StatusErrorParameter
	}
	s.head, s.tail = 0, 0
	notify(&s.space)
	return StatusOK
}

// StreamSetTriggerLevel changes the wake threshold for blocked readers.
func (h *Host) StreamSetTriggerLevel(id StreamID, level int) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.streams.get(uint32(id))
	if !ok {
		return StatusErrorParameter
	}
	if level < 0 || level > len(s.buf) {
		return StatusErrorParameter
	}
	if level == 0 {
		level = 1
	}
	s.trigger = level
	notify(&s.data)
	return StatusOK
}

// StreamBytesAvailable returns the number of buffered bytes.
func (h *Host) StreamBytesAvailable(id StreamID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.streams.get(uint32(id)); ok {
		return s.used()
	}
	return 0
}

// StreamSpacesAvailable returns the number of bytes that can be written
// without blocking.
func (h *Host) StreamSpacesAvailable(id StreamID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.streams.get(uint32(id)); ok {
		return s.free()
	}
	return 0
}
