package furi

import (
	"fmt"
	"io"
	"sync/atomic"

	"furi/kernel"
)

// StreamBuffer is a bounded byte channel between threads. Timeouts are
// reported as short counts, never as errors.
type StreamBuffer struct {
	k        kernel.Streams
	id       kernel.StreamID
	capacity int
	closed   atomic.Bool
}

// NewStreamBuffer allocates a stream holding capacity bytes. Readers wake
// once trigger bytes are buffered; a trigger of 0 behaves as 1.
func NewStreamBuffer(k kernel.Streams, capacity, trigger int) (*StreamBuffer, error) {
	if capacity <= 0 || trigger < 0 || trigger > capacity {
		return nil, fail("stream alloc",
			fmt.Errorf("%w: capacity %d trigger %d", ErrInvalidConfig, capacity, trigger))
	}
	id, st := k.StreamAlloc(capacity, trigger)
	if st != kernel.StatusOK {
		return nil, statusErr("stream alloc", st)
	}
	return &StreamBuffer{k: k, id: id, capacity: capacity}, nil
}

// Capacity returns the buffer size in bytes.
func (s *StreamBuffer) Capacity() int { return s.capacity }

// Send writes as much of data as fits before timeout and returns the count.
func (s *StreamBuffer) Send(data []byte, timeout Duration) int {
	if s.closed.Load() || len(data) == 0 {
		return 0
	}
	return s.k.StreamSend(s.id, data, timeout.ticks())
}

// Receive reads into buf, waiting up to timeout for the trigger level, and
// returns the count read.
func (s *StreamBuffer) Receive(buf []byte, timeout Duration) int {
	if s.closed.Load() || len(buf) == 0 {
		return 0
	}
	return s.k.StreamReceive(s.id, buf, timeout.ticks())
}

// Reset discards all buffered bytes atomically.
func (s *StreamBuffer) Reset() error {
	if s.closed.Load() {
		return fail("stream reset", ErrClosed)
	}
	return statusErr("stream reset", s.k.StreamReset(s.id))
}

// SetTriggerLevel changes how many bytes wake a blocked reader.
func (s *StreamBuffer) SetTriggerLevel(level int) error {
	if s.closed.Load() {
		return fail("stream trigger", ErrClosed)
	}
	if level < 0 || level > s.capacity {
		return fail("stream trigger", fmt.Errorf("%w: trigger %d", ErrInvalidConfig, level))
	}
	return statusErr("stream trigger", s.k.StreamSetTriggerLevel(s.id, level))
}

// BytesAvailable returns the number of buffered bytes.
func (s *StreamBuffer) BytesAvailable() int {
	if s.closed.Load() {
		return 0
	}
	return s.k.StreamBytesAvailable(s.id)
}

// SpacesAvailable returns how many bytes can be sent without blocking.
func (s *StreamBuffer) SpacesAvailable() int {
	if s.closed.Load() {
		return 0
	}
	return s.k.StreamSpacesAvailable(s.id)
}

// IsEmpty reports whether no bytes are buffered.
func (s *StreamBuffer) IsEmpty() bool { return s.BytesAvailable() == 0 }

// IsFull reports whether a send would not fit a single byte.
func (s *StreamBuffer) IsFull() bool { return s.SpacesAvailable() == 0 }

// Close frees the stream. It fails with ErrBusy while a caller is blocked on it.
func (s *StreamBuffer) Close() error {
	if s.closed.Load() {
		return fail("stream close", ErrAlreadyConsumed)
	}
	switch st := s.k.StreamFree(s.id); st {
	case kernel.StatusOK:
		s.closed.Store(true)
		return nil
	case kernel.StatusErrorResource:
		return fail("stream close", ErrBusy)
	default:
		return statusErr("stream close", st)
	}
}

// Writer returns an io.Writer that sends with the given timeout and reports
// a short write as ErrTimeout.
func (s *StreamBuffer) Writer(timeout Duration) io.Writer {
	return streamWriter{s: s, timeout: timeout}
}

// Reader returns an io.Reader that receives with the given timeout and
// reports an empty read as ErrTimeout.
func (s *StreamBuffer) Reader(timeout Duration) io.Reader {
	return streamReader{s: s, timeout: timeout}
}

type streamWriter struct {
	s       *StreamBuffer
	timeout Duration
}

func (w streamWriter) Write(p []byte) (int, error) {
	if w.s.closed.Load() {
		return 0, fail("stream write", ErrClosed)
	}
	n := w.s.Send(p, w.timeout)
	if n < len(p) {
		return n, fail("stream write", ErrTimeout)
	}
	return n, nil
}

type streamReader struct {
	s       *StreamBuffer
	timeout Duration
}

func (r streamReader) Read(p []byte) (int, error) {
	if r.s.closed.Load() {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := r.s.Receive(p, r.timeout)
	if n == 0 {
		return 0, fail("stream read", ErrTimeout)
	}
	return n, nil
}
