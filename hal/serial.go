package hal

import (
	"errors"
	"fmt"
	"io"

	"furi/furi"
	"furi/kernel"
)

// StreamSerial is a UART whose receive side is a kernel stream buffer.
// Inject plays the part of the RX interrupt; Write goes straight to the
// transmit sink.
type StreamSerial struct {
	rx      *furi.StreamBuffer
	timeout furi.Duration
	tx      *furi.Mutex[io.Writer]
}

// NewStreamSerial allocates an rxSize byte receive buffer. Reads wait up to
// readTimeout for data.
func NewStreamSerial(k kernel.Kernel, rxSize int, readTimeout furi.Duration, tx io.Writer) (*StreamSerial, error) {
	rx, err := furi.NewStreamBuffer(k, rxSize, 1)
	if err != nil {
		return nil, fmt.Errorf("serial: rx buffer: %w", err)
	}
	if tx == nil {
		tx = io.Discard
	}
	sink, err := furi.NewMutex(k, tx)
	if err != nil {
		rx.Close()
		return nil, fmt.Errorf("serial: tx lock: %w", err)
	}
	return &StreamSerial{rx: rx, timeout: readTimeout, tx: sink}, nil
}

// Inject queues bytes as if they arrived on the wire. Bytes that do not fit
// are dropped, like an overrun UART FIFO.
func (s *StreamSerial) Inject(p []byte) int {
	return s.rx.Send(p, furi.NoWait)
}

// Buffered returns the number of received bytes not yet read.
func (s *StreamSerial) Buffered() int { return s.rx.BytesAvailable() }

func (s *StreamSerial) Read(p []byte) (int, error) {
	n, err := s.rx.Reader(s.timeout).Read(p)
	if errors.Is(err, furi.ErrTimeout) {
		return 0, fmt.Errorf("serial: %w", err)
	}
	return n, err
}

func (s *StreamSerial) Write(p []byte) (n int, err error) {
	err = s.tx.With(func(w *io.Writer) error {
		n, err = (*w).Write(p)
		return err
	})
	return n, err
}

// Close frees the receive buffer and the transmit lock.
func (s *StreamSerial) Close() error {
	return errors.Join(s.rx.Close(), s.tx.Close())
}
