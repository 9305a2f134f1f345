package furi

import (
	"fmt"
	"sync/atomic"

	"furi/kernel"
)

// MessageQueue is a FIFO of fixed-size messages.
type MessageQueue struct {
	k       kernel.Queues
	id      kernel.QueueID
	msgSize int
	closed  atomic.Bool
}

// NewMessageQueue allocates a queue of slots messages of msgSize bytes.
func NewMessageQueue(k kernel.Queues, slots, msgSize int) (*MessageQueue, error) {
	if slots <= 0 || msgSize <= 0 {
		return nil, fail("queue alloc",
			fmt.Errorf("%w: slots %d size %d", ErrInvalidConfig, slots, msgSize))
	}
	id, st := k.QueueAlloc(slots, msgSize)
	if st != kernel.StatusOK {
		return nil, statusErr("queue alloc", st)
	}
	return &MessageQueue{k: k, id: id, msgSize: msgSize}, nil
}

// MessageSize returns the fixed message size.
func (q *MessageQueue) MessageSize() int { return q.msgSize }

func queueErr(op string, st kernel.Status) error {
	switch st {
	case kernel.StatusOK:
		return nil
	case kernel.StatusErrorTimeout, kernel.StatusErrorResource:
		return fail(op, ErrTimeout)
	default:
		return statusErr(op, st)
	}
}

// Put enqueues msg, which must be exactly MessageSize bytes, waiting up to
// timeout for a free slot.
func (q *MessageQueue) Put(msg []byte, timeout Duration) error {
	if q.closed.Load() {
		return fail("queue put", ErrClosed)
	}
	if len(msg) != q.msgSize {
		return fail("queue put", fmt.Errorf("%w: message %d bytes, want %d", ErrInvalidConfig, len(msg), q.msgSize))
	}
	return queueErr("queue put", q.k.QueuePut(q.id, msg, timeout.ticks()))
}

// Get dequeues into buf, waiting up to timeout for a message.
func (q *MessageQueue) Get(buf []byte, timeout Duration) error {
	if q.closed.Load() {
		return fail("queue get", ErrClosed)
	}
	if len(buf) < q.msgSize {
		return fail("queue get", fmt.Errorf("%w: buffer %d bytes, want %d", ErrInvalidConfig, len(buf), q.msgSize))
	}
	return queueErr("queue get", q.k.QueueGet(q.id, buf, timeout.ticks()))
}

// Count returns the number of queued messages.
func (q *MessageQueue) Count() int { return q.k.QueueCount(q.id) }

// Space returns the number of free slots.
func (q *MessageQueue) Space() int { return q.k.QueueSpace(q.id) }

// Reset drops all queued messages.
func (q *MessageQueue) Reset() error {
	if q.closed.Load() {
		return fail("queue reset", ErrClosed)
	}
	return statusErr("queue reset", q.k.QueueReset(q.id))
}

// Close frees the queue. It fails with ErrBusy while a caller is blocked on it.
func (q *MessageQueue) Close() error {
	if q.closed.Load() {
		return fail("queue close", ErrAlreadyConsumed)
	}
	switch st := q.k.QueueFree(q.id); st {
	case kernel.StatusOK:
		q.closed.Store(true)
		return nil
	case kernel.StatusErrorResource:
		return fail("queue close", ErrBusy)
	default:
		return statusErr("queue close", st)
	}
}
