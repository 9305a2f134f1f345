package kernel

import "github.com/golang/glog"

// queueObj is a fixed-size message ring. head and tail only grow; the slot
// for a sequence number is seq % len(slots).
type queueObj struct {
	msgSize int
	head    uint32
	tail    uint32
	slots   [][]byte

	filled  chan struct{}
	drained chan struct{}
	waiters int
}

func (q *queueObj) count() int { return int(q.head - q.tail) }
func (q *queueObj) full() bool { return q.count() >= len(q.slots) }

func (q *queueObj) push(msg []byte) bool {
	if q.full() {
		return false
	}
	copy(q.slots[q.head%uint32(len(q.slots))], msg)
	q.head++
	return true
}

func (q *queueObj) pop(dst []byte) bool {
	if q.tail == q.head {
		return false
	}
	copy(dst, q.slots[q.tail%uint32(len(q.slots))])
	q.tail++
	return true
}

// QueueAlloc creates a queue of slots messages, each msgSize bytes.
func (h *Host) QueueAlloc(slots, msgSize int) (QueueID, Status) {
	if slots <= 0 || msgSize <= 0 {
		return 0, StatusErrorParameter
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.reserve(int64(slots*msgSize + queueCost)) {
		return 0, StatusErrorNoMemory
	}
	backing := make([]byte, slots*msgSize)
	q := &queueObj{
		msgSize: msgSize,
		slots:   make([][]byte, slots),
		filled:  make(chan struct{}),
		drained: make(chan struct{}),
	}
	for i := range q.slots {
		q.slots[i] = backing[i*msgSize : (i+1)*msgSize : (i+1)*msgSize]
	}
	id := QueueID(h.queues.put(q))
	logf("kernel: queue %d alloc slots=%d size=%d", id, slots, msgSize)
	return id, StatusOK
}

// QueueFree destroys a queue. A queue with blocked callers is not freed.
func (h *Host) QueueFree(id QueueID) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, ok := h.queues.get(uint32(id))
	if !ok {
		return StatusErrorParameter
	}
	if q.waiters > 0 {
		glog.Warningf("kernel: queue %d free refused: %d blocked callers", id, q.waiters)
		return StatusErrorResource
	}
	h.queues.drop(uint32(id))
	h.release(int64(len(q.slots)*q.msgSize + queueCost))
	return StatusOK
}

// QueuePut enqueues one message of exactly the queue's message size.
func (h *Host) QueuePut(id QueueID, msg []byte, timeout Ticks) Status {
	var dl *deadline
	defer func() { dl.stop() }()

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		q, ok := h.queues.get(uint32(id))
		if !ok || len(msg) != q.msgSize {
			return StatusErrorParameter
		}
		if q.push(msg) {
			notify(&q.filled)
			return StatusOK
		}
		if timeout == 0 {
			return StatusErrorResource
		}
		if dl == nil {
			dl = h.newDeadline(timeout)
		}
		ch := q.drained
		q.waiters++
		h.mu.Unlock()
		expired := dl.wait(ch)
		h.mu.Lock()
		q.waiters--
		if expired {
			if q.push(msg) {
				notify(&q.filled)
				return StatusOK
			}
			return StatusErrorTimeout
		}
	}
}

// QueueGet dequeues one message into buf, which must hold a full message.
func (h *Host) QueueGet(id QueueID, buf []byte, timeout Ticks) Status {
	var dl *deadline
	defer func() { dl.stop() }()

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		q, ok := h.queues.get(uint32(id))
		if !ok || len(buf) < q.msgSize {
			return StatusErrorParameter
		}
		if q.pop(buf) {
			notify(&q.drained)
			return StatusOK
		}
		if timeout == 0 {
			return StatusErrorResource
		}
		if dl == nil {
			dl = h.newDeadline(timeout)
		}
		ch := q.filled
		q.waiters++
		h.mu.Unlock()
		expired := dl.wait(ch)
		h.mu.Lock()
		q.waiters--
		if expired {
			if q.pop(buf) {
				notify(&q.drained)
				return StatusOK
			}
			return StatusErrorTimeout
		}
	}
}

// QueueCount returns the number of queued messages.
func (h *Host) QueueCount(id QueueID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if q, ok := h.queues.get(uint32(id)); ok {
		return q.count()
	}
	return 0
}

// QueueSpace returns the number of free slots.
func (h *Host) QueueSpace(id QueueID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if q, ok := h.queues.get(uint32(id)); ok {
		return len(q.slots) - q.count()
	}
	return 0
}

// QueueReset drops every queued message.
func (h *Host) QueueReset(id QueueID) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, ok := h.queues.get(uint32(id))
	if !ok {
		return StatusErrorParameter
	}
	q.tail = q.head
	notify(&q.drained)
	return StatusOK
}
