package kernel

import (
	"runtime"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/semaphore"
)

// Kernel object costs charged against the heap, in bytes.
const (
	mutexCost  = 80
	threadCost = 168
	streamCost = 64
	queueCost  = 80
)

// Default stack bounds in bytes.
const (
	DefaultMinStackSize = 256
	DefaultMaxStackSize = 32 * 1024
)

// Config sizes a host kernel.
type Config struct {
	// TickHz is the tick rate. Timeouts are expressed in ticks.
	TickHz uint32
	// HeapBytes bounds the memory available to kernel objects,
	// thread stacks and buffer storage.
	HeapBytes int64
	// MaxThreads bounds concurrently allocated kernel threads.
	MaxThreads int
	// MinStackSize and MaxStackSize bound ThreadAttr.StackSize.
	MinStackSize int
	MaxStackSize int
}

// DefaultConfig matches a small single-core SoC.
func DefaultConfig() Config {
	return Config{
		TickHz:       DefaultTickHz,
		HeapBytes:    192 * 1024,
		MaxThreads:   32,
		MinStackSize: DefaultMinStackSize,
		MaxStackSize: DefaultMaxStackSize,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickHz == 0 {
		c.TickHz = d.TickHz
	}
	if c.HeapBytes <= 0 {
		c.HeapBytes = d.HeapBytes
	}
	if c.MaxThreads <= 0 {
		c.MaxThreads = d.MaxThreads
	}
	if c.MinStackSize <= 0 {
		c.MinStackSize = d.MinStackSize
	}
	if c.MaxStackSize <= 0 {
		c.MaxStackSize = d.MaxStackSize
	}
	return c
}

// Host is a kernel that runs inside the host process: threads are goroutines
// and every primitive is kept in handle tables guarded by one kernel lock.
type Host struct {
	cfg   Config
	heap  *semaphore.Weighted
	start time.Time

	mu       sync.Mutex
	heapUsed int64
	mutexes  table[*mutexObj]
	threads  table[*threadObj]
	streams  table[*streamObj]
	queues   table[*queueObj]
	records  table[*recordObj]
	names    map[string]*recordObj
	running  map[int64]*threadObj
	traced   int
}

// New creates a host kernel.
func New(cfg Config) *Host {
	cfg = cfg.withDefaults()
	return &Host{
		cfg:     cfg,
		heap:    semaphore.NewWeighted(cfg.HeapBytes),
		start:   time.Now(),
		names:   make(map[string]*recordObj),
		running: make(map[int64]*threadObj),
	}
}

// Config returns the effective configuration.
func (h *Host) Config() Config { return h.cfg }

// TickHz returns the tick rate.
func (h *Host) TickHz() uint32 { return h.cfg.TickHz }

// GetTick returns the ticks elapsed since the kernel was created.
func (h *Host) GetTick() uint32 {
	return uint32(time.Since(h.start) / (time.Second / time.Duration(h.cfg.TickHz)))
}

// Delay blocks the calling thread for t ticks.
func (h *Host) Delay(t Ticks) {
	if t == 0 {
		runtime.Gosched()
		return
	}
	if t == WaitForever {
		select {}
	}
	time.Sleep(t.Duration(h.cfg.TickHz))
}

// ThreadYield gives up the rest of the timeslice.
func (h *Host) ThreadYield() {
	runtime.Gosched()
}

// reserve charges n bytes against the heap. Callers hold h.mu.
func (h *Host) reserve(n int64) bool {
	if !h.heap.TryAcquire(n) {
		return false
	}
	h.heapUsed += n
	h.traceLocked(n)
	return true
}

// release returns n bytes to the heap. Callers hold h.mu.
func (h *Host) release(n int64) {
	h.heap.Release(n)
	h.heapUsed -= n
	h.traceLocked(-n)
}

// traceLocked charges n bytes to the calling thread if it traces its heap.
func (h *Host) traceLocked(n int64) {
	if h.traced == 0 {
		return
	}
	if t, ok := h.running[goroutineID()]; ok && t.attr.HeapTrace {
		t.heap += n
	}
}

// Stats is a snapshot of kernel object counts.
type Stats struct {
	Threads  int
	Mutexes  int
	Streams  int
	Queues   int
	Records  int
	HeapUsed int64
	HeapFree int64
}

// Stats returns current object counts and heap usage.
func (h *Host) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		Threads:  h.threads.len(),
		Mutexes:  h.mutexes.len(),
		Streams:  h.streams.len(),
		Queues:   h.queues.len(),
		Records:  h.records.len(),
		HeapUsed: h.heapUsed,
		HeapFree: h.cfg.HeapBytes - h.heapUsed,
	}
}

// ThreadCurrent returns the ID of the calling thread.
func (h *Host) ThreadCurrent() ThreadID {
	gid := goroutineID()
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentLocked(gid)
}

func (h *Host) currentLocked(gid int64) ThreadID {
	if t, ok := h.running[gid]; ok {
		return t.id
	}
	return ForeignThread | ThreadID(gid)
}

func (h *Host) priorityLocked(id ThreadID) Priority {
	if id.Foreign() {
		return PriorityNormal
	}
	if t, ok := h.threads.get(uint32(id)); ok {
		return t.attr.Priority
	}
	return PriorityNormal
}

func logf(format string, args ...any) {
	if glog.V(2) {
		glog.Infof(format, args...)
	}
}
