package kernel

// Mutexes is the raw mutex surface.
//
// MutexAcquire returns StatusError when the calling thread already owns a
// non-recursive mutex, StatusErrorResource when a zero timeout finds it held,
// and StatusErrorTimeout when a bounded wait expires. MutexRelease returns
// StatusErrorResource when the caller is not the owner.
type Mutexes interface {
	MutexAlloc(kind MutexKind) (MutexID, Status)
	MutexFree(id MutexID) Status
	MutexAcquire(id MutexID, timeout Ticks) Status
	MutexRelease(id MutexID) Status
	MutexOwner(id MutexID) ThreadID
	ThreadCurrent() ThreadID
}

// ThreadAttr configures a thread before it is allocated.
type ThreadAttr struct {
	Name      string
	StackSize int
	Priority  Priority
	Body      func() int32
	// HeapTrace accounts kernel heap allocated and freed by the thread.
	HeapTrace bool
	// OnState, if set, observes every state transition. It runs on the
	// transitioning thread and must not block.
	OnState func(ThreadState)
}

// Threads is the raw thread surface, plus the per-thread services
// (flags, delays, crash) that act on the calling thread.
type Threads interface {
	ThreadAlloc(attr ThreadAttr) (ThreadID, Status)
	ThreadStart(id ThreadID) Status
	ThreadJoin(id ThreadID) Status
	ThreadDetach(id ThreadID) Status
	ThreadFree(id ThreadID) Status
	ThreadState(id ThreadID) ThreadState
	ThreadReturnCode(id ThreadID) int32
	ThreadPanic(id ThreadID) *PanicInfo
	ThreadName(id ThreadID) string
	ThreadHeapSize(id ThreadID) (int64, Status)
	ThreadCurrent() ThreadID
	ThreadYield()

	ThreadFlagsSet(id ThreadID, flags uint32) (uint32, Status)
	ThreadFlagsClear(flags uint32) (uint32, Status)
	ThreadFlagsGet() (uint32, Status)
	ThreadFlagsWait(flags, options uint32, timeout Ticks) (uint32, Status)

	Delay(t Ticks)
	GetTick() uint32
	TickHz() uint32
	Crash(message string)
}

// Streams is the raw stream buffer surface. Send and receive report byte
// counts; a timeout shows up as a short count.
type Streams interface {
	StreamAlloc(size, trigger int) (StreamID, Status)
	StreamFree(id StreamID) Status
	StreamSend(id StreamID, data []byte, timeout Ticks) int
	StreamReceive(id StreamID, buf []byte, timeout Ticks) int
	StreamReset(id StreamID) Status
	StreamSetTriggerLevel(id StreamID, level int) Status
	StreamBytesAvailable(id StreamID) int
	StreamSpacesAvailable(id StreamID) int
	TickHz() uint32
}

// Queues is the raw fixed-size message queue surface.
type Queues interface {
	QueueAlloc(slots, msgSize int) (QueueID, Status)
	QueueFree(id QueueID) Status
	QueuePut(id QueueID, msg []byte, timeout Ticks) Status
	QueueGet(id QueueID, buf []byte, timeout Ticks) Status
	QueueCount(id QueueID) int
	QueueSpace(id QueueID) int
	QueueReset(id QueueID) Status
	TickHz() uint32
}

// Records is the named record table.
//
// RecordOpen returns StatusErrorResource for unknown names.
type Records interface {
	RecordCreate(name string, data any) Status
	RecordDestroy(name string) Status
	RecordOpen(name string) (RecordID, any, Status)
	RecordClose(id RecordID) Status
	RecordExists(name string) bool
}

// Kernel is the full primitive surface.
type Kernel interface {
	Mutexes
	Threads
	Streams
	Queues
	Records
}

var _ Kernel = (*Host)(nil)
