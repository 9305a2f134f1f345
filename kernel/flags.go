package kernel

// Thread flag wait options.
const (
	FlagWaitAny uint32 = 0
	FlagWaitAll uint32 = 1 << 0
	FlagNoClear uint32 = 1 << 1
)

// FlagsMask covers the usable flag bits; the top bit is reserved for errors.
const FlagsMask uint32 = 0x7FFFFFFF

// ThreadFlagsSet ORs flags into the target thread and returns the result.
func (h *Host) ThreadFlagsSet(id ThreadID, flags uint32) (uint32, Status) {
	if flags&^FlagsMask != 0 {
		return 0, StatusErrorParameter
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.lookupThreadLocked(id)
	if !ok {
		return 0, StatusErrorParameter
	}
	t.flags |= flags
	notify(&t.flagsChanged)
	return t.flags, StatusOK
}

// ThreadFlagsClear clears flags on the calling thread and returns the
// flags as they were before clearing.
func (h *Host) ThreadFlagsClear(flags uint32) (uint32, Status) {
	if flags&^FlagsMask != 0 {
		return 0, StatusErrorParameter
	}
	gid := goroutineID()
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.running[gid]
	if !ok {
		return 0, StatusErrorParameter
	}
	prev := t.flags
	t.flags &^= flags
	return prev, StatusOK
}

// ThreadFlagsGet returns the calling thread's flags.
func (h *Host) ThreadFlagsGet() (uint32, Status) {
	gid := goroutineID()
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.running[gid]
	if !ok {
		return 0, StatusErrorParameter
	}
	return t.flags, StatusOK
}

// ThreadFlagsWait blocks the calling thread until any (or all, with
// FlagWaitAll) of flags are set. It returns the flags observed before any
// clearing. Waited flags are cleared unless FlagNoClear is given.
func (h *Host) ThreadFlagsWait(flags, options uint32, timeout Ticks) (uint32, Status) {
	if flags == 0 || flags&^FlagsMask != 0 {
		return 0, StatusErrorParameter
	}
	gid := goroutineID()

	var dl *deadline
	defer func() { dl.stop() }()

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		t, ok := h.running[gid]
		if !ok {
			return 0, StatusErrorParameter
		}
		cur := t.flags
		var hit bool
		if options&FlagWaitAll != 0 {
			hit = cur&flags == flags
		} else {
			hit = cur&flags != 0
		}
		if hit {
			if options&FlagNoClear == 0 {
				t.flags &^= flags
			}
			return cur, StatusOK
		}
		if timeout == 0 {
			return cur, StatusErrorResource
		}
		if dl == nil {
			dl = h.newDeadline(timeout)
		}
		ch := t.flagsChanged
		h.mu.Unlock()
		expired := dl.wait(ch)
		h.mu.Lock()
		if expired {
			return t.flags, StatusErrorTimeout
		}
	}
}
