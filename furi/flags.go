package furi

import "furi/kernel"

func flagsErr(op string, v uint32, st kernel.Status) (uint32, error) {
	switch st {
	case kernel.StatusOK:
		return v, nil
	case kernel.StatusErrorTimeout, kernel.StatusErrorResource:
		return v, fail(op, ErrTimeout)
	default:
		return v, statusErr(op, st)
	}
}

// SetFlags sets notification flags on a thread and returns its flags after
// the update.
func SetFlags(k kernel.Threads, id kernel.ThreadID, flags uint32) (uint32, error) {
	v, st := k.ThreadFlagsSet(id, flags)
	return flagsErr("set flags", v, st)
}

// ClearFlags clears flags on the calling thread and returns the flags as
// they were before clearing.
func ClearFlags(k kernel.Threads, flags uint32) (uint32, error) {
	v, st := k.ThreadFlagsClear(flags)
	return flagsErr("clear flags", v, st)
}

// GetFlags returns the calling thread's flags.
func GetFlags(k kernel.Threads) (uint32, error) {
	v, st := k.ThreadFlagsGet()
	return flagsErr("get flags", v, st)
}

// WaitAnyFlags waits up to timeout for any of flags on the calling thread.
// With clear set, the waited flags are cleared on return.
func WaitAnyFlags(k kernel.Threads, flags uint32, clear bool, timeout Duration) (uint32, error) {
	return waitFlags(k, flags, kernel.FlagWaitAny, clear, timeout)
}

// WaitAllFlags waits up to timeout for all of flags on the calling thread.
func WaitAllFlags(k kernel.Threads, flags uint32, clear bool, timeout Duration) (uint32, error) {
	return waitFlags(k, flags, kernel.FlagWaitAll, clear, timeout)
}

func waitFlags(k kernel.Threads, flags, options uint32, clear bool, timeout Duration) (uint32, error) {
	if !clear {
		options |= kernel.FlagNoClear
	}
	v, st := k.ThreadFlagsWait(flags, options, timeout.ticks())
	return flagsErr("wait flags", v, st)
}
