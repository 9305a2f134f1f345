package kernel

import "time"

// Ticks is a duration measured in kernel ticks.
type Ticks uint32

// WaitForever blocks without a timeout.
const WaitForever Ticks = 0xFFFFFFFF

// DefaultTickHz is the kernel tick rate (1ms per tick).
const DefaultTickHz = 1000

// TicksFor converts d to ticks at the given rate, rounding up so short
// non-zero waits never collapse into a poll.
func TicksFor(d time.Duration, hz uint32) Ticks {
	if d <= 0 {
		return 0
	}
	if hz == 0 {
		hz = DefaultTickHz
	}
	tick := time.Second / time.Duration(hz)
	n := (d + tick - 1) / tick
	if n >= time.Duration(WaitForever) {
		return WaitForever - 1
	}
	return Ticks(n)
}

// Duration converts ticks back to wall time at the given rate.
func (t Ticks) Duration(hz uint32) time.Duration {
	if hz == 0 {
		hz = DefaultTickHz
	}
	return time.Duration(t) * (time.Second / time.Duration(hz))
}

// deadline bounds a blocking wait. A nil channel means wait forever.
type deadline struct {
	timer *time.Timer
	c     <-chan time.Time
}

func (h *Host) newDeadline(timeout Ticks) *deadline {
	if timeout == WaitForever {
		return &deadline{}
	}
	t := time.NewTimer(timeout.Duration(h.cfg.TickHz))
	return &deadline{timer: t, c: t.C}
}

// wait blocks until ch is closed or the deadline passes, reporting expiry.
func (d *deadline) wait(ch <-chan struct{}) (expired bool) {
	select {
	case <-ch:
		return false
	case <-d.c:
		return true
	}
}

func (d *deadline) stop() {
	if d != nil && d.timer != nil {
		d.timer.Stop()
	}
}

// notify wakes everything parked on *ch and arms a fresh channel.
func notify(ch *chan struct{}) {
	close(*ch)
	*ch = make(chan struct{})
}
