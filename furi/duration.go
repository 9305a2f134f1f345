package furi

import (
	"time"

	"furi/kernel"
)

// Duration is a timeout measured in kernel ticks.
type Duration kernel.Ticks

const (
	// Forever waits without a timeout.
	Forever = Duration(kernel.WaitForever)
	// NoWait polls once without blocking.
	NoWait Duration = 0
)

// Ticks returns d as n kernel ticks.
func Ticks(n uint32) Duration { return Duration(n) }

// DurationOf converts wall time at the given tick rate, rounding up.
func DurationOf(d time.Duration, hz uint32) Duration {
	return Duration(kernel.TicksFor(d, hz))
}

// Millis converts milliseconds assuming the default 1 kHz tick.
func Millis(ms uint32) Duration {
	return DurationOf(time.Duration(ms)*time.Millisecond, kernel.DefaultTickHz)
}

func (d Duration) ticks() kernel.Ticks { return kernel.Ticks(d) }

// Time returns d as wall time at the given tick rate.
func (d Duration) Time(hz uint32) time.Duration {
	return kernel.Ticks(d).Duration(hz)
}
