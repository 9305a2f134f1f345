package furi

import (
	"sync"
	"time"
)

// Cond is a condition variable layered on any RawLock.
type Cond struct {
	l      RawLock
	tickHz uint32

	mu      sync.Mutex
	waiters []chan struct{}
}

// NewCond returns a condition variable bound to l. tickHz converts Wait
// timeouts to wall time; 0 means the default rate.
func NewCond(l RawLock, tickHz uint32) *Cond {
	return &Cond{l: l, tickHz: tickHz}
}

// Wait releases the lock, blocks until signalled or timeout, and reacquires
// the lock before returning. The caller must hold the lock. It reports
// whether it was signalled.
func (c *Cond) Wait(timeout Duration) (bool, error) {
	ch := make(chan struct{})
	c.mu.Lock()
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	if err := c.l.Release(); err != nil {
		c.forget(ch)
		return false, err
	}

	signalled := true
	switch timeout {
	case Forever:
		<-ch
	case NoWait:
		signalled = !c.forget(ch)
	default:
		t := time.NewTimer(timeout.Time(c.tickHz))
		select {
		case <-ch:
		case <-t.C:
			signalled = !c.forget(ch)
		}
		t.Stop()
	}

	if err := c.l.Acquire(); err != nil {
		return signalled, err
	}
	return signalled, nil
}

// forget drops ch from the wait list, reporting whether it was still there.
func (c *Cond) forget(ch chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Signal wakes one waiter, if any.
func (c *Cond) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.waiters) == 0 {
		return
	}
	close(c.waiters[0])
	c.waiters = c.waiters[1:]
}

// Broadcast wakes every waiter.
func (c *Cond) Broadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range c.waiters {
		close(w)
	}
	c.waiters = nil
}
