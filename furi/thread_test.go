package furi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"furi/kernel"
)

func TestSpawnJoinReturnsValue(t *testing.T) {
	k := newHost(t)
	h, err := Spawn(NewBuilder(k).Name("answer"), func() int { return 42 })
	require.NoError(t, err)

	v, err := h.Join()
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.True(t, h.IsFinished())
	require.Zero(t, k.Stats().Threads)

	_, err = h.Join()
	require.ErrorIs(t, err, ErrAlreadyConsumed)
	require.ErrorIs(t, h.Detach(), ErrAlreadyConsumed)
}

func TestSpawnExitCode(t *testing.T) {
	k := newHost(t)
	h, err := Go(k, func() int32 { return 7 })
	require.NoError(t, err)
	rc, err := h.Join()
	require.NoError(t, err)
	require.EqualValues(t, 7, rc)
}

func TestJoinReportsPanic(t *testing.T) {
	k := newHost(t)
	h, err := Spawn(NewBuilder(k).Name("boomer"), func() string { panic("boom") })
	require.NoError(t, err)

	_, err = h.Join()
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "boom", pe.Value)
	require.Equal(t, "boomer", pe.Thread)
	require.NotEmpty(t, pe.Stack)
	require.Zero(t, k.Stats().Threads)
}

func TestSpawnInvalidConfig(t *testing.T) {
	k := newHost(t)
	body := func() int32 { return 0 }
	cases := map[string]*Builder{
		"nul name":       NewBuilder(k).Name("a\x00b"),
		"zero stack":     NewBuilder(k).StackSize(0),
		"tiny stack":     NewBuilder(k).StackSize(16),
		"huge stack":     NewBuilder(k).StackSize(1 << 20),
		"isr priority":   NewBuilder(k).Priority(kernel.PriorityISR),
		"bogus priority": NewBuilder(k).Priority(kernel.Priority(200)),
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := b.Spawn(body)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
	require.Zero(t, k.Stats().Threads)
}

func TestSpawnResourceExhausted(t *testing.T) {
	k := newHostWith(t, kernel.Config{MaxThreads: 1})
	release := make(chan struct{})
	h, err := Go(k, func() int32 {
		<-release
		return 0
	})
	require.NoError(t, err)

	_, err = Go(k, func() int32 { return 0 })
	require.ErrorIs(t, err, ErrResourceExhausted)

	close(release)
	_, err = h.Join()
	require.NoError(t, err)

	small := newHostWith(t, kernel.Config{HeapBytes: 2048})
	_, err = NewBuilder(small).StackSize(4096).Spawn(func() int32 { return 0 })
	require.ErrorIs(t, err, ErrResourceExhausted)
}

func TestJoinSelfWouldDeadlock(t *testing.T) {
	k := newHost(t)
	self := make(chan *JoinHandle[error], 1)
	tried := make(chan struct{})
	h, err := Spawn(NewBuilder(k), func() error {
		defer close(tried)
		_, err := (<-self).Join()
		return err
	})
	require.NoError(t, err)
	self <- h
	<-tried

	selfErr, err := h.Join()
	require.NoError(t, err)
	require.ErrorIs(t, selfErr, ErrWouldDeadlock)
}

func TestCloseJoinsRunningThread(t *testing.T) {
	k := newHost(t)
	h, err := Go(k, func() int32 {
		Sleep(k, Millis(5))
		return 1
	})
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.True(t, h.IsFinished())
	require.Zero(t, k.Stats().Threads)
	require.NoError(t, h.Close())
}

func TestDetachFreesOnExit(t *testing.T) {
	k := newHost(t)
	release := make(chan struct{})
	h, err := Go(k, func() int32 {
		<-release
		return 0
	})
	require.NoError(t, err)
	require.NoError(t, h.Detach())
	require.False(t, h.IsFinished())
	_, err = h.Join()
	require.ErrorIs(t, err, ErrAlreadyConsumed)

	close(release)
	require.Eventually(t, func() bool { return k.Stats().Threads == 0 },
		time.Second, time.Millisecond)
	require.True(t, h.IsFinished())
}

func TestIsFinishedAfterPanic(t *testing.T) {
	k := newHost(t)
	h, err := Go(k, func() int32 { panic("boom") })
	require.NoError(t, err)
	require.Eventually(t, h.IsFinished, time.Second, time.Millisecond)
	_, err = h.Join()
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
}

func TestHeapTrace(t *testing.T) {
	k := newHost(t)
	type sizes struct{ held, freed int64 }
	h, err := Spawn(NewBuilder(k).Name("alloc").HeapTrace(), func() sizes {
		self := Current(k)
		before, err := self.HeapSize()
		if err != nil {
			return sizes{-1, -1}
		}
		sb, err := NewStreamBuffer(k, 128, 1)
		if err != nil {
			return sizes{-1, -1}
		}
		held, _ := self.HeapSize()
		if err := sb.Close(); err != nil {
			return sizes{-1, -1}
		}
		freed, _ := self.HeapSize()
		return sizes{held - before, freed - before}
	})
	require.NoError(t, err)
	got, err := h.Join()
	require.NoError(t, err)
	require.Greater(t, got.held, int64(128))
	require.Zero(t, got.freed)

	plain, err := Spawn(NewBuilder(k), func() error {
		_, err := Current(k).HeapSize()
		return err
	})
	require.NoError(t, err)
	herr, err := plain.Join()
	require.NoError(t, err)
	require.ErrorIs(t, herr, ErrInvalidConfig)
}

func TestSleepFor(t *testing.T) {
	k := newHost(t)
	start := time.Now()
	SleepFor(k, 10*time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestCurrentThread(t *testing.T) {
	k := newHost(t)
	require.True(t, Current(k).ID().Foreign())

	h, err := Spawn(NewBuilder(k).Name("worker"), func() *Thread { return Current(k) })
	require.NoError(t, err)
	want := h.Thread().ID()
	cur, err := h.Join()
	require.NoError(t, err)
	require.Equal(t, want, cur.ID())
	require.Equal(t, "worker", cur.Name())
	require.Contains(t, cur.String(), "worker")
}

func TestSleep(t *testing.T) {
	k := newHost(t)
	start := time.Now()
	Sleep(k, Millis(5))
	require.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}
