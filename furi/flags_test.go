package furi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThreadFlags(t *testing.T) {
	k := newHost(t)
	started := make(chan struct{})
	h, err := Spawn(NewBuilder(k).Name("flags"), func() uint32 {
		close(started)
		got, err := WaitAllFlags(k, 0x3, true, Forever)
		if err != nil {
			return 0
		}
		left, _ := GetFlags(k)
		return got | left<<8
	})
	require.NoError(t, err)
	<-started

	id := h.Thread().ID()
	_, err = SetFlags(k, id, 0x1)
	require.NoError(t, err)
	_, err = SetFlags(k, id, 0x2)
	require.NoError(t, err)

	v, err := h.Join()
	require.NoError(t, err)
	require.EqualValues(t, 0x3, v)
}

func TestThreadFlagsTimeout(t *testing.T) {
	k := newHost(t)
	h, err := Spawn(NewBuilder(k), func() error {
		if _, err := WaitAnyFlags(k, 0x4, true, Millis(5)); err != nil {
			return err
		}
		return nil
	})
	require.NoError(t, err)
	werr, err := h.Join()
	require.NoError(t, err)
	require.ErrorIs(t, werr, ErrTimeout)
}

func TestThreadFlagsClear(t *testing.T) {
	k := newHost(t)
	h, err := Spawn(NewBuilder(k), func() [2]uint32 {
		SetFlags(k, Current(k).ID(), 0x5)
		prev, _ := ClearFlags(k, 0x1)
		now, _ := GetFlags(k)
		return [2]uint32{prev, now}
	})
	require.NoError(t, err)
	v, err := h.Join()
	require.NoError(t, err)
	require.Equal(t, [2]uint32{0x5, 0x4}, v)
}

func TestThreadFlagsForeignCaller(t *testing.T) {
	k := newHost(t)
	_, err := GetFlags(k)
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = SetFlags(k, 999, 1)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
