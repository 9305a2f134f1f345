package furi

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageQueueFIFO(t *testing.T) {
	k := newHost(t)
	q, err := NewMessageQueue(k, 4, 4)
	require.NoError(t, err)
	require.Equal(t, 4, q.MessageSize())

	const n = 100
	h, err := Spawn(NewBuilder(k).Name("sender"), func() error {
		msg := make([]byte, 4)
		for i := uint32(0); i < n; i++ {
			binary.LittleEndian.PutUint32(msg, i)
			if err := q.Put(msg, Forever); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	buf := make([]byte, 4)
	for i := uint32(0); i < n; i++ {
		require.NoError(t, q.Get(buf, Forever))
		require.Equal(t, i, binary.LittleEndian.Uint32(buf))
	}
	werr, err := h.Join()
	require.NoError(t, err)
	require.NoError(t, werr)
	require.NoError(t, q.Close())
}

func TestMessageQueueBounds(t *testing.T) {
	k := newHost(t)
	q, err := NewMessageQueue(k, 2, 1)
	require.NoError(t, err)

	require.ErrorIs(t, q.Get(make([]byte, 1), NoWait), ErrTimeout)
	require.NoError(t, q.Put([]byte{1}, NoWait))
	require.NoError(t, q.Put([]byte{2}, NoWait))
	require.ErrorIs(t, q.Put([]byte{3}, Millis(5)), ErrTimeout)
	require.Equal(t, 2, q.Count())
	require.Zero(t, q.Space())

	require.ErrorIs(t, q.Put([]byte{1, 2}, NoWait), ErrInvalidConfig)
	require.ErrorIs(t, q.Get(nil, NoWait), ErrInvalidConfig)

	require.NoError(t, q.Reset())
	require.Zero(t, q.Count())
	require.NoError(t, q.Close())
	require.ErrorIs(t, q.Put([]byte{1}, NoWait), ErrClosed)

	_, err = NewMessageQueue(k, 0, 1)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
