package gui

import (
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"tinygo.org/x/tinyfont"

	"furi/furi"
	"furi/kernel"
)

func newCanvas(t *testing.T, present func(Frame) error) (*Canvas, *kernel.Host) {
	t.Helper()
	k := kernel.New(kernel.DefaultConfig())
	c, err := NewCanvas(k, present)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, k
}

func TestDrawPrimitives(t *testing.T) {
	c, _ := newCanvas(t, nil)
	require.NoError(t, c.Draw(func(d *Drawer) error {
		d.DrawBox(0, 0, 4, 4)
		d.DrawFrame(10, 10, 5, 3)
		d.DrawLine(0, 20, 9, 20)
		d.DrawDot(-1, 500)
		return nil
	}))
	f, err := c.Snapshot()
	require.NoError(t, err)
	require.Equal(t, 16+12+10, f.Count())
	require.True(t, f.At(3, 3))
	require.False(t, f.At(4, 4))
	require.True(t, f.At(14, 12))
	require.False(t, f.At(12, 11))

	require.NoError(t, c.Draw(func(d *Drawer) error {
		d.SetColor(ColorXOR)
		d.DrawBox(0, 0, 4, 4)
		d.SetColor(ColorWhite)
		d.DrawLine(0, 20, 9, 20)
		return nil
	}))
	f, err = c.Snapshot()
	require.NoError(t, err)
	require.Equal(t, 12, f.Count())

	require.NoError(t, c.Clear())
	f, _ = c.Snapshot()
	require.Zero(t, f.Count())
}

func TestDrawStr(t *testing.T) {
	c, _ := newCanvas(t, nil)
	require.NoError(t, c.DrawStr(0, 7, "A"))
	f, err := c.Snapshot()
	require.NoError(t, err)
	// 'A' has an empty top row in its first column.
	require.False(t, f.At(0, 0))
	for y := 1; y <= 6; y++ {
		require.True(t, f.At(0, y), "row %d", y)
	}
	require.False(t, f.At(0, 7))

	require.NoError(t, c.Draw(func(d *Drawer) error {
		require.Greater(t, d.StringWidth("AB"), d.StringWidth("A"))
		require.Positive(t, d.StringWidth("A"))
		d.Clear()
		d.DrawStrAligned(Width, 0, AlignRight, AlignTop, "Hi")
		return nil
	}))
	f, _ = c.Snapshot()
	require.Positive(t, f.Count())
	for x := 0; x < Width/2; x++ {
		for y := 0; y < Height; y++ {
			require.False(t, f.At(x, y), "right-aligned text leaked to (%d,%d)", x, y)
		}
	}
}

func TestCanvasIsDisplayer(t *testing.T) {
	c, _ := newCanvas(t, nil)
	w, h := c.Size()
	require.EqualValues(t, Width, w)
	require.EqualValues(t, Height, h)

	tinyfont.WriteLine(c, Font5x7, 0, 7, "I", color.RGBA{A: 0xff})
	f, _ := c.Snapshot()
	lit := f.Count()
	require.Positive(t, lit)

	tinyfont.WriteLine(c, Font5x7, 0, 7, "I", color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	f, _ = c.Snapshot()
	require.Zero(t, f.Count())
}

func TestDisplayPresentsSnapshot(t *testing.T) {
	var frames []Frame
	c, _ := newCanvas(t, func(f Frame) error {
		frames = append(frames, f)
		return nil
	})
	require.NoError(t, c.DrawStr(0, 7, "OK"))
	require.NoError(t, c.Commit())
	require.NoError(t, c.Clear())
	require.NoError(t, c.Display())

	require.Len(t, frames, 2)
	require.Positive(t, frames[0].Count())
	require.Zero(t, frames[1].Count())

	s := frames[0].String()
	require.Equal(t, Height, strings.Count(s, "\n"))
	require.True(t, strings.HasPrefix(s, ".#"), "first row %q", s[:8])
}

func TestCanvasSharedAcrossThreads(t *testing.T) {
	c, k := newCanvas(t, nil)
	var g errgroup.Group
	for i := 0; i < 4; i++ {
		x := i * 32
		h, err := furi.Spawn(furi.NewBuilder(k), func() error {
			return c.Draw(func(d *Drawer) error {
				d.DrawBox(x, 0, 8, 8)
				furi.Yield(k)
				d.DrawFrame(x, 16, 8, 8)
				return nil
			})
		})
		require.NoError(t, err)
		g.Go(func() error {
			werr, err := h.Join()
			if err != nil {
				return err
			}
			return werr
		})
	}
	require.NoError(t, g.Wait())
	f, _ := c.Snapshot()
	require.Equal(t, 4*(64+28), f.Count())
}

func TestCanvasClose(t *testing.T) {
	k := kernel.New(kernel.DefaultConfig())
	c, err := NewCanvas(k, nil)
	require.NoError(t, err)
	require.Equal(t, 1, k.Stats().Mutexes)
	require.NoError(t, c.Close())
	require.Zero(t, k.Stats().Mutexes)
	require.ErrorIs(t, c.Clear(), furi.ErrClosed)
}
