// Package gui draws to a 128x64 monochrome canvas shared between threads.
package gui

import (
	"fmt"
	"image/color"
	"strings"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"

	"furi/furi"
	"furi/kernel"
)

// Canvas dimensions in pixels.
const (
	Width  = 128
	Height = 64
)

// RecordName is the record the canvas is published under.
const RecordName = "gui"

// Color is a monochrome ink.
type Color uint8

const (
	ColorWhite Color = iota
	ColorBlack
	ColorXOR
)

// Align positions text relative to an anchor point.
type Align uint8

const (
	AlignLeft Align = iota
	AlignRight
	AlignTop
	AlignBottom
	AlignCenter
)

// Frame is a packed 1bpp snapshot, row-major, LSB first.
type Frame [Width * Height / 8]byte

// At reports whether the pixel at (x, y) is set.
func (f *Frame) At(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	i := y*Width + x
	return f[i/8]&(1<<(i%8)) != 0
}

func (f *Frame) set(x, y int, c Color) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	i := y*Width + x
	bit := byte(1 << (i % 8))
	switch c {
	case ColorBlack:
		f[i/8] |= bit
	case ColorWhite:
		f[i/8] &^= bit
	case ColorXOR:
		f[i/8] ^= bit
	}
}

// Count returns the number of set pixels.
func (f *Frame) Count() int {
	n := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if f.At(x, y) {
				n++
			}
		}
	}
	return n
}

// String renders the frame as text, '#' for set pixels.
func (f *Frame) String() string {
	var b strings.Builder
	b.Grow((Width + 1) * Height)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if f.At(x, y) {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type canvasState struct {
	frame Frame
	color Color
	font  tinyfont.Fonter
}

// Canvas is a frame buffer plus drawing state behind a kernel mutex.
// It implements drivers.Displayer so tinyfont and other TinyGo renderers can
// draw on it.
type Canvas struct {
	state   *furi.Mutex[canvasState]
	present func(Frame) error
}

var _ drivers.Displayer = (*Canvas)(nil)

// NewCanvas allocates a canvas. present, if set, receives a snapshot on
// every Display.
func NewCanvas(k kernel.Mutexes, present func(Frame) error) (*Canvas, error) {
	state, err := furi.NewRecursiveMutex(k, canvasState{color: ColorBlack, font: Font5x7})
	if err != nil {
		return nil, fmt.Errorf("gui: canvas: %w", err)
	}
	return &Canvas{state: state, present: present}, nil
}

// Size implements drivers.Displayer.
func (c *Canvas) Size() (x, y int16) { return Width, Height }

// SetPixel implements drivers.Displayer. Dark colors set the pixel, light
// colors clear it.
func (c *Canvas) SetPixel(x, y int16, rgba color.RGBA) {
	ink := ColorWhite
	if luma(rgba) < 128 {
		ink = ColorBlack
	}
	c.state.With(func(s *canvasState) error {
		s.frame.set(int(x), int(y), ink)
		return nil
	})
}

// Display implements drivers.Displayer by handing a snapshot to the
// present hook.
func (c *Canvas) Display() error {
	f, err := c.Snapshot()
	if err != nil {
		return err
	}
	if c.present == nil {
		return nil
	}
	return c.present(f)
}

// Commit is an alias for Display.
func (c *Canvas) Commit() error { return c.Display() }

// Snapshot copies the current frame.
func (c *Canvas) Snapshot() (f Frame, err error) {
	err = c.state.With(func(s *canvasState) error {
		f = s.frame
		return nil
	})
	return f, err
}

// Draw runs fn with the canvas held, so a whole scene lands atomically
// relative to other threads.
func (c *Canvas) Draw(fn func(d *Drawer) error) error {
	return c.state.With(func(s *canvasState) error {
		return fn(&Drawer{s: s})
	})
}

// Clear blanks the canvas.
func (c *Canvas) Clear() error {
	return c.Draw(func(d *Drawer) error {
		d.Clear()
		return nil
	})
}

// DrawStr draws s with its baseline at (x, y).
func (c *Canvas) DrawStr(x, y int, s string) error {
	return c.Draw(func(d *Drawer) error {
		d.DrawStr(x, y, s)
		return nil
	})
}

// Close frees the canvas mutex.
func (c *Canvas) Close() error { return c.state.Close() }

// Drawer draws on a held canvas. It is valid only inside Canvas.Draw.
type Drawer struct {
	s *canvasState
}

func (d *Drawer) Width() int  { return Width }
func (d *Drawer) Height() int { return Height }

// SetColor selects the ink for following draws.
func (d *Drawer) SetColor(c Color) { d.s.color = c }

// SetFont selects the text font.
func (d *Drawer) SetFont(f tinyfont.Fonter) {
	if f != nil {
		d.s.font = f
	}
}

func (d *Drawer) Clear() { d.s.frame = Frame{} }

func (d *Drawer) DrawDot(x, y int) { d.s.frame.set(x, y, d.s.color) }

// DrawLine draws a line between two points inclusive.
func (d *Drawer) DrawLine(x0, y0, x1, y1 int) {
	dx, sx := abs(x1-x0), sign(x1-x0)
	dy, sy := -abs(y1-y0), sign(y1-y0)
	e := dx + dy
	for {
		d.DrawDot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		if e2 := 2 * e; e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 := 2 * e; e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// DrawBox fills a rectangle.
func (d *Drawer) DrawBox(x, y, w, h int) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			d.DrawDot(i, j)
		}
	}
}

// DrawFrame outlines a rectangle.
func (d *Drawer) DrawFrame(x, y, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	d.DrawLine(x, y, x+w-1, y)
	d.DrawLine(x, y+h-1, x+w-1, y+h-1)
	d.DrawLine(x, y, x, y+h-1)
	d.DrawLine(x+w-1, y, x+w-1, y+h-1)
}

// DrawStr draws s with its baseline at (x, y).
func (d *Drawer) DrawStr(x, y int, s string) {
	tinyfont.WriteLine(inkDisplay{d}, d.s.font, int16(x), int16(y), s, color.RGBA{A: 0xff})
}

// DrawStrAligned draws s anchored at (x, y).
func (d *Drawer) DrawStrAligned(x, y int, h, v Align, s string) {
	w := d.StringWidth(s)
	switch h {
	case AlignRight:
		x -= w
	case AlignCenter:
		x -= w / 2
	}
	ascent := int(d.s.font.GetYAdvance()) - 1
	switch v {
	case AlignTop:
		y += ascent
	case AlignCenter:
		y += ascent / 2
	}
	d.DrawStr(x, y, s)
}

// StringWidth returns the advance width of s in the current font.
func (d *Drawer) StringWidth(s string) int {
	_, w := tinyfont.LineWidth(d.s.font, s)
	return int(w)
}

// inkDisplay routes tinyfont pixels through the current ink while the
// canvas is held.
type inkDisplay struct{ d *Drawer }

func (p inkDisplay) Size() (x, y int16)                { return Width, Height }
func (p inkDisplay) SetPixel(x, y int16, _ color.RGBA) { p.d.DrawDot(int(x), int(y)) }
func (p inkDisplay) Display() error                    { return nil }

func luma(c color.RGBA) int {
	return (299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
