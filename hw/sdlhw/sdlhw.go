// Package sdlhw is the SDL2-backed hw.Interface: a real window and a
// BGRA32 frame buffer. It tracks the cursor's position and bitmap and
// reports overlap from HideSoftwareCursor, but does not draw the cursor
// into the window. The per-row
// pixel copy is the same shape as agg_go's
// internal/platform/sdl2/sdl2_display.go copyBGRA32ToSurface — this
// server only ever produces BGRA32, so the format switch collapses to
// that one case.
package sdlhw

import (
	"fmt"
	"sync"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/luciang/haiku-sub001/hw"
	"github.com/luciang/haiku-sub001/internal/basics"
	"github.com/luciang/haiku-sub001/internal/buffer"
	"github.com/luciang/haiku-sub001/region"
)

// Backend is an hw.Interface backed by a real SDL2 window.
type Backend struct {
	mu       sync.Mutex
	parallel sync.RWMutex

	window  *sdl.Window
	surface *sdl.Surface

	buf    *buffer.RenderingBufferU8
	width  int
	height int

	cursor     hw.Cursor
	cursorPos  basics.PointI
	cursorShow bool

	listeners []hw.Listener
}

// New creates an SDL2 window of the given size and attaches a matching
// BGRA32 frame buffer.
func New(title string, width, height int) (*Backend, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("sdlhw: sdl.Init: %w", err)
	}
	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(width), int32(height), sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, fmt.Errorf("sdlhw: CreateWindow: %w", err)
	}
	surface, err := window.GetSurface()
	if err != nil {
		return nil, fmt.Errorf("sdlhw: GetSurface: %w", err)
	}

	stride := width * 4
	pixels := make([]basics.Int8u, stride*height)
	return &Backend{
		window:     window,
		surface:    surface,
		buf:        buffer.NewRenderingBufferU8WithData(pixels, width, height, stride),
		width:      width,
		height:     height,
		cursorShow: true,
	}, nil
}

func (b *Backend) LockParallel()    { b.parallel.RLock() }
func (b *Backend) UnlockParallel()  { b.parallel.RUnlock() }
func (b *Backend) LockExclusive()   { b.parallel.Lock() }
func (b *Backend) UnlockExclusive() { b.parallel.Unlock() }

func (b *Backend) DrawingBuffer() *buffer.RenderingBufferU8 { return b.buf }

// Invalidate blits the dirty rect from the frame buffer to the SDL
// surface and updates the window (spec.md §4.6 "invalidate(rect)").
func (b *Backend) Invalidate(r region.Rect) {
	if err := b.copyBGRA32ToSurface(r); err != nil {
		return
	}
	b.window.UpdateSurface()
}

func (b *Backend) copyBGRA32ToSurface(r region.Rect) error {
	if err := b.surface.Lock(); err != nil {
		return fmt.Errorf("sdlhw: lock surface: %w", err)
	}
	defer b.surface.Unlock()

	dst := b.surface.Pixels()
	dstPitch := int(b.surface.Pitch)

	x1, y1 := basics.IMax(r.X1, 0), basics.IMax(r.Y1, 0)
	x2, y2 := basics.IMin(r.X2, b.width), basics.IMin(r.Y2, b.height)

	for y := y1; y < y2; y++ {
		srcRow := b.buf.Row(y)
		if srcRow == nil {
			continue
		}
		dstRow := y * dstPitch
		for x := x1; x < x2; x++ {
			srcPixel := x * 4
			dstPixel := dstRow + x*4
			if srcPixel+3 >= len(srcRow) || dstPixel+3 >= len(dst) {
				continue
			}
			// BGRA straight through: this server's internal format
			// already matches SDL's default BGRA8888 surface layout.
			dst[dstPixel+0] = byte(srcRow[srcPixel+0])
			dst[dstPixel+1] = byte(srcRow[srcPixel+1])
			dst[dstPixel+2] = byte(srcRow[srcPixel+2])
			dst[dstPixel+3] = byte(srcRow[srcPixel+3])
		}
	}
	return nil
}

func (b *Backend) AvailableAcceleration() hw.AccelFlags { return 0 }

func (b *Backend) HideSoftwareCursor(r region.Rect) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.cursorShow {
		return false
	}
	footprint := region.Rect{
		X1: b.cursorPos.X - b.cursor.HotX,
		Y1: b.cursorPos.Y - b.cursor.HotY,
		X2: b.cursorPos.X - b.cursor.HotX + b.cursor.Width,
		Y2: b.cursorPos.Y - b.cursor.HotY + b.cursor.Height,
	}
	_, overlaps := basics.IntersectRectangles(footprint, r)
	if overlaps {
		b.cursorShow = false
	}
	return overlaps
}

func (b *Backend) ShowSoftwareCursor() {
	b.mu.Lock()
	b.cursorShow = true
	b.mu.Unlock()
}

func (b *Backend) CursorPosition() basics.PointI {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursorPos
}

// SetCursorPosition updates the tracked cursor position, typically
// driven by SDL mouse-motion events pumped elsewhere.
func (b *Backend) SetCursorPosition(p basics.PointI) {
	b.mu.Lock()
	b.cursorPos = p
	b.mu.Unlock()
}

func (b *Backend) SetCursor(c hw.Cursor) {
	b.mu.Lock()
	b.cursor = c
	b.mu.Unlock()
}

func (b *Backend) Cursor() *hw.Cursor {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.cursor
	return &c
}

func (b *Backend) FillRegionHW(rects []region.Rect, c [4]byte) bool        { return false }
func (b *Backend) InvertRegionHW(rects []region.Rect) bool                 { return false }
func (b *Backend) CopyRegionHW(sortedRects []region.Rect, dx, dy int) bool { return false }

func (b *Backend) AddListener(l hw.Listener) {
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()
}

// Close destroys the SDL window and shuts down the SDL video subsystem.
func (b *Backend) Close() {
	b.window.Destroy()
	sdl.Quit()
}
