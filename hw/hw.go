// Package hw defines the HWInterface contract of spec.md §4.6 and a
// software-only reference implementation (memhw) any engine can run
// against without a real display — the same role agg_go's platform
// backends play for its Agg2D demos, generalized to this spec's cursor
// and acceleration-flag contract.
package hw

import (
	"sync"

	"github.com/luciang/haiku-sub001/internal/basics"
	"github.com/luciang/haiku-sub001/internal/buffer"
	"github.com/luciang/haiku-sub001/region"
)

// AccelFlags is the bitset of hardware fast paths an HWInterface may
// advertise at attach time (spec.md §4.5 "HW-accel fast paths").
type AccelFlags uint32

const (
	FillRegion AccelFlags = 1 << iota
	InvertRegion
	CopyRegion
)

// Cursor is the minimal software-cursor overlay state an HWInterface
// owns (spec.md §4.6 "cursor() -> &ServerCursor").
type Cursor struct {
	Bitmap []byte // BGRA32 premultiplied-free pixels, Width*Height*4 bytes
	Width  int
	Height int
	HotX   int
	HotY   int
}

// Listener is notified of frame-buffer mode changes (spec.md §4.6 "a
// listener mechanism for mode-change notifications").
type Listener interface {
	FrameBufferChanged()
}

// Interface is the HWInterface contract of spec.md §4.6.
type Interface interface {
	LockParallel()
	UnlockParallel()
	LockExclusive()
	UnlockExclusive()

	DrawingBuffer() *buffer.RenderingBufferU8
	Invalidate(r region.Rect)
	AvailableAcceleration() AccelFlags

	HideSoftwareCursor(r region.Rect) bool
	ShowSoftwareCursor()
	CursorPosition() basics.PointI
	Cursor() *Cursor

	FillRegionHW(rects []region.Rect, c [4]byte) bool
	InvertRegionHW(rects []region.Rect) bool
	CopyRegionHW(sortedRects []region.Rect, dx, dy int) bool

	AddListener(l Listener)
}

// MemHW is a software-only Interface: a plain in-memory frame buffer, a
// tracked (but never rasterized) cursor position, and no accelerated
// ops — every AccelFlags bit is unset, so the engine always falls back
// to its own software paths. Useful for tests and for any consumer that
// doesn't need a real display.
type MemHW struct {
	mu       sync.Mutex
	parallel sync.RWMutex

	buf    *buffer.RenderingBufferU8
	width  int
	height int

	cursor     Cursor
	cursorPos  basics.PointI
	cursorShow bool

	listeners []Listener
}

// NewMemHW allocates a BGRA32 frame buffer of the given dimensions.
func NewMemHW(width, height int) *MemHW {
	stride := width * 4
	pixels := make([]basics.Int8u, stride*height)
	return &MemHW{
		buf:        buffer.NewRenderingBufferU8WithData(pixels, width, height, stride),
		width:      width,
		height:     height,
		cursorShow: true,
	}
}

func (m *MemHW) LockParallel()    { m.parallel.RLock() }
func (m *MemHW) UnlockParallel()  { m.parallel.RUnlock() }
func (m *MemHW) LockExclusive()   { m.parallel.Lock() }
func (m *MemHW) UnlockExclusive() { m.parallel.Unlock() }

func (m *MemHW) DrawingBuffer() *buffer.RenderingBufferU8 { return m.buf }

func (m *MemHW) Invalidate(r region.Rect) {} // no real display to flush

func (m *MemHW) AvailableAcceleration() AccelFlags { return 0 }

// HideSoftwareCursor reports whether r intersects the cursor's current
// footprint (spec.md §4.5 "returns whether the cursor was actually
// obscured").
func (m *MemHW) HideSoftwareCursor(r region.Rect) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.cursorShow {
		return false
	}
	footprint := region.Rect{
		X1: m.cursorPos.X - m.cursor.HotX,
		Y1: m.cursorPos.Y - m.cursor.HotY,
		X2: m.cursorPos.X - m.cursor.HotX + m.cursor.Width,
		Y2: m.cursorPos.Y - m.cursor.HotY + m.cursor.Height,
	}
	_, overlaps := basics.IntersectRectangles(footprint, r)
	if overlaps {
		m.cursorShow = false
	}
	return overlaps
}

func (m *MemHW) ShowSoftwareCursor() {
	m.mu.Lock()
	m.cursorShow = true
	m.mu.Unlock()
}

func (m *MemHW) CursorPosition() basics.PointI {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursorPos
}

// SetCursorPosition lets a test or caller move the cursor.
func (m *MemHW) SetCursorPosition(p basics.PointI) {
	m.mu.Lock()
	m.cursorPos = p
	m.mu.Unlock()
}

// SetCursor replaces the cursor bitmap/hotspot.
func (m *MemHW) SetCursor(c Cursor) {
	m.mu.Lock()
	m.cursor = c
	m.mu.Unlock()
}

func (m *MemHW) Cursor() *Cursor {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.cursor
	return &c
}

func (m *MemHW) FillRegionHW(rects []region.Rect, c [4]byte) bool    { return false }
func (m *MemHW) InvertRegionHW(rects []region.Rect) bool             { return false }
func (m *MemHW) CopyRegionHW(sortedRects []region.Rect, dx, dy int) bool { return false }

func (m *MemHW) AddListener(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Resize reattaches the frame buffer at a new size and notifies
// listeners, simulating a display mode change.
func (m *MemHW) Resize(width, height int) {
	m.mu.Lock()
	stride := width * 4
	pixels := make([]basics.Int8u, stride*height)
	m.buf = buffer.NewRenderingBufferU8WithData(pixels, width, height, stride)
	m.width, m.height = width, height
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, l := range listeners {
		l.FrameBufferChanged()
	}
}
