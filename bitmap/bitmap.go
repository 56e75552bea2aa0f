// Package bitmap implements ServerBitmap and the BitmapManager described
// in spec.md §3: a reference-counted pixel container whose width, height,
// color space, and bytes-per-row are fixed at creation time, backed by
// the same buffer.RenderingBuffer the frame buffer uses (internal/buffer,
// grounded on agg_go's row_accessor port).
package bitmap

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/luciang/haiku-sub001/color"
	"github.com/luciang/haiku-sub001/internal/basics"
	"github.com/luciang/haiku-sub001/internal/buffer"
)

// Bitmap is a reference-counted pixel container (spec.md §3
// "ServerBitmap"). Every attribute below is immutable once NewBitmap
// returns; only the reference count and the pixel contents change.
type Bitmap struct {
	token    int32
	width    int
	height   int
	space    color.Space
	bytesRow int

	buf *buffer.RenderingBufferU8

	refCount int32

	mu      sync.Mutex
	overlay *OverlayHandle
}

// OverlayHandle is the optional hardware-overlay association a client
// may request for a bitmap (spec.md §3 "optional overlay handle"). This
// port never drives real overlay hardware; it only tracks the handle so
// the contract round-trips, matching the HWInterface's own
// software-only posture (§4.5).
type OverlayHandle struct {
	Token int32
}

// bytesPerRowFor returns the smallest stride satisfying spec.md §3's
// RenderingBuffer invariant (bytes-per-row >= width * bytes-per-pixel).
func bytesPerRowFor(width int, space color.Space) int {
	return width * space.BytesPerPixel()
}

// Manager is the BitmapManager of spec.md §3: it allocates tokens and
// tracks every live Bitmap on behalf of clients.
type Manager struct {
	mu      sync.Mutex
	nextTok int32
	live    map[int32]*Bitmap
}

// NewManager creates an empty bitmap manager.
func NewManager() *Manager {
	return &Manager{live: make(map[int32]*Bitmap)}
}

// Create allocates a new bitmap with one reference already held by the
// requesting client (spec.md §3 "created by a BitmapManager on behalf
// of a client").
func (m *Manager) Create(width, height int, space color.Space) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("bitmap: invalid dimensions %dx%d", width, height)
	}
	stride := bytesPerRowFor(width, space)
	pixels := make([]basics.Int8u, stride*height)

	m.mu.Lock()
	m.nextTok++
	tok := m.nextTok
	m.mu.Unlock()

	b := &Bitmap{
		token:    tok,
		width:    width,
		height:   height,
		space:    space,
		bytesRow: stride,
		buf:      buffer.NewRenderingBufferU8WithData(pixels, width, height, stride),
		refCount: 1,
	}

	m.mu.Lock()
	m.live[tok] = b
	m.mu.Unlock()
	return b, nil
}

// Lookup finds a live bitmap by token.
func (m *Manager) Lookup(token int32) (*Bitmap, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.live[token]
	return b, ok
}

// Release drops one of the manager's own references to token, deleting
// it from the live set once the bitmap's count reaches zero (spec.md §3
// "released when all server references drop and the client has
// acknowledged release" — acknowledgement is the caller's concern, the
// manager only tracks the count).
func (m *Manager) Release(token int32) {
	m.mu.Lock()
	b, ok := m.live[token]
	m.mu.Unlock()
	if !ok {
		return
	}
	if b.unref() {
		m.mu.Lock()
		delete(m.live, token)
		m.mu.Unlock()
	}
}

// Token returns the bitmap's server-assigned identity.
func (b *Bitmap) Token() int32 { return b.token }

// Width, Height, Space, BytesPerRow return the immutable attributes
// fixed at creation (spec.md §3 invariant).
func (b *Bitmap) Width() int            { return b.width }
func (b *Bitmap) Height() int           { return b.height }
func (b *Bitmap) Space() color.Space    { return b.space }
func (b *Bitmap) BytesPerRow() int      { return b.bytesRow }

// RefCount returns the current reference count.
func (b *Bitmap) RefCount() int32 { return atomic.LoadInt32(&b.refCount) }

// Ref increments the reference count, returning the bitmap for chaining.
func (b *Bitmap) Ref() *Bitmap {
	atomic.AddInt32(&b.refCount, 1)
	return b
}

// unref decrements the reference count and reports whether it reached
// zero (spec.md §3 "reference count >= 0").
func (b *Bitmap) unref() bool {
	return atomic.AddInt32(&b.refCount, -1) == 0
}

// Buffer exposes the backing RenderingBuffer for Painter/Engine use.
// Valid only while RefCount() > 0 (spec.md §3 "bits pointer valid while
// count > 0").
func (b *Bitmap) Buffer() *buffer.RenderingBufferU8 { return b.buf }

// SetOverlay attaches or clears the optional overlay handle.
func (b *Bitmap) SetOverlay(o *OverlayHandle) {
	b.mu.Lock()
	b.overlay = o
	b.mu.Unlock()
}

// Overlay returns the bitmap's overlay handle, if any.
func (b *Bitmap) Overlay() *OverlayHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overlay
}

// PixelAt reads one pixel, converting from the bitmap's native color
// space to the internal RGBA representation (color.ToRGBA).
func (b *Bitmap) PixelAt(x, y int, pal *color.Palette) color.RGBA {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return color.RGBA{}
	}
	bpp := b.space.BytesPerPixel()
	row := b.buf.RowPtr(x*bpp, y, bpp)
	if len(row) < bpp {
		return color.RGBA{}
	}
	raw := make([]byte, bpp)
	for i, v := range row[:bpp] {
		raw[i] = byte(v)
	}
	return color.ToRGBA(b.space, raw, pal)
}

// SetPixelAt writes one pixel, converting from RGBA to the bitmap's
// native color space.
func (b *Bitmap) SetPixelAt(x, y int, c color.RGBA) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	bpp := b.space.BytesPerPixel()
	row := b.buf.RowPtr(x*bpp, y, bpp)
	if len(row) < bpp {
		return
	}
	raw := make([]byte, bpp)
	color.FromRGBA(b.space, c, raw)
	for i := 0; i < bpp; i++ {
		row[i] = basics.Int8u(raw[i])
	}
}
