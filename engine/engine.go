// Package engine implements the DrawingEngine facade of spec.md §4.5:
// the thread-safe entry point that serializes concurrent painters
// against one frame buffer, drives the hardware fast paths an
// hw.Interface advertises, and coordinates the software cursor overlay
// around every draw. It owns one painter.Painter and mediates every
// external call, the same "facade owns the rasterizer, locks around
// every op" shape as agg_go's Agg2D context (internal/agg2d/agg2d.go)
// generalized from a single-threaded demo context to the concurrent
// multi-client contract §5 describes.
package engine

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/luciang/haiku-sub001/bitmap"
	"github.com/luciang/haiku-sub001/color"
	"github.com/luciang/haiku-sub001/drawerr"
	"github.com/luciang/haiku-sub001/drawstate"
	"github.com/luciang/haiku-sub001/hw"
	"github.com/luciang/haiku-sub001/internal/basics"
	"github.com/luciang/haiku-sub001/painter"
	"github.com/luciang/haiku-sub001/region"
)

// Engine is the DrawingEngine of spec.md §4.5.
type Engine struct {
	hw hw.Interface

	mu      sync.Mutex // protects p, lastErr; autoSyncDepth is atomic
	p       *painter.Painter
	lastErr error

	autoSyncDepth int32
}

// New creates an Engine attached to the given HW interface, building a
// Painter over its current drawing buffer.
func New(h hw.Interface) *Engine {
	buf := h.DrawingBuffer()
	e := &Engine{hw: h, p: painter.New(buf, bufWidth(h), bufHeight(h))}
	h.AddListener(e)
	return e
}

func bufWidth(h hw.Interface) int  { return h.DrawingBuffer().Width() }
func bufHeight(h hw.Interface) int { return h.DrawingBuffer().Height() }

// LockParallel / UnlockParallel guard a normal draw (spec.md §4.5).
func (e *Engine) LockParallel()   { e.hw.LockParallel() }
func (e *Engine) UnlockParallel() { e.hw.UnlockParallel() }

// LockExclusive / UnlockExclusive guard frame-buffer reconfiguration,
// region copies, and screen reads (spec.md §4.5).
func (e *Engine) LockExclusive()   { e.hw.LockExclusive() }
func (e *Engine) UnlockExclusive() { e.hw.UnlockExclusive() }

// FrameBufferChanged detaches/reattaches the painter to the (possibly
// resized) drawing buffer (spec.md §4.5; also satisfies hw.Listener so
// an hw.Interface can call this directly after a mode switch).
func (e *Engine) FrameBufferChanged() {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf := e.hw.DrawingBuffer()
	e.p.Attach(buf, buf.Width(), buf.Height())
}

// SetDrawState pushes a DrawState into the Painter, adjusting pattern
// offsets for scrolled views (spec.md §4.5 "set_draw_state").
func (e *Engine) SetDrawState(s *drawstate.DrawState, xOffset, yOffset int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps := painter.State{
		PenSize:         s.PenSize,
		DrawingMode:     s.DrawingMode,
		AlphaSrcMode:    s.AlphaSrcMode,
		AlphaFncMode:    s.AlphaFncMode,
		LineCapMode:     s.LineCapMode,
		LineJoinMode:    s.LineJoinMode,
		MiterLimit:      s.MiterLimit,
		HighColor:       s.HighColor,
		LowColor:        s.LowColor,
		Pattern:         s.Pattern,
		ClippingRegion:  s.ClippingRegion,
		SubPixelPrecise: s.SubPixelPrecise,
		Font:            s.Font,
		FontAliasing:    s.FontAliasing,
	}
	e.p.SetState(ps, xOffset, yOffset)
}

// SuspendAutoSync / Sync implement the depth counter of spec.md §5
// "Auto-sync suspension" — it must never go negative.
func (e *Engine) SuspendAutoSync() {
	atomic.AddInt32(&e.autoSyncDepth, 1)
}

func (e *Engine) Sync() {
	if atomic.AddInt32(&e.autoSyncDepth, -1) < 0 {
		atomic.StoreInt32(&e.autoSyncDepth, 0)
		panic("engine: Sync called without a matching SuspendAutoSync")
	}
}

// LastError returns the most recent ResourceUnavailable/BufferGone/Fatal error
// recorded for diagnostic readback (spec.md §7).
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) recordError(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}

// withDraw runs fn under the parallel lock, around the cursor
// hide/show latch keyed to footprint, and invalidates + returns the
// touched rect (spec.md §4.5 "Cursor coordination").
func (e *Engine) withDraw(footprint region.Rect, fn func(*painter.Painter) region.Rect) region.Rect {
	e.LockParallel()
	defer e.UnlockParallel()

	if e.hw.DrawingBuffer() == nil {
		e.recordError(fmt.Errorf("engine: no drawing buffer attached: %w", drawerr.BufferGone))
		return region.Rect{}
	}

	hidden := e.hw.HideSoftwareCursor(footprint)
	e.mu.Lock()
	touched := fn(e.p)
	if err := e.p.LastError(); err != nil {
		e.lastErr = err
	}
	e.mu.Unlock()
	if hidden {
		e.hw.ShowSoftwareCursor()
	}
	if !rectEmpty(touched) && atomic.LoadInt32(&e.autoSyncDepth) == 0 {
		e.hw.Invalidate(touched)
	}
	return touched
}

func rectEmpty(r region.Rect) bool { return r.X2 <= r.X1 || r.Y2 <= r.Y1 }

// StrokeLine draws a line (spec.md §4.4/§4.5).
func (e *Engine) StrokeLine(a, b basics.PointD) region.Rect {
	footprint := lineFootprint(a, b)
	return e.withDraw(footprint, func(p *painter.Painter) region.Rect { return p.StrokeLine(a, b) })
}

// StrokeLineArray draws a batch of independently colored line segments
// in one call (spec.md §3 "LineArrayData... stroke_line_array").
func (e *Engine) StrokeLineArray(segments []painter.LineSegment) region.Rect {
	footprint := region.Rect{}
	for _, seg := range segments {
		footprint = unionRect(footprint, lineFootprint(seg.Start, seg.End))
	}
	return e.withDraw(footprint, func(p *painter.Painter) region.Rect { return p.StrokeLineArray(segments) })
}

// FillRect fills r.
func (e *Engine) FillRect(r basics.RectD) region.Rect {
	footprint := rectFootprint(r)
	return e.withDraw(footprint, func(p *painter.Painter) region.Rect { return p.FillRect(r) })
}

// StrokeRect outlines r.
func (e *Engine) StrokeRect(r basics.RectD) region.Rect {
	footprint := rectFootprint(r)
	return e.withDraw(footprint, func(p *painter.Painter) region.Rect { return p.StrokeRect(r) })
}

// FillEllipse fills an ellipse.
func (e *Engine) FillEllipse(c basics.PointD, rx, ry float64) region.Rect {
	footprint := ellipseFootprint(c, rx, ry)
	return e.withDraw(footprint, func(p *painter.Painter) region.Rect { return p.FillEllipse(c, rx, ry) })
}

// StrokeEllipse strokes an ellipse outline.
func (e *Engine) StrokeEllipse(c basics.PointD, rx, ry float64) region.Rect {
	footprint := ellipseFootprint(c, rx, ry)
	return e.withDraw(footprint, func(p *painter.Painter) region.Rect { return p.StrokeEllipse(c, rx, ry) })
}

// FillPolygon fills a polygon.
func (e *Engine) FillPolygon(pts []basics.PointD) region.Rect {
	footprint := polygonFootprint(pts)
	return e.withDraw(footprint, func(p *painter.Painter) region.Rect { return p.FillPolygon(pts) })
}

// FillRegion fills a whole region, electing the HW fast path when the
// region is large enough and the interface advertises FillRegion
// (spec.md §4.5 "HW_FILL_REGION ... for solid-color rect/region fills
// larger than ~10x10 pixels").
func (e *Engine) FillRegion(reg *region.Region, solid color.RGBA, isSolid bool) region.Rect {
	footprint := reg.Bounds()
	return e.withDraw(footprint, func(p *painter.Painter) region.Rect {
		if isSolid && isLargeEnoughForHW(reg) && e.hw.AvailableAcceleration()&hw.FillRegion != 0 {
			var packed [4]byte
			color.FromRGBA(color.SpaceBGRA32, solid, packed[:])
			if e.hw.FillRegionHW(reg.Rects(), packed) {
				return reg.Bounds()
			}
		}
		return p.FillRegion(reg)
	})
}

func isLargeEnoughForHW(reg *region.Region) bool {
	b := reg.Bounds()
	return (b.X2-b.X1) >= 10 && (b.Y2-b.Y1) >= 10
}

// DrawBitmap blits a ServerBitmap (spec.md §4.4 "Bitmap drawing").
func (e *Engine) DrawBitmap(src *bitmap.Bitmap, srcRect, dstRect basics.RectI, opts painter.DrawBitmapOptions, pal *color.Palette) region.Rect {
	footprint := region.Rect{X1: dstRect.X1, Y1: dstRect.Y1, X2: dstRect.X2, Y2: dstRect.Y2}
	return e.withDraw(footprint, func(p *painter.Painter) region.Rect {
		return p.DrawBitmap(src, srcRect, dstRect, opts, pal)
	})
}

// DrawString rasterizes s at baseline using the Painter's current font
// and aliasing rule, applying escapementSpace/escapementNonSpace extra
// advance (spec.md §4.4 "Text rendering").
func (e *Engine) DrawString(s string, baseline basics.PointD, escapementSpace, escapementNonSpace float64) region.Rect {
	e.mu.Lock()
	estimate := e.p.TextBoundingBox(s, baseline)
	e.mu.Unlock()
	footprint := region.Rect{
		X1: int(math.Floor(estimate.X1)), Y1: int(math.Floor(estimate.Y1)),
		X2: int(math.Ceil(estimate.X2)) + 1, Y2: int(math.Ceil(estimate.Y2)) + 1,
	}
	return e.withDraw(footprint, func(p *painter.Painter) region.Rect {
		touched, _ := p.DrawText(s, baseline, escapementSpace, escapementNonSpace)
		return touched
	})
}

// StringWidth and StringBoundingBox are pure geometric queries against
// the Painter's current font; they never touch the frame buffer
// (spec.md §4.4 "no frame-buffer access").
func (e *Engine) StringWidth(s string, escapementSpace, escapementNonSpace float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.p.TextWidth(s, escapementSpace, escapementNonSpace)
}

func (e *Engine) StringBoundingBox(s string, origin basics.PointD) basics.RectD {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.p.TextBoundingBox(s, origin)
}

// CopyRegion is spec.md §4.5's "Copy-region algorithm": it topologically
// sorts the given rects so overlapping source/destination copies are
// safe, then hands the sorted order to the HW interface if it
// advertises CopyRegion, else performs each memmove itself under the
// exclusive lock.
func (e *Engine) CopyRegion(rects []region.Rect, dx, dy int) {
	sorted := region.SortCopyOrder(rects, dx, dy)

	e.LockExclusive()
	defer e.UnlockExclusive()

	if e.hw.DrawingBuffer() == nil {
		e.recordError(fmt.Errorf("engine: no drawing buffer attached: %w", drawerr.BufferGone))
		return
	}

	bounds := region.Rect{}
	for _, r := range sorted {
		moved := region.Rect{X1: r.X1 + dx, Y1: r.Y1 + dy, X2: r.X2 + dx, Y2: r.Y2 + dy}
		bounds = unionRect(bounds, moved)
	}
	hidden := e.hw.HideSoftwareCursor(bounds)

	if e.hw.AvailableAcceleration()&hw.CopyRegion != 0 && e.hw.CopyRegionHW(sorted, dx, dy) {
		// HW performed the copy.
	} else {
		buf := e.hw.DrawingBuffer()
		for _, r := range sorted {
			copyRectSoftware(buf, r, dx, dy)
		}
	}

	if hidden {
		e.hw.ShowSoftwareCursor()
	}
	e.hw.Invalidate(bounds)
}

// copyRectSoftware moves one rectangle by (dx, dy) within buf, choosing
// the iteration direction from the sign of the offset so a single
// rectangle's own in-place move never clobbers itself (spec.md §4.5
// "each rect is memmove'd with direction chosen from the sign of the
// offset").
func copyRectSoftware(buf interface {
	Row(y int) []basics.Int8u
	Width() int
	Height() int
}, r region.Rect, dx, dy int) {
	bpp := 4
	if dy >= 0 {
		for y := r.Y2 - 1; y >= r.Y1; y-- {
			copyRow(buf, r, y, dx, dy, bpp)
		}
	} else {
		for y := r.Y1; y < r.Y2; y++ {
			copyRow(buf, r, y, dx, dy, bpp)
		}
	}
}

func copyRow(buf interface {
	Row(y int) []basics.Int8u
	Width() int
	Height() int
}, r region.Rect, y, dx, dy, bpp int) {
	srcY := y
	dstY := y + dy
	if dstY < 0 || dstY >= buf.Height() {
		return
	}
	srcRow := buf.Row(srcY)
	dstRow := buf.Row(dstY)
	if srcRow == nil || dstRow == nil {
		return
	}
	if dx >= 0 {
		for x := r.X2 - 1; x >= r.X1; x-- {
			copyPixel(srcRow, dstRow, x, x+dx, bpp)
		}
	} else {
		for x := r.X1; x < r.X2; x++ {
			copyPixel(srcRow, dstRow, x, x+dx, bpp)
		}
	}
}

func copyPixel(src, dst []basics.Int8u, sx, dx, bpp int) {
	s, d := sx*bpp, dx*bpp
	if s < 0 || d < 0 || s+bpp > len(src) || d+bpp > len(dst) {
		return
	}
	for i := 0; i < bpp; i++ {
		dst[d+i] = src[s+i]
	}
}

func unionRect(a, b region.Rect) region.Rect {
	if a == (region.Rect{}) {
		return b
	}
	return basics.UniteRectangles(a, b)
}

// ReadBitmap locks exclusively, hides the cursor, copies rect into dst
// (converting color space via the Bitmap's own space), optionally
// composites the cursor, then shows the cursor again (spec.md §4.5
// "Screen readback").
func (e *Engine) ReadBitmap(rect region.Rect, dst *bitmap.Bitmap, pal *color.Palette, compositeCursor bool) error {
	e.LockExclusive()
	defer e.UnlockExclusive()

	if dst.Width() < rect.X2-rect.X1 || dst.Height() < rect.Y2-rect.Y1 {
		err := fmt.Errorf("engine: read_bitmap destination too small for rect: %w", drawerr.ResourceUnavailable)
		e.recordError(err)
		return err
	}
	hidden := e.hw.HideSoftwareCursor(rect)
	buf := e.hw.DrawingBuffer()

	for y := rect.Y1; y < rect.Y2; y++ {
		row := buf.Row(y)
		if row == nil {
			continue
		}
		for x := rect.X1; x < rect.X2; x++ {
			bpp := 4
			if x*bpp+bpp > len(row) {
				continue
			}
			raw := []byte{byte(row[x*bpp]), byte(row[x*bpp+1]), byte(row[x*bpp+2]), byte(row[x*bpp+3])}
			c := color.ToRGBA(color.SpaceBGRA32, raw, nil)
			dst.SetPixelAt(x-rect.X1, y-rect.Y1, c)
		}
	}

	if compositeCursor {
		e.compositeCursorInto(dst, rect)
	}

	if hidden {
		e.hw.ShowSoftwareCursor()
	}
	return nil
}

func (e *Engine) compositeCursorInto(dst *bitmap.Bitmap, rect region.Rect) {
	cur := e.hw.Cursor()
	pos := e.hw.CursorPosition()
	if cur == nil || len(cur.Bitmap) == 0 {
		return
	}
	originX, originY := pos.X-cur.HotX, pos.Y-cur.HotY
	for cy := 0; cy < cur.Height; cy++ {
		for cx := 0; cx < cur.Width; cx++ {
			sx, sy := originX+cx, originY+cy
			if sx < rect.X1 || sx >= rect.X2 || sy < rect.Y1 || sy >= rect.Y2 {
				continue
			}
			idx := (cy*cur.Width + cx) * 4
			if idx+3 >= len(cur.Bitmap) {
				continue
			}
			src := color.RGBA{B: cur.Bitmap[idx], G: cur.Bitmap[idx+1], R: cur.Bitmap[idx+2], A: cur.Bitmap[idx+3]}
			if src.A == 0 {
				continue
			}
			dx, dy := sx-rect.X1, sy-rect.Y1
			under := dst.PixelAt(dx, dy, nil)
			inv := uint32(255 - src.A)
			mix := func(s, d uint8) uint8 {
				return uint8((uint32(s)*uint32(src.A) + uint32(d)*inv + 127) / 255)
			}
			dst.SetPixelAt(dx, dy, color.RGBA{R: mix(src.R, under.R), G: mix(src.G, under.G), B: mix(src.B, under.B), A: 0xFF})
		}
	}
}

func lineFootprint(a, b basics.PointD) region.Rect {
	x1, x2 := minMax(a.X, b.X)
	y1, y2 := minMax(a.Y, b.Y)
	return region.Rect{X1: int(x1) - 1, Y1: int(y1) - 1, X2: int(x2) + 2, Y2: int(y2) + 2}
}

func rectFootprint(r basics.RectD) region.Rect {
	r.Normalize()
	return region.Rect{X1: int(r.X1), Y1: int(r.Y1), X2: int(r.X2) + 2, Y2: int(r.Y2) + 2}
}

func ellipseFootprint(c basics.PointD, rx, ry float64) region.Rect {
	return region.Rect{X1: int(c.X - rx - 1), Y1: int(c.Y - ry - 1), X2: int(c.X+rx+1) + 1, Y2: int(c.Y+ry+1) + 1}
}

func polygonFootprint(pts []basics.PointD) region.Rect {
	if len(pts) == 0 {
		return region.Rect{}
	}
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return region.Rect{X1: int(minX) - 1, Y1: int(minY) - 1, X2: int(maxX) + 2, Y2: int(maxY) + 2}
}

func minMax(a, b float64) (float64, float64) {
	if a < b {
		return a, b
	}
	return b, a
}
