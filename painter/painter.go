// Package painter implements the Painter of spec.md §4.4: the geometric
// rasterizer that turns a command plus a serialized slice of DrawState
// into frame-buffer writes. Fast paths (axis-aligned 1px lines, solid
// rect fills) are hand-rolled per spec.md's exact description; the
// general path — curves, polygons, shapes, strokes with miter/round/
// bevel joins — is built with github.com/llgcode/draw2d's geometry
// engine (grounded on novvoo-go-cairo, the pack's Cairo-clone teacher),
// used only to produce an anti-aliased coverage mask on a scratch
// image.RGBA: every actual pixel store still flows through
// drawmode.Blend and the PatternHandler, matching spec.md §9's
// observation that PatternHandler's color_at is "a capability" the
// whole pipeline composes against.
package painter

import (
	"fmt"
	"image"
	stdcolor "image/color"
	"math"

	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"golang.org/x/image/math/fixed"

	"github.com/luciang/haiku-sub001/bitmap"
	"github.com/luciang/haiku-sub001/color"
	"github.com/luciang/haiku-sub001/drawerr"
	"github.com/luciang/haiku-sub001/drawmode"
	"github.com/luciang/haiku-sub001/drawstate"
	"github.com/luciang/haiku-sub001/internal/basics"
	"github.com/luciang/haiku-sub001/internal/buffer"
	"github.com/luciang/haiku-sub001/pattern"
	"github.com/luciang/haiku-sub001/region"
	"github.com/luciang/haiku-sub001/serverfont"
)

// State is the rasterization-relevant subset of DrawState the Painter
// consults (spec.md §4.4: "a subset of DrawState relevant to
// rasterization").
type State struct {
	PenSize         float64
	DrawingMode     drawmode.Mode
	AlphaSrcMode    drawmode.AlphaSrcMode
	AlphaFncMode    drawmode.AlphaFncMode
	LineCapMode     drawstate.CapMode
	LineJoinMode    drawstate.JoinMode
	MiterLimit      float64
	HighColor       color.RGBA
	LowColor        color.RGBA
	Pattern         pattern.Pattern
	ClippingRegion  *region.Region
	SubPixelPrecise bool
	Font            *serverfont.Font
	FontAliasing    bool
}

// Painter holds the frame buffer, the PatternHandler, and the current
// State (spec.md §4.4).
type Painter struct {
	buf     *buffer.RenderingBufferU8
	width   int
	height  int
	handler *pattern.Handler
	state   State
	lastErr error
}

// LastError returns and clears the error recorded by the most recent
// general-path draw, if rasterizing it panicked (spec.md §7's Fatal
// class: "a scratch allocation failed while rasterizing one
// primitive... that primitive is skipped, the engine keeps serving
// later calls").
func (p *Painter) LastError() error {
	err := p.lastErr
	p.lastErr = nil
	return err
}

// New attaches a Painter to the given pixel buffer (BGRA32, as every
// frame buffer and ServerBitmap is internally, spec.md §3).
func New(buf *buffer.RenderingBufferU8, width, height int) *Painter {
	return &Painter{
		buf:     buf,
		width:   width,
		height:  height,
		handler: pattern.New(),
		state:   State{PenSize: 1, MiterLimit: 10, Pattern: pattern.SolidHigh, HighColor: color.RGBA{A: 0xFF}, LowColor: color.RGBA{R: 255, G: 255, B: 255, A: 0xFF}},
	}
}

// Attach re-binds the Painter to a new pixel buffer without resetting
// State, used by DrawingEngine.frame_buffer_changed (spec.md §4.5).
func (p *Painter) Attach(buf *buffer.RenderingBufferU8, width, height int) {
	p.buf = buf
	p.width = width
	p.height = height
}

// SetState pushes the rasterization-relevant subset of a DrawState into
// the Painter, applying xOffset/yOffset to the pattern lookup for
// scrolled views (spec.md §4.5 "set_draw_state").
func (p *Painter) SetState(s State, xOffset, yOffset int) {
	p.state = s
	p.handler.SetPattern(s.Pattern)
	p.handler.SetHighColor(s.HighColor)
	p.handler.SetLowColor(s.LowColor)
	p.handler.SetOffsets(xOffset, yOffset)
}

func (p *Painter) blendParams() drawmode.Params {
	return drawmode.Params{
		AlphaSrc:  p.state.AlphaSrcMode,
		AlphaFnc:  p.state.AlphaFncMode,
		HighColor: p.state.HighColor,
		LowColor:  p.state.LowColor,
	}
}

// clipRects returns the clip sub-rectangles a draw must honor: the
// intersection of the painter's surface bounds with the active clipping
// region, or just the surface bounds when no region is set.
func (p *Painter) clipRects() []region.Rect {
	full := region.Rect{X1: 0, Y1: 0, X2: p.width, Y2: p.height}
	if p.state.ClippingRegion == nil || p.state.ClippingRegion.Empty() {
		return []region.Rect{full}
	}
	return p.state.ClippingRegion.IntersectRect(full).Rects()
}

func snap(v float64, subPixel bool) float64 {
	if subPixel {
		return v
	}
	return math.Round(v)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// putPixel blends src onto (x, y) through the active drawing mode,
// honoring srcIsHigh for the modes that key off the pattern slot.
func (p *Painter) putPixel(x, y int, src color.RGBA, srcIsHigh bool) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	bpp := 4
	row := p.buf.RowPtr(x*bpp, y, bpp)
	if len(row) < bpp {
		return
	}
	raw := [4]byte{byte(row[0]), byte(row[1]), byte(row[2]), byte(row[3])}
	dst := color.ToRGBA(color.SpaceBGRA32, raw[:], nil)

	params := p.blendParams()
	params.SrcIsHigh = srcIsHigh
	out := drawmode.Blend(p.state.DrawingMode, src, dst, params)

	var packed [4]byte
	color.FromRGBA(color.SpaceBGRA32, out, packed[:])
	for i := 0; i < bpp; i++ {
		row[i] = basics.Int8u(packed[i])
	}
}

// withClip intersects box with every clip sub-rect and calls fn for
// each non-empty result.
func (p *Painter) withClip(box region.Rect, fn func(region.Rect)) {
	for _, c := range p.clipRects() {
		if clipped, ok := basics.IntersectRectangles(box, c); ok {
			fn(clipped)
		}
	}
}

// union returns the bounding rect of a and b, treating a zero rect as
// empty; used to accumulate a primitive's invalidation footprint.
func union(a, b region.Rect) region.Rect {
	if a == (region.Rect{}) {
		return b
	}
	return basics.UniteRectangles(a, b)
}

// LineSegment is one element of a stroke_line_array batch (spec.md §3
// "LineArrayData"): a start/end pair plus its own explicit color,
// independent of the DrawState's pattern or high/low color.
type LineSegment struct {
	Start, End basics.PointD
	Color      color.RGBA
}

// StrokeLineArray draws many independently colored segments in one call
// (spec.md §3 "used only for the stroke_line_array batch primitive"),
// reusing StrokeLine's fast/general paths with the pattern pinned to a
// solid fill of each segment's own color.
func (p *Painter) StrokeLineArray(segments []LineSegment) region.Rect {
	savedPattern, savedHigh := p.state.Pattern, p.state.HighColor
	defer func() {
		p.state.Pattern, p.state.HighColor = savedPattern, savedHigh
		p.handler.SetPattern(savedPattern)
		p.handler.SetHighColor(savedHigh)
	}()

	touched := region.Rect{}
	for _, seg := range segments {
		p.state.Pattern = pattern.SolidHigh
		p.state.HighColor = seg.Color
		p.handler.SetPattern(pattern.SolidHigh)
		p.handler.SetHighColor(seg.Color)
		touched = union(touched, p.StrokeLine(seg.Start, seg.End))
	}
	return touched
}

// --- Lines ---------------------------------------------------------------

// StrokeLine draws a line from a to b (spec.md §4.4 "Line drawing").
func (p *Painter) StrokeLine(a, b basics.PointD) region.Rect {
	a.X, a.Y = snap(a.X, p.state.SubPixelPrecise), snap(a.Y, p.state.SubPixelPrecise)
	b.X, b.Y = snap(b.X, p.state.SubPixelPrecise), snap(b.Y, p.state.SubPixelPrecise)

	if a == b {
		if p.state.PenSize == 1 {
			return p.fillPixelFast(int(a.X), int(a.Y))
		}
		side := p.state.PenSize
		return p.FillRect(basics.RectD{X1: a.X - side/2, Y1: a.Y - side/2, X2: a.X + side/2, Y2: a.Y + side/2})
	}

	if p.state.PenSize == 1 && (a.X == b.X || a.Y == b.Y) {
		if high, solid := p.handler.IsSolid(); solid && (p.state.DrawingMode == drawmode.Copy || p.state.DrawingMode == drawmode.Over) {
			return p.fastAxisLine(a, b, high)
		}
	}
	return p.generalStroke([][2]float64{{a.X, a.Y}, {b.X, b.Y}}, false)
}

func (p *Painter) fillPixelFast(x, y int) region.Rect {
	c, high := p.handler.ColorAt(x, y), p.handler.IsHigh(x, y)
	touched := region.Rect{}
	p.withClip(region.Rect{X1: x, Y1: y, X2: x + 1, Y2: y + 1}, func(r region.Rect) {
		p.putPixel(x, y, c, high)
		touched = union(touched, r)
	})
	return touched
}

func (p *Painter) fastAxisLine(a, b basics.PointD, _ color.RGBA) region.Rect {
	touched := region.Rect{}
	if a.Y == b.Y {
		y := int(a.Y)
		x0, x1 := int(math.Min(a.X, b.X)), int(math.Max(a.X, b.X))+1
		p.withClip(region.Rect{X1: x0, Y1: y, X2: x1, Y2: y + 1}, func(r region.Rect) {
			for x := r.X1; x < r.X2; x++ {
				p.putPixel(x, y, p.handler.ColorAt(x, y), p.handler.IsHigh(x, y))
			}
			touched = union(touched, r)
		})
		return touched
	}
	x := int(a.X)
	y0, y1 := int(math.Min(a.Y, b.Y)), int(math.Max(a.Y, b.Y))+1
	p.withClip(region.Rect{X1: x, Y1: y0, X2: x + 1, Y2: y1}, func(r region.Rect) {
		for y := r.Y1; y < r.Y2; y++ {
			p.putPixel(x, y, p.handler.ColorAt(x, y), p.handler.IsHigh(x, y))
		}
		touched = union(touched, r)
	})
	return touched
}

// --- Rectangles ------------------------------------------------------------

// FillRect fills r, snapping to pixel-area semantics when not subpixel
// precise (spec.md §4.4 "pixel-area for fills").
func (p *Painter) FillRect(r basics.RectD) region.Rect {
	r.Normalize()
	x1, y1 := int(snap(r.X1, p.state.SubPixelPrecise)), int(snap(r.Y1, p.state.SubPixelPrecise))
	x2, y2 := int(snap(r.X2, p.state.SubPixelPrecise))+1, int(snap(r.Y2, p.state.SubPixelPrecise))+1
	box := region.Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}

	touched := region.Rect{}
	writeOnly := drawmode.IsWriteOnly(p.state.DrawingMode)
	isOverOrAlphaFast := p.state.DrawingMode == drawmode.Over || p.state.DrawingMode == drawmode.Alpha

	if solidColor, solid := p.handler.IsSolid(); solid && (writeOnly || isOverOrAlphaFast) {
		solidIsHigh := p.handler.IsSolidHigh()
		p.withClip(box, func(c region.Rect) {
			for y := c.Y1; y < c.Y2; y++ {
				for x := c.X1; x < c.X2; x++ {
					p.putPixel(x, y, solidColor, solidIsHigh)
				}
			}
			touched = union(touched, c)
		})
		return touched
	}

	p.withClip(box, func(c region.Rect) {
		for y := c.Y1; y < c.Y2; y++ {
			for x := c.X1; x < c.X2; x++ {
				p.putPixel(x, y, p.handler.ColorAt(x, y), p.handler.IsHigh(x, y))
			}
		}
		touched = union(touched, c)
	})
	return touched
}

// StrokeRect outlines r with the active pen (spec.md §4.4
// "pixel-index for strokes").
func (p *Painter) StrokeRect(r basics.RectD) region.Rect {
	r.Normalize()
	touched := region.Rect{}
	touched = union(touched, p.StrokeLine(basics.PointD{X: r.X1, Y: r.Y1}, basics.PointD{X: r.X2, Y: r.Y1}))
	touched = union(touched, p.StrokeLine(basics.PointD{X: r.X2, Y: r.Y1}, basics.PointD{X: r.X2, Y: r.Y2}))
	touched = union(touched, p.StrokeLine(basics.PointD{X: r.X2, Y: r.Y2}, basics.PointD{X: r.X1, Y: r.Y2}))
	touched = union(touched, p.StrokeLine(basics.PointD{X: r.X1, Y: r.Y2}, basics.PointD{X: r.X1, Y: r.Y1}))
	return touched
}

// --- Region fills ------------------------------------------------------------

// FillRegion fills every rectangle of reg via the rectangle fast path
// (spec.md §4.4 "Region fills").
func (p *Painter) FillRegion(reg *region.Region) region.Rect {
	touched := region.Rect{}
	for _, r := range reg.Rects() {
		touched = union(touched, p.FillRect(basics.RectD{X1: float64(r.X1), Y1: float64(r.Y1), X2: float64(r.X2 - 1), Y2: float64(r.Y2 - 1)}))
	}
	return touched
}

// --- Ellipses, arcs, rounded rects, polygons, shapes via draw2d -----------

// FillEllipse fills an ellipse centered at c with the given radii.
func (p *Painter) FillEllipse(c basics.PointD, rx, ry float64) region.Rect {
	return p.drawPath(func(gc *draw2dimg.GraphicContext) {
		draw2dkit.Ellipse(gc, c.X, c.Y, rx, ry)
	}, true)
}

// StrokeEllipse strokes an ellipse outline.
func (p *Painter) StrokeEllipse(c basics.PointD, rx, ry float64) region.Rect {
	return p.drawPath(func(gc *draw2dimg.GraphicContext) {
		draw2dkit.Ellipse(gc, c.X, c.Y, rx, ry)
	}, false)
}

// FillArc fills a pie slice of the ellipse at c from startDeg sweeping
// sweepDeg degrees counter-clockwise, clamped to +/-360 (spec.md §4.4
// "Arc span is measured in degrees... clamped to +/-360").
func (p *Painter) FillArc(c basics.PointD, rx, ry, startDeg, sweepDeg float64) region.Rect {
	sweepDeg = clampSweep(sweepDeg)
	return p.drawPath(func(gc *draw2dimg.GraphicContext) {
		gc.MoveTo(c.X, c.Y)
		gc.ArcTo(c.X, c.Y, rx, ry, startDeg*math.Pi/180, sweepDeg*math.Pi/180)
		gc.Close()
	}, true)
}

// StrokeArc strokes the arc (not closed back to center).
func (p *Painter) StrokeArc(c basics.PointD, rx, ry, startDeg, sweepDeg float64) region.Rect {
	sweepDeg = clampSweep(sweepDeg)
	return p.drawPath(func(gc *draw2dimg.GraphicContext) {
		gc.ArcTo(c.X, c.Y, rx, ry, startDeg*math.Pi/180, sweepDeg*math.Pi/180)
	}, false)
}

func clampSweep(deg float64) float64 {
	if deg > 360 {
		return 360
	}
	if deg < -360 {
		return -360
	}
	return deg
}

// FillRoundRect fills r with corner radii (rx, ry).
func (p *Painter) FillRoundRect(r basics.RectD, rx, ry float64) region.Rect {
	return p.drawPath(func(gc *draw2dimg.GraphicContext) {
		roundRectPath(gc, r, rx, ry)
	}, true)
}

// StrokeRoundRect strokes r with corner radii (rx, ry).
func (p *Painter) StrokeRoundRect(r basics.RectD, rx, ry float64) region.Rect {
	return p.drawPath(func(gc *draw2dimg.GraphicContext) {
		roundRectPath(gc, r, rx, ry)
	}, false)
}

// FillPolygon fills a closed polygon, even-odd rule (spec.md §4.4
// "using the even-odd fill rule").
func (p *Painter) FillPolygon(pts []basics.PointD) region.Rect {
	return p.drawPath(func(gc *draw2dimg.GraphicContext) {
		polygonPath(gc, pts)
	}, true)
}

// StrokePolygon strokes a (possibly open) polyline.
func (p *Painter) StrokePolygon(pts []basics.PointD, closed bool) region.Rect {
	return p.drawPath(func(gc *draw2dimg.GraphicContext) {
		polygonPath(gc, pts)
		if closed {
			gc.Close()
		}
	}, false)
}

// ShapeOp is one operator of a client-supplied op-list (spec.md §4.4
// "MOVETO | LINETO(n) | BEZIERTO(n*3) | CLOSE").
type ShapeOp struct {
	Cmd    basics.PathCommand
	Points []basics.PointD
}

// FillShape materializes an op-list and fills it, even-odd rule.
func (p *Painter) FillShape(ops []ShapeOp) region.Rect {
	return p.drawPath(func(gc *draw2dimg.GraphicContext) { shapePath(gc, ops) }, true)
}

// StrokeShape materializes an op-list and strokes it.
func (p *Painter) StrokeShape(ops []ShapeOp) region.Rect {
	return p.drawPath(func(gc *draw2dimg.GraphicContext) { shapePath(gc, ops) }, false)
}

func roundRectPath(gc *draw2dimg.GraphicContext, r basics.RectD, rx, ry float64) {
	r.Normalize()
	draw2dkit.RoundedRectangle(gc, r.X1, r.Y1, r.X2, r.Y2, rx, ry)
}

func polygonPath(gc *draw2dimg.GraphicContext, pts []basics.PointD) {
	if len(pts) == 0 {
		return
	}
	gc.MoveTo(pts[0].X, pts[0].Y)
	for _, pt := range pts[1:] {
		gc.LineTo(pt.X, pt.Y)
	}
	gc.Close()
}

func shapePath(gc *draw2dimg.GraphicContext, ops []ShapeOp) {
	for _, op := range ops {
		switch op.Cmd {
		case basics.PathCmdMoveTo:
			if len(op.Points) > 0 {
				gc.MoveTo(op.Points[0].X, op.Points[0].Y)
			}
		case basics.PathCmdLineTo:
			for _, pt := range op.Points {
				gc.LineTo(pt.X, pt.Y)
			}
		case basics.PathCmdCurve4:
			for i := 0; i+2 < len(op.Points); i += 3 {
				c1, c2, to := op.Points[i], op.Points[i+1], op.Points[i+2]
				gc.CubicCurveTo(c1.X, c1.Y, c2.X, c2.Y, to.X, to.Y)
			}
		case basics.PathCmdEndPoly:
			gc.Close()
		}
	}
}

// drawPath runs build against a fresh draw2d context sized to the
// painter's surface, strokes or fills it, and composites the resulting
// coverage mask through the drawing-mode pipeline (spec.md §9
// "PatternHandler as a pluggable source").
func (p *Painter) drawPath(build func(*draw2dimg.GraphicContext), fill bool) (result region.Rect) {
	defer func() {
		if r := recover(); r != nil {
			p.lastErr = fmt.Errorf("painter: %v: %w", r, drawerr.Fatal)
			result = region.Rect{}
		}
	}()

	mask := image.NewAlpha(image.Rect(0, 0, p.width, p.height))
	canvas := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	gc := draw2dimg.NewGraphicContext(canvas)
	gc.SetFillRule(draw2d.FillRuleEvenOdd)
	gc.SetLineWidth(p.state.PenSize)
	gc.SetLineCap(capMode(p.state.LineCapMode))
	gc.SetLineJoin(joinMode(p.state.LineJoinMode))
	gc.SetFillColor(stdcolor.White)
	gc.SetStrokeColor(stdcolor.White)
	gc.BeginPath()
	build(gc)
	if fill {
		gc.Fill()
	} else {
		gc.Stroke()
	}
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			_, _, _, a := canvas.At(x, y).RGBA()
			mask.SetAlpha(x, y, stdcolor.Alpha{A: uint8(a >> 8)})
		}
	}
	return p.compositeMask(mask)
}

func capMode(m drawstate.CapMode) draw2d.LineCap {
	switch m {
	case drawstate.CapSquare:
		return draw2d.SquareCap
	case drawstate.CapRound:
		return draw2d.RoundCap
	default:
		return draw2d.ButtCap
	}
}

func joinMode(m drawstate.JoinMode) draw2d.LineJoin {
	switch m {
	case drawstate.JoinRound:
		return draw2d.RoundJoin
	case drawstate.JoinBevel:
		return draw2d.BevelJoin
	default:
		return draw2d.MiterJoin
	}
}

// compositeMask blends mask's per-pixel coverage onto the frame buffer,
// using the pattern handler to resolve each covered pixel's source color
// (spec.md §9 "fill-with-tiled-bitmap reuses the mode pipeline").
func (p *Painter) compositeMask(mask *image.Alpha) region.Rect {
	bounds := mask.Bounds()
	box := region.Rect{X1: bounds.Min.X, Y1: bounds.Min.Y, X2: bounds.Max.X, Y2: bounds.Max.Y}
	touched := region.Rect{}
	p.withClip(box, func(c region.Rect) {
		for y := c.Y1; y < c.Y2; y++ {
			for x := c.X1; x < c.X2; x++ {
				cov := mask.AlphaAt(x, y).A
				if cov == 0 {
					continue
				}
				src := p.handler.ColorAt(x, y)
				src.A = scale8(src.A, cov)
				p.putPixel(x, y, src, p.handler.IsHigh(x, y))
			}
		}
		touched = union(touched, c)
	})
	return touched
}

func scale8(a, b uint8) uint8 {
	return uint8((uint32(a)*uint32(b) + 127) / 255)
}

// generalStroke strokes an open or closed polyline using draw2d.
func (p *Painter) generalStroke(pts [][2]float64, closed bool) region.Rect {
	return p.drawPath(func(gc *draw2dimg.GraphicContext) {
		if len(pts) == 0 {
			return
		}
		gc.MoveTo(pts[0][0], pts[0][1])
		for _, pt := range pts[1:] {
			gc.LineTo(pt[0], pt[1])
		}
		if closed {
			gc.Close()
		}
	}, false)
}

// --- Bitmap drawing ----------------------------------------------------------

// DrawBitmapOptions mirrors the client-supplied flags of spec.md §4.4
// "Bitmap drawing".
type DrawBitmapOptions struct {
	Bilinear bool
}

// DrawBitmap blits src's srcRect into dstRect (spec.md §4.4 "Bitmap
// drawing"): fast row-copiers for 1:1 scale + matching format, bilinear
// 4-tap for BILINEAR+COPY, and a generic affine nearest-neighbor
// fallback otherwise.
func (p *Painter) DrawBitmap(src *bitmap.Bitmap, srcRect, dstRect basics.RectI, opts DrawBitmapOptions, pal *color.Palette) region.Rect {
	srcW, srcH := srcRect.X2-srcRect.X1, srcRect.Y2-srcRect.Y1
	dstW, dstH := dstRect.X2-dstRect.X1, dstRect.Y2-dstRect.Y1
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return region.Rect{}
	}
	sx := float64(srcW) / float64(dstW)
	sy := float64(srcH) / float64(dstH)

	if sx == 1 && sy == 1 {
		return p.blitExact(src, srcRect, dstRect, pal)
	}
	if opts.Bilinear && p.state.DrawingMode == drawmode.Copy {
		return p.blitBilinear(src, srcRect, dstRect, pal)
	}
	return p.blitAffineNearest(src, srcRect, dstRect, sx, sy, pal)
}

func (p *Painter) blitExact(src *bitmap.Bitmap, srcRect, dstRect basics.RectI, pal *color.Palette) region.Rect {
	box := region.Rect{X1: dstRect.X1, Y1: dstRect.Y1, X2: dstRect.X2, Y2: dstRect.Y2}
	touched := region.Rect{}
	p.withClip(box, func(c region.Rect) {
		for y := c.Y1; y < c.Y2; y++ {
			sy := srcRect.Y1 + (y - dstRect.Y1)
			for x := c.X1; x < c.X2; x++ {
				sxp := srcRect.X1 + (x - dstRect.X1)
				sc := src.PixelAt(sxp, sy, pal)
				if p.state.DrawingMode != drawmode.Alpha && color.IsTransparentMagic(src.Space(), sc) {
					continue
				}
				p.putPixel(x, y, sc, true)
			}
		}
		touched = union(touched, c)
	})
	return touched
}

func (p *Painter) blitBilinear(src *bitmap.Bitmap, srcRect, dstRect basics.RectI, pal *color.Palette) region.Rect {
	srcW, srcH := srcRect.X2-srcRect.X1, srcRect.Y2-srcRect.Y1
	dstW, dstH := dstRect.X2-dstRect.X1, dstRect.Y2-dstRect.Y1
	xIdx, xWeight := buildTaps(srcW, dstW)
	yIdx, yWeight := buildTaps(srcH, dstH)

	box := region.Rect{X1: dstRect.X1, Y1: dstRect.Y1, X2: dstRect.X2, Y2: dstRect.Y2}
	touched := region.Rect{}
	p.withClip(box, func(c region.Rect) {
		for y := c.Y1; y < c.Y2; y++ {
			dy := y - dstRect.Y1
			y0 := srcRect.Y1 + yIdx[dy]
			y1 := basics.IMin(y0+1, srcRect.Y2-1)
			wy := yWeight[dy]
			for x := c.X1; x < c.X2; x++ {
				dx := x - dstRect.X1
				x0 := srcRect.X1 + xIdx[dx]
				x1 := basics.IMin(x0+1, srcRect.X2-1)
				wx := xWeight[dx]

				c00 := src.PixelAt(x0, y0, pal)
				c10 := src.PixelAt(x1, y0, pal)
				c01 := src.PixelAt(x0, y1, pal)
				c11 := src.PixelAt(x1, y1, pal)
				out := bilerp(c00, c10, c01, c11, wx, wy)
				p.putPixel(x, y, out, true)
			}
		}
		touched = union(touched, c)
	})
	return touched
}

// buildTaps returns, for each destination index, the source index and
// fractional weight toward the next source index (spec.md §4.4 "builds
// two (index, weight) tables" and §8 scenario 4's 0.25-weight 4-tap
// case). Clamped so the right/bottom edge never reads past srcLen-1.
func buildTaps(srcLen, dstLen int) ([]int, []float64) {
	idx := make([]int, dstLen)
	weight := make([]float64, dstLen)
	scale := float64(srcLen) / float64(dstLen)
	for d := 0; d < dstLen; d++ {
		pos := (float64(d) + 0.5) * scale - 0.5
		if pos < 0 {
			pos = 0
		}
		i0 := int(math.Floor(pos))
		if i0 > srcLen-1 {
			i0 = srcLen - 1
		}
		idx[d] = i0
		weight[d] = pos - float64(i0)
		if weight[d] < 0 {
			weight[d] = 0
		}
	}
	return idx, weight
}

func bilerp(c00, c10, c01, c11 color.RGBA, wx, wy float64) color.RGBA {
	lerp8 := func(a, b uint8, w float64) float64 { return float64(a) + (float64(b)-float64(a))*w }
	top := func(ch func(color.RGBA) uint8) float64 { return lerp8(ch(c00), ch(c10), wx) }
	bot := func(ch func(color.RGBA) uint8) float64 { return lerp8(ch(c01), ch(c11), wx) }
	mix := func(ch func(color.RGBA) uint8) uint8 {
		return uint8(math.Round(top(ch) + (bot(ch)-top(ch))*wy))
	}
	return color.RGBA{
		R: mix(func(c color.RGBA) uint8 { return c.R }),
		G: mix(func(c color.RGBA) uint8 { return c.G }),
		B: mix(func(c color.RGBA) uint8 { return c.B }),
		A: mix(func(c color.RGBA) uint8 { return c.A }),
	}
}

func (p *Painter) blitAffineNearest(src *bitmap.Bitmap, srcRect, dstRect basics.RectI, sx, sy float64, pal *color.Palette) region.Rect {
	box := region.Rect{X1: dstRect.X1, Y1: dstRect.Y1, X2: dstRect.X2, Y2: dstRect.Y2}
	touched := region.Rect{}
	p.withClip(box, func(c region.Rect) {
		for y := c.Y1; y < c.Y2; y++ {
			sy0 := srcRect.Y1 + int(float64(y-dstRect.Y1)*sy)
			sy0 = clampInt(sy0, srcRect.Y1, srcRect.Y2-1)
			for x := c.X1; x < c.X2; x++ {
				sx0 := srcRect.X1 + int(float64(x-dstRect.X1)*sx)
				sx0 = clampInt(sx0, srcRect.X1, srcRect.X2-1)
				sc := src.PixelAt(sx0, sy0, pal)
				if p.state.DrawingMode != drawmode.Alpha && color.IsTransparentMagic(src.Space(), sc) {
					continue
				}
				p.putPixel(x, y, sc, true)
			}
		}
		touched = union(touched, c)
	})
	return touched
}

// --- Text ------------------------------------------------------------

// DrawText rasterizes s at baseline using the font active in state,
// resolving aliasing from state.FontAliasing's DrawState-level override
// (true forces a 1-bit mask) falling through to the font's own
// flags/size threshold otherwise (spec.md §9's AA-threshold question;
// see DrawState.SetForceFontAliasing).
func (p *Painter) DrawText(s string, baseline basics.PointD, escapementSpace, escapementNonSpace float64) (region.Rect, basics.PointD) {
	aliased := p.state.Font.Aliased(p.state.FontAliasing, p.state.FontAliasing)
	return p.DrawString(s, baseline, p.state.Font, aliased, escapementSpace, escapementNonSpace)
}

// TextWidth is StringWidth against the font currently active in state.
func (p *Painter) TextWidth(s string, escapementSpace, escapementNonSpace float64) float64 {
	return p.StringWidth(s, p.state.Font, escapementSpace, escapementNonSpace)
}

// TextBoundingBox is StringBoundingBox against the font currently active
// in state.
func (p *Painter) TextBoundingBox(s string, origin basics.PointD) basics.RectD {
	return p.StringBoundingBox(s, origin, p.state.Font)
}

// DrawString rasterizes s starting at baseline, kerning between runes,
// applying extra per-rune advance from escapementSpace/escapementNonSpace
// (spec.md §4.4 "Text rendering" step 5, "honoring an optional per-string
// escapement_delta"), and returns the touched rect plus the pen location
// after the last glyph (spec.md: "equals the starting baseLine plus the
// accumulated advance").
func (p *Painter) DrawString(s string, baseline basics.PointD, f *serverfont.Font, aliased bool, escapementSpace, escapementNonSpace float64) (region.Rect, basics.PointD) {
	face := f.Face()
	dot := fixed.Point26_6{X: fixed.Int26_6(baseline.X * 64), Y: fixed.Int26_6(baseline.Y * 64)}
	touched := region.Rect{}
	var prev rune
	first := true
	for _, r := range s {
		if !first {
			dot.X += face.Kern(prev, r)
		}
		mask, _, adv, ok := face.Glyph(dot, r)
		if ok && mask != nil {
			if aliased {
				thresholdMask(mask)
			}
			touched = union(touched, p.compositeTextMask(mask))
		} else {
			adv, _ = face.Advance(r)
		}
		dot.X += adv
		if r == ' ' {
			dot.X += fixed.Int26_6(escapementSpace * 64)
		} else {
			dot.X += fixed.Int26_6(escapementNonSpace * 64)
		}
		prev = r
		first = false
	}
	return touched, basics.PointD{X: float64(dot.X) / 64, Y: float64(dot.Y) / 64}
}

// compositeTextMask is spec.md §4.2's "text-mode shortcut": in COPY
// drawing mode, every glyph-coverage byte is resolved via the pattern
// handler's pre-computed table (assumes the destination is already
// lowColor, e.g. a just-filled text background) instead of a per-pixel
// drawing-mode dispatch. Every other mode falls back to compositeMask's
// general pattern/drawing-mode pipeline.
func (p *Painter) compositeTextMask(mask *image.Alpha) region.Rect {
	if p.state.DrawingMode != drawmode.Copy {
		return p.compositeMask(mask)
	}
	bounds := mask.Bounds()
	box := region.Rect{X1: bounds.Min.X, Y1: bounds.Min.Y, X2: bounds.Max.X, Y2: bounds.Max.Y}
	touched := region.Rect{}
	p.withClip(box, func(c region.Rect) {
		for y := c.Y1; y < c.Y2; y++ {
			row := p.buf.RowPtr(c.X1*4, y, (c.X2-c.X1)*4)
			for x := c.X1; x < c.X2; x++ {
				cov := mask.AlphaAt(x, y).A
				if cov == 0 {
					continue
				}
				out := p.handler.TextColorAt(cov)
				var packed [4]byte
				color.FromRGBA(color.SpaceBGRA32, out, packed[:])
				i := (x - c.X1) * 4
				if i+4 > len(row) {
					continue
				}
				for k := 0; k < 4; k++ {
					row[i+k] = basics.Int8u(packed[k])
				}
			}
		}
		touched = union(touched, c)
	})
	return touched
}

// thresholdMask collapses an 8-bit coverage mask to 1-bit (spec.md §4.4
// step 4: "1-bit mono bitmap depending on forceFontAliasing").
func thresholdMask(mask *image.Alpha) {
	b := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.AlphaAt(x, y).A >= 128 {
				mask.SetAlpha(x, y, stdcolor.Alpha{A: 255})
			} else {
				mask.SetAlpha(x, y, stdcolor.Alpha{A: 0})
			}
		}
	}
}

// StringWidth returns the total advance of s, with no frame-buffer
// access (spec.md §4.4 "Pure geometric... clients call it to lay out UI").
func (p *Painter) StringWidth(s string, f *serverfont.Font, escapementSpace, escapementNonSpace float64) float64 {
	face := f.Face()
	var width fixed.Int26_6
	var prev rune
	first := true
	for _, r := range s {
		if !first {
			width += face.Kern(prev, r)
		}
		adv, _ := face.Advance(r)
		width += adv
		if r == ' ' {
			width += fixed.Int26_6(escapementSpace * 64)
		} else {
			width += fixed.Int26_6(escapementNonSpace * 64)
		}
		prev = r
		first = false
	}
	return float64(width) / 64
}

// StringBoundingBox returns the union of each glyph's ink rectangle laid
// out from origin, pure geometric like StringWidth.
func (p *Painter) StringBoundingBox(s string, origin basics.PointD, f *serverfont.Font) basics.RectD {
	face := f.Face()
	var dot fixed.Int26_6
	var bbox basics.RectD
	var prev rune
	first := true
	for _, r := range s {
		if !first {
			dot += face.Kern(prev, r)
		}
		b, adv, ok := face.Bounds(r)
		if ok {
			rect := basics.RectD{
				X1: origin.X + float64(dot+b.Min.X)/64,
				Y1: origin.Y + float64(b.Min.Y)/64,
				X2: origin.X + float64(dot+b.Max.X)/64,
				Y2: origin.Y + float64(b.Max.Y)/64,
			}
			if first {
				bbox = rect
			} else {
				bbox = basics.UniteRectangles(bbox, rect)
			}
		}
		dot += adv
		prev = r
		first = false
	}
	return bbox
}
