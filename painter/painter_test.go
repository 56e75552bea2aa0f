package painter

import (
	"testing"

	"github.com/llgcode/draw2d/draw2dimg"

	"github.com/luciang/haiku-sub001/bitmap"
	"github.com/luciang/haiku-sub001/color"
	"github.com/luciang/haiku-sub001/drawerr"
	"github.com/luciang/haiku-sub001/drawmode"
	"github.com/luciang/haiku-sub001/internal/basics"
	"github.com/luciang/haiku-sub001/internal/buffer"
	"github.com/luciang/haiku-sub001/pattern"
	"github.com/luciang/haiku-sub001/region"
	"github.com/luciang/haiku-sub001/serverfont"
)

func newTestPainter(w, h int) (*Painter, *buffer.RenderingBufferU8) {
	stride := w * 4
	pixels := make([]basics.Int8u, stride*h)
	buf := buffer.NewRenderingBufferU8WithData(pixels, w, h, stride)
	return New(buf, w, h), buf
}

func readPixel(buf *buffer.RenderingBufferU8, x, y int) color.RGBA {
	row := buf.RowPtr(x*4, y, 4)
	raw := [4]byte{byte(row[0]), byte(row[1]), byte(row[2]), byte(row[3])}
	return color.ToRGBA(color.SpaceBGRA32, raw[:], nil)
}

func TestStrokeLineSinglePixelFastPath(t *testing.T) {
	p, buf := newTestPainter(10, 10)
	red := color.RGBA{R: 255, A: 255}
	p.SetState(State{
		PenSize:     1,
		DrawingMode: drawmode.Copy,
		Pattern:     pattern.SolidHigh,
		HighColor:   red,
		LowColor:    color.RGBA{A: 255},
	}, 0, 0)

	touched := p.StrokeLine(basics.PointD{X: 5, Y: 5}, basics.PointD{X: 5, Y: 5})
	if touched.X2-touched.X1 != 1 || touched.Y2-touched.Y1 != 1 {
		t.Fatalf("expected a single pixel touched, got %+v", touched)
	}
	if got := readPixel(buf, 5, 5); got != red {
		t.Fatalf("pixel (5,5) = %+v, want %+v", got, red)
	}
}

func TestStrokeLineAxisAlignedFastPath(t *testing.T) {
	p, buf := newTestPainter(10, 10)
	blue := color.RGBA{B: 255, A: 255}
	p.SetState(State{
		PenSize:     1,
		DrawingMode: drawmode.Copy,
		Pattern:     pattern.SolidHigh,
		HighColor:   blue,
		LowColor:    color.RGBA{A: 255},
	}, 0, 0)

	p.StrokeLine(basics.PointD{X: 2, Y: 3}, basics.PointD{X: 6, Y: 3})
	for x := 2; x <= 6; x++ {
		if got := readPixel(buf, x, 3); got != blue {
			t.Fatalf("pixel (%d,3) = %+v, want %+v", x, got, blue)
		}
	}
	if got := readPixel(buf, 7, 3); got == blue {
		t.Fatal("pixel past the line's end should not be painted")
	}
}

func TestFillRectSolidFastPath(t *testing.T) {
	p, buf := newTestPainter(10, 10)
	green := color.RGBA{G: 255, A: 255}
	p.SetState(State{
		DrawingMode: drawmode.Copy,
		Pattern:     pattern.SolidHigh,
		HighColor:   green,
		LowColor:    color.RGBA{A: 255},
	}, 0, 0)

	p.FillRect(basics.RectD{X1: 1, Y1: 1, X2: 3, Y2: 3})
	for y := 1; y <= 3; y++ {
		for x := 1; x <= 3; x++ {
			if got := readPixel(buf, x, y); got != green {
				t.Fatalf("pixel (%d,%d) = %+v, want %+v", x, y, got, green)
			}
		}
	}
	if got := readPixel(buf, 4, 4); got == green {
		t.Fatal("fill should not bleed past its rectangle")
	}
}

func TestFillRectCheckerboardPattern(t *testing.T) {
	p, buf := newTestPainter(8, 8)
	high := color.RGBA{R: 255, A: 255}
	low := color.RGBA{B: 255, A: 255}
	var checker pattern.Pattern
	for i := range checker {
		checker[i] = 0xAA // columns 0,2,4,6 high; 1,3,5,7 low
	}
	p.SetState(State{
		DrawingMode: drawmode.Copy,
		Pattern:     checker,
		HighColor:   high,
		LowColor:    low,
	}, 0, 0)

	p.FillRect(basics.RectD{X1: 0, Y1: 0, X2: 7, Y2: 7})
	if got := readPixel(buf, 0, 0); got != high {
		t.Fatalf("(0,0) = %+v, want high %+v", got, high)
	}
	if got := readPixel(buf, 1, 0); got != low {
		t.Fatalf("(1,0) = %+v, want low %+v", got, low)
	}
}

func TestFillRectRespectsClippingRegion(t *testing.T) {
	p, buf := newTestPainter(10, 10)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	clip := region.New(region.Rect{X1: 0, Y1: 0, X2: 5, Y2: 5})
	p.SetState(State{
		DrawingMode:    drawmode.Copy,
		Pattern:        pattern.SolidHigh,
		HighColor:      white,
		LowColor:       color.RGBA{A: 255},
		ClippingRegion: clip,
	}, 0, 0)

	p.FillRect(basics.RectD{X1: 0, Y1: 0, X2: 9, Y2: 9})
	if got := readPixel(buf, 2, 2); got != white {
		t.Fatalf("pixel inside clip = %+v, want white", got)
	}
	if got := readPixel(buf, 8, 8); got == white {
		t.Fatal("pixel outside the clipping region must not be painted")
	}
}

func TestFillEllipseProducesNonEmptyFootprint(t *testing.T) {
	p, buf := newTestPainter(40, 40)
	red := color.RGBA{R: 255, A: 255}
	p.SetState(State{
		PenSize:     1,
		DrawingMode: drawmode.Copy,
		Pattern:     pattern.SolidHigh,
		HighColor:   red,
		LowColor:    color.RGBA{A: 255},
	}, 0, 0)

	touched := p.FillEllipse(basics.PointD{X: 20, Y: 20}, 10, 10)
	if touched.X2 <= touched.X1 || touched.Y2 <= touched.Y1 {
		t.Fatalf("expected a non-empty footprint, got %+v", touched)
	}
	if got := readPixel(buf, 20, 20); got != red {
		t.Fatalf("ellipse center (20,20) = %+v, want %+v", got, red)
	}
	if got := readPixel(buf, 0, 0); got == red {
		t.Fatal("a far corner should be untouched by a small centered ellipse")
	}
}

func TestDrawBitmapExactBlit(t *testing.T) {
	m := bitmap.NewManager()
	src, _ := m.Create(2, 2, color.SpaceBGRA32)
	want := color.RGBA{R: 1, G: 2, B: 3, A: 255}
	src.SetPixelAt(0, 0, want)
	src.SetPixelAt(1, 0, want)
	src.SetPixelAt(0, 1, want)
	src.SetPixelAt(1, 1, want)

	p, buf := newTestPainter(10, 10)
	p.SetState(State{DrawingMode: drawmode.Copy, Pattern: pattern.SolidHigh}, 0, 0)

	p.DrawBitmap(src,
		basics.RectI{X1: 0, Y1: 0, X2: 2, Y2: 2},
		basics.RectI{X1: 3, Y1: 3, X2: 5, Y2: 5},
		DrawBitmapOptions{}, nil)

	if got := readPixel(buf, 3, 3); got != want {
		t.Fatalf("blitted pixel (3,3) = %+v, want %+v", got, want)
	}
	if got := readPixel(buf, 4, 4); got != want {
		t.Fatalf("blitted pixel (4,4) = %+v, want %+v", got, want)
	}
}

func TestDrawBitmapBilinearDownscaleBlendsSourceTaps(t *testing.T) {
	m := bitmap.NewManager()
	src, _ := m.Create(2, 1, color.SpaceBGRA32)
	src.SetPixelAt(0, 0, color.RGBA{R: 0, A: 255})
	src.SetPixelAt(1, 0, color.RGBA{R: 200, A: 255})

	p, buf := newTestPainter(10, 10)
	p.SetState(State{DrawingMode: drawmode.Copy, Pattern: pattern.SolidHigh}, 0, 0)

	p.DrawBitmap(src,
		basics.RectI{X1: 0, Y1: 0, X2: 2, Y2: 1},
		basics.RectI{X1: 0, Y1: 0, X2: 1, Y2: 1},
		DrawBitmapOptions{Bilinear: true}, nil)

	got := readPixel(buf, 0, 0)
	if got.R == 0 || got.R == 200 {
		t.Fatalf("expected a blended value strictly between the two source taps, got R=%d", got.R)
	}
}

func TestStrokeLineArrayUsesEachSegmentsOwnColor(t *testing.T) {
	p, buf := newTestPainter(10, 10)
	p.SetState(State{
		PenSize:     1,
		DrawingMode: drawmode.Copy,
		Pattern:     pattern.SolidHigh,
		HighColor:   color.RGBA{G: 255, A: 255},
		LowColor:    color.RGBA{A: 255},
	}, 0, 0)

	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	p.StrokeLineArray([]LineSegment{
		{Start: basics.PointD{X: 1, Y: 1}, End: basics.PointD{X: 1, Y: 1}, Color: red},
		{Start: basics.PointD{X: 2, Y: 2}, End: basics.PointD{X: 2, Y: 2}, Color: blue},
	})

	if got := readPixel(buf, 1, 1); got.R != 255 {
		t.Fatalf("segment 1 pixel = %+v, want red", got)
	}
	if got := readPixel(buf, 2, 2); got.B != 255 {
		t.Fatalf("segment 2 pixel = %+v, want blue", got)
	}
}

func TestStrokeLineArrayRestoresStateAfterward(t *testing.T) {
	p, _ := newTestPainter(10, 10)
	orig := color.RGBA{G: 255, A: 255}
	p.SetState(State{PenSize: 1, DrawingMode: drawmode.Copy, Pattern: pattern.SolidHigh, HighColor: orig, LowColor: color.RGBA{A: 255}}, 0, 0)

	p.StrokeLineArray([]LineSegment{{Start: basics.PointD{X: 0, Y: 0}, End: basics.PointD{X: 0, Y: 0}, Color: color.RGBA{R: 255, A: 255}}})

	if p.state.HighColor != orig {
		t.Fatalf("StrokeLineArray must restore the prior HighColor, got %+v", p.state.HighColor)
	}
}

func TestDrawStringPaintsNonEmptyCoverage(t *testing.T) {
	p, buf := newTestPainter(40, 20)
	p.SetState(State{
		PenSize:     1,
		DrawingMode: drawmode.Copy,
		Pattern:     pattern.SolidHigh,
		HighColor:   color.RGBA{R: 255, A: 255},
		LowColor:    color.RGBA{A: 255},
		Font:        serverfont.Default(),
	}, 0, 0)

	touched, pen := p.DrawText("A", basics.PointD{X: 2, Y: 12}, 0, 0)
	if touched.X2 <= touched.X1 || touched.Y2 <= touched.Y1 {
		t.Fatalf("expected a non-empty touched rect, got %+v", touched)
	}
	if pen.X <= 2 {
		t.Fatalf("pen should have advanced past the starting X, got %v", pen.X)
	}

	painted := false
	for y := touched.Y1; y < touched.Y2; y++ {
		for x := touched.X1; x < touched.X2; x++ {
			if readPixel(buf, x, y).R == 255 {
				painted = true
			}
		}
	}
	if !painted {
		t.Fatal("expected at least one red pixel inside the touched rect")
	}
}

func TestStringWidthGrowsWithLength(t *testing.T) {
	p, _ := newTestPainter(10, 10)
	f := serverfont.Default()
	short := p.StringWidth("A", f, 0, 0)
	long := p.StringWidth("AAAA", f, 0, 0)
	if long <= short {
		t.Fatalf("longer string should be wider: short=%v long=%v", short, long)
	}
}

func TestStringWidthEscapementAddsAdvance(t *testing.T) {
	p, _ := newTestPainter(10, 10)
	f := serverfont.Default()
	base := p.StringWidth("A A", f, 0, 0)
	widened := p.StringWidth("A A", f, 5, 0)
	if widened <= base {
		t.Fatalf("extra space escapement should widen the string: base=%v widened=%v", base, widened)
	}
}

func TestStringBoundingBoxNonEmpty(t *testing.T) {
	p, _ := newTestPainter(10, 10)
	f := serverfont.Default()
	bbox := p.StringBoundingBox("A", basics.PointD{X: 0, Y: 0}, f)
	if bbox.X2 <= bbox.X1 {
		t.Fatalf("expected a non-empty bounding box, got %+v", bbox)
	}
}

// --- spec.md §8 literal end-to-end scenarios ---

func TestScenario1SinglePixelLineFastPath(t *testing.T) {
	p, buf := newTestPainter(20, 30)
	red := color.RGBA{R: 255, A: 255}
	p.SetState(State{
		PenSize:     1,
		DrawingMode: drawmode.Copy,
		Pattern:     pattern.SolidHigh,
		HighColor:   red,
		LowColor:    color.RGBA{A: 255},
	}, 0, 0)

	p.StrokeLine(basics.PointD{X: 10, Y: 20}, basics.PointD{X: 10, Y: 25})

	for y := 0; y < 30; y++ {
		for x := 0; x < 20; x++ {
			want := color.RGBA{A: 0}
			if x == 10 && y >= 20 && y <= 25 {
				want = red
			}
			if got := readPixel(buf, x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %+v, want %+v", x, y, got, want)
			}
		}
	}
}

func TestScenario2PatternTileChecker(t *testing.T) {
	p, buf := newTestPainter(16, 16)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}
	checker := pattern.Pattern{0x55, 0xAA, 0x55, 0xAA, 0x55, 0xAA, 0x55, 0xAA}

	p.SetState(State{
		DrawingMode: drawmode.Copy,
		Pattern:     checker,
		HighColor:   white,
		LowColor:    black,
	}, 0, 0)
	p.FillRect(basics.RectD{X1: 0, Y1: 0, X2: 15, Y2: 15})

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			want := black
			if (x+y)%2 == 1 {
				want = white
			}
			if got := readPixel(buf, x, y); got != want {
				t.Fatalf("checker pixel (%d,%d) = %+v, want %+v", x, y, got, want)
			}
		}
	}

	// A period-2 checker aliases any even xOffset shift back onto itself,
	// so verify the offset's effect with a single-high-column pattern
	// instead: per pattern.Handler's documented contract, sampling at x
	// with xOffset=dx reads the same column as sampling at (x+dx) with
	// no offset at all.
	single := pattern.Pattern{0x10, 0x10, 0x10, 0x10, 0x10, 0x10, 0x10, 0x10} // column 3 high, rest low

	p2, buf2 := newTestPainter(16, 16)
	p2.SetState(State{DrawingMode: drawmode.Copy, Pattern: single, HighColor: white, LowColor: black}, 0, 0)
	p2.FillRect(basics.RectD{X1: 0, Y1: 0, X2: 15, Y2: 15})

	p3, buf3 := newTestPainter(16, 16)
	p3.SetState(State{DrawingMode: drawmode.Copy, Pattern: single, HighColor: white, LowColor: black}, 1, 0)
	p3.FillRect(basics.RectD{X1: 0, Y1: 0, X2: 15, Y2: 15})

	for x := 0; x < 15; x++ {
		if got, want := readPixel(buf3, x, 0), readPixel(buf2, x+1, 0); got != want {
			t.Fatalf("xOffset=1 at column %d = %+v, want column %d's unshifted color %+v", x, got, x+1, want)
		}
	}
}

func TestScenario4BilinearDownscaleIsFourTapQuarterWeighted(t *testing.T) {
	m := bitmap.NewManager()
	src, _ := m.Create(4, 4, color.SpaceBGRA32)
	rows := [4]color.RGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetPixelAt(x, y, rows[y])
		}
	}

	p, buf := newTestPainter(10, 10)
	p.SetState(State{DrawingMode: drawmode.Copy, Pattern: pattern.SolidHigh}, 0, 0)
	p.DrawBitmap(src,
		basics.RectI{X1: 0, Y1: 0, X2: 4, Y2: 4},
		basics.RectI{X1: 0, Y1: 0, X2: 2, Y2: 2},
		DrawBitmapOptions{Bilinear: true}, nil)

	avg := func(a, b color.RGBA) color.RGBA {
		round := func(x, y uint8) uint8 { return uint8((int(x) + int(y) + 1) / 2) }
		return color.RGBA{R: round(a.R, b.R), G: round(a.G, b.G), B: round(a.B, b.B), A: round(a.A, b.A)}
	}
	want00 := avg(rows[0], rows[1])
	want11 := avg(rows[2], rows[3])

	if got := readPixel(buf, 0, 0); got != want00 {
		t.Fatalf("downscaled (0,0) = %+v, want %+v", got, want00)
	}
	if got := readPixel(buf, 1, 1); got != want11 {
		t.Fatalf("downscaled (1,1) = %+v, want %+v", got, want11)
	}
}

// TestArcSpanClampingDrawsFullEllipse is spec.md §8's arc-span-clamping
// invariant: fill_arc with |sweep| >= 360 must draw exactly the full
// ellipse, not a pie slice with a wedge missing near startDeg.
func TestArcSpanClampingDrawsFullEllipse(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	state := State{DrawingMode: drawmode.Copy, Pattern: pattern.SolidHigh, HighColor: red, LowColor: color.RGBA{A: 255}}
	center := basics.PointD{X: 10, Y: 10}

	p, buf := newTestPainter(20, 20)
	p.SetState(state, 0, 0)
	touched := p.FillArc(center, 6, 4, 0, 720)
	if touched.X2 <= touched.X1 || touched.Y2 <= touched.Y1 {
		t.Fatal("expected a non-empty touched rect")
	}

	// A pie slice starting at 0 degrees (the +X axis) with anything less
	// than a full sweep leaves a wedge unfilled right at its start/end
	// radius; a clamped >=360 sweep must paint straight through it, as
	// well as every other compass point around the ellipse.
	compass := []basics.PointI{
		{X: int(center.X) + 5, Y: int(center.Y)}, // start/end radius, the wedge a partial sweep would leave empty
		{X: int(center.X) - 5, Y: int(center.Y)},
		{X: int(center.X), Y: int(center.Y) + 3},
		{X: int(center.X), Y: int(center.Y) - 3},
	}
	for _, pt := range compass {
		if got := readPixel(buf, pt.X, pt.Y); got != red {
			t.Fatalf("pixel %+v should be painted by a fully-clamped arc, got %+v", pt, got)
		}
	}
	if got := readPixel(buf, 0, 0); got == red {
		t.Fatal("a far corner outside the ellipse should not be painted")
	}
}

func TestScenario6TextBoundsAreMonotonic(t *testing.T) {
	p, _ := newTestPainter(10, 10)
	f := serverfont.Default()

	wA := p.StringWidth("A", f, 0, 0)
	wAB := p.StringWidth("AB", f, 0, 0)
	wABC := p.StringWidth("ABC", f, 0, 0)

	if !(wABC >= wAB && wAB >= wA && wA >= 0) {
		t.Fatalf("string_width must grow monotonically: A=%v AB=%v ABC=%v", wA, wAB, wABC)
	}

	origin := basics.PointD{X: 0, Y: 0}
	bboxAB := p.StringBoundingBox("AB", origin, f)
	bboxABC := p.StringBoundingBox("ABC", origin, f)
	if bboxABC.X1 > bboxAB.X1 || bboxABC.X2 < bboxAB.X2 {
		t.Fatalf("bounding_box(ABC) must contain bounding_box(AB) horizontally: ABC=%+v AB=%+v", bboxABC, bboxAB)
	}
}

func TestDrawPathRecoversPanicIntoFatalError(t *testing.T) {
	p, _ := newTestPainter(5, 5)
	p.SetState(State{DrawingMode: drawmode.Copy, Pattern: pattern.SolidHigh}, 0, 0)

	touched := p.drawPath(func(gc *draw2dimg.GraphicContext) {
		panic("simulated rasterization failure")
	}, true)

	if !(touched.X2 <= touched.X1) {
		t.Fatal("a panicking build func should yield an empty touched rect")
	}
	err := p.LastError()
	if err == nil || !drawerr.Is(err, drawerr.Fatal) {
		t.Fatalf("expected LastError() to report drawerr.Fatal, got %v", err)
	}
	if p.LastError() != nil {
		t.Fatal("LastError() should clear after being read")
	}
}
