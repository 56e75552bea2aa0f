package engine

import (
	"testing"

	"github.com/luciang/haiku-sub001/bitmap"
	"github.com/luciang/haiku-sub001/color"
	"github.com/luciang/haiku-sub001/drawerr"
	"github.com/luciang/haiku-sub001/drawmode"
	"github.com/luciang/haiku-sub001/drawstate"
	"github.com/luciang/haiku-sub001/hw"
	"github.com/luciang/haiku-sub001/internal/basics"
	"github.com/luciang/haiku-sub001/internal/buffer"
	"github.com/luciang/haiku-sub001/painter"
	"github.com/luciang/haiku-sub001/pattern"
	"github.com/luciang/haiku-sub001/region"
)

func newTestEngine(w, h int) (*Engine, *hw.MemHW) {
	backend := hw.NewMemHW(w, h)
	return New(backend), backend
}

func solidState(c color.RGBA) *drawstate.DrawState {
	s := drawstate.NewRoot()
	s.SetHighColor(c)
	s.SetLowColor(color.RGBA{A: 255})
	s.SetPattern(pattern.SolidHigh)
	s.SetDrawingMode(drawmode.Copy)
	s.SetPenSize(1)
	return s
}

func readPixel(buf interface{ Row(y int) []basics.Int8u }, x, y int) color.RGBA {
	row := buf.Row(y)
	raw := [4]byte{byte(row[x*4]), byte(row[x*4+1]), byte(row[x*4+2]), byte(row[x*4+3])}
	return color.ToRGBA(color.SpaceBGRA32, raw[:], nil)
}

func TestFillRectDrawsThroughEngine(t *testing.T) {
	e, backend := newTestEngine(20, 20)
	e.SetDrawState(solidState(color.RGBA{R: 200, A: 255}), 0, 0)

	touched := e.FillRect(basics.RectD{X1: 2, Y1: 2, X2: 5, Y2: 5})
	if touched.X2 <= touched.X1 {
		t.Fatal("expected a non-empty touched rect")
	}
	if got := readPixel(backend.DrawingBuffer(), 3, 3); got.R != 200 {
		t.Fatalf("pixel (3,3) R = %d, want 200", got.R)
	}
}

func TestDrawUnderSuspendAutoSyncThenSyncUnwinds(t *testing.T) {
	e, _ := newTestEngine(20, 20)
	e.SetDrawState(solidState(color.RGBA{R: 1, A: 255}), 0, 0)

	e.SuspendAutoSync()
	e.FillRect(basics.RectD{X1: 0, Y1: 0, X2: 2, Y2: 2})
	// No observable invalidation hook on MemHW; this mainly exercises
	// that draws under suspension don't panic and the depth unwinds.
	e.Sync()
}

func TestSyncWithoutSuspendPanics(t *testing.T) {
	e, _ := newTestEngine(10, 10)
	defer func() {
		if recover() == nil {
			t.Fatal("expected Sync() without a matching SuspendAutoSync to panic")
		}
	}()
	e.Sync()
}

func TestCopyRegionMovesPixels(t *testing.T) {
	e, backend := newTestEngine(20, 20)
	e.SetDrawState(solidState(color.RGBA{R: 50, A: 255}), 0, 0)
	e.FillRect(basics.RectD{X1: 0, Y1: 0, X2: 3, Y2: 3})

	e.CopyRegion([]region.Rect{{X1: 0, Y1: 0, X2: 4, Y2: 4}}, 10, 10)

	if got := readPixel(backend.DrawingBuffer(), 11, 11); got.R != 50 {
		t.Fatalf("pixel (11,11) after copy R = %d, want 50", got.R)
	}
}

func TestStrokeLineArrayDrawsThroughEngine(t *testing.T) {
	e, backend := newTestEngine(20, 20)
	e.SetDrawState(solidState(color.RGBA{G: 1, A: 255}), 0, 0)

	e.StrokeLineArray([]painter.LineSegment{
		{Start: basics.PointD{X: 3, Y: 3}, End: basics.PointD{X: 3, Y: 3}, Color: color.RGBA{R: 250, A: 255}},
	})

	if got := readPixel(backend.DrawingBuffer(), 3, 3); got.R != 250 {
		t.Fatalf("pixel (3,3) R = %d, want 250", got.R)
	}
}

func TestDrawStringDrawsThroughEngine(t *testing.T) {
	e, backend := newTestEngine(40, 20)
	e.SetDrawState(solidState(color.RGBA{R: 200, A: 255}), 0, 0)

	touched := e.DrawString("A", basics.PointD{X: 2, Y: 12}, 0, 0)
	if touched.X2 <= touched.X1 {
		t.Fatal("expected a non-empty touched rect")
	}

	painted := false
	buf := backend.DrawingBuffer()
	for y := touched.Y1; y < touched.Y2; y++ {
		for x := touched.X1; x < touched.X2; x++ {
			if readPixel(buf, x, y).R == 200 {
				painted = true
			}
		}
	}
	if !painted {
		t.Fatal("expected at least one painted pixel in the glyph's touched rect")
	}
}

func TestStringWidthAndBoundingBoxAreQueriesOnly(t *testing.T) {
	e, backend := newTestEngine(40, 20)
	e.SetDrawState(solidState(color.RGBA{R: 1, A: 255}), 0, 0)

	w := e.StringWidth("AAA", 0, 0)
	if w <= 0 {
		t.Fatalf("expected a positive width, got %v", w)
	}
	bbox := e.StringBoundingBox("A", basics.PointD{X: 0, Y: 0})
	if bbox.X2 <= bbox.X1 {
		t.Fatalf("expected a non-empty bounding box, got %+v", bbox)
	}

	buf := backend.DrawingBuffer()
	for y := 0; y < buf.Height(); y++ {
		for x := 0; x < buf.Width(); x++ {
			if readPixel(buf, x, y).R != 0 {
				t.Fatal("StringWidth/StringBoundingBox must not touch the frame buffer")
			}
		}
	}
}

// TestScenario3ScrollWithCursorAtSource is spec.md §8 scenario 3: a
// cursor overlapping the source rect of a copy_region must be hidden
// for the call and re-shown afterward, and the copied region must carry
// forward the pre-copy pixel values.
func TestScenario3ScrollWithCursorAtSource(t *testing.T) {
	backend := hw.NewMemHW(200, 200)
	e := New(backend)

	buf := backend.DrawingBuffer()
	for y := 0; y < 200; y++ {
		row := buf.RowPtr(0, y, 200*4)
		for x := 0; x < 200; x++ {
			row[x*4+0] = basics.Int8u(x % 256) // B
			row[x*4+1] = basics.Int8u(y % 256) // G
			row[x*4+2] = 0                     // R
			row[x*4+3] = 255                   // A
		}
	}

	backend.SetCursor(hw.Cursor{Width: 10, Height: 10})
	backend.SetCursorPosition(basics.PointI{X: 100, Y: 100})

	before := readPixel(buf, 100, 100)

	e.CopyRegion([]region.Rect{{X1: 0, Y1: 0, X2: 200, Y2: 200}}, 10, 0)

	if !backend.HideSoftwareCursor(region.Rect{X1: 95, Y1: 95, X2: 105, Y2: 105}) {
		t.Fatal("cursor should have been re-shown after the copy completed")
	}
	backend.ShowSoftwareCursor()

	if got := readPixel(buf, 110, 100); got != before {
		t.Fatalf("pixel (110,100) after copy = %+v, want pre-copy (100,100) = %+v", got, before)
	}
}

func TestReadBitmapCopiesFrameBufferRegion(t *testing.T) {
	e, _ := newTestEngine(20, 20)
	e.SetDrawState(solidState(color.RGBA{R: 77, A: 255}), 0, 0)
	e.FillRect(basics.RectD{X1: 0, Y1: 0, X2: 5, Y2: 5})

	mgr := bitmap.NewManager()
	dst, _ := mgr.Create(5, 5, color.SpaceBGRA32)
	if err := e.ReadBitmap(region.Rect{X1: 0, Y1: 0, X2: 5, Y2: 5}, dst, nil, false); err != nil {
		t.Fatalf("ReadBitmap: %v", err)
	}
	if got := dst.PixelAt(2, 2, nil); got.R != 77 {
		t.Fatalf("read-back pixel R = %d, want 77", got.R)
	}
}

// detachableHW wraps a live *hw.MemHW and, once Detach is called, reports a
// nil DrawingBuffer — simulating a frame buffer torn down between lock and
// write without breaking the one-time setup New() performs.
type detachableHW struct {
	*hw.MemHW
	detached bool
}

func newDetachableHW(w, h int) *detachableHW {
	return &detachableHW{MemHW: hw.NewMemHW(w, h)}
}

func (d *detachableHW) DrawingBuffer() *buffer.RenderingBufferU8 {
	if d.detached {
		return nil
	}
	return d.MemHW.DrawingBuffer()
}

func TestWithDrawRecordsBufferGoneWhenDetached(t *testing.T) {
	backend := newDetachableHW(10, 10)
	e := New(backend)
	e.SetDrawState(solidState(color.RGBA{R: 9, A: 255}), 0, 0)
	backend.detached = true

	touched := e.FillRect(basics.RectD{X1: 0, Y1: 0, X2: 2, Y2: 2})
	if !(touched.X2 <= touched.X1) {
		t.Fatal("a draw against a detached buffer must report an empty touched rect")
	}
	if err := e.LastError(); err == nil || !drawerr.Is(err, drawerr.BufferGone) {
		t.Fatalf("expected LastError() to be drawerr.BufferGone, got %v", err)
	}
}

func TestCopyRegionRecordsBufferGoneWhenDetached(t *testing.T) {
	backend := newDetachableHW(10, 10)
	e := New(backend)
	backend.detached = true

	e.CopyRegion([]region.Rect{{X1: 0, Y1: 0, X2: 2, Y2: 2}}, 1, 1)
	if err := e.LastError(); err == nil || !drawerr.Is(err, drawerr.BufferGone) {
		t.Fatalf("expected LastError() to be drawerr.BufferGone, got %v", err)
	}
}

func TestReadBitmapRejectsUndersizedDestination(t *testing.T) {
	e, _ := newTestEngine(20, 20)
	mgr := bitmap.NewManager()
	dst, _ := mgr.Create(2, 2, color.SpaceBGRA32)
	err := e.ReadBitmap(region.Rect{X1: 0, Y1: 0, X2: 5, Y2: 5}, dst, nil, false)
	if err == nil {
		t.Fatal("expected an error when dst is smaller than the requested rect")
	}
	if e.LastError() == nil {
		t.Fatal("expected LastError() to record the failure")
	}
}
