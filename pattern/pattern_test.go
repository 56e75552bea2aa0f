package pattern

import (
	"testing"

	"github.com/luciang/haiku-sub001/color"
)

func TestSolidPatternsAlwaysReturnConstantColor(t *testing.T) {
	h := New()
	h.SetPattern(SolidHigh)
	h.SetHighColor(color.RGBA{R: 1, A: 255})
	h.SetLowColor(color.RGBA{R: 2, A: 255})
	if !h.IsSolidHigh() {
		t.Fatal("expected SolidHigh pattern to report solid-high")
	}
	for _, p := range []struct{ x, y int }{{0, 0}, {1, 7}, {7, 0}, {100, 200}} {
		if !h.IsHigh(p.x, p.y) {
			t.Fatalf("IsHigh(%d,%d) should be true for a solid-high pattern", p.x, p.y)
		}
		if c := h.ColorAt(p.x, p.y); c != h.HighColor() {
			t.Fatalf("ColorAt(%d,%d) = %+v, want high color %+v", p.x, p.y, c, h.HighColor())
		}
	}
}

func TestSolidLowPattern(t *testing.T) {
	h := New()
	h.SetPattern(SolidLow)
	if !h.IsSolidLow() {
		t.Fatal("expected SolidLow pattern to report solid-low")
	}
	if h.IsHigh(3, 3) {
		t.Fatal("solid-low pattern should never select high")
	}
	c, ok := h.IsSolid()
	if !ok || c != h.LowColor() {
		t.Fatalf("IsSolid() = %+v, %v; want low color, true", c, ok)
	}
}

func TestCheckerboardPatternBitOrder(t *testing.T) {
	h := New()
	// Row 0 = 10101010b: bit 7 (MSB) is column 0, so column 0 is high,
	// column 1 is low, alternating.
	var checker Pattern
	checker[0] = 0xAA
	for i := 1; i < 8; i++ {
		checker[i] = 0xAA
	}
	h.SetPattern(checker)
	if !h.IsHigh(0, 0) {
		t.Fatal("column 0 should be high under 0xAA row")
	}
	if h.IsHigh(1, 0) {
		t.Fatal("column 1 should be low under 0xAA row")
	}
	if !h.IsHigh(2, 0) {
		t.Fatal("column 2 should be high under 0xAA row")
	}
}

func TestOffsetsShiftPatternLookup(t *testing.T) {
	h := New()
	var onlyCol0 Pattern
	for i := range onlyCol0 {
		onlyCol0[i] = 0x80 // bit 7 set: only column 0 is high
	}
	h.SetPattern(onlyCol0)
	if !h.IsHigh(0, 0) {
		t.Fatal("column 0 should be high before offset")
	}
	if h.IsHigh(1, 0) {
		t.Fatal("column 1 should be low before offset")
	}
	h.SetOffsets(1, 0)
	if h.IsHigh(0, 0) {
		t.Fatal("column 0 should be low after +1 offset shifts the lookup")
	}
	if !h.IsHigh(7, 0) {
		t.Fatal("column 7 should be high after +1 offset wraps the lookup back to column 0's bit")
	}
}

func TestTextColorAtCacheRebuildsOnColorChange(t *testing.T) {
	h := New()
	h.SetHighColor(color.RGBA{R: 255, A: 255})
	h.SetLowColor(color.RGBA{R: 0, A: 255})
	full := h.TextColorAt(255)
	if full.R != 255 {
		t.Fatalf("full coverage should equal high color's R, got %d", full.R)
	}
	zero := h.TextColorAt(0)
	if zero.R != 0 {
		t.Fatalf("zero coverage should equal low color's R, got %d", zero.R)
	}

	h.SetHighColor(color.RGBA{R: 100, A: 255})
	full2 := h.TextColorAt(255)
	if full2.R != 100 {
		t.Fatalf("cache should rebuild after SetHighColor, got R=%d", full2.R)
	}
}
