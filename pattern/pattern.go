// Package pattern implements the PatternHandler described in spec.md
// §4.1: it turns a pixel coordinate and the active 8x8 pattern into a
// "high" or "low" color decision, with two fast-path predicates the
// Painter and DrawingEngine use to skip per-pixel pattern dispatch
// whenever the pattern is solid.
package pattern

import "github.com/luciang/haiku-sub001/color"

// Pattern is the BeOS `pattern` struct: 8 bytes, bit 7 of byte 0 is
// coordinate (0,0) (spec.md §6).
type Pattern [8]byte

// SolidHigh and SolidLow are the two sentinel patterns (spec.md §3).
var (
	SolidHigh = Pattern{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	SolidLow  = Pattern{0, 0, 0, 0, 0, 0, 0, 0}
)

// Handler resolves (x, y) + pattern + high/low color into a final color.
// color_at is a pure function of the handler's current state, per the
// invariant in spec.md §4.1.
type Handler struct {
	pat              Pattern
	high, low        color.RGBA
	xOffset, yOffset int

	// textCache memoizes the 256 possible glyph-coverage bytes to a
	// final BGRA color for the COPY-mode-against-lowColor text shortcut
	// (spec.md §4.2). Rebuilt lazily whenever high/low changes.
	textCache      [256]color.RGBA
	textCacheValid bool
}

// New creates a handler with the default solid-high pattern, black high
// color and white low color (spec.md §3 DrawState defaults).
func New() *Handler {
	h := &Handler{
		pat:  SolidHigh,
		high: color.RGBA{A: 0xFF},              // black
		low:  color.RGBA{R: 255, G: 255, B: 255, A: 0xFF}, // white
	}
	return h
}

// SetPattern stores the 8x8 bitmap used by IsHigh/ColorAt.
func (h *Handler) SetPattern(p Pattern) {
	h.pat = p
}

// Pattern returns the currently active pattern.
func (h *Handler) Pattern() Pattern { return h.pat }

// SetHighColor stores the pattern's "1" bit color.
func (h *Handler) SetHighColor(c color.RGBA) {
	h.high = c
	h.textCacheValid = false
}

// SetLowColor stores the pattern's "0" bit color.
func (h *Handler) SetLowColor(c color.RGBA) {
	h.low = c
	h.textCacheValid = false
}

// HighColor returns the current high color.
func (h *Handler) HighColor() color.RGBA { return h.high }

// LowColor returns the current low color.
func (h *Handler) LowColor() color.RGBA { return h.low }

// SetOffsets shifts the pattern lookup so that scrolled views tile
// correctly: the bit examined becomes pattern[(y+dy)%8] & (1<<((x+dx)%8)).
func (h *Handler) SetOffsets(dx, dy int) {
	h.xOffset, h.yOffset = dx, dy
}

// Offsets returns the currently active (xOffset, yOffset).
func (h *Handler) Offsets() (int, int) { return h.xOffset, h.yOffset }

// IsHigh reports whether (x, y) selects the pattern's high color.
func (h *Handler) IsHigh(x, y int) bool {
	row := mod8(y + h.yOffset)
	col := mod8(x + h.xOffset)
	// Bit 7 of byte 0 is coordinate (0,0): the bit index counts down
	// from the most-significant bit as the column increases.
	bit := uint(7 - col)
	return h.pat[row]&(1<<bit) != 0
}

// ColorAt returns HighColor() if IsHigh(x, y), else LowColor().
func (h *Handler) ColorAt(x, y int) color.RGBA {
	if h.IsHigh(x, y) {
		return h.high
	}
	return h.low
}

// IsSolidHigh is the fast-path predicate used to skip per-pixel pattern
// dispatch when every pixel resolves to the high color.
func (h *Handler) IsSolidHigh() bool {
	return h.pat == SolidHigh
}

// IsSolidLow is the symmetric fast-path predicate.
func (h *Handler) IsSolidLow() bool {
	return h.pat == SolidLow
}

// IsSolid reports whether the pattern resolves to one constant color
// regardless of (x, y), and returns that color.
func (h *Handler) IsSolid() (color.RGBA, bool) {
	if h.IsSolidHigh() {
		return h.high, true
	}
	if h.IsSolidLow() {
		return h.low, true
	}
	return color.RGBA{}, false
}

// TextColorAt is the pre-computed color cache described in spec.md §4.2:
// when text is rendered with drawingMode COPY against lowColor, every one
// of the 256 possible glyph-coverage bytes maps to a final color via a
// single table lookup instead of a per-pixel blend computation.
func (h *Handler) TextColorAt(coverage uint8) color.RGBA {
	if !h.textCacheValid {
		h.rebuildTextCache()
	}
	return h.textCache[coverage]
}

func (h *Handler) rebuildTextCache() {
	for i := 0; i < 256; i++ {
		a := uint8(i)
		h.textCache[i] = blendOverLow(h.high, h.low, a)
	}
	h.textCacheValid = true
}

// blendOverLow is the COPY-mode glyph compositing rule: coverage a blends
// the glyph's high color over the (opaque) low color background.
func blendOverLow(high, low color.RGBA, a uint8) color.RGBA {
	inv := 255 - uint32(a)
	mix := func(s, d uint8) uint8 {
		return uint8((uint32(s)*uint32(a) + uint32(d)*inv + 127) / 255)
	}
	return color.RGBA{
		R: mix(high.R, low.R),
		G: mix(high.G, low.G),
		B: mix(high.B, low.B),
		A: 0xFF,
	}
}

func mod8(v int) int {
	v %= 8
	if v < 0 {
		v += 8
	}
	return v
}
