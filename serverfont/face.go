package serverfont

import (
	"image"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// AliasThreshold is the point size below which glyphs are rendered
// aliased (1-bit) rather than anti-aliased, unless a forced override
// passed to Font.Aliased or the Font's own flags decide it either way. This is spec.md §9's "Open question: text
// anti-aliasing threshold" — left as a configurable value instead of a
// hardcoded constant, as the spec asks.
var AliasThreshold float64 = 18.0

// Face wraps a rasterizable golang.org/x/image/font.Face, adding the
// size-aware glyph lookups TextRenderer needs; glyphs are rasterized
// upright, with no shear or rotation applied. It is the
// "FreeType-equivalent face" spec.md §3 describes living inside Style.
type Face struct {
	ttf     *truetype.Font // nil when backed by the basicfont fallback
	backend font.Face
	size    float64
}

// newFaceFromTTF builds a Face from raw TrueType bytes at a nominal size
// of 12pt/72dpi; callers re-derive per DrawState size via WithSize.
// Parse failures and empty input both fall back to the built-in
// monospace face — a font.Face is always returned, never nil, matching
// the ResourceUnavailable contract of "no exception, degrade instead."
func newFaceFromTTF(data []byte) *Face {
	if len(data) == 0 {
		return &Face{backend: basicfont.Face7x13, size: 13}
	}
	ttf, err := truetype.Parse(data)
	if err != nil {
		return &Face{backend: basicfont.Face7x13, size: 13}
	}
	f := truetype.NewFace(ttf, &truetype.Options{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	return &Face{ttf: ttf, backend: f, size: 12}
}

// WithSize returns a Face rasterizing the same underlying font at a new
// point size. TrueType-backed faces rebuild the hinted rasterizer at the
// requested size; the basicfont fallback is fixed-size and returns
// itself unchanged (it has no continuous size axis).
func (f *Face) WithSize(size float64) *Face {
	if f.ttf == nil {
		return f
	}
	nf := truetype.NewFace(f.ttf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	return &Face{ttf: f.ttf, backend: nf, size: size}
}

// Glyph rasterizes r at the sub-pixel baseline dot, returning an 8-bit
// coverage mask (GlyphDataGray8 per spec.md §3) and the advance to the
// next glyph. Mono rendering (spec.md §4.4 step 4) is derived by the
// caller thresholding this same mask at coverage >= 128.
func (f *Face) Glyph(dot fixed.Point26_6, r rune) (mask *image.Alpha, maskOrigin image.Point, advance fixed.Int26_6, ok bool) {
	dr, img, mp, adv, ok := f.backend.Glyph(dot, r)
	if !ok {
		return nil, image.Point{}, 0, false
	}
	gray := image.NewAlpha(dr)
	for y := dr.Min.Y; y < dr.Max.Y; y++ {
		for x := dr.Min.X; x < dr.Max.X; x++ {
			_, _, _, a := img.At(x-dr.Min.X+mp.X, y-dr.Min.Y+mp.Y).RGBA()
			gray.SetAlpha(x, y, uint8(a>>8))
		}
	}
	return gray, dr.Min, adv, true
}

// Advance returns the horizontal advance for r with no kerning applied.
func (f *Face) Advance(r rune) (fixed.Int26_6, bool) {
	return f.backend.GlyphAdvance(r)
}

// Kern returns the kerning adjustment between r0 and r1, 0 if the face
// carries no kerning table (spec.md §3 "Kerning ... reported from the
// face").
func (f *Face) Kern(r0, r1 rune) fixed.Int26_6 {
	return f.backend.Kern(r0, r1)
}

// Metrics exposes the face's ascent/descent/line-height.
func (f *Face) Metrics() font.Metrics {
	return f.backend.Metrics()
}

// Bounds returns the ink bounding box of r without rasterizing it, used
// by string-width/bounding-box queries (spec.md §4.4).
func (f *Face) Bounds(r rune) (fixed.Rectangle26_6, fixed.Int26_6, bool) {
	return f.backend.GlyphBounds(r)
}
