// Package drawmode implements the drawing-mode dispatch described in
// spec.md §4.2: eleven BeOS B_OP_* modes, the last of which, ALPHA,
// further branches four ways on its (alphaSrcMode, alphaFncMode)
// refinement, giving the "14+ Porter-Duff-like modes" spec.md §1
// advertises. Every mode is one case of the switch in Blend, which the
// per-pixel path calls with the mode for each pixel it stores.
package drawmode

import "github.com/luciang/haiku-sub001/color"

// Mode is the BeOS B_OP_* enumeration. Client compatibility requires
// these exact values (spec.md §6); do not renumber.
type Mode uint32

const (
	Copy Mode = iota
	Over
	Erase
	Invert
	Add
	Subtract
	BlendMode // B_OP_BLEND; named apart from the Blend function
	Min
	Max
	Select
	Alpha
)

// AlphaSrcMode refines Alpha: which channel supplies the blend alpha.
type AlphaSrcMode uint32

const (
	PixelAlpha AlphaSrcMode = iota
	ConstantAlpha
)

// AlphaFncMode refines Alpha: how that alpha is applied.
type AlphaFncMode uint32

const (
	Overlay AlphaFncMode = iota
	Composite
)

// Rounding selects between the two documented alpha-blend rounding
// rules (spec.md §9 Open Question). The reference behavior is Shift8;
// Round127 matches §8 scenario 5's literal expected output.
type Rounding int

const (
	Shift8 Rounding = iota
	Round127
)

// Params bundles everything a blend function needs beyond (src, dst):
// the ALPHA refinement and the high/low colors SELECT and ERASE consult.
type Params struct {
	AlphaSrc  AlphaSrcMode
	AlphaFnc  AlphaFncMode
	HighColor color.RGBA
	LowColor  color.RGBA
	Rounding  Rounding
	// SrcIsHigh reports whether the source pixel at this coordinate came
	// from the pattern's high-color slot (vs. its low-color slot). OVER,
	// ERASE and INVERT key off this rather than off S's RGB value, since a
	// custom pattern can legally set high == low. SELECT instead compares
	// S and D against HighColor and LowColor.
	SrcIsHigh bool
}

// Blend applies mode to (src, dst) under params and returns the color to
// store. This is the single function every Painter write path calls;
// every mode below is a tight, allocation-free per-channel computation.
func Blend(mode Mode, src, dst color.RGBA, p Params) color.RGBA {
	switch mode {
	case Copy:
		return src
	case Over:
		if p.SrcIsHigh {
			return src
		}
		return dst
	case Erase:
		if p.SrcIsHigh {
			return p.LowColor
		}
		return dst
	case Invert:
		if p.SrcIsHigh {
			return color.RGBA{R: ^dst.R, G: ^dst.G, B: ^dst.B, A: dst.A}
		}
		return dst
	case Add:
		return color.RGBA{
			R: addSat(src.R, dst.R),
			G: addSat(src.G, dst.G),
			B: addSat(src.B, dst.B),
			A: addSat(src.A, dst.A),
		}
	case Subtract:
		return color.RGBA{
			R: subSat(dst.R, src.R),
			G: subSat(dst.G, src.G),
			B: subSat(dst.B, src.B),
			A: subSat(dst.A, src.A),
		}
	case BlendMode:
		return color.RGBA{
			R: avg(src.R, dst.R),
			G: avg(src.G, dst.G),
			B: avg(src.B, dst.B),
			A: avg(src.A, dst.A),
		}
	case Min:
		if color.Luma(src) > color.Luma(dst) {
			return dst
		}
		return src
	case Max:
		if color.Luma(src) > color.Luma(dst) {
			return src
		}
		return dst
	case Select:
		if src == p.HighColor && dst == p.HighColor {
			return p.LowColor
		}
		if src == p.LowColor && dst == p.LowColor {
			return p.HighColor
		}
		return dst
	case Alpha:
		return blendAlpha(src, dst, p)
	default:
		return dst
	}
}

func blendAlpha(src, dst color.RGBA, p Params) color.RGBA {
	var a uint8
	switch p.AlphaSrc {
	case ConstantAlpha:
		a = p.HighColor.A
	default:
		a = src.A
	}

	switch p.AlphaFnc {
	case Composite:
		// Porter-Duff "over" with full premultiplication.
		sp := color.Premultiply(color.RGBA{R: src.R, G: src.G, B: src.B, A: a})
		inv := 255 - uint32(a)
		mix := func(s, d uint8) uint8 {
			return uint8(uint32(s) + (uint32(d)*inv+127)/255)
		}
		outA := uint32(a) + (uint32(dst.A)*inv+127)/255
		if outA > 255 {
			outA = 255
		}
		return color.RGBA{
			R: mix(sp.R, dst.R),
			G: mix(sp.G, dst.G),
			B: mix(sp.B, dst.B),
			A: uint8(outA),
		}
	default: // Overlay
		return overlay(src, dst, a, p.Rounding)
	}
}

func overlay(src, dst color.RGBA, a uint8, r Rounding) color.RGBA {
	inv := uint32(255 - a)
	mix := func(s, d uint8) uint8 {
		// Fully opaque and fully transparent are exact under both rules.
		if a == 255 {
			return s
		}
		if a == 0 {
			return d
		}
		num := uint32(s)*uint32(a) + uint32(d)*inv
		switch r {
		case Round127:
			return uint8((num + 127) / 255)
		default:
			return uint8(num >> 8)
		}
	}
	return color.RGBA{
		R: mix(src.R, dst.R),
		G: mix(src.G, dst.G),
		B: mix(src.B, dst.B),
		A: 0xFF,
	}
}

func addSat(a, b uint8) uint8 {
	v := int(a) + int(b)
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func subSat(a, b uint8) uint8 {
	v := int(a) - int(b)
	if v < 0 {
		return 0
	}
	return uint8(v)
}

func avg(a, b uint8) uint8 {
	return uint8((uint32(a) + uint32(b)) / 2)
}

// IsWriteOnly reports whether mode always overwrites the destination
// regardless of src/dst content (used by the Painter's FillRect to pick
// its solid-color path, which still stores each pixel through Blend).
func IsWriteOnly(mode Mode) bool {
	return mode == Copy
}

// NeedsPatternDecision reports whether mode depends on whether the
// source pixel came from the pattern's high or low slot, as opposed to
// only on its resolved color. OVER, ERASE and INVERT are the modes that
// key off the slot; SELECT compares resolved colors.
func NeedsPatternDecision(mode Mode) bool {
	switch mode {
	case Over, Erase, Invert:
		return true
	default:
		return false
	}
}
