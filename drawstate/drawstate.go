// Package drawstate implements the per-view rendering context described
// in spec.md §4.3: push/pop semantics, the origin+scale Transform, the
// font-attribute merge, and the client<->server wire (de)serialization
// of §6. The stack itself is the pointer-chained design the original
// Haiku app_server uses (DrawState::fPreviousState); spec.md §9 notes an
// arena-based alternative is possible but does not require it, so this
// port keeps the original's ownership shape, matching
// novvoo-go-cairo's `graphicsState` stack (pkg/cairo/context.go), which
// is the same "push clones, pop unlinks, next *T chains back" pattern.
package drawstate

import (
	"fmt"

	"github.com/luciang/haiku-sub001/drawmode"
	"github.com/luciang/haiku-sub001/internal/basics"
	"github.com/luciang/haiku-sub001/pattern"
	"github.com/luciang/haiku-sub001/region"
	"github.com/luciang/haiku-sub001/serverfont"

	"github.com/luciang/haiku-sub001/color"
)

// CapMode is the stroke end-cap style (spec.md §3).
type CapMode int

const (
	CapButt CapMode = iota
	CapSquare
	CapRound
)

// JoinMode is the stroke corner style (spec.md §3).
type JoinMode int

const (
	JoinMiter JoinMode = iota
	JoinRound
	JoinBevel
)

// DrawState is the per-view rendering context; see spec.md §3 for the
// full attribute table and defaults.
type DrawState struct {
	Origin basics.PointD
	Scale  float64

	ClippingRegion *region.Region

	HighColor color.RGBA
	LowColor  color.RGBA
	Pattern   pattern.Pattern

	DrawingMode  drawmode.Mode
	AlphaSrcMode drawmode.AlphaSrcMode
	AlphaFncMode drawmode.AlphaFncMode

	PenLocation basics.PointD
	PenSize     float64

	Font         *serverfont.Font
	FontAliasing bool

	LineCapMode  CapMode
	LineJoinMode JoinMode
	MiterLimit   float64

	SubPixelPrecise  bool
	UnscaledFontSize float64

	previousState *DrawState
}

// NewRoot creates the one root DrawState a view owns, with every
// attribute at its spec.md §3 default.
func NewRoot() *DrawState {
	return &DrawState{
		Origin:           basics.PointD{},
		Scale:            1.0,
		HighColor:        color.RGBA{A: 0xFF},
		LowColor:         color.RGBA{R: 255, G: 255, B: 255, A: 0xFF},
		Pattern:          pattern.SolidHigh,
		DrawingMode:      drawmode.Copy,
		AlphaSrcMode:     drawmode.PixelAlpha,
		AlphaFncMode:     drawmode.Overlay,
		PenSize:          1.0,
		Font:             serverfont.Default(),
		LineCapMode:      CapButt,
		LineJoinMode:     JoinMiter,
		MiterLimit:       10.0,
		UnscaledFontSize: 12.0,
		previousState:    nil,
	}
}

// Push returns a newly allocated child whose values are a deep copy and
// whose previous-state link points back to s (spec.md §4.3).
func (s *DrawState) Push() *DrawState {
	child := *s
	child.ClippingRegion = s.ClippingRegion.Clone()
	child.Font = s.Font.Clone()
	child.previousState = s
	return &child
}

// Pop returns the previous state; calling it on the root returns the
// root itself — it must never return nil (spec.md §4.3). The caller
// owns destroying the popped-from state.
func (s *DrawState) Pop() *DrawState {
	if s.previousState == nil {
		return s
	}
	return s.previousState
}

// IsRoot reports whether s has no parent state.
func (s *DrawState) IsRoot() bool { return s.previousState == nil }

// SetOrigin stores the per-view coordinate origin.
func (s *DrawState) SetOrigin(p basics.PointD) { s.Origin = p }

// OffsetOrigin adds offset to the current origin.
func (s *DrawState) OffsetOrigin(offset basics.PointD) {
	s.Origin.X += offset.X
	s.Origin.Y += offset.Y
}

// SetScale stores the multiplicative scale applied after origin, and
// reconstructs the effective font size from UnscaledFontSize (spec.md
// §3 "When a scale change occurs...").
func (s *DrawState) SetScale(scale float64) {
	s.Scale = scale
	if s.Font != nil {
		s.Font.Size = s.UnscaledFontSize * scale
	}
}

// Transform applies out = (in + origin) * scale (spec.md §3, bit-exact
// per spec.md §8 "Transform composition").
func (s *DrawState) Transform(p basics.PointD) basics.PointD {
	return basics.PointD{
		X: (p.X + s.Origin.X) * s.Scale,
		Y: (p.Y + s.Origin.Y) * s.Scale,
	}
}

// TransformRect transforms a rectangle's two diagonal corners.
func (s *DrawState) TransformRect(r basics.RectD) basics.RectD {
	tl := s.Transform(basics.PointD{X: r.X1, Y: r.Y1})
	br := s.Transform(basics.PointD{X: r.X2, Y: r.Y2})
	return basics.RectD{X1: tl.X, Y1: tl.Y, X2: br.X, Y2: br.Y}
}

// SetClippingRegion copies region into the DrawState, which now owns it
// (spec.md §3 ownership summary).
func (s *DrawState) SetClippingRegion(r *region.Region) {
	s.ClippingRegion = r.Clone()
}

// SetHighColor / SetLowColor / SetPattern store the pattern channels.
func (s *DrawState) SetHighColor(c color.RGBA) { s.HighColor = c }
func (s *DrawState) SetLowColor(c color.RGBA)  { s.LowColor = c }
func (s *DrawState) SetPattern(p pattern.Pattern) { s.Pattern = p }

// SetDrawingMode stores the active compositing mode.
func (s *DrawState) SetDrawingMode(m drawmode.Mode) { s.DrawingMode = m }

// SetBlendingMode stores the ALPHA-mode refinement.
func (s *DrawState) SetBlendingMode(src drawmode.AlphaSrcMode, fnc drawmode.AlphaFncMode) {
	s.AlphaSrcMode = src
	s.AlphaFncMode = fnc
}

// SetPenLocation / SetPenSize store the cumulative pen state.
func (s *DrawState) SetPenLocation(p basics.PointD) { s.PenLocation = p }
func (s *DrawState) SetPenSize(size float64)        { s.PenSize = size }

// SetFont merges only the font attributes selected by flags
// (spec.md §4.3).
func (s *DrawState) SetFont(f *serverfont.Font, flags serverfont.FontFlags) {
	if s.Font == nil {
		s.Font = serverfont.Default()
	}
	s.Font.Merge(f, flags)
	if flags&serverfont.FlagSize != 0 {
		s.UnscaledFontSize = f.Size / maxFloat(s.Scale, 1e-9)
	}
}

// SetForceFontAliasing overrides the aliasing flag contained in the
// font's own flags (spec.md §4.3 "SetForceFontAliasing").
func (s *DrawState) SetForceFontAliasing(aliased bool) { s.FontAliasing = aliased }

// SetLineCapMode / SetLineJoinMode / SetMiterLimit store stroke style.
func (s *DrawState) SetLineCapMode(m CapMode)   { s.LineCapMode = m }
func (s *DrawState) SetLineJoinMode(m JoinMode) { s.LineJoinMode = m }
func (s *DrawState) SetMiterLimit(limit float64) { s.MiterLimit = limit }

// SetSubPixelPrecise toggles integer-pixel snapping of coordinates.
func (s *DrawState) SetSubPixelPrecise(precise bool) { s.SubPixelPrecise = precise }

// String dumps the state's key attributes, the Go stand-in for the
// original DrawState::PrintToStream debug affordance.
func (s *DrawState) String() string {
	fam := "<none>"
	if s.Font != nil && s.Font.Family != nil {
		fam = s.Font.Family.Name
	}
	return fmt.Sprintf(
		"DrawState{origin=%v scale=%v pen=%v/%v mode=%v alpha=%v/%v cap=%v join=%v miter=%v font=%q clip=%v}",
		s.Origin, s.Scale, s.PenLocation, s.PenSize, s.DrawingMode, s.AlphaSrcMode, s.AlphaFncMode,
		s.LineCapMode, s.LineJoinMode, s.MiterLimit, fam, s.ClippingRegion,
	)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
