// Package serverfont implements the ServerFont handle described in
// spec.md §3: family/style/face plumbing, the B_FONT_* flag set used by
// DrawState.SetFont's field merge, and real glyph rasterization backed
// by github.com/golang/freetype for TrueType data, with
// golang.org/x/image/font/basicfont as the zero-dependency "system
// plain" fallback so a Face is always usable even with no font file on
// disk (spec.md §7 ResourceUnavailable: never fail, degrade instead).
package serverfont

import "sync"

// FaceBits mirrors the BeOS B_*_FACE bitset (spec.md §6).
type FaceBits uint16

const (
	FaceRegular FaceBits = 0
	FaceBold    FaceBits = 1 << iota
	FaceItalic
	FaceUnderline
	FaceOutlined
	FaceStrikeout
	FaceBoldItalic          = FaceBold | FaceItalic // convenience combination some clients send directly
	FaceCondensed  FaceBits = 1 << iota
	FaceLight
	FaceHeavy
	FaceExpanded
)

// FontFlags is the small enum set of bit flags SetFont's merge uses,
// identical in shape to the BeOS B_FONT_* constants (spec.md §4.3).
type FontFlags uint32

const (
	FlagFamilyAndStyle FontFlags = 1 << iota
	FlagSize
	FlagShear
	FlagRotation
	FlagSpacing
	FlagEncoding
	FlagFace
	FlagAll = FlagFamilyAndStyle | FlagSize | FlagShear | FlagRotation |
		FlagSpacing | FlagEncoding | FlagFace
)

// Spacing is the advance-width policy (spec.md §3 "spacing mode").
type Spacing uint8

const (
	SpacingChar Spacing = iota
	SpacingString
	SpacingFixed
)

// Style holds one weight/slant variant of a Family: the rasterizable
// face plus the metadata the spec requires (kerning flag, fixed-width
// flag, scalable flag, ID, name).
type Style struct {
	ID         uint16
	Name       string
	Face       FaceBits
	Kerning    bool
	FixedWidth bool
	Scalable   bool

	mu       sync.Mutex
	backend  *Face // lazily built from ttfData/fallback on first use
	ttfData  []byte
}

// Family groups styles sharing a family name, mirroring the
// family-owns-styles, style-owns-face ownership in spec.md §3.
type Family struct {
	ID     uint16
	Name   string
	styles []*Style
}

// NewFamily creates an empty family with the given server-assigned ID.
func NewFamily(id uint16, name string) *Family {
	return &Family{ID: id, Name: name}
}

// AddStyle registers a style under this family, owning it from then on.
func (f *Family) AddStyle(s *Style) {
	f.styles = append(f.styles, s)
}

// Style looks up one of this family's styles by ID.
func (f *Family) Style(id uint16) (*Style, bool) {
	for _, s := range f.styles {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Styles returns every style registered under this family.
func (f *Family) Styles() []*Style { return f.styles }

// LoadTrueType attaches raw TrueType/OpenType bytes this style will
// rasterize with on first use. Calling this again invalidates any
// cached backend face.
func (s *Style) LoadTrueType(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttfData = data
	s.backend = nil
	s.Scalable = true
}

// resolveBackend lazily builds (and caches) the rasterizing Face for
// this style; never returns an error, per the ResourceUnavailable
// contract — an unparsable or absent TrueType payload silently falls
// back to the built-in monospace face.
func (s *Style) resolveBackend() *Face {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend != nil {
		return s.backend
	}
	s.backend = newFaceFromTTF(s.ttfData)
	return s.backend
}
