package serverfont

// Font is the per-DrawState ServerFont reference (spec.md §3): a pointer
// into a Family/Style pair plus the instance attributes (size, rotation,
// shear, spacing, encoding, flags) a client can vary independently of
// the face itself.
type Font struct {
	Family *Family
	Style  *Style

	Size     float64 // points
	Shear    float64 // degrees, valid range 45-135
	Rotation float64 // degrees
	Spacing  Spacing
	Encoding uint8

	AntialiasDisabled  bool
	ForcedAntialiasing bool
}

var (
	systemPlainFamily *Family
	systemPlainStyle  *Style
)

func init() {
	systemPlainStyle = &Style{ID: 0, Name: "Plain", Face: FaceRegular, FixedWidth: true}
	systemPlainFamily = NewFamily(0, "Swis721 BT")
	systemPlainFamily.AddStyle(systemPlainStyle)
}

// Default returns the "system plain" font DrawState uses before any
// client SetFont call (spec.md §3 default: "system plain").
func Default() *Font {
	return &Font{
		Family:   systemPlainFamily,
		Style:    systemPlainStyle,
		Size:     12.0,
		Shear:    90.0,
		Rotation: 0.0,
		Spacing:  SpacingChar,
	}
}

// Clone returns a deep-enough copy for DrawState.Push: Family/Style are
// shared pointers (no reference count is kept), every scalar attribute
// is copied.
func (f *Font) Clone() *Font {
	cp := *f
	return &cp
}

// Merge applies the fields of other whose corresponding bit is set in
// flags, implementing DrawState.SetFont's field-by-field merge
// (spec.md §4.3).
func (f *Font) Merge(other *Font, flags FontFlags) {
	if flags&FlagFamilyAndStyle != 0 {
		f.Family = other.Family
		f.Style = other.Style
	}
	if flags&FlagSize != 0 {
		f.Size = other.Size
	}
	if flags&FlagShear != 0 {
		f.Shear = other.Shear
	}
	if flags&FlagRotation != 0 {
		f.Rotation = other.Rotation
	}
	if flags&FlagSpacing != 0 {
		f.Spacing = other.Spacing
	}
	if flags&FlagEncoding != 0 {
		f.Encoding = other.Encoding
	}
	if flags&FlagFace != 0 && other.Style != nil {
		f.Style = other.Style
	}
}

// Face resolves the rasterizable Face for this font at its current size,
// degrading to the system monospace fallback if the style carries no
// loadable TrueType data (never fails, per spec.md §7).
func (f *Font) Face() *Face {
	style := f.Style
	if style == nil {
		style = systemPlainStyle
	}
	return style.resolveBackend().WithSize(f.Size)
}

// Aliased reports whether glyphs should be rendered as a 1-bit mask
// rather than 8-bit coverage, combining DrawState's force-aliasing
// override with this font's own flag and the size threshold (spec.md
// §9 Open Question; force wins, then the font's own flag, then size).
func (f *Font) Aliased(forceAliasing bool, forceOverride bool) bool {
	if forceOverride {
		return forceAliasing
	}
	if f.ForcedAntialiasing {
		return false
	}
	if f.AntialiasDisabled {
		return true
	}
	return f.Size < AliasThreshold
}
