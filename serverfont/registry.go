package serverfont

// Registry resolves a wire-protocol (familyID, styleID) pair back to the
// live Family/Style objects the server holds, for DrawState.ReadFontFromLink's
// face lookup (spec.md §6 "Font is a separate, optional stream").
type Registry interface {
	Resolve(familyID, styleID uint16) (*Family, *Style, bool)
}

// MapRegistry is a simple in-memory Registry, the one font discovery
// (out of scope per spec.md §1) plugs a real implementation in behind.
type MapRegistry struct {
	families map[uint16]*Family
}

// NewMapRegistry creates an empty registry.
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{families: make(map[uint16]*Family)}
}

// Add registers a family so it can be resolved by ID.
func (r *MapRegistry) Add(f *Family) {
	r.families[f.ID] = f
}

// Resolve implements Registry.
func (r *MapRegistry) Resolve(familyID, styleID uint16) (*Family, *Style, bool) {
	fam, ok := r.families[familyID]
	if !ok {
		return nil, nil, false
	}
	style, ok := fam.Style(styleID)
	if !ok {
		return nil, nil, false
	}
	return fam, style, true
}
