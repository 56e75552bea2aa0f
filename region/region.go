// Package region implements the clip/fill Region described in spec.md
// §4.4-§4.5: a set of non-overlapping rectangles, sorted top-to-bottom
// then left-to-right within a row, plus the Kahn's-algorithm topological
// sort that makes overlapping region copies safe (§4.5 "Copy-region
// algorithm", §9 design note).
package region

import (
	"sort"

	"github.com/luciang/haiku-sub001/internal/basics"
)

// Rect is the region's element type: an integer pixel-index rectangle.
type Rect = basics.RectI

// Region is a set of non-overlapping rectangles.
type Region struct {
	rects []Rect
}

// New builds a Region from already-disjoint rectangles, sorting them
// into the canonical top-to-bottom/left-to-right order.
func New(rects ...Rect) *Region {
	r := &Region{rects: append([]Rect(nil), rects...)}
	r.sort()
	return r
}

// FromRect builds a single-rectangle region.
func FromRect(r Rect) *Region { return New(r) }

func (r *Region) sort() {
	sort.Slice(r.rects, func(i, j int) bool {
		a, b := r.rects[i], r.rects[j]
		if a.Y1 != b.Y1 {
			return a.Y1 < b.Y1
		}
		return a.X1 < b.X1
	})
}

// Rects returns the region's rectangles in canonical order.
func (r *Region) Rects() []Rect {
	if r == nil {
		return nil
	}
	return r.rects
}

// Empty reports whether the region contains no area.
func (r *Region) Empty() bool { return r == nil || len(r.rects) == 0 }

// Bounds returns the smallest rectangle enclosing every rect in the
// region, the zero Rect if the region is empty.
func (r *Region) Bounds() Rect {
	if r.Empty() {
		return Rect{}
	}
	b := r.rects[0]
	for _, rc := range r.rects[1:] {
		b = basics.UniteRectangles(b, rc)
	}
	return b
}

// Clone returns a deep copy, matching DrawState's "clip regions passed
// by clients are copied into the DrawState on SetClippingRegion"
// ownership rule (spec.md §3).
func (r *Region) Clone() *Region {
	if r == nil {
		return nil
	}
	return New(r.rects...)
}

// IntersectRect clips every rectangle in the region against box,
// dropping empty results, and returns a new Region — used by the engine
// to intersect a DrawState's client clip with the view clip (spec.md
// §4.5 "clipping intersection").
func (r *Region) IntersectRect(box Rect) *Region {
	if r.Empty() {
		return New()
	}
	out := make([]Rect, 0, len(r.rects))
	for _, rc := range r.rects {
		if clipped, ok := basics.IntersectRectangles(rc, box); ok {
			out = append(out, clipped)
		}
	}
	return New(out...)
}

// Intersect returns the rectangle-by-rectangle intersection of two
// regions (used to combine a DrawState's clipping region with the
// view's own clip before a draw, spec.md §4.5).
func (r *Region) Intersect(other *Region) *Region {
	if r.Empty() || other.Empty() {
		return New()
	}
	out := make([]Rect, 0, len(r.rects))
	for _, a := range r.rects {
		for _, b := range other.rects {
			if clipped, ok := basics.IntersectRectangles(a, b); ok {
				out = append(out, clipped)
			}
		}
	}
	return New(out...)
}

// Contains reports whether (x, y) lies in some rectangle of the region.
func (r *Region) Contains(x, y int) bool {
	for _, rc := range r.Rects() {
		if x >= rc.X1 && x < rc.X2 && y >= rc.Y1 && y < rc.Y2 {
			return true
		}
	}
	return false
}
