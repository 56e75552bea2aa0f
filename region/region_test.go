package region

import "testing"

func TestNewSortsCanonicalOrder(t *testing.T) {
	r := New(
		Rect{X1: 10, Y1: 10, X2: 20, Y2: 20},
		Rect{X1: 0, Y1: 0, X2: 5, Y2: 5},
		Rect{X1: 5, Y1: 0, X2: 10, Y2: 5},
	)
	rects := r.Rects()
	for i := 1; i < len(rects); i++ {
		a, b := rects[i-1], rects[i]
		if a.Y1 > b.Y1 || (a.Y1 == b.Y1 && a.X1 > b.X1) {
			t.Fatalf("rects not in canonical order: %+v before %+v", a, b)
		}
	}
}

func TestBoundsEnclosesAllRects(t *testing.T) {
	r := New(
		Rect{X1: 0, Y1: 0, X2: 5, Y2: 5},
		Rect{X1: 10, Y1: 10, X2: 20, Y2: 20},
	)
	b := r.Bounds()
	if b.X1 != 0 || b.Y1 != 0 || b.X2 != 20 || b.Y2 != 20 {
		t.Fatalf("got bounds %+v", b)
	}
}

func TestIntersectRectClipsAndDrops(t *testing.T) {
	r := New(
		Rect{X1: 0, Y1: 0, X2: 10, Y2: 10},
		Rect{X1: 100, Y1: 100, X2: 110, Y2: 110},
	)
	clipped := r.IntersectRect(Rect{X1: 5, Y1: 5, X2: 50, Y2: 50})
	rects := clipped.Rects()
	if len(rects) != 1 {
		t.Fatalf("expected only the overlapping rect to survive, got %d", len(rects))
	}
	if rects[0] != (Rect{X1: 5, Y1: 5, X2: 10, Y2: 10}) {
		t.Fatalf("got clipped rect %+v", rects[0])
	}
}

func TestEmptyRegion(t *testing.T) {
	var r *Region
	if !r.Empty() {
		t.Fatal("nil region should be empty")
	}
	if !New().Empty() {
		t.Fatal("zero-rect region should be empty")
	}
}

func TestContains(t *testing.T) {
	r := New(Rect{X1: 0, Y1: 0, X2: 10, Y2: 10})
	if !r.Contains(5, 5) {
		t.Fatal("expected (5,5) to be inside the region")
	}
	if r.Contains(10, 10) {
		t.Fatal("rectangles are half-open: (10,10) is outside")
	}
}

func TestSortCopyOrderIsPermutation(t *testing.T) {
	rects := []Rect{
		{X1: 0, Y1: 0, X2: 10, Y2: 10},
		{X1: 5, Y1: 5, X2: 15, Y2: 15},
		{X1: 20, Y1: 20, X2: 30, Y2: 30},
	}
	order := SortCopyOrder(rects, 3, 3)
	if len(order) != len(rects) {
		t.Fatalf("expected %d rects back, got %d", len(rects), len(order))
	}
	seen := map[Rect]bool{}
	for _, r := range order {
		seen[r] = true
	}
	for _, r := range rects {
		if !seen[r] {
			t.Fatalf("rect %+v missing from copy order", r)
		}
	}
}

func TestSortCopyOrderPositiveDxOrdersRightBeforeLeft(t *testing.T) {
	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
	b := Rect{X1: 20, Y1: 0, X2: 30, Y2: 10}
	order := SortCopyOrder([]Rect{a, b}, 5, 0)
	if order[0] != b || order[1] != a {
		t.Fatalf("expected [b, a] for dx>0 with b right of a, got %+v", order)
	}
}

func TestSortCopyOrderNegativeDxReversesPriority(t *testing.T) {
	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
	b := Rect{X1: 20, Y1: 0, X2: 30, Y2: 10}
	order := SortCopyOrder([]Rect{b, a}, -5, 0)
	if order[0] != a || order[1] != b {
		t.Fatalf("expected [a, b] for dx<0 with a left of b, got %+v", order)
	}
}
