package region

// SortCopyOrder returns rects reordered so that copying them, in order,
// by (dx, dy) is safe even when source and destination overlap
// (spec.md §4.5 "Copy-region algorithm", §9 design note).
//
// Build a DAG where an edge A -> B exists when A must be copied before B
// because copying B first would clobber pixels A still needs to read. For
// a positive X offset, A -> B iff A is right of B (B's destination moves
// toward A's source); symmetric for Y. The DAG is then topologically sorted with
// Kahn's algorithm: repeatedly remove an in-degree-zero node and append
// it to the result. Unlike the original's hand-coded node/stack with a
// selection sort, only the edge rule is load-bearing here — the sort
// itself is textbook Kahn's, as the design note asks.
func SortCopyOrder(rects []Rect, dx, dy int) []Rect {
	n := len(rects)
	if n <= 1 {
		return append([]Rect(nil), rects...)
	}

	adj := make([][]int, n)
	indeg := make([]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if edgeBefore(rects[i], rects[j], dx, dy) {
				adj[i] = append(adj[i], j)
				indeg[j]++
			}
		}
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, n)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		for _, next := range adj[node] {
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	// A cycle can only arise from inconsistent input (overlapping
	// source rects); fall back to appending any still-unvisited node so
	// every rect is still copied rather than silently dropped.
	if len(order) < n {
		seen := make([]bool, n)
		for _, i := range order {
			seen[i] = true
		}
		for i := 0; i < n; i++ {
			if !seen[i] {
				order = append(order, i)
			}
		}
	}

	out := make([]Rect, n)
	for i, idx := range order {
		out[i] = rects[idx]
	}
	return out
}

// edgeBefore reports whether a must be copied before b when shifting by
// (dx, dy): b would otherwise overwrite pixels a still needs to read
// from their pre-copy location.
func edgeBefore(a, b Rect, dx, dy int) bool {
	if dx > 0 && a.X1 > b.X1 {
		return overlapsY(a, b)
	}
	if dx < 0 && a.X1 < b.X1 {
		return overlapsY(a, b)
	}
	if dy > 0 && a.Y1 > b.Y1 {
		return overlapsX(a, b)
	}
	if dy < 0 && a.Y1 < b.Y1 {
		return overlapsX(a, b)
	}
	return false
}

func overlapsX(a, b Rect) bool {
	return a.X1 < b.X2 && b.X1 < a.X2
}

func overlapsY(a, b Rect) bool {
	return a.Y1 < b.Y2 && b.Y1 < a.Y2
}
