package basics

// PathCommand enumerates the op-list vertex kinds a client-supplied
// ShapeOp can carry (spec.md §4.4 "MOVETO | LINETO(n) | BEZIERTO(n*3) |
// CLOSE").
type PathCommand uint32

const (
	PathCmdMoveTo PathCommand = iota
	PathCmdLineTo
	PathCmdCurve4
	PathCmdEndPoly
)
