package grid

import "math"

// CellAt converts a screen point into the grid cell under it.
// Returns false when the point is outside the bounding box or the config is degenerate.
// The far edges (EndX, EndY) belong to the last column and row, so every point in the
// box maps to exactly one cell.
func (c Config) CellAt(p Point) (Position, bool) {
	if c.MaxRows <= 0 || c.MaxCols <= 0 {
		return Position{}, false
	}
	w := c.EndX - c.StartX
	h := c.EndY - c.StartY
	if w <= 0 || h <= 0 {
		return Position{}, false
	}
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return Position{}, false
	}
	if p.X < c.StartX || p.X > c.EndX || p.Y < c.StartY || p.Y > c.EndY {
		return Position{}, false
	}

	nx := (p.X - c.StartX) / w
	ny := (p.Y - c.StartY) / h

	return Position{
		Row: bucket(ny, c.MaxRows),
		Col: bucket(nx, c.MaxCols),
	}, true
}

// bucket maps a normalized offset in [0,1] to a 1-indexed slot in [1,n].
func bucket(norm float64, n int) int {
	i := int(math.Floor(norm*float64(n))) + 1
	if i > n {
		i = n
	}
	if i < 1 {
		i = 1
	}
	return i
}

// CellOrigin returns the top-left screen point of a cell. Used by renderers to lay out
// the same partition CellAt reads back.
func (c Config) CellOrigin(p Position) Point {
	cw := (c.EndX - c.StartX) / float64(c.MaxCols)
	ch := (c.EndY - c.StartY) / float64(c.MaxRows)
	return Point{
		X: c.StartX + float64(p.Col-1)*cw,
		Y: c.StartY + float64(p.Row-1)*ch,
	}
}
