package main

import (
	"github.com/pattamap/server/internal/data"
	"github.com/pattamap/server/internal/grid"
)

const (
	headerRows = 1
	footerRows = 1
)

type rect struct {
	x0, y0, x1, y1 int // inclusive
}

func (r rect) width() int { return r.x1 - r.x0 + 1 }

// layout maps the zone grid onto the terminal. Rects are derived from the same
// CellAt used for hit testing, so what is drawn is what gets picked.
type layout struct {
	cfg   grid.Config
	rects map[grid.Position]rect
}

func gridFor(zone data.ZoneInfo, w, h int) grid.Config {
	return grid.Config{
		MaxRows: zone.MaxRows,
		MaxCols: zone.MaxCols,
		StartX:  0,
		EndX:    float64(w),
		StartY:  headerRows,
		EndY:    float64(h - footerRows),
	}
}

// pointAt is the centre of terminal cell (x, y).
func pointAt(x, y int) grid.Point {
	return grid.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

func newLayout(cfg grid.Config, w, h int) layout {
	l := layout{cfg: cfg, rects: make(map[grid.Position]rect)}
	for y := headerRows; y < h-footerRows; y++ {
		for x := 0; x < w; x++ {
			pos, ok := cfg.CellAt(pointAt(x, y))
			if !ok {
				continue
			}
			r, seen := l.rects[pos]
			if !seen {
				l.rects[pos] = rect{x0: x, y0: y, x1: x, y1: y}
				continue
			}
			r.x0, r.y0 = min(r.x0, x), min(r.y0, y)
			r.x1, r.y1 = max(r.x1, x), max(r.y1, y)
			l.rects[pos] = r
		}
	}
	return l
}
