package grid

import "fmt"

// Position is a 1-indexed logical cell within a zone grid.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Display is pass-through metadata. The grid never inspects it.
type Display struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
	Type string `json:"type,omitempty"`
}

// Entity is an establishment placed on a zone grid.
type Entity struct {
	ID      string   `json:"id"`
	Pos     Position `json:"position"`
	Display Display  `json:"display"`
}

// Point is a screen coordinate relative to the map container's top-left corner.
type Point struct {
	X float64
	Y float64
}

// Config holds the static bounds of one zone: logical size plus the pixel box
// the grid is drawn into.
type Config struct {
	MaxRows int
	MaxCols int
	StartX  float64
	EndX    float64
	StartY  float64
	EndY    float64
}

// Contains reports whether p lies inside [1,MaxRows]×[1,MaxCols].
func (c Config) Contains(p Position) bool {
	return p.Row >= 1 && p.Row <= c.MaxRows && p.Col >= 1 && p.Col <= c.MaxCols
}
