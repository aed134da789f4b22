package policy

import (
	"fmt"
	"math"

	"github.com/pathoview/viewport/geom"
)

// Symbol is a small marker drawn at an object's centroid in place of its
// outline.
type Symbol uint8

const (
	SymbolCircle Symbol = iota
	SymbolSquare
	SymbolTriangle
	SymbolPlus
	SymbolCross
)

func (s Symbol) String() string {
	switch s {
	case SymbolCircle:
		return "circle"
	case SymbolSquare:
		return "square"
	case SymbolTriangle:
		return "triangle"
	case SymbolPlus:
		return "plus"
	case SymbolCross:
		return "cross"
	}
	return fmt.Sprintf("Symbol(%d)", uint8(s))
}

// SymbolForParts picks a marker from the number of classification parts,
// so that derived classes stay distinguishable in centroid mode.
func SymbolForParts(n int) Symbol {
	switch {
	case n <= 1:
		return SymbolCircle
	case n == 2:
		return SymbolSquare
	case n == 3:
		return SymbolTriangle
	case n == 4:
		return SymbolPlus
	default:
		return SymbolCross
	}
}

// Fillable reports whether the marker encloses an area.
func (s Symbol) Fillable() bool {
	return s == SymbolCircle || s == SymbolSquare || s == SymbolTriangle
}

// Shape builds the marker centered on c with the given overall size, both
// in image pixels.
func (s Symbol) Shape(c geom.Point, size float64) geom.Shape {
	h := size / 2
	switch s {
	case SymbolSquare:
		return &geom.RectShape{R: geom.R(c.X-h, c.Y-h, size, size)}
	case SymbolTriangle:
		// Equilateral, pointing up, centered on its centroid.
		dy := h / math.Sqrt(3)
		return geom.NewPolyShape([][]geom.Point{{
			{X: c.X, Y: c.Y - 2*dy},
			{X: c.X + h, Y: c.Y + dy},
			{X: c.X - h, Y: c.Y + dy},
		}}, false)
	case SymbolPlus:
		return geom.NewPolyShape([][]geom.Point{
			{{X: c.X - h, Y: c.Y}, {X: c.X + h, Y: c.Y}},
			{{X: c.X, Y: c.Y - h}, {X: c.X, Y: c.Y + h}},
		}, true)
	case SymbolCross:
		return geom.NewPolyShape([][]geom.Point{
			{{X: c.X - h, Y: c.Y - h}, {X: c.X + h, Y: c.Y + h}},
			{{X: c.X - h, Y: c.Y + h}, {X: c.X + h, Y: c.Y - h}},
		}, true)
	default:
		return &geom.EllipseShape{R: geom.R(c.X-h, c.Y-h, size, size)}
	}
}
