package geom

import "math"

// Rect is an axis-aligned rectangle given by its top-left corner and size.
// A Rect with non-positive width or height is empty.
type Rect struct {
	X, Y, W, H float64
}

// R is a convenience function to create a Rect.
func R(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// RectFromPoints returns the smallest Rect containing both points.
func RectFromPoints(p, q Point) Rect {
	x0, x1 := math.Min(p.X, q.X), math.Max(p.X, q.X)
	y0, y1 := math.Min(p.Y, q.Y), math.Max(p.Y, q.Y)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// BoundsOf returns the bounding rectangle of the points in rings.
// It returns the zero Rect if there are no points.
func BoundsOf(rings [][]Point) Rect {
	first := true
	var x0, y0, x1, y1 float64
	for _, ring := range rings {
		for _, p := range ring {
			if first {
				x0, y0, x1, y1 = p.X, p.Y, p.X, p.Y
				first = false
				continue
			}
			x0 = math.Min(x0, p.X)
			y0 = math.Min(y0, p.Y)
			x1 = math.Max(x1, p.X)
			y1 = math.Max(y1, p.Y)
		}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center returns the center point.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Area returns the area, or 0 for an empty rectangle.
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.W * r.H
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return !(r.W > 0 && r.H > 0)
}

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// ContainsRect reports whether o lies entirely inside r (edges inclusive).
// An empty o is contained only if its origin is.
func (r Rect) ContainsRect(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// Intersects reports whether r and o overlap. Touching edges count.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.Right() && o.X <= r.Right() && r.Y <= o.Bottom() && o.Y <= r.Bottom()
}

// Intersect returns the overlap of r and o; the result is empty if they do
// not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.Right(), o.Right())
	y1 := math.Min(r.Bottom(), o.Bottom())
	if x1 < x0 || y1 < y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	x0 := math.Min(r.X, o.X)
	y0 := math.Min(r.Y, o.Y)
	x1 := math.Max(r.Right(), o.Right())
	y1 := math.Max(r.Bottom(), o.Bottom())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Pad grows the rectangle by d on every side.
func (r Rect) Pad(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, W: r.W + 2*d, H: r.H + 2*d}
}

// Corners returns the four corners clockwise from the top-left.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{X: r.X, Y: r.Y},
		{X: r.Right(), Y: r.Y},
		{X: r.Right(), Y: r.Bottom()},
		{X: r.X, Y: r.Bottom()},
	}
}
