package geom

import "math"

// Shape is a renderable 2D shape in image space.
//
// Shapes returned by the renderer's caches are loans: callers may read and
// flatten them but must never modify them.
type Shape interface {
	// Bounds returns the axis-aligned bounding box.
	Bounds() Rect

	// Closed reports whether the outline is closed (fillable).
	Closed() bool

	// VertexCount returns the number of stored vertices. Curved primitives
	// report the vertices of their control frame.
	VertexCount() int

	// AppendRings flattens the shape through m and appends the resulting
	// rings to dst. tolerance is the maximum deviation from curves, measured
	// after transformation.
	AppendRings(dst [][]Point, m Matrix, tolerance float64) [][]Point
}

// RectShape is an axis-aligned rectangle.
type RectShape struct {
	R Rect
}

// Reframe moves the rectangle to r.
func (s *RectShape) Reframe(r Rect) { s.R = r }

func (s *RectShape) Bounds() Rect     { return s.R }
func (s *RectShape) Closed() bool     { return true }
func (s *RectShape) VertexCount() int { return 4 }

func (s *RectShape) AppendRings(dst [][]Point, m Matrix, _ float64) [][]Point {
	c := s.R.Corners()
	ring := make([]Point, 4)
	for i := range c {
		ring[i] = m.TransformPoint(c[i])
	}
	return append(dst, ring)
}

// EllipseShape is an axis-aligned ellipse inscribed in R.
type EllipseShape struct {
	R Rect
}

// Reframe moves the ellipse so it is inscribed in r.
func (s *EllipseShape) Reframe(r Rect) { s.R = r }

func (s *EllipseShape) Bounds() Rect     { return s.R }
func (s *EllipseShape) Closed() bool     { return true }
func (s *EllipseShape) VertexCount() int { return 4 }

// Segments returns the number of line segments needed to keep the
// flattened outline within tolerance of the ellipse after applying m.
func (s *EllipseShape) Segments(m Matrix, tolerance float64) int {
	r := math.Max(s.R.W, s.R.H) / 2 * m.ScaleFactor()
	if tolerance <= 0 {
		tolerance = 0.25
	}
	if r <= tolerance {
		return 8
	}
	theta := 2 * math.Acos(1-tolerance/r)
	n := int(math.Ceil(2 * math.Pi / theta))
	return min(max(n, 8), 1024)
}

func (s *EllipseShape) AppendRings(dst [][]Point, m Matrix, tolerance float64) [][]Point {
	n := s.Segments(m, tolerance)
	c := s.R.Center()
	rx, ry := s.R.W/2, s.R.H/2
	ring := make([]Point, n)
	for i := range n {
		a := 2 * math.Pi * float64(i) / float64(n)
		ring[i] = m.TransformPoint(Point{X: c.X + rx*math.Cos(a), Y: c.Y + ry*math.Sin(a)})
	}
	return append(dst, ring)
}

// LineShape is a single straight segment.
type LineShape struct {
	P0, P1 Point
}

// Reframe moves the segment end points.
func (s *LineShape) Reframe(p0, p1 Point) {
	s.P0, s.P1 = p0, p1
}

func (s *LineShape) Bounds() Rect     { return RectFromPoints(s.P0, s.P1) }
func (s *LineShape) Closed() bool     { return false }
func (s *LineShape) VertexCount() int { return 2 }

func (s *LineShape) AppendRings(dst [][]Point, m Matrix, _ float64) [][]Point {
	return append(dst, []Point{m.TransformPoint(s.P0), m.TransformPoint(s.P1)})
}

// PolyShape is a set of straight-edged rings: a polygon, a multi-polygon
// with holes, or (when Open is set) a polyline.
type PolyShape struct {
	Rings [][]Point
	Open  bool

	bounds      Rect
	boundsValid bool
}

// NewPolyShape creates a PolyShape over rings without copying them.
func NewPolyShape(rings [][]Point, open bool) *PolyShape {
	return &PolyShape{Rings: rings, Open: open, bounds: BoundsOf(rings), boundsValid: true}
}

func (s *PolyShape) Bounds() Rect {
	if s.boundsValid {
		return s.bounds
	}
	return BoundsOf(s.Rings)
}

func (s *PolyShape) Closed() bool     { return !s.Open }
func (s *PolyShape) VertexCount() int { return CountVertices(s.Rings) }

func (s *PolyShape) AppendRings(dst [][]Point, m Matrix, _ float64) [][]Point {
	if m.IsIdentity() {
		return append(dst, s.Rings...)
	}
	for _, ring := range s.Rings {
		out := make([]Point, len(ring))
		for i, p := range ring {
			out[i] = m.TransformPoint(p)
		}
		dst = append(dst, out)
	}
	return dst
}
