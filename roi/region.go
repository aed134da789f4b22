// Package roi defines immutable regions of interest in image-pixel space.
//
// A Region never changes after construction. Caches throughout the
// renderer key their entries on Region.ID and rely on that immutability:
// an entry computed for a region is valid for as long as the region lives.
// To "edit" a region, build a new one and discard the old.
package roi

import (
	"fmt"
	"sync/atomic"

	"github.com/pathoview/viewport/geom"
)

// Kind identifies the geometric form of a Region.
type Kind uint8

const (
	KindRectangle Kind = iota
	KindEllipse
	KindLine
	KindPolyline
	KindPolygon
	KindArea
	KindPoints
)

var kindNames = [...]string{
	KindRectangle: "rectangle",
	KindEllipse:   "ellipse",
	KindLine:      "line",
	KindPolyline:  "polyline",
	KindPolygon:   "polygon",
	KindArea:      "area",
	KindPoints:    "points",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Plane locates a region within a multi-dimensional image.
type Plane struct {
	Z, T int
}

// DefaultPlane is the first z-slice of the first time point.
var DefaultPlane = Plane{}

var nextID atomic.Uint64

// Region is an immutable geometric description in image-pixel coordinates.
type Region struct {
	id     uint64
	kind   Kind
	plane  Plane
	bounds geom.Rect
	rings  [][]geom.Point

	vertices int
	segments int
}

func newRegion(kind Kind, plane Plane, rings [][]geom.Point) *Region {
	r := &Region{
		id:    nextID.Add(1),
		kind:  kind,
		plane: plane,
		rings: rings,
	}
	r.bounds = geom.BoundsOf(rings)
	r.vertices = geom.CountVertices(rings)
	for _, ring := range rings {
		switch {
		case kind == KindPoints:
		case kind.closed():
			r.segments += len(ring)
		case len(ring) > 1:
			r.segments += len(ring) - 1
		}
	}
	return r
}

// NewRectangle creates an axis-aligned rectangle.
func NewRectangle(x, y, w, h float64, plane Plane) *Region {
	rect := geom.R(x, y, w, h)
	c := rect.Corners()
	return newRegion(KindRectangle, plane, [][]geom.Point{c[:]})
}

// NewEllipse creates an axis-aligned ellipse inscribed in the given box.
func NewEllipse(x, y, w, h float64, plane Plane) *Region {
	r := NewRectangle(x, y, w, h, plane)
	r.kind = KindEllipse
	return r
}

// NewLine creates a straight line segment.
func NewLine(x0, y0, x1, y1 float64, plane Plane) *Region {
	return newRegion(KindLine, plane, [][]geom.Point{{{X: x0, Y: y0}, {X: x1, Y: y1}}})
}

// NewPolyline creates an open polyline. The points are copied.
func NewPolyline(points []geom.Point, plane Plane) *Region {
	return newRegion(KindPolyline, plane, [][]geom.Point{clone(points)})
}

// NewPolygon creates a simple closed polygon. The points are copied.
func NewPolygon(points []geom.Point, plane Plane) *Region {
	return newRegion(KindPolygon, plane, [][]geom.Point{clone(points)})
}

// NewArea creates a general area from one or more closed rings. Holes are
// rings wound opposite to their enclosing ring. The rings are copied.
func NewArea(rings [][]geom.Point, plane Plane) *Region {
	cp := make([][]geom.Point, 0, len(rings))
	for _, r := range rings {
		cp = append(cp, clone(r))
	}
	return newRegion(KindArea, plane, cp)
}

// NewPoints creates a point set. The points are copied.
func NewPoints(points []geom.Point, plane Plane) *Region {
	return newRegion(KindPoints, plane, [][]geom.Point{clone(points)})
}

func clone(points []geom.Point) []geom.Point {
	return append([]geom.Point(nil), points...)
}

func (k Kind) closed() bool {
	switch k {
	case KindRectangle, KindEllipse, KindPolygon, KindArea:
		return true
	}
	return false
}

// ID returns a process-unique identifier. Caches use it as their key.
func (r *Region) ID() uint64 { return r.id }

// Kind returns the geometric form.
func (r *Region) Kind() Kind { return r.kind }

// Plane returns the image plane the region belongs to.
func (r *Region) Plane() Plane { return r.plane }

// Bounds returns the bounding box in image pixels.
func (r *Region) Bounds() geom.Rect { return r.bounds }

// VertexCount returns the number of stored vertices.
func (r *Region) VertexCount() int { return r.vertices }

// SegmentCount returns the number of edges in the outline.
func (r *Region) SegmentCount() int { return r.segments }

// Rings returns the region's vertices. The slices are shared with the
// region and must not be modified.
func (r *Region) Rings() [][]geom.Point { return r.rings }

// Points returns the vertices of a point set, or nil for other kinds.
func (r *Region) Points() []geom.Point {
	if r.kind != KindPoints || len(r.rings) == 0 {
		return nil
	}
	return r.rings[0]
}

// IsPrimitive reports whether the region is a rectangle, ellipse or line.
func (r *Region) IsPrimitive() bool {
	switch r.kind {
	case KindRectangle, KindEllipse, KindLine:
		return true
	}
	return false
}

// IsArea reports whether the region is a general multi-ring area.
func (r *Region) IsArea() bool { return r.kind == KindArea }

// IsClosed reports whether the region outline encloses an area.
func (r *Region) IsClosed() bool { return r.kind.closed() }

// IsEmpty reports whether the region has no vertices.
func (r *Region) IsEmpty() bool { return r.vertices == 0 }

// Centroid returns the area-weighted centroid for closed shapes, and the
// mean vertex position otherwise.
func (r *Region) Centroid() geom.Point {
	switch r.kind {
	case KindRectangle, KindEllipse:
		return r.bounds.Center()
	case KindPolygon, KindArea:
		return geom.PolygonCentroid(r.rings)
	}
	var sum geom.Point
	if r.vertices == 0 {
		return sum
	}
	for _, ring := range r.rings {
		for _, p := range ring {
			sum = sum.Add(p)
		}
	}
	return sum.Mul(1 / float64(r.vertices))
}

// Shape returns the true, unsimplified geometry. Polygon-based shapes
// share the region's vertex storage.
func (r *Region) Shape() geom.Shape {
	switch r.kind {
	case KindRectangle:
		return &geom.RectShape{R: r.bounds}
	case KindEllipse:
		return &geom.EllipseShape{R: r.bounds}
	case KindLine:
		return &geom.LineShape{P0: r.rings[0][0], P1: r.rings[0][1]}
	case KindPolyline:
		return geom.NewPolyShape(r.rings, true)
	case KindPoints:
		return geom.NewPolyShape(r.rings, true)
	default:
		return geom.NewPolyShape(r.rings, false)
	}
}

func (r *Region) String() string {
	return fmt.Sprintf("%s#%d[%d vertices, z=%d t=%d]", r.kind, r.id, r.vertices, r.plane.Z, r.plane.T)
}
