package roi

import (
	"testing"

	"github.com/pathoview/viewport/geom"
)

func TestRegionKinds(t *testing.T) {
	tri := []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	tests := []struct {
		name      string
		r         *Region
		kind      Kind
		primitive bool
		closed    bool
		vertices  int
		segments  int
	}{
		{"rectangle", NewRectangle(1, 2, 3, 4, DefaultPlane), KindRectangle, true, true, 4, 4},
		{"ellipse", NewEllipse(1, 2, 3, 4, DefaultPlane), KindEllipse, true, true, 4, 4},
		{"line", NewLine(0, 0, 5, 5, DefaultPlane), KindLine, true, false, 2, 1},
		{"polyline", NewPolyline(tri, DefaultPlane), KindPolyline, false, false, 3, 2},
		{"polygon", NewPolygon(tri, DefaultPlane), KindPolygon, false, true, 3, 3},
		{"area", NewArea([][]geom.Point{tri, tri}, DefaultPlane), KindArea, false, true, 6, 6},
		{"points", NewPoints(tri, DefaultPlane), KindPoints, false, false, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.r.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", tt.r.Kind(), tt.kind)
			}
			if tt.r.IsPrimitive() != tt.primitive {
				t.Errorf("IsPrimitive() = %v, want %v", tt.r.IsPrimitive(), tt.primitive)
			}
			if tt.r.IsClosed() != tt.closed {
				t.Errorf("IsClosed() = %v, want %v", tt.r.IsClosed(), tt.closed)
			}
			if tt.r.VertexCount() != tt.vertices {
				t.Errorf("VertexCount() = %d, want %d", tt.r.VertexCount(), tt.vertices)
			}
			if tt.r.SegmentCount() != tt.segments {
				t.Errorf("SegmentCount() = %d, want %d", tt.r.SegmentCount(), tt.segments)
			}
			if got := tt.r.Shape().Bounds(); got != tt.r.Bounds() {
				t.Errorf("Shape().Bounds() = %+v, want %+v", got, tt.r.Bounds())
			}
		})
	}
}

func TestRegionIDsUnique(t *testing.T) {
	a := NewRectangle(0, 0, 1, 1, DefaultPlane)
	b := NewRectangle(0, 0, 1, 1, DefaultPlane)
	if a.ID() == b.ID() {
		t.Fatalf("regions share ID %d", a.ID())
	}
}

func TestRegionCopiesInput(t *testing.T) {
	pts := []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}
	r := NewPolygon(pts, DefaultPlane)
	pts[0] = geom.Pt(-100, -100)
	if got := r.Rings()[0][0]; got != geom.Pt(0, 0) {
		t.Fatalf("region mutated through caller slice: %+v", got)
	}
	if r.Bounds() != geom.R(0, 0, 10, 10) {
		t.Fatalf("Bounds() = %+v", r.Bounds())
	}
}

func TestRegionCentroid(t *testing.T) {
	sq := NewPolygon([]geom.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}, DefaultPlane)
	if c := sq.Centroid(); !c.ApproxEqual(geom.Pt(2, 2), 1e-9) {
		t.Errorf("polygon centroid = %+v", c)
	}
	pts := NewPoints([]geom.Point{{X: 0, Y: 0}, {X: 2, Y: 4}}, DefaultPlane)
	if c := pts.Centroid(); c != geom.Pt(1, 2) {
		t.Errorf("points centroid = %+v", c)
	}
	if len(pts.Points()) != 2 || sq.Points() != nil {
		t.Error("Points() should only return vertices for point sets")
	}
}
