package objects

import (
	"image/color"
	"reflect"
	"testing"

	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/roi"
)

var red = color.RGBA{R: 255, A: 255}

func TestClassParts(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{"Tumor", []string{"Tumor"}},
		{"Tumor: Positive", []string{"Tumor", "Positive"}},
		{"A: B: C: D: E", []string{"A", "B", "C", "D", "E"}},
	}
	for _, tt := range tests {
		c := ParseClass(tt.name, red)
		if got := c.Parts(); !reflect.DeepEqual(got, tt.parts) {
			t.Errorf("ParseClass(%q).Parts() = %v, want %v", tt.name, got, tt.parts)
		}
		if c.NumParts() != len(tt.parts) {
			t.Errorf("NumParts = %d, want %d", c.NumParts(), len(tt.parts))
		}
		if c.String() != tt.name {
			t.Errorf("String() = %q, want %q", c.String(), tt.name)
		}
	}

	var none *Class
	if none.NumParts() != 0 || none.String() != "" || none.IsRegion() {
		t.Error("nil class should have no parts")
	}
}

func TestClassIsRegion(t *testing.T) {
	if !NewClass("Region*", red).IsRegion() {
		t.Error("Region* should be a region class")
	}
	if !ParseClass("Region: Tissue", red).IsRegion() {
		t.Error("class derived from Region should be a region class")
	}
	if NewClass("Stroma", red).IsRegion() {
		t.Error("Stroma is not a region class")
	}
}

func TestNesting(t *testing.T) {
	r := roi.NewRectangle(0, 0, 10, 10, roi.DefaultPlane)
	tile := New(KindTile, r, nil)
	cell := NewCell(r, r, nil)
	cell.Parent = tile
	ann := New(KindAnnotation, r, nil)
	child := New(KindAnnotation, r, nil)
	child.Parent = ann

	if !cell.NestedInDetection() {
		t.Error("cell inside tile should be nested in a detection")
	}
	if child.NestedInDetection() || !child.IsNested() {
		t.Error("annotation child: nested, but not in a detection")
	}
	if ann.IsDetection() || !tile.IsDetection() || !cell.IsDetection() {
		t.Error("IsDetection mismatch")
	}
}

func TestHierarchyObjectsInRegion(t *testing.T) {
	h := NewHierarchy()
	a := New(KindAnnotation, roi.NewRectangle(0, 0, 100, 100, roi.DefaultPlane), nil)
	b := New(KindDetection, roi.NewRectangle(500, 500, 10, 10, roi.DefaultPlane), nil)
	c := New(KindDetection, roi.NewRectangle(0, 0, 10, 10, roi.Plane{Z: 1}), nil)
	h.Add(a, b, c, a)

	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}
	got := h.ObjectsInRegion(roi.DefaultPlane, geom.R(50, 50, 10, 10))
	if len(got) != 1 || got[0] != a {
		t.Errorf("ObjectsInRegion = %v, want [a]", got)
	}
	got = h.ObjectsInRegion(roi.DefaultPlane, geom.R(0, 0, 1000, 1000))
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("ObjectsInRegion = %v, want [a b]", got)
	}
	if got := h.ObjectsInRegion(roi.Plane{Z: 1}, geom.R(0, 0, 5, 5)); len(got) != 1 || got[0] != c {
		t.Errorf("plane 1 = %v, want [c]", got)
	}
}

func TestHierarchyEvents(t *testing.T) {
	h := NewHierarchy()
	var events []ChangeEvent
	cancel := h.Subscribe(func(e ChangeEvent) { events = append(events, e) })

	oldROI := roi.NewPolygon([]geom.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 0, Y: 5}}, roi.DefaultPlane)
	o := New(KindAnnotation, oldROI, nil)
	h.Add(o)
	newROI := roi.NewRectangle(0, 0, 1, 1, roi.DefaultPlane)
	h.ReplaceROI(o, newROI)
	h.SetClass(o, NewClass("Tumor", red))
	h.Remove(o)
	h.Clear()
	cancel()
	h.Add(o)

	kinds := make([]ChangeKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	want := []ChangeKind{ChangeAdded, ChangeGeometry, ChangeClassification, ChangeRemoved, ChangeStructure}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("event kinds = %v, want %v", kinds, want)
	}
	if r := events[1].Regions; len(r) != 1 || r[0] != oldROI {
		t.Errorf("geometry event regions = %v, want the old ROI", r)
	}
	if r := events[3].Regions; len(r) != 1 || r[0] != newROI {
		t.Errorf("remove event regions = %v, want the current ROI", r)
	}
	if len(events[4].Regions) != 0 {
		t.Error("structure event should carry no regions")
	}
	if o.ROI() != newROI || o.Class().Name() != "Tumor" {
		t.Error("object not updated")
	}
}

func TestReplaceROIMovesPlane(t *testing.T) {
	h := NewHierarchy()
	o := New(KindAnnotation, roi.NewRectangle(0, 0, 10, 10, roi.DefaultPlane), nil)
	h.Add(o)
	h.ReplaceROI(o, roi.NewRectangle(0, 0, 10, 10, roi.Plane{T: 2}))
	if got := h.ObjectsInRegion(roi.DefaultPlane, geom.R(0, 0, 10, 10)); len(got) != 0 {
		t.Errorf("object still on old plane: %v", got)
	}
	if got := h.ObjectsInRegion(roi.Plane{T: 2}, geom.R(0, 0, 10, 10)); len(got) != 1 {
		t.Errorf("object missing from new plane")
	}
}

func TestSelection(t *testing.T) {
	r := roi.NewRectangle(0, 0, 1, 1, roi.DefaultPlane)
	a, b := New(KindAnnotation, r, nil), New(KindAnnotation, r, nil)
	s := NewSelection()
	changes := 0
	s.Subscribe(func([]*PathObject) { changes++ })

	s.Set(a)
	s.Add(b)
	if !s.Contains(a) || !s.Contains(b) || s.Len() != 2 {
		t.Error("both objects should be selected")
	}
	s.Remove(a)
	if s.Contains(a) {
		t.Error("a should be deselected")
	}
	s.Clear()
	if s.Len() != 0 {
		t.Error("Clear left objects selected")
	}
	if changes != 4 {
		t.Errorf("changes = %d, want 4", changes)
	}

	var nilSel *Selection
	if nilSel.Contains(a) {
		t.Error("nil selection contains nothing")
	}
}

func TestParseArrowheads(t *testing.T) {
	for in, want := range map[string]Arrowheads{"<": ArrowStart, ">": ArrowEnd, "<>": ArrowBoth, "": ArrowNone, "x": ArrowNone} {
		if got := ParseArrowheads(in); got != want {
			t.Errorf("ParseArrowheads(%q) = %v, want %v", in, got, want)
		}
	}
}
