// Package objects holds the annotated objects drawn over the image: their
// kinds, classifications, display overrides and the hierarchy that stores
// them.
package objects

import (
	"fmt"
	"image/color"
	"sync/atomic"

	"github.com/pathoview/viewport/roi"
)

// Kind is the role of an object in the hierarchy.
type Kind uint8

const (
	KindAnnotation Kind = iota
	KindDetection
	KindCell
	KindTile
	KindTMACore
)

func (k Kind) String() string {
	switch k {
	case KindAnnotation:
		return "annotation"
	case KindDetection:
		return "detection"
	case KindCell:
		return "cell"
	case KindTile:
		return "tile"
	case KindTMACore:
		return "tma-core"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Arrowheads selects which ends of a line get an arrowhead.
type Arrowheads uint8

const (
	ArrowNone Arrowheads = iota
	ArrowStart
	ArrowEnd
	ArrowBoth
)

// ParseArrowheads parses the "<", ">" and "<>" metadata values.
func ParseArrowheads(s string) Arrowheads {
	switch s {
	case "<":
		return ArrowStart
	case ">":
		return ArrowEnd
	case "<>":
		return ArrowBoth
	}
	return ArrowNone
}

// Style holds per-object display overrides taken from object metadata.
type Style struct {
	Color          color.RGBA
	HasColor       bool
	FillOpacity    float64
	HasFillOpacity bool
	Arrowheads     Arrowheads
}

// PathObject is one object drawn over the image.
//
// The ROI and class may be replaced while the object is being painted, so
// they are read through accessors. Other fields are set before the object
// is added to a Hierarchy and not changed afterwards.
type PathObject struct {
	Kind         Kind
	Name         string
	Nucleus      *roi.Region // cells only
	Parent       *PathObject
	Measurements map[string]float64
	Style        Style

	region atomic.Pointer[roi.Region]
	class  atomic.Pointer[Class]
}

// New creates an object of kind with the given geometry and class.
// class may be nil.
func New(kind Kind, r *roi.Region, class *Class) *PathObject {
	o := &PathObject{Kind: kind}
	o.region.Store(r)
	o.class.Store(class)
	return o
}

// NewCell creates a cell with a boundary and a nucleus.
func NewCell(boundary, nucleus *roi.Region, class *Class) *PathObject {
	o := New(KindCell, boundary, class)
	o.Nucleus = nucleus
	return o
}

// ROI returns the object's main geometry.
func (o *PathObject) ROI() *roi.Region { return o.region.Load() }

// Class returns the classification, or nil.
func (o *PathObject) Class() *Class { return o.class.Load() }

// IsDetection reports whether the object is a detection, cell or tile.
func (o *PathObject) IsDetection() bool {
	switch o.Kind {
	case KindDetection, KindCell, KindTile:
		return true
	}
	return false
}

// IsNested reports whether the object has a parent object.
func (o *PathObject) IsNested() bool { return o.Parent != nil }

// NestedInDetection reports whether the parent is itself a detection.
func (o *PathObject) NestedInDetection() bool {
	return o.Parent != nil && o.Parent.IsDetection()
}

// Measurement returns a named measurement value.
func (o *PathObject) Measurement(name string) (float64, bool) {
	v, ok := o.Measurements[name]
	return v, ok
}

func (o *PathObject) String() string {
	name := o.Name
	if name == "" {
		name = o.Kind.String()
	}
	if c := o.Class(); c != nil {
		return fmt.Sprintf("%s (%s)", name, c)
	}
	return name
}
