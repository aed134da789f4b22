// Package policy decides how each object is painted: whether at all, with
// which colors and widths, and whether as its true geometry, a symbol or a
// plain bounding rectangle.
//
// Resolve is a pure function of its inputs and safe for concurrent use.
package policy

import (
	"fmt"
	"image/color"

	"github.com/pathoview/viewport/display"
	"github.com/pathoview/viewport/objects"
	"github.com/pathoview/viewport/roi"
)

const (
	// SelectedWidthFactor widens the stroke of selected objects when no
	// selection color is in use.
	SelectedWidthFactor = 2.0

	// FastPathDownsample and FastPathFootprint gate the bounding-rectangle
	// fast path: above this downsample, objects smaller than this many
	// screen pixels are drawn as filled rectangles.
	FastPathDownsample = 4.0
	FastPathFootprint  = 3.0

	// BaseFillAlpha is the fill opacity when the object sets none.
	BaseFillAlpha = 0.25

	// SymbolSize is the centroid marker size in screen pixels.
	SymbolSize = 4.0

	// SelectionDash is the selection dash length in screen pixels.
	SelectionDash = 5.0
)

// Default colors for objects without a class or style color.
var (
	DefaultAnnotationColor = color.RGBA{R: 255, A: 255}
	DefaultDetectionColor  = color.RGBA{R: 255, A: 255}
	DefaultTMAColor        = color.RGBA{R: 20, G: 20, B: 180, A: 255}
	DefaultTileColor       = color.RGBA{R: 80, G: 80, B: 80, A: 255}
)

// Geometry selects what the renderer should draw for an object.
type Geometry uint8

const (
	GeometryROI Geometry = iota
	GeometryNucleus
	GeometryBoth
	GeometrySymbol
	GeometryBounds
)

func (g Geometry) String() string {
	switch g {
	case GeometryROI:
		return "roi"
	case GeometryNucleus:
		return "nucleus"
	case GeometryBoth:
		return "both"
	case GeometrySymbol:
		return "symbol"
	case GeometryBounds:
		return "bounds"
	}
	return fmt.Sprintf("Geometry(%d)", uint8(g))
}

// Decision is how one object is painted in one frame. Lengths are in image
// pixels; the renderer converts them with the current downsample.
type Decision struct {
	Draw     bool
	Geometry Geometry

	Stroke    color.NRGBA
	HasStroke bool
	Fill      color.NRGBA
	HasFill   bool

	StrokeWidth float64
	Dash        []float64

	Arrowheads  objects.Arrowheads
	Symbol      Symbol
	SymbolSize  float64
	PointRadius float64
}

// Policy resolves paint decisions. The zero value is ready to use.
type Policy struct {
	// Hide, if set, hides objects for which it returns true, in addition
	// to the kind and class rules of the display settings.
	Hide func(*objects.PathObject) bool
}

// Resolve decides how o is painted at downsample.
func (p Policy) Resolve(o *objects.PathObject, s *display.Settings, selected bool, downsample float64) Decision {
	r := o.ROI()
	if r == nil {
		return Decision{}
	}
	if !selected && p.hidden(o, s) {
		return Decision{}
	}

	d := Decision{Draw: true, HasStroke: true, Arrowheads: o.Style.Arrowheads}

	base, mapped := objectColor(o, s)
	if selected && s.UseSelectionColor {
		base, mapped = s.SelectionColor.RGBA, false
	}
	d.Stroke = withAlpha(base, s.Opacity)

	d.StrokeWidth = strokeWidth(o, s, downsample)
	if selected {
		if s.UseSelectionColor {
			d.Dash = []float64{SelectionDash * downsample, SelectionDash * downsample}
		} else {
			d.StrokeWidth *= SelectedWidthFactor
		}
	}

	if fillEnabled(o, r, s) {
		alpha := BaseFillAlpha
		if o.Style.HasFillOpacity {
			alpha = o.Style.FillOpacity
		}
		if o.IsNested() {
			alpha /= 2
		}
		if mapped {
			alpha /= 2
		}
		d.Fill = withAlpha(base, alpha*s.Opacity)
		d.HasFill = d.Fill.A > 0
	}

	if r.Kind() == roi.KindPoints {
		d.PointRadius = s.PointRadius * downsample
		d.Fill, d.HasFill = d.Stroke, true
		return d
	}

	// Centroid mode replaces outlines of dense detections with markers,
	// whatever their size on screen.
	if s.CellDisplay == display.CellCentroids && (o.Kind == objects.KindDetection || o.Kind == objects.KindCell) {
		d.Geometry = GeometrySymbol
		d.Symbol = SymbolForParts(o.Class().NumParts())
		d.SymbolSize = SymbolSize * downsample
		d.Dash = nil
		if d.Symbol.Fillable() {
			d.Fill, d.HasFill = d.Stroke, true
		}
		return d
	}

	if downsample > FastPathDownsample {
		b := r.Bounds()
		if max(b.W, b.H)/downsample < FastPathFootprint {
			d.Geometry = GeometryBounds
			d.Fill, d.HasFill = d.Stroke, true
			d.HasStroke = false
			d.Dash = nil
			return d
		}
	}

	if o.Kind == objects.KindCell && o.Nucleus != nil {
		switch s.CellDisplay {
		case display.CellNuclei:
			d.Geometry = GeometryNucleus
		case display.CellBoth:
			d.Geometry = GeometryBoth
		}
	}
	return d
}

func (p Policy) hidden(o *objects.PathObject, s *display.Settings) bool {
	switch o.Kind {
	case objects.KindAnnotation:
		if !s.ShowAnnotations {
			return true
		}
	case objects.KindTMACore:
		if !s.ShowTMAGrid {
			return true
		}
	default:
		if !s.ShowDetections {
			return true
		}
	}
	if c := o.Class(); c != nil {
		base := c
		for base.Parent() != nil {
			base = base.Parent()
		}
		if s.ClassHidden(c.String(), base.Name()) {
			return true
		}
	}
	return p.Hide != nil && p.Hide(o)
}

// objectColor returns the outline color of o and whether it came from the
// measurement mapper.
func objectColor(o *objects.PathObject, s *display.Settings) (color.RGBA, bool) {
	if s.Mapper.Valid() && o.IsDetection() {
		if v, ok := o.Measurement(s.Mapper.Measurement); ok {
			if c, ok := s.Mapper.ColorFor(v); ok {
				return c, true
			}
		}
	}
	if o.Style.HasColor {
		return o.Style.Color, false
	}
	if c := o.Class(); c != nil {
		return c.Color(), false
	}
	switch o.Kind {
	case objects.KindDetection, objects.KindCell:
		return DefaultDetectionColor, false
	case objects.KindTile:
		return DefaultTileColor, false
	case objects.KindTMACore:
		return DefaultTMAColor, false
	}
	return DefaultAnnotationColor, false
}

// strokeWidth returns the stroke width in image pixels. Annotation widths
// are screen pixels, scaled so lines keep their on-screen width.
func strokeWidth(o *objects.PathObject, s *display.Settings, downsample float64) float64 {
	if !o.IsDetection() {
		return s.AnnotationStrokeWidth * downsample
	}
	w := s.DetectionStrokeWidth
	if o.NestedInDetection() {
		w /= 2
	}
	return w
}

func fillEnabled(o *objects.PathObject, r *roi.Region, s *display.Settings) bool {
	if !r.IsClosed() && r.Kind() != roi.KindPoints {
		return false
	}
	c := o.Class()
	if c.IsRegion() {
		return false
	}
	switch o.Kind {
	case objects.KindAnnotation:
		return s.FillAnnotations
	case objects.KindTile:
		return c != nil && s.FillDetections
	case objects.KindTMACore:
		return false
	default:
		return s.FillDetections
	}
}

// withAlpha scales the opacity of an opaque color.
func withAlpha(c color.RGBA, alpha float64) color.NRGBA {
	a := min(max(alpha*float64(c.A), 0), 255)
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(a + 0.5)}
}
