package viewport

import (
	"fmt"
	"math"

	"github.com/pathoview/viewport/cropcache"
	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/objects"
	"github.com/pathoview/viewport/policy"
	"github.com/pathoview/viewport/roi"
	"github.com/pathoview/viewport/surface"
)

// flattenTolerance is the curve flattening tolerance in screen pixels.
const flattenTolerance = 0.25

// cullMargin pads the visible region, in screen pixels, so that strokes
// and markers of objects just outside it are still drawn.
const cullMargin = 16

// frame holds per-Paint overlay state.
type frame struct {
	dst  surface.Surface
	m    geom.Matrix
	ds   float64
	clip geom.Rect // visible image region
}

// layer orders overlays; lower layers are drawn first.
func layer(o *objects.PathObject) int {
	switch o.Kind {
	case objects.KindTMACore:
		return 0
	case objects.KindAnnotation:
		return 2
	default:
		return 1
	}
}

func (r *Renderer) paintObjects(dst surface.Surface, m geom.Matrix, res *PaintResult) {
	visible, err := r.view.VisibleBounds()
	if err != nil {
		return
	}
	f := &frame{dst: dst, m: m, ds: r.view.State().Downsample, clip: visible}
	objs := r.hierarchy.ObjectsInRegion(r.plane, visible.Pad(cullMargin*f.ds))

	var layers [3][]*objects.PathObject
	var selected []*objects.PathObject
	for _, o := range objs {
		if r.selection.Contains(o) {
			selected = append(selected, o)
			continue
		}
		l := layer(o)
		layers[l] = append(layers[l], o)
	}
	for _, group := range layers {
		for _, o := range group {
			r.paintObject(f, o, false, res)
		}
	}
	for _, o := range selected {
		r.paintObject(f, o, true, res)
	}
}

// paintObject paints one object. A failure is logged and counted, and
// never stops the frame.
func (r *Renderer) paintObject(f *frame, o *objects.PathObject, selected bool, res *PaintResult) {
	drawn, err := r.tryPaint(f, o, selected)
	switch {
	case err != nil:
		res.ObjectsSkipped++
		Logger().Warn("object skipped", "object", o.String(), "err", err)
	case drawn:
		res.ObjectsDrawn++
	}
}

func (r *Renderer) tryPaint(f *frame, o *objects.PathObject, selected bool) (drawn bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			drawn, err = false, fmt.Errorf("viewport: painting failed: %v", v)
		}
	}()

	d := r.policy.Resolve(o, &r.settings, selected, f.ds)
	if !d.Draw {
		return false, nil
	}
	region := o.ROI()
	switch d.Geometry {
	case policy.GeometryBounds:
		f.fillBounds(region, d)
	case policy.GeometrySymbol:
		f.drawShape(d.Symbol.Shape(region.Centroid(), d.SymbolSize), d)
	case policy.GeometryNucleus:
		r.drawRegion(f, o.Nucleus, d)
	case policy.GeometryBoth:
		r.drawRegion(f, region, d)
		r.drawRegion(f, o.Nucleus, d)
	default:
		r.drawRegion(f, region, d)
	}
	return true, nil
}

// drawRegion draws the true or simplified geometry of a region. Complex
// areas are cropped to the visible region first; the crop extends past
// the stroke's reach so its artificial edges are never drawn.
func (r *Renderer) drawRegion(f *frame, region *roi.Region, d policy.Decision) {
	if region == nil || region.IsEmpty() {
		return
	}
	if region.Kind() == roi.KindPoints {
		f.drawPoints(region, d)
		return
	}
	if cropcache.Applies(region) {
		region = r.crops.CroppedFor(region, f.clip.Pad(max(cullMargin*f.ds, d.StrokeWidth)))
		if region.IsEmpty() {
			return
		}
	}
	shape := r.shapes.ShapeFor(region, f.ds)
	defer r.shapes.Release(shape)

	rings := f.drawShape(shape, d)
	if d.Arrowheads != objects.ArrowNone && !shape.Closed() && len(rings) > 0 {
		f.drawArrowheads(rings[0], d)
	}
}

// drawShape fills and strokes shape and returns its device rings.
func (f *frame) drawShape(shape geom.Shape, d policy.Decision) [][]geom.Point {
	rings := shape.AppendRings(nil, f.m, flattenTolerance)
	if len(rings) == 0 {
		return nil
	}
	if d.HasFill && shape.Closed() {
		f.dst.Fill(rings, d.Fill)
	}
	if d.HasStroke {
		f.dst.Stroke(rings, shape.Closed(), f.strokeStyle(d))
	}
	return rings
}

func (f *frame) strokeStyle(d policy.Decision) surface.StrokeStyle {
	style := surface.StrokeStyle{Color: d.Stroke, Width: d.StrokeWidth / f.ds}
	if len(d.Dash) > 0 {
		style.Dash = make([]float64, len(d.Dash))
		for i, l := range d.Dash {
			style.Dash[i] = l / f.ds
		}
	}
	return style
}

// fillBounds draws the fast-path rectangle, never smaller than a pixel.
func (f *frame) fillBounds(region *roi.Region, d policy.Decision) {
	b := f.m.TransformRect(region.Bounds())
	if b.W < 1 {
		b.X -= (1 - b.W) / 2
		b.W = 1
	}
	if b.H < 1 {
		b.Y -= (1 - b.H) / 2
		b.H = 1
	}
	f.dst.FillRect(b, d.Fill)
}

// drawPoints draws every point of a points region as a disc.
func (f *frame) drawPoints(region *roi.Region, d policy.Decision) {
	radius := d.PointRadius / f.ds
	var disc geom.EllipseShape
	style := f.strokeStyle(d)
	style.Width = 1
	for _, p := range region.Points() {
		c := f.m.TransformPoint(p)
		disc.Reframe(geom.R(c.X-radius, c.Y-radius, 2*radius, 2*radius))
		rings := disc.AppendRings(nil, geom.Identity(), flattenTolerance)
		if d.HasFill {
			f.dst.Fill(rings, d.Fill)
		}
		if d.HasStroke {
			f.dst.Stroke(rings, true, style)
		}
	}
}

// drawArrowheads adds filled arrowheads to the ends of a device-space
// polyline.
func (f *frame) drawArrowheads(line []geom.Point, d policy.Decision) {
	n := len(line)
	if n < 2 {
		return
	}
	size := math.Max(6, 4*d.StrokeWidth/f.ds)
	if d.Arrowheads == objects.ArrowEnd || d.Arrowheads == objects.ArrowBoth {
		f.arrowhead(line[n-2], line[n-1], size, d)
	}
	if d.Arrowheads == objects.ArrowStart || d.Arrowheads == objects.ArrowBoth {
		f.arrowhead(line[1], line[0], size, d)
	}
}

// arrowhead draws a triangle with its tip at tip, pointing away from from.
func (f *frame) arrowhead(from, tip geom.Point, size float64, d policy.Decision) {
	dir := tip.Sub(from).Normalize()
	if dir == (geom.Point{}) {
		return
	}
	base := tip.Sub(dir.Mul(size))
	side := dir.Perp().Mul(size / 2)
	f.dst.Fill([][]geom.Point{{tip, base.Add(side), base.Sub(side)}}, d.Stroke)
}
