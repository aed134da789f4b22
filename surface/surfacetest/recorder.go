// Package surfacetest provides a Surface that records draw calls instead
// of producing pixels, for tests of code that paints.
package surfacetest

import (
	"image"
	"image/color"

	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/surface"
)

// OpKind identifies a recorded call.
type OpKind uint8

const (
	OpClear OpKind = iota
	OpFill
	OpStroke
	OpFillRect
	OpDrawImage
)

func (k OpKind) String() string {
	switch k {
	case OpClear:
		return "clear"
	case OpFill:
		return "fill"
	case OpStroke:
		return "stroke"
	case OpFillRect:
		return "fill-rect"
	case OpDrawImage:
		return "draw-image"
	}
	return "unknown"
}

// Op is one recorded call.
type Op struct {
	Kind     OpKind
	Rings    int
	Vertices int
	Bounds   geom.Rect // device-space bounds of the geometry
	Color    color.Color
	Closed   bool
	Style    surface.StrokeStyle
	Image    image.Image
	Matrix   geom.Matrix
	Interp   surface.Interpolation
}

// Recorder implements surface.Surface by appending every call to Ops.
type Recorder struct {
	W, H int
	Ops  []Op
}

// New returns a recorder of the given size.
func New(w, h int) *Recorder { return &Recorder{W: w, H: h} }

func (r *Recorder) Width() int              { return r.W }
func (r *Recorder) Height() int             { return r.H }
func (r *Recorder) Bounds() image.Rectangle { return image.Rect(0, 0, r.W, r.H) }

func (r *Recorder) Clear(c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpClear, Color: c})
}

func (r *Recorder) Fill(rings [][]geom.Point, c color.Color) {
	r.Ops = append(r.Ops, ringsOp(OpFill, rings, c))
}

func (r *Recorder) Stroke(rings [][]geom.Point, closed bool, style surface.StrokeStyle) {
	op := ringsOp(OpStroke, rings, style.Color)
	op.Closed = closed
	op.Style = style
	r.Ops = append(r.Ops, op)
}

func (r *Recorder) FillRect(rect geom.Rect, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpFillRect, Rings: 1, Vertices: 4, Bounds: rect, Color: c})
}

func (r *Recorder) DrawImage(img image.Image, m geom.Matrix, interp surface.Interpolation) {
	b := img.Bounds()
	src := geom.R(float64(b.Min.X), float64(b.Min.Y), float64(b.Dx()), float64(b.Dy()))
	r.Ops = append(r.Ops, Op{Kind: OpDrawImage, Image: img, Matrix: m, Interp: interp, Bounds: m.TransformRect(src)})
}

// Count returns the number of recorded ops of kind k.
func (r *Recorder) Count(k OpKind) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == k {
			n++
		}
	}
	return n
}

// Reset forgets all recorded ops.
func (r *Recorder) Reset() { r.Ops = r.Ops[:0] }

func ringsOp(k OpKind, rings [][]geom.Point, c color.Color) Op {
	return Op{
		Kind:     k,
		Rings:    len(rings),
		Vertices: geom.CountVertices(rings),
		Bounds:   geom.BoundsOf(rings),
		Color:    c,
	}
}

var _ surface.Surface = (*Recorder)(nil)
