package surface

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"

	"github.com/pathoview/viewport/geom"
)

// ImageSurface is a CPU-based surface that renders to an *image.RGBA.
//
// Polygon coverage is computed by golang.org/x/image/vector, which
// accumulates signed area and so implements the non-zero winding rule.
// Strokes are expanded into quads and round joins wound the same way, so
// overlapping pieces never cancel.
//
// ImageSurface is NOT thread-safe.
type ImageSurface struct {
	img    *image.RGBA
	bounds image.Rectangle
	ras    *vector.Rasterizer
}

// NewImageSurface creates a new image surface with the given dimensions.
// Dimensions are clamped to at least 1x1.
func NewImageSurface(width, height int) *ImageSurface {
	width = max(width, 1)
	height = max(height, 1)
	return NewImageSurfaceFromImage(image.NewRGBA(image.Rect(0, 0, width, height)))
}

// NewImageSurfaceFromImage creates a surface that draws into img.
// img.Bounds() defines the surface's coordinate space.
func NewImageSurfaceFromImage(img *image.RGBA) *ImageSurface {
	b := img.Bounds()
	return &ImageSurface{
		img:    img,
		bounds: b,
		ras:    vector.NewRasterizer(b.Dx(), b.Dy()),
	}
}

// Width returns the surface width.
func (s *ImageSurface) Width() int { return s.bounds.Dx() }

// Height returns the surface height.
func (s *ImageSurface) Height() int { return s.bounds.Dy() }

// Bounds returns the surface rectangle.
func (s *ImageSurface) Bounds() image.Rectangle { return s.bounds }

// Image returns the backing image.
func (s *ImageSurface) Image() *image.RGBA { return s.img }

// Sub returns a surface backed by the part of s inside r. The result
// shares pixels and coordinates with s, so drawing outside r is clipped.
// It returns nil when r does not overlap s.
func (s *ImageSurface) Sub(r image.Rectangle) *ImageSurface {
	r = r.Intersect(s.bounds)
	if r.Empty() {
		return nil
	}
	return NewImageSurfaceFromImage(s.img.SubImage(r).(*image.RGBA))
}

// Clear replaces every pixel with c.
func (s *ImageSurface) Clear(c color.Color) {
	draw.Draw(s.img, s.bounds, image.NewUniform(c), image.Point{}, draw.Src)
}

// Fill fills rings with c. Rings with fewer than three vertices or a
// non-finite coordinate are ignored.
func (s *ImageSurface) Fill(rings [][]geom.Point, c color.Color) {
	s.reset()
	drawn := false
	for _, ring := range rings {
		if len(ring) >= 3 && s.polygon(ring) {
			drawn = true
		}
	}
	if drawn {
		s.ras.Draw(s.img, s.bounds, image.NewUniform(c), image.Point{})
	}
}

// FillRect fills r with c.
func (s *ImageSurface) FillRect(r geom.Rect, c color.Color) {
	if r.IsEmpty() {
		return
	}
	c4 := r.Corners()
	s.Fill([][]geom.Point{c4[:]}, c)
}

// Stroke outlines rings with style.
func (s *ImageSurface) Stroke(rings [][]geom.Point, closed bool, style StrokeStyle) {
	if style.Color == nil {
		return
	}
	half := max(style.Width, MinWidth) / 2

	lines := rings
	if d, ok := newDasher(style.Dash, style.DashOffset); ok {
		lines = nil
		for _, ring := range rings {
			lines = d.split(lines, ring, closed)
		}
		closed = false
	}

	s.reset()
	drawn := false
	for _, line := range lines {
		drawn = s.strokeLine(line, closed, half) || drawn
	}
	if drawn {
		s.ras.Draw(s.img, s.bounds, image.NewUniform(style.Color), image.Point{})
	}
}

// DrawImage draws img through m. Integer translations are copied directly;
// everything else goes through the selected transformer.
func (s *ImageSurface) DrawImage(img image.Image, m geom.Matrix, interp Interpolation) {
	if m.A == 1 && m.E == 1 && m.B == 0 && m.D == 0 &&
		m.C == math.Trunc(m.C) && m.F == math.Trunc(m.F) {
		sr := img.Bounds()
		dr := sr.Add(image.Pt(int(m.C), int(m.F)))
		draw.Draw(s.img, dr, img, sr.Min, draw.Over)
		return
	}
	var t draw.Transformer = draw.NearestNeighbor
	if interp == Bilinear {
		t = draw.ApproxBiLinear
	}
	aff := f64.Aff3{m.A, m.B, m.C, m.D, m.E, m.F}
	t.Transform(s.img, aff, img, img.Bounds(), draw.Over, nil)
}

func (s *ImageSurface) reset() {
	s.ras.Reset(s.bounds.Dx(), s.bounds.Dy())
	s.ras.DrawOp = draw.Over
}

// polygon adds a closed ring to the rasterizer in surface-local
// coordinates. It reports false, adding nothing, if a vertex is not
// finite.
func (s *ImageSurface) polygon(ring []geom.Point) bool {
	for _, p := range ring {
		if !p.IsFinite() {
			return false
		}
	}
	ox, oy := float64(s.bounds.Min.X), float64(s.bounds.Min.Y)
	s.ras.MoveTo(float32(ring[0].X-ox), float32(ring[0].Y-oy))
	for _, p := range ring[1:] {
		s.ras.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	s.ras.ClosePath()
	return true
}

// strokeLine adds the outline of one polyline. Each segment becomes a quad
// whose normal lies to the left of its direction, which gives every quad
// the same winding. Joins are discs wound the same way; they are skipped
// for hairlines where they would not be visible.
func (s *ImageSurface) strokeLine(pts []geom.Point, closed bool, half float64) bool {
	n := len(pts)
	if n < 2 {
		return false
	}
	segs := n - 1
	if closed {
		segs = n
	}
	drawn := false
	var quad [4]geom.Point
	for i := 0; i < segs; i++ {
		p, q := pts[i], pts[(i+1)%n]
		d := q.Sub(p)
		l := d.Length()
		if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
			continue
		}
		nrm := geom.Pt(-d.Y, d.X).Mul(half / l)
		quad = [4]geom.Point{p.Add(nrm), q.Add(nrm), q.Sub(nrm), p.Sub(nrm)}
		if s.polygon(quad[:]) {
			drawn = true
		}
	}
	if !drawn || half < 1 {
		return drawn
	}
	first, last := 1, n-1
	if closed {
		first, last = 0, n
	}
	for i := first; i < last; i++ {
		s.disc(pts[i], half)
	}
	return true
}

// disc adds a polygonal disc wound like the stroke quads.
func (s *ImageSurface) disc(c geom.Point, r float64) {
	k := 8
	if r >= 3 {
		k = 16
	}
	var ring [16]geom.Point
	for i := 0; i < k; i++ {
		a := 2 * math.Pi * float64(i) / float64(k)
		ring[i] = geom.Pt(c.X+r*math.Cos(a), c.Y-r*math.Sin(a))
	}
	s.polygon(ring[:k])
}

var _ ImageBacked = (*ImageSurface)(nil)
