package tiles

import (
	"image"
	"math"

	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/roi"
)

// LevelTolerance lets a level whose downsample is slightly above the
// request still be chosen, so that rounding in a stored pyramid does not
// force the next finer level.
const LevelTolerance = 0.01

// LevelFor returns the index of the coarsest level whose downsample does
// not exceed ds (within LevelTolerance). It returns 0 if every level is
// coarser than ds.
func (m Metadata) LevelFor(ds float64) int {
	best := 0
	for i, l := range m.Levels {
		if l.Downsample <= ds*(1+LevelTolerance) {
			best = i
		}
	}
	return best
}

// Plan returns the tiles of the level chosen for ds that intersect region,
// in row-major order. A rotated region is tested exactly against each tile
// rather than by its bounding box.
func Plan(m Metadata, region geom.Shape, ds float64, plane roi.Plane) []Request {
	level := m.LevelFor(ds)
	lds := m.Levels[level].Downsample
	area := region.Bounds().Intersect(m.Bounds())
	if area.IsEmpty() {
		return nil
	}

	var quad []geom.Point
	if _, ok := region.(*geom.RectShape); !ok {
		rings := region.AppendRings(nil, geom.Identity(), 0)
		if len(rings) == 1 && len(rings[0]) == 4 {
			quad = rings[0]
		}
	}

	tw, th := float64(m.TileWidth)*lds, float64(m.TileHeight)*lds
	tx0, ty0 := int(area.X/tw), int(area.Y/th)
	tx1, ty1 := int(math.Ceil(area.Right()/tw)), int(math.Ceil(area.Bottom()/th))

	var out []Request
	for ty := ty0; ty < ty1; ty++ {
		for tx := tx0; tx < tx1; tx++ {
			r := image.Rect(
				int(math.Round(float64(tx)*tw)), int(math.Round(float64(ty)*th)),
				min(int(math.Round(float64(tx+1)*tw)), m.Width), min(int(math.Round(float64(ty+1)*th)), m.Height),
			)
			if r.Empty() {
				continue
			}
			req := Request{Plane: plane, Level: level, Rect: r}
			if quad != nil && !quadIntersectsRect(quad, req.Bounds()) {
				continue
			}
			out = append(out, req)
		}
	}
	return out
}

// quadIntersectsRect tests a convex quadrilateral against a rectangle with
// the separating axis theorem. The bounding box test covers the
// rectangle's axes; the quad's edge normals cover the rest. Shapes that
// only touch do not intersect.
func quadIntersectsRect(quad []geom.Point, r geom.Rect) bool {
	if !geom.BoundsOf([][]geom.Point{quad}).Intersects(r) {
		return false
	}
	corners := r.Corners()
	for i := range quad {
		a, b := quad[i], quad[(i+1)%len(quad)]
		axis := b.Sub(a).Perp()
		qmin, qmax := project(quad, axis)
		rmin, rmax := project(corners[:], axis)
		if qmax <= rmin || rmax <= qmin {
			return false
		}
	}
	return true
}

func project(pts []geom.Point, axis geom.Point) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		d := p.Dot(axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

// ClipRegion returns the image-space region seen through the viewport
// rectangle clip, given the viewport-to-image matrix inv: a
// *geom.RectShape when inv has no rotation, otherwise a quad.
func ClipRegion(inv geom.Matrix, clip image.Rectangle) geom.Shape {
	c := geom.R(float64(clip.Min.X), float64(clip.Min.Y), float64(clip.Dx()), float64(clip.Dy()))
	if inv.IsAxisAligned() {
		return &geom.RectShape{R: inv.TransformRect(c)}
	}
	corners := c.Corners()
	quad := make([]geom.Point, 4)
	for i, p := range corners {
		quad[i] = inv.TransformPoint(p)
	}
	return geom.NewPolyShape([][]geom.Point{quad}, false)
}
