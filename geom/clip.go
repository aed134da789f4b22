package geom

// clipEdge identifies one side of the clip rectangle.
type clipEdge uint8

const (
	edgeLeft clipEdge = iota
	edgeRight
	edgeTop
	edgeBottom
)

// ClipRings intersects closed rings with an axis-aligned rectangle using
// Sutherland-Hodgman clipping, one ring at a time. Rings that end up
// with fewer than three vertices are dropped.
//
// Each ring is clipped independently, so the fill of the result under
// either fill rule equals the fill of the input restricted to clip. The
// clipped rings may contain edges running along the clip border.
func ClipRings(rings [][]Point, clip Rect) [][]Point {
	out := make([][]Point, 0, len(rings))
	var a, b []Point
	for _, ring := range rings {
		if len(ring) < 3 {
			continue
		}
		rb := BoundsOf([][]Point{ring})
		if !rb.Intersects(clip) {
			continue
		}
		if clip.ContainsRect(rb) {
			out = append(out, ring)
			continue
		}
		a = append(a[:0], ring...)
		for e := edgeLeft; e <= edgeBottom; e++ {
			b = clipAgainst(b[:0], a, clip, e)
			a, b = b, a
			if len(a) == 0 {
				break
			}
		}
		if len(a) >= 3 {
			out = append(out, append([]Point(nil), a...))
		}
	}
	return out
}

func clipAgainst(dst, ring []Point, clip Rect, e clipEdge) []Point {
	n := len(ring)
	if n == 0 {
		return dst
	}
	prev := ring[n-1]
	prevIn := inside(prev, clip, e)
	for _, cur := range ring {
		curIn := inside(cur, clip, e)
		switch {
		case curIn && prevIn:
			dst = append(dst, cur)
		case curIn && !prevIn:
			dst = append(dst, intersect(prev, cur, clip, e), cur)
		case !curIn && prevIn:
			dst = append(dst, intersect(prev, cur, clip, e))
		}
		prev, prevIn = cur, curIn
	}
	return dst
}

func inside(p Point, clip Rect, e clipEdge) bool {
	switch e {
	case edgeLeft:
		return p.X >= clip.X
	case edgeRight:
		return p.X <= clip.Right()
	case edgeTop:
		return p.Y >= clip.Y
	default:
		return p.Y <= clip.Bottom()
	}
}

func intersect(p, q Point, clip Rect, e clipEdge) Point {
	switch e {
	case edgeLeft, edgeRight:
		x := clip.X
		if e == edgeRight {
			x = clip.Right()
		}
		t := (x - p.X) / (q.X - p.X)
		return Point{X: x, Y: p.Y + t*(q.Y-p.Y)}
	default:
		y := clip.Y
		if e == edgeBottom {
			y = clip.Bottom()
		}
		t := (y - p.Y) / (q.Y - p.Y)
		return Point{X: p.X + t*(q.X-p.X), Y: y}
	}
}
