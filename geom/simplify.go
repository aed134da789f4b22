package geom

import "math"

// SimplifyRings reduces the vertex count of rings with the Douglas-Peucker
// algorithm so that no removed vertex lies further than tolerance from the
// simplified outline.
//
// Closed rings are split at their first vertex and the vertex farthest from
// it, and each half is simplified independently. Rings that would collapse
// below three vertices (or two for open polylines) are kept unsimplified.
//
// A GeometryError is returned for non-finite coordinates, or when the
// simplified geometry loses all of its area; in both cases the caller
// should fall back to the input.
func SimplifyRings(rings [][]Point, closed bool, tolerance float64) ([][]Point, error) {
	for _, ring := range rings {
		for _, p := range ring {
			if !p.IsFinite() {
				return nil, &GeometryError{Op: "simplify", Err: ErrNonFinite}
			}
		}
	}
	if tolerance <= 0 {
		return rings, nil
	}

	out := make([][]Point, 0, len(rings))
	var s simplifier
	for _, ring := range rings {
		var r []Point
		if closed {
			r = s.closedRing(ring, tolerance)
		} else {
			r = s.openLine(ring, tolerance)
		}
		out = append(out, r)
	}

	if closed && TotalArea(rings) > 0 && TotalArea(out) == 0 {
		return nil, &GeometryError{Op: "simplify", Err: ErrDegenerate}
	}
	return out, nil
}

// simplifier holds scratch buffers reused across rings.
type simplifier struct {
	keep  []bool
	stack [][2]int
}

func (s *simplifier) openLine(pts []Point, tol float64) []Point {
	if len(pts) <= 2 {
		return pts
	}
	s.mark(pts, 0, len(pts)-1, tol)
	return s.collect(pts)
}

func (s *simplifier) closedRing(pts []Point, tol float64) []Point {
	n := len(pts)
	if n <= 3 {
		return pts
	}
	// Split at the vertex farthest from the first one.
	far, farDist := 0, -1.0
	for i := 1; i < n; i++ {
		if d := pts[0].Distance(pts[i]); d > farDist {
			far, farDist = i, d
		}
	}
	if farDist == 0 {
		return pts
	}

	head := pts[:far+1]
	tail := make([]Point, 0, n-far+1)
	tail = append(tail, pts[far:]...)
	tail = append(tail, pts[0])

	keepHead := s.marks(head, tol)
	keepTail := s.marks(tail, tol)

	out := make([]Point, 0, n/4+4)
	for i := 0; i < len(head)-1; i++ {
		if keepHead[i] {
			out = append(out, head[i])
		}
	}
	for i := 0; i < len(tail)-1; i++ {
		if keepTail[i] {
			out = append(out, tail[i])
		}
	}
	if len(out) < 3 {
		return pts
	}
	return out
}

// marks returns a fresh keep mask for pts simplified end to end.
func (s *simplifier) marks(pts []Point, tol float64) []bool {
	s.keep = make([]bool, len(pts))
	s.run(pts, 0, len(pts)-1, tol)
	return s.keep
}

func (s *simplifier) reset(n int) {
	if cap(s.keep) < n {
		s.keep = make([]bool, n)
	}
	s.keep = s.keep[:n]
	clear(s.keep)
}

func (s *simplifier) mark(pts []Point, first, last int, tol float64) {
	s.reset(len(pts))
	s.run(pts, first, last, tol)
}

// run marks the vertices kept between first and last inclusive. It is
// iterative so that very dense rings cannot exhaust the goroutine stack.
func (s *simplifier) run(pts []Point, first, last int, tol float64) {
	s.keep[first] = true
	s.keep[last] = true
	s.stack = append(s.stack[:0], [2]int{first, last})
	for len(s.stack) > 0 {
		seg := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		a, b := seg[0], seg[1]
		if b-a < 2 {
			continue
		}
		idx, dmax := -1, tol
		for i := a + 1; i < b; i++ {
			if d := segmentDistance(pts[i], pts[a], pts[b]); d > dmax {
				idx, dmax = i, d
			}
		}
		if idx < 0 {
			continue
		}
		s.keep[idx] = true
		s.stack = append(s.stack, [2]int{a, idx}, [2]int{idx, b})
	}
}

func (s *simplifier) collect(pts []Point) []Point {
	out := make([]Point, 0, len(pts)/4+2)
	for i, k := range s.keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

// segmentDistance returns the distance from p to the segment ab.
func segmentDistance(p, a, b Point) float64 {
	d := b.Sub(a)
	l2 := d.Dot(d)
	if l2 == 0 {
		return p.Distance(a)
	}
	t := p.Sub(a).Dot(d) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Distance(a.Add(d.Mul(t)))
}
