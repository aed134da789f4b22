package geom

import "math"

// RingArea returns the signed area of a closed ring (shoelace formula).
// Counter-clockwise rings in a y-up system are positive; in image space
// (y down) clockwise-on-screen rings are positive.
func RingArea(ring []Point) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	prev := ring[n-1]
	for _, p := range ring {
		sum += prev.X*p.Y - p.X*prev.Y
		prev = p
	}
	return sum / 2
}

// TotalArea returns the sum of absolute ring areas.
func TotalArea(rings [][]Point) float64 {
	var a float64
	for _, r := range rings {
		a += math.Abs(RingArea(r))
	}
	return a
}

// PolygonCentroid returns the area-weighted centroid of the rings, treating
// each ring's signed area as its weight. If the total signed area is zero
// it returns the mean of all vertices.
func PolygonCentroid(rings [][]Point) Point {
	var cx, cy, area float64
	var mx, my float64
	var count int
	for _, ring := range rings {
		n := len(ring)
		for i, p := range ring {
			mx += p.X
			my += p.Y
			count++
			if n < 3 {
				continue
			}
			q := ring[(i+1)%n]
			cross := p.X*q.Y - q.X*p.Y
			area += cross
			cx += (p.X + q.X) * cross
			cy += (p.Y + q.Y) * cross
		}
	}
	if area == 0 || math.IsNaN(area) {
		if count == 0 {
			return Point{}
		}
		return Point{X: mx / float64(count), Y: my / float64(count)}
	}
	area *= 0.5
	return Point{X: cx / (6 * area), Y: cy / (6 * area)}
}

// CountVertices returns the total number of points over all rings.
func CountVertices(rings [][]Point) int {
	n := 0
	for _, r := range rings {
		n += len(r)
	}
	return n
}
