// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"math"

	"github.com/pathoview/viewport/geom"
)

// dasher splits polylines into the "on" runs of a dash pattern.
//
// Lengths alternate between dash (on) and gap (off). An odd-length
// pattern is repeated to make it even, so [5] means 5 on, 5 off.
type dasher struct {
	array  []float64
	offset float64
}

// newDasher returns a dasher for the pattern, or false if the pattern
// draws a solid line (empty, all-zero, or containing a negative or
// non-finite length).
func newDasher(array []float64, offset float64) (*dasher, bool) {
	if len(array) == 0 {
		return nil, false
	}
	total := 0.0
	for _, l := range array {
		if l < 0 || math.IsNaN(l) || math.IsInf(l, 0) {
			return nil, false
		}
		total += l
	}
	if total <= 0 {
		return nil, false
	}
	if len(array)%2 != 0 {
		doubled := make([]float64, len(array)*2)
		copy(doubled, array)
		copy(doubled[len(array):], array)
		array = doubled
		total *= 2
	}
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		offset = 0
	}
	offset = math.Mod(offset, total)
	if offset < 0 {
		offset += total
	}
	return &dasher{array: array, offset: offset}, true
}

// start returns the pattern element and its remaining length at the
// beginning of a ring.
func (d *dasher) start() (idx int, remaining float64) {
	remaining = d.array[0]
	for offset := d.offset; offset > 0; {
		if offset < remaining {
			return idx, remaining - offset
		}
		offset -= remaining
		idx = (idx + 1) % len(d.array)
		remaining = d.array[idx]
	}
	return idx, remaining
}

// split appends the on runs of ring to dst. Each ring restarts the
// pattern.
func (d *dasher) split(dst [][]geom.Point, ring []geom.Point, closed bool) [][]geom.Point {
	n := len(ring)
	if n < 2 {
		return dst
	}
	segs := n - 1
	if closed {
		segs = n
	}

	idx, remaining := d.start()
	on := idx%2 == 0
	var run []geom.Point
	if on {
		run = append(run, ring[0])
	}
	for i := 0; i < segs; i++ {
		p, q := ring[i], ring[(i+1)%n]
		segLen := p.Distance(q)
		pos := 0.0
		for segLen-pos > 0 {
			step := min(remaining, segLen-pos)
			pos += step
			remaining -= step
			if remaining > 0 {
				break
			}
			pt := p.Lerp(q, pos/segLen)
			if on {
				dst = appendRun(dst, append(run, pt))
				run = nil
			}
			idx = (idx + 1) % len(d.array)
			remaining = d.array[idx]
			on = idx%2 == 0
			if on {
				run = []geom.Point{pt}
			}
		}
		if on && run[len(run)-1] != q {
			run = append(run, q)
		}
	}
	return appendRun(dst, run)
}

func appendRun(dst [][]geom.Point, run []geom.Point) [][]geom.Point {
	if len(run) < 2 {
		return dst
	}
	return append(dst, run)
}
