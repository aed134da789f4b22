package shapecache

import (
	"sync"

	"github.com/pathoview/viewport/geom"
)

// primitivePool lends out mutable rectangle, ellipse and line shapes so
// the paint loop does not allocate one per primitive region per frame.
type primitivePool struct {
	rects    sync.Pool
	ellipses sync.Pool
	lines    sync.Pool
}

func newPrimitivePool() *primitivePool {
	return &primitivePool{
		rects:    sync.Pool{New: func() any { return new(geom.RectShape) }},
		ellipses: sync.Pool{New: func() any { return new(geom.EllipseShape) }},
		lines:    sync.Pool{New: func() any { return new(geom.LineShape) }},
	}
}

func (p *primitivePool) rect(r geom.Rect) *geom.RectShape {
	s := p.rects.Get().(*geom.RectShape)
	s.Reframe(r)
	return s
}

func (p *primitivePool) ellipse(r geom.Rect) *geom.EllipseShape {
	s := p.ellipses.Get().(*geom.EllipseShape)
	s.Reframe(r)
	return s
}

func (p *primitivePool) line(p0, p1 geom.Point) *geom.LineShape {
	s := p.lines.Get().(*geom.LineShape)
	s.Reframe(p0, p1)
	return s
}

// put returns a primitive to its pool. Other shapes are ignored.
func (p *primitivePool) put(s geom.Shape) {
	switch s := s.(type) {
	case *geom.RectShape:
		p.rects.Put(s)
	case *geom.EllipseShape:
		p.ellipses.Put(s)
	case *geom.LineShape:
		p.lines.Put(s)
	}
}
