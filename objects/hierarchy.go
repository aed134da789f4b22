package objects

import (
	"slices"
	"sync"

	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/roi"
)

// ChangeKind classifies a hierarchy change.
type ChangeKind uint8

const (
	ChangeAdded ChangeKind = iota
	ChangeRemoved
	ChangeGeometry
	ChangeClassification
	ChangeStructure
)

// ChangeEvent describes a hierarchy change. Regions lists the geometry
// that is no longer current; a ChangeStructure event with no regions means
// every derived geometry cache should be dropped.
type ChangeEvent struct {
	Kind    ChangeKind
	Objects []*PathObject
	Regions []*roi.Region
}

// Hierarchy stores objects per image plane and notifies subscribers of
// changes. It is safe for concurrent use. Listeners run synchronously on
// the goroutine making the change, after the hierarchy lock is released.
type Hierarchy struct {
	mu      sync.RWMutex
	planes  map[roi.Plane][]*PathObject
	members map[*PathObject]roi.Plane

	listeners listeners[ChangeEvent]
}

// NewHierarchy creates an empty hierarchy.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{
		planes:  make(map[roi.Plane][]*PathObject),
		members: make(map[*PathObject]roi.Plane),
	}
}

// Add inserts objects. Objects without a ROI, or already present, are
// ignored.
func (h *Hierarchy) Add(objs ...*PathObject) {
	added := make([]*PathObject, 0, len(objs))
	h.mu.Lock()
	for _, o := range objs {
		r := o.ROI()
		if r == nil {
			continue
		}
		if _, ok := h.members[o]; ok {
			continue
		}
		h.members[o] = r.Plane()
		h.planes[r.Plane()] = append(h.planes[r.Plane()], o)
		added = append(added, o)
	}
	h.mu.Unlock()
	if len(added) > 0 {
		h.listeners.call(ChangeEvent{Kind: ChangeAdded, Objects: added})
	}
}

// Remove deletes objects and reports their regions as stale.
func (h *Hierarchy) Remove(objs ...*PathObject) {
	ev := ChangeEvent{Kind: ChangeRemoved}
	h.mu.Lock()
	for _, o := range objs {
		plane, ok := h.members[o]
		if !ok {
			continue
		}
		delete(h.members, o)
		h.planes[plane] = slices.DeleteFunc(h.planes[plane], func(x *PathObject) bool { return x == o })
		ev.Objects = append(ev.Objects, o)
		ev.Regions = appendRegions(ev.Regions, o)
	}
	h.mu.Unlock()
	if len(ev.Objects) > 0 {
		h.listeners.call(ev)
	}
}

// ReplaceROI gives o new geometry. The old region is reported as stale.
func (h *Hierarchy) ReplaceROI(o *PathObject, r *roi.Region) {
	if r == nil {
		return
	}
	h.mu.Lock()
	old := o.region.Swap(r)
	if plane, ok := h.members[o]; ok && plane != r.Plane() {
		h.planes[plane] = slices.DeleteFunc(h.planes[plane], func(x *PathObject) bool { return x == o })
		h.members[o] = r.Plane()
		h.planes[r.Plane()] = append(h.planes[r.Plane()], o)
	}
	h.mu.Unlock()

	ev := ChangeEvent{Kind: ChangeGeometry, Objects: []*PathObject{o}}
	if old != nil {
		ev.Regions = []*roi.Region{old}
	}
	h.listeners.call(ev)
}

// SetClass changes the classification of o.
func (h *Hierarchy) SetClass(o *PathObject, c *Class) {
	o.class.Store(c)
	h.listeners.call(ChangeEvent{Kind: ChangeClassification, Objects: []*PathObject{o}})
}

// Clear removes every object.
func (h *Hierarchy) Clear() {
	h.mu.Lock()
	h.planes = make(map[roi.Plane][]*PathObject)
	h.members = make(map[*PathObject]roi.Plane)
	h.mu.Unlock()
	h.listeners.call(ChangeEvent{Kind: ChangeStructure})
}

// Len returns the number of objects.
func (h *Hierarchy) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}

// ObjectsInRegion returns the objects on plane whose bounds intersect rect,
// in insertion order.
func (h *Hierarchy) ObjectsInRegion(plane roi.Plane, rect geom.Rect) []*PathObject {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*PathObject
	for _, o := range h.planes[plane] {
		if o.ROI().Bounds().Intersects(rect) {
			out = append(out, o)
		}
	}
	return out
}

// Subscribe registers fn for change events. The returned function removes
// the subscription.
func (h *Hierarchy) Subscribe(fn func(ChangeEvent)) (cancel func()) {
	return h.listeners.add(fn)
}

func appendRegions(dst []*roi.Region, o *PathObject) []*roi.Region {
	if r := o.ROI(); r != nil {
		dst = append(dst, r)
	}
	if o.Nucleus != nil {
		dst = append(dst, o.Nucleus)
	}
	return dst
}

// listeners is a set of callbacks keyed by subscription order.
type listeners[E any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(E)
}

func (l *listeners[E]) add(fn func(E)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(E))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners[E]) call(e E) {
	l.mu.Lock()
	fns := make([]func(E), 0, len(l.fns))
	for id := 0; id < l.next; id++ {
		if fn, ok := l.fns[id]; ok {
			fns = append(fns, fn)
		}
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}
