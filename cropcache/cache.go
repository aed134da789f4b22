// Package cropcache keeps cropped copies of very complex areas so that a
// frame showing a small part of a huge polygon only pays for the part it
// shows.
//
// A crop is the intersection of an area with a rectangle slightly larger
// than the requested clip. Any later clip inside that rectangle reuses the
// crop. Each area keeps a small FIFO of crops; the areas themselves are
// indexed by ID and forgotten when the source region is garbage collected.
package cropcache

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pathoview/viewport/cache"
	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/internal/vlog"
	"github.com/pathoview/viewport/roi"
)

const (
	// MinSegments is the outline complexity below which areas are drawn
	// uncropped.
	MinSegments = 10000

	// MaxClipCoverage is the fraction of an area's bounds a clip may cover
	// before cropping stops paying off.
	MaxClipCoverage = 0.5

	// DefaultCropsPerArea bounds the crops kept for one area.
	DefaultCropsPerArea = 200

	// DefaultPadding is how far, in image pixels, a crop extends beyond
	// the requested clip on every side.
	DefaultPadding = 1.0
)

// Cache returns cropped versions of complex areas. It is safe for
// concurrent use.
type Cache struct {
	areas   *cache.ShardedCache[uint64, *crops]
	tracked sync.Map

	perArea int
	padding float64

	hits     atomic.Uint64
	computes atomic.Uint64
	bypasses atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithCropsPerArea sets the FIFO capacity per area.
func WithCropsPerArea(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.perArea = n
		}
	}
}

// WithPadding sets the crop padding in image pixels.
func WithPadding(d float64) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.padding = d
		}
	}
}

// WithAreaCapacity bounds how many areas each shard of the index holds.
func WithAreaCapacity(n int) Option {
	return func(c *Cache) {
		c.areas = cache.NewSharded[uint64, *crops](n, cache.Uint64Hasher)
	}
}

// New creates an empty crop cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		perArea: DefaultCropsPerArea,
		padding: DefaultPadding,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.areas == nil {
		c.areas = cache.NewSharded[uint64, *crops](64, cache.Uint64Hasher)
	}
	return c
}

// Applies reports whether a crop would be considered for area at all,
// independent of the clip.
func Applies(area *roi.Region) bool {
	return area.Kind() == roi.KindArea && area.SegmentCount() >= MinSegments
}

// CroppedFor returns area restricted to a rectangle containing clip, both
// in image pixels. Simple areas, non-area regions and clips covering most
// of the area are returned unchanged. The result must not be modified.
func (c *Cache) CroppedFor(area *roi.Region, clip geom.Rect) *roi.Region {
	if !Applies(area) || c.coversMost(area, clip) {
		c.bypasses.Add(1)
		return area
	}

	set, cached := c.areas.GetOrCompute(area.ID(), func() *crops {
		return newCrops(c.perArea)
	})
	if !cached {
		c.track(area)
	}
	if hit := set.find(clip); hit != nil {
		c.hits.Add(1)
		return hit
	}

	rect := clip.Pad(c.padding)
	cropped := roi.NewArea(geom.ClipRings(area.Rings(), rect), area.Plane())
	set.add(rect, cropped)
	c.computes.Add(1)
	vlog.Logger().Debug("cropcache: cropped area",
		"area", area.ID(), "segments", area.SegmentCount(),
		"kept", cropped.SegmentCount(), "rect", rect)
	return cropped
}

func (c *Cache) coversMost(area *roi.Region, clip geom.Rect) bool {
	b := area.Bounds()
	full := b.Area()
	if full == 0 {
		return true
	}
	return clip.Intersect(b).Area()/full > MaxClipCoverage
}

func (c *Cache) track(area *roi.Region) {
	if _, loaded := c.tracked.LoadOrStore(area.ID(), struct{}{}); loaded {
		return
	}
	runtime.AddCleanup(area, c.forget, area.ID())
}

func (c *Cache) forget(id uint64) {
	c.areas.Delete(id)
	c.tracked.Delete(id)
}

// Invalidate drops every crop of the given areas.
func (c *Cache) Invalidate(areas ...*roi.Region) {
	for _, a := range areas {
		if a != nil {
			c.areas.Delete(a.ID())
		}
	}
}

// InvalidateAll drops every crop.
func (c *Cache) InvalidateAll() {
	c.areas.Clear()
}

// Len returns the number of crops held for area.
func (c *Cache) Len(area *roi.Region) int {
	set, ok := c.areas.Peek(area.ID())
	if !ok {
		return 0
	}
	return set.len()
}

// Stats summarises crop cache activity.
type Stats struct {
	Hits     uint64
	Computes uint64
	Bypasses uint64
	Areas    int
}

// Stats returns current statistics.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Computes: c.computes.Load(),
		Bypasses: c.bypasses.Load(),
		Areas:    c.areas.Len(),
	}
}
