// Package shapecache produces renderable shapes for regions, simplified to
// match the downsample they are drawn at.
//
// Rectangles, ellipses and lines are served from a pool of reusable
// primitives. Every other region is bucketed into a downsample Tier and
// looked up by region ID in that tier's map; on a miss the true geometry
// is simplified with a tolerance that grows with the tier and the result is
// cached. Entries disappear when their region is garbage collected.
package shapecache

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pathoview/viewport/cache"
	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/internal/vlog"
	"github.com/pathoview/viewport/roi"
)

// Cache maps (region, tier) to a simplified shape. It is safe for
// concurrent use: the paint loop and background prewarming may share it.
type Cache struct {
	tiers [numTiers]*cache.ShardedCache[uint64, geom.Shape]
	pool  *primitivePool

	// tracked records regions with a registered GC cleanup.
	tracked sync.Map

	primitives atomic.Uint64
	simplified atomic.Uint64
	fallbacks  atomic.Uint64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	capacity int
}

// WithCapacity sets the per-shard capacity of each tier map. It bounds
// memory when regions stay reachable for a long time.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	o := options{capacity: cache.DefaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cache{pool: newPrimitivePool()}
	for i := range c.tiers {
		c.tiers[i] = cache.NewSharded[uint64, geom.Shape](o.capacity, cache.Uint64Hasher)
	}
	return c
}

// TierFor returns the tier a region is cached under at downsample.
// Point sets and regions with few vertices always use TierNone.
func TierFor(r *roi.Region, downsample float64) Tier {
	if r.Kind() == roi.KindPoints || r.VertexCount() < MinSimplifyVertices {
		return TierNone
	}
	return TierForDownsample(downsample)
}

// ShapeFor returns a shape for r suitable for drawing at downsample.
//
// The result is a loan. Primitive shapes come from a pool and must be
// handed back with Release once drawn; cached shapes are shared and must
// never be modified.
func (c *Cache) ShapeFor(r *roi.Region, downsample float64) geom.Shape {
	switch r.Kind() {
	case roi.KindRectangle:
		c.primitives.Add(1)
		return c.pool.rect(r.Bounds())
	case roi.KindEllipse:
		c.primitives.Add(1)
		return c.pool.ellipse(r.Bounds())
	case roi.KindLine:
		c.primitives.Add(1)
		rings := r.Rings()
		return c.pool.line(rings[0][0], rings[0][1])
	}

	tier := TierFor(r, downsample)
	shape, cached := c.tiers[tier].GetOrCompute(r.ID(), func() geom.Shape {
		return c.compute(r, tier)
	})
	if !cached {
		c.track(r)
	}
	return shape
}

// Release hands a shape obtained from ShapeFor back to the cache. Calling
// it with a cached (non-primitive) shape is a no-op.
func (c *Cache) Release(s geom.Shape) {
	c.pool.put(s)
}

func (c *Cache) compute(r *roi.Region, tier Tier) geom.Shape {
	shape := r.Shape()
	if tier == TierNone {
		return shape
	}
	rings, err := geom.SimplifyRings(r.Rings(), r.IsClosed(), tier.Tolerance())
	if err != nil {
		c.fallbacks.Add(1)
		vlog.Logger().Debug("shapecache: simplification failed, using true geometry",
			"region", r.ID(), "tier", tier.String(), "err", err)
		return shape
	}
	c.simplified.Add(1)
	vlog.Logger().Debug("shapecache: simplified",
		"region", r.ID(), "tier", tier.String(),
		"vertices", r.VertexCount(), "kept", geom.CountVertices(rings))
	return geom.NewPolyShape(rings, !r.IsClosed())
}

// track arranges for r's entries to be dropped once r is unreachable.
func (c *Cache) track(r *roi.Region) {
	if _, loaded := c.tracked.LoadOrStore(r.ID(), struct{}{}); loaded {
		return
	}
	runtime.AddCleanup(r, c.forget, r.ID())
}

func (c *Cache) forget(id uint64) {
	for _, t := range c.tiers {
		t.Delete(id)
	}
	c.tracked.Delete(id)
}

// Invalidate drops every cached shape of the given regions.
func (c *Cache) Invalidate(regions ...*roi.Region) {
	for _, r := range regions {
		if r == nil {
			continue
		}
		for _, t := range c.tiers {
			t.Delete(r.ID())
		}
	}
}

// InvalidateAll drops every cached shape.
func (c *Cache) InvalidateAll() {
	for _, t := range c.tiers {
		t.Clear()
	}
}

// Prewarm computes the shapes of regions at each downsample on a bounded
// set of goroutines. It stops early if ctx is cancelled.
func (c *Cache) Prewarm(ctx context.Context, regions []*roi.Region, downsamples ...float64) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, r := range regions {
		if r == nil || r.IsPrimitive() {
			continue
		}
		g.Go(func() error {
			for _, ds := range downsamples {
				if err := ctx.Err(); err != nil {
					return err
				}
				c.Release(c.ShapeFor(r, ds))
			}
			return nil
		})
	}
	return g.Wait()
}

// Stats summarises cache activity.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Primitives uint64 // pooled primitive loans
	Simplified uint64 // successful simplification passes
	Fallbacks  uint64 // simplification failures served unsimplified
	TierLen    [numTiers]int
}

// Stats returns current statistics.
func (c *Cache) Stats() Stats {
	s := Stats{
		Primitives: c.primitives.Load(),
		Simplified: c.simplified.Load(),
		Fallbacks:  c.fallbacks.Load(),
	}
	for i, t := range c.tiers {
		ts := t.Stats()
		s.Hits += ts.Hits
		s.Misses += ts.Misses
		s.TierLen[i] = ts.Len
	}
	return s
}

// Lookup returns the cached shape of r in tier without computing it.
func (c *Cache) Lookup(r *roi.Region, tier Tier) (geom.Shape, bool) {
	if tier >= numTiers {
		return nil, false
	}
	return c.tiers[tier].Peek(r.ID())
}
