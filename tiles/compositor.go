package tiles

import (
	"image"
	"image/color"
	"time"

	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/internal/cache"
	"github.com/pathoview/viewport/internal/vlog"
	"github.com/pathoview/viewport/roi"
	"github.com/pathoview/viewport/surface"
)

// DefaultTransformCacheBytes bounds the memory held by display-transformed
// tiles.
const DefaultTransformCacheBytes = 64 << 20

// Result reports what a composite did.
type Result struct {
	// Complete is false if any needed tile was missing. It is a normal
	// outcome, not an error: the caller repaints when tiles arrive.
	Complete bool

	UsedThumbnail    bool
	Requested        int
	Missing          int
	PerTileTransform bool
}

// transformKey identifies a transformed raster: a tile, or the thumbnail
// of a plane when thumb is set.
type transformKey struct {
	req       Request
	thumb     bool
	transform string
}

// Compositor draws the raster part of a viewport.
//
// A Compositor is used from the painting goroutine only.
type Compositor struct {
	provider    Provider
	meta        Metadata
	transform   DisplayTransform
	background  color.Color
	interp      surface.Interpolation
	transformed *cache.Cache[transformKey, image.Image]
}

// CompositorOption configures a Compositor.
type CompositorOption func(*Compositor)

// WithTransformCacheBytes bounds the transformed tile cache. Zero disables
// it.
func WithTransformCacheBytes(n int64) CompositorOption {
	return func(c *Compositor) {
		c.transformed = cache.New[transformKey](n, imageBytes)
	}
}

// NewCompositor creates a compositor over p with a black background,
// bilinear interpolation and no display transform.
func NewCompositor(p Provider, opts ...CompositorOption) *Compositor {
	c := &Compositor{
		provider:    p,
		meta:        p.Metadata(),
		background:  color.Black,
		interp:      surface.Bilinear,
		transformed: cache.New[transformKey](DefaultTransformCacheBytes, imageBytes),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Metadata returns the provider's metadata, read once at construction.
func (c *Compositor) Metadata() Metadata { return c.meta }

// SetDisplay replaces the display transform, background and interpolation.
// Cached transformed tiles are dropped when the transform changes.
func (c *Compositor) SetDisplay(t DisplayTransform, background color.Color, interp surface.Interpolation) {
	if keyOf(t) != keyOf(c.transform) {
		c.transformed.Clear()
	}
	c.transform = t
	c.background = background
	c.interp = interp
}

// DropTransformed empties the transformed tile cache, for when the
// provider's pixels change.
func (c *Compositor) DropTransformed() { c.transformed.Clear() }

// CacheStats returns statistics of the transformed tile cache.
func (c *Compositor) CacheStats() cache.Stats { return c.transformed.Stats() }

// Composite paints the image region visible through dst at downsample ds.
// m maps full-resolution image coordinates to dst's coordinates, and
// region is the image-space area dst covers. Every pixel of dst is
// replaced.
func (c *Compositor) Composite(dst surface.Surface, region geom.Shape, m geom.Matrix, ds float64, plane roi.Plane) Result {
	start := time.Now()
	dst.Clear(c.background)

	thumb := c.provider.Thumbnail(plane)
	if thumb.Image != nil && thumb.Downsample > 0 && thumb.Downsample <= ds {
		c.drawThumbnail(dst, thumb, m, plane, true)
		vlog.Logger().Debug("composite", "thumbnail", true, "downsample", ds, "elapsed", time.Since(start))
		return Result{Complete: true, UsedThumbnail: true}
	}

	reqs := Plan(c.meta, region, ds, plane)
	perTile := c.perTile(dst, region)

	type fetched struct {
		req Request
		img image.Image
	}
	got := make([]fetched, 0, len(reqs))
	for _, req := range reqs {
		if img, ok := c.provider.Tile(req); ok && img != nil {
			got = append(got, fetched{req, img})
		}
	}
	missing := len(reqs) - len(got)

	res := Result{
		Complete:         missing == 0,
		Requested:        len(reqs),
		Missing:          missing,
		PerTileTransform: perTile,
	}
	if missing > 0 && thumb.Image != nil {
		c.drawThumbnail(dst, thumb, m, plane, perTile)
		res.UsedThumbnail = true
	}
	for _, f := range got {
		img := f.img
		if perTile && c.transform != nil {
			img = c.apply(transformKey{req: f.req}, img)
		}
		dst.DrawImage(img, m.Multiply(placement(img.Bounds(), f.req.Bounds())), c.interp)
	}
	if !perTile && c.transform != nil {
		c.transformComposite(dst.(surface.ImageBacked))
	}

	vlog.Logger().Debug("composite",
		"level", c.meta.LevelFor(ds),
		"requested", res.Requested,
		"missing", res.Missing,
		"per_tile", perTile,
		"elapsed", time.Since(start))
	return res
}

// perTile reports whether the display transform has to run on each tile.
// Running it once over the composite is cheaper, but it would also
// transform the background where the region leaves the image, and it
// cannot serve transforms that need raw channels.
func (c *Compositor) perTile(dst surface.Surface, region geom.Shape) bool {
	if c.transform == nil {
		return false
	}
	if _, ok := dst.(surface.ImageBacked); !ok {
		return true
	}
	return c.transform.RequiresRawChannels() || !c.meta.Bounds().ContainsRect(region.Bounds())
}

func (c *Compositor) drawThumbnail(dst surface.Surface, thumb Thumbnail, m geom.Matrix, plane roi.Plane, transform bool) {
	img := thumb.Image
	if transform && c.transform != nil {
		img = c.apply(transformKey{req: Request{Plane: plane}, thumb: true}, img)
	}
	dst.DrawImage(img, m.Multiply(placement(img.Bounds(), c.meta.Bounds())), c.interp)
}

// apply returns the display-transformed img, from the cache if possible.
func (c *Compositor) apply(key transformKey, img image.Image) image.Image {
	key.transform = c.transform.Key()
	if out, ok := c.transformed.Get(key); ok {
		return out
	}
	out := c.transform.Apply(img)
	c.transformed.Set(key, out)
	return out
}

func (c *Compositor) transformComposite(dst surface.ImageBacked) {
	src := dst.Image()
	out := c.transform.Apply(src)
	d := src.Bounds().Min.Sub(out.Bounds().Min)
	dst.DrawImage(out, geom.Translate(float64(d.X), float64(d.Y)), surface.Nearest)
}

// placement maps the pixel grid of an image with bounds b onto the
// full-resolution rectangle it depicts.
func placement(b image.Rectangle, target geom.Rect) geom.Matrix {
	sx := target.W / float64(b.Dx())
	sy := target.H / float64(b.Dy())
	return geom.Translate(target.X, target.Y).
		Multiply(geom.Scale(sx, sy)).
		Multiply(geom.Translate(-float64(b.Min.X), -float64(b.Min.Y)))
}

func keyOf(t DisplayTransform) string {
	if t == nil {
		return ""
	}
	return t.Key()
}

func imageBytes(img image.Image) int64 {
	b := img.Bounds()
	return int64(b.Dx()) * int64(b.Dy()) * 4
}
