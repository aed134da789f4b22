package viewport

import (
	"time"

	"github.com/pathoview/viewport/cropcache"
	"github.com/pathoview/viewport/display"
	"github.com/pathoview/viewport/objects"
	"github.com/pathoview/viewport/policy"
	"github.com/pathoview/viewport/roi"
	"github.com/pathoview/viewport/shapecache"
	"github.com/pathoview/viewport/tiles"
)

// DefaultMinRepaintInterval is the minimum spacing between repaint
// requests handed to the repaint handler.
const DefaultMinRepaintInterval = 16 * time.Millisecond

// RendererOption configures a Renderer during creation.
// Use functional options to customize Renderer behavior.
//
// Example:
//
//	// Objects and selection shared with the rest of the application
//	r := viewport.New(provider,
//	    viewport.WithObjects(hierarchy),
//	    viewport.WithSelection(selection),
//	    viewport.WithRepaintHandler(window.Invalidate))
type RendererOption func(*rendererOptions)

// rendererOptions holds optional configuration for Renderer creation.
type rendererOptions struct {
	hierarchy   *objects.Hierarchy
	selection   *objects.Selection
	policy      policy.Policy
	shapes      *shapecache.Cache
	crops       *cropcache.Cache
	minInterval time.Duration
	onRepaint   func()
	clock       Clock
	plane       roi.Plane
	settings    *display.Settings
	compositor  []tiles.CompositorOption
}

// defaultOptions returns the default renderer options. Nil caches and
// object stores are created by New.
func defaultOptions() rendererOptions {
	return rendererOptions{
		minInterval: DefaultMinRepaintInterval,
		clock:       systemClock{},
	}
}

// WithObjects sets the object hierarchy to draw. The renderer subscribes
// to its changes.
func WithObjects(h *objects.Hierarchy) RendererOption {
	return func(o *rendererOptions) {
		o.hierarchy = h
	}
}

// WithSelection sets the selection. Selected objects are drawn last and
// are never hidden.
func WithSelection(s *objects.Selection) RendererOption {
	return func(o *rendererOptions) {
		o.selection = s
	}
}

// WithPolicy sets the paint policy.
func WithPolicy(p policy.Policy) RendererOption {
	return func(o *rendererOptions) {
		o.policy = p
	}
}

// WithShapeCache shares a shape cache, for example with a background
// prewarmer.
func WithShapeCache(c *shapecache.Cache) RendererOption {
	return func(o *rendererOptions) {
		o.shapes = c
	}
}

// WithCropCache shares a crop cache.
func WithCropCache(c *cropcache.Cache) RendererOption {
	return func(o *rendererOptions) {
		o.crops = c
	}
}

// WithMinRepaintInterval sets the repaint throttle. Zero disables it.
func WithMinRepaintInterval(d time.Duration) RendererOption {
	return func(o *rendererOptions) {
		o.minInterval = d
	}
}

// WithRepaintHandler sets the function told that a repaint is due. It is
// expected to arrange for Paint to be called on the painting goroutine,
// and may be called from any goroutine.
func WithRepaintHandler(fn func()) RendererOption {
	return func(o *rendererOptions) {
		o.onRepaint = fn
	}
}

// WithClock replaces the wall clock used by the repaint throttle.
func WithClock(c Clock) RendererOption {
	return func(o *rendererOptions) {
		o.clock = c
	}
}

// WithPlane sets the initial image plane.
func WithPlane(p roi.Plane) RendererOption {
	return func(o *rendererOptions) {
		o.plane = p
	}
}

// WithSettings sets the initial display settings. Invalid settings are
// replaced by display.Default.
func WithSettings(s display.Settings) RendererOption {
	return func(o *rendererOptions) {
		o.settings = &s
	}
}

// WithCompositorOptions passes options to the tile compositor.
func WithCompositorOptions(opts ...tiles.CompositorOption) RendererOption {
	return func(o *rendererOptions) {
		o.compositor = append(o.compositor, opts...)
	}
}
