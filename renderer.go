package viewport

import (
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pathoview/viewport/cropcache"
	"github.com/pathoview/viewport/display"
	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/internal/dirty"
	"github.com/pathoview/viewport/objects"
	"github.com/pathoview/viewport/policy"
	"github.com/pathoview/viewport/roi"
	"github.com/pathoview/viewport/shapecache"
	"github.com/pathoview/viewport/surface"
	"github.com/pathoview/viewport/tiles"
	"github.com/pathoview/viewport/transform"
)

// State is the repaint state of a Renderer.
type State uint8

const (
	// StateIdle means no repaint is pending.
	StateIdle State = iota

	// StateRepaintScheduled means the repaint handler has been told to
	// paint and Paint has not started yet.
	StateRepaintScheduled

	// StatePainting means a Paint call is in progress.
	StatePainting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRepaintScheduled:
		return "repaint-scheduled"
	case StatePainting:
		return "painting"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Clock abstracts time for the repaint throttle.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func())
}

type systemClock struct{}

func (systemClock) Now() time.Time                      { return time.Now() }
func (systemClock) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// PaintResult reports what one Paint call did. Painting never fails as a
// whole; Err carries a transform error that caused overlays to be skipped.
type PaintResult struct {
	// Complete is false if some raster tiles were not yet available.
	Complete bool

	// RasterRecomposited is true if any part of the raster was rebuilt
	// rather than reused from the previous frame.
	RasterRecomposited bool

	ObjectsDrawn   int
	ObjectsSkipped int
	Err            error
}

// composedState records what the raster buffer currently shows.
type composedState struct {
	valid bool
	state transform.ViewState
	plane roi.Plane
	w, h  int
}

// viewSnapshot is the part of the view other goroutines may read.
type viewSnapshot struct {
	ok      bool
	forward geom.Matrix
	visible geom.Rect
	plane   roi.Plane
	size    image.Rectangle
}

// Renderer paints one viewport of a pyramidal image with its object
// overlays.
//
// Paint, navigation and settings methods must be called from a single
// painting goroutine. RequestRepaint, TileArrived, RequiresRegion,
// InvalidateObjectCache and MarkImageChanged may be called from any
// goroutine.
type Renderer struct {
	compositor *tiles.Compositor
	hierarchy  *objects.Hierarchy
	selection  *objects.Selection
	policy     policy.Policy
	shapes     *shapecache.Cache
	crops      *cropcache.Cache
	clock      Clock
	interval   time.Duration
	onRepaint  func()
	cancels    []func()

	// Painting goroutine only.
	view     transform.View
	settings display.Settings
	plane    roi.Plane
	raster   *surface.ImageSurface
	composed composedState
	lastGood *composedState
	rings    [][]geom.Point

	// Cells needing recomposite, and cells whose last composite was
	// missing tiles.
	cells   atomic.Pointer[dirty.Grid]
	missing *dirty.Grid
	snap    atomic.Pointer[viewSnapshot]

	mu         sync.Mutex
	state      State
	again      bool
	deferred   bool
	lastPaint  time.Time
	imageDirty bool
	pendingAll bool
	pending    []*roi.Region
}

// New creates a renderer for the image served by p. The view starts
// centered on the image at full resolution with no rotation.
func New(p tiles.Provider, opts ...RendererOption) *Renderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.hierarchy == nil {
		o.hierarchy = objects.NewHierarchy()
	}
	if o.selection == nil {
		o.selection = objects.NewSelection()
	}
	if o.shapes == nil {
		o.shapes = shapecache.New()
	}
	if o.crops == nil {
		o.crops = cropcache.New()
	}
	settings := display.Default()
	if o.settings != nil {
		if err := o.settings.Validate(); err != nil {
			Logger().Warn("invalid display settings, using defaults", "err", err)
		} else {
			settings = *o.settings
		}
	}

	r := &Renderer{
		compositor: tiles.NewCompositor(p, o.compositor...),
		hierarchy:  o.hierarchy,
		selection:  o.selection,
		policy:     o.policy,
		shapes:     o.shapes,
		crops:      o.crops,
		clock:      o.clock,
		interval:   o.minInterval,
		onRepaint:  o.onRepaint,
		settings:   settings,
		plane:      o.plane,
	}
	r.applyRasterSettings()

	meta := r.compositor.Metadata()
	_ = r.view.Set(transform.ViewState{
		CenterX:    float64(meta.Width) / 2,
		CenterY:    float64(meta.Height) / 2,
		Downsample: 1,
	}, 0, 0)
	r.publish()

	r.cancels = append(r.cancels,
		r.hierarchy.Subscribe(r.onHierarchyChange),
		r.selection.Subscribe(func([]*objects.PathObject) { r.RequestRepaint() }),
	)
	if pa, ok := p.(tiles.PrefetchAware); ok {
		pa.SetRegionPredicate(r.RequiresRegion)
	}
	return r
}

// Close detaches the renderer from its hierarchy and selection.
func (r *Renderer) Close() {
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
}

// State returns the current repaint state.
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Objects returns the hierarchy being drawn.
func (r *Renderer) Objects() *objects.Hierarchy { return r.hierarchy }

// Selection returns the selection being drawn.
func (r *Renderer) Selection() *objects.Selection { return r.selection }

// ShapeCache returns the shape cache.
func (r *Renderer) ShapeCache() *shapecache.Cache { return r.shapes }

// CropCache returns the crop cache.
func (r *Renderer) CropCache() *cropcache.Cache { return r.crops }

// RequestRepaint asks for a new frame. Requests coalesce: while a repaint
// is scheduled further requests are dropped, a request during Paint is
// replayed once it ends, and requests arriving within the minimum interval
// of the last frame are deferred until the interval has passed.
func (r *Renderer) RequestRepaint() {
	r.mu.Lock()
	switch {
	case r.state == StatePainting:
		r.again = true
		r.mu.Unlock()
		return
	case r.state == StateRepaintScheduled || r.deferred:
		r.mu.Unlock()
		return
	}
	if wait := r.interval - r.clock.Now().Sub(r.lastPaint); wait > 0 {
		r.deferred = true
		r.mu.Unlock()
		r.clock.AfterFunc(wait, r.fireDeferred)
		return
	}
	r.state = StateRepaintScheduled
	fn := r.onRepaint
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (r *Renderer) fireDeferred() {
	r.mu.Lock()
	r.deferred = false
	r.mu.Unlock()
	r.RequestRepaint()
}

// Paint draws a width x height viewport onto target: the raster first,
// then TMA cores, detections, annotations, and selected objects last.
// It always runs to completion against the view state it started with.
func (r *Renderer) Paint(target surface.Surface, width, height int) PaintResult {
	start := r.clock.Now()
	r.beginPass()
	defer r.endPass()

	if w, h := r.view.Size(); r.raster == nil || w != width || h != height {
		r.resize(width, height)
	}

	var res PaintResult
	fwd, err := r.view.Forward()
	res.Err = err
	res.Complete, res.RasterRecomposited = r.paintRaster(fwd, err)
	target.DrawImage(r.raster.Image(), geom.Identity(), surface.Nearest)

	if err != nil {
		Logger().Warn("view transform invalid, skipping overlays", "err", err)
	} else {
		r.paintObjects(target, fwd, &res)
	}

	Logger().Debug("paint",
		"complete", res.Complete,
		"recomposited", res.RasterRecomposited,
		"drawn", res.ObjectsDrawn,
		"skipped", res.ObjectsSkipped,
		"downsample", r.view.State().Downsample,
		"elapsed", r.clock.Now().Sub(start))
	return res
}

// beginPass enters StatePainting and applies object cache invalidations
// queued since the previous pass.
func (r *Renderer) beginPass() {
	r.mu.Lock()
	r.state = StatePainting
	all, regions := r.pendingAll, r.pending
	r.pendingAll, r.pending = false, nil
	r.mu.Unlock()

	switch {
	case all:
		r.shapes.InvalidateAll()
		r.crops.InvalidateAll()
	case len(regions) > 0:
		r.shapes.Invalidate(regions...)
		r.crops.Invalidate(regions...)
	}
}

func (r *Renderer) endPass() {
	r.mu.Lock()
	r.state = StateIdle
	r.lastPaint = r.clock.Now()
	again := r.again
	r.again = false
	r.mu.Unlock()
	if again {
		r.RequestRepaint()
	}
}

func (r *Renderer) resize(width, height int) {
	width, height = max(width, 1), max(height, 1)
	_ = r.view.Set(r.view.State(), width, height)
	r.raster = surface.NewImageSurface(width, height)
	r.cells.Store(dirty.New(width, height, dirty.DefaultCellSize))
	r.missing = dirty.New(width, height, dirty.DefaultCellSize)
	r.composed.valid = false
	r.publish()
}

// paintRaster brings the raster buffer up to date: from scratch when the
// view, plane or display changed, otherwise only for dirty cells and cells
// still waiting for tiles.
func (r *Renderer) paintRaster(m geom.Matrix, viewErr error) (complete, recomposited bool) {
	state := r.view.State()
	w, h := r.view.Size()
	cur := composedState{valid: true, state: state, plane: r.plane, w: w, h: h}

	r.mu.Lock()
	imageDirty := r.imageDirty
	r.imageDirty = false
	r.mu.Unlock()

	ds := state.Downsample
	if viewErr != nil {
		// Keep showing the image as it was last drawn correctly.
		if r.lastGood == nil {
			r.raster.Clear(r.settings.Background.RGBA)
			r.composed.valid = false
			return true, true
		}
		cur = *r.lastGood
		ds = cur.state.Downsample
		var v transform.View
		if err := v.Set(cur.state, w, h); err != nil {
			return true, false
		}
		m, _ = v.Forward()
		imageDirty = imageDirty || r.composed != cur
	}

	cells := r.cells.Load()
	var rects []image.Rectangle
	if imageDirty || r.composed != cur {
		cells.Clear()
		r.missing.Clear()
		rects = []image.Rectangle{r.raster.Bounds()}
	} else {
		cells.Merge(r.missing)
		r.missing.Clear()
		rects = cells.TakeRects()
	}
	if len(rects) == 0 {
		return true, false
	}

	inv, ok := m.Invert()
	if !ok {
		return true, false
	}
	complete = true
	for _, rect := range rects {
		sub := r.raster.Sub(rect)
		if sub == nil {
			continue
		}
		res := r.compositor.Composite(sub, tiles.ClipRegion(inv, rect), m, ds, r.plane)
		if !res.Complete {
			complete = false
			r.missing.MarkRect(rect)
		}
	}
	r.composed = cur
	if viewErr == nil {
		good := cur
		r.lastGood = &good
	}
	return complete, true
}

// publish stores the view for readers on other goroutines.
func (r *Renderer) publish() {
	w, h := r.view.Size()
	s := &viewSnapshot{plane: r.plane, size: image.Rect(0, 0, w, h)}
	if fwd, err := r.view.Forward(); err == nil {
		if vis, err := r.view.VisibleBounds(); err == nil {
			s.ok, s.forward, s.visible = true, fwd, vis
		}
	}
	r.snap.Store(s)
}

// TileArrived tells the renderer that pixels for an image-space region of
// a plane have become available. The affected viewport cells are marked
// for recompositing and a repaint is requested.
func (r *Renderer) TileArrived(plane roi.Plane, region geom.Rect) {
	s := r.snap.Load()
	if s == nil || !s.ok || plane != s.plane || !s.visible.Intersects(region) {
		return
	}
	vr := s.forward.TransformRect(region)
	rect := image.Rect(
		int(math.Floor(vr.X))-1, int(math.Floor(vr.Y))-1,
		int(math.Ceil(vr.Right()))+1, int(math.Ceil(vr.Bottom()))+1,
	).Intersect(s.size)
	if rect.Empty() {
		return
	}
	if cells := r.cells.Load(); cells != nil {
		cells.MarkRect(rect)
	}
	r.RequestRepaint()
}

// RequiresRegion reports whether an image-space region of a plane is
// visible. Providers use it to prioritise loading.
func (r *Renderer) RequiresRegion(plane roi.Plane, region geom.Rect) bool {
	s := r.snap.Load()
	return s != nil && s.ok && plane == s.plane && s.visible.Intersects(region)
}
