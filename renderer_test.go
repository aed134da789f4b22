package viewport

import (
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pathoview/viewport/display"
	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/objects"
	"github.com/pathoview/viewport/policy"
	"github.com/pathoview/viewport/roi"
	"github.com/pathoview/viewport/shapecache"
	"github.com/pathoview/viewport/surface"
	"github.com/pathoview/viewport/surface/surfacetest"
	"github.com/pathoview/viewport/tiles"
	"github.com/pathoview/viewport/transform"
)

const (
	testW = 800
	testH = 600

	// The test image is 4000 x 3000; the default view is centered on it at
	// full resolution, so the viewport shows image x 1600..2400, y 1200..1800.
	imageW = 4000
	imageH = 3000
)

// manualClock is a Clock that only moves when told to.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []manualTimer
}

type manualTimer struct {
	at time.Time
	f  func()
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = append(c.timers, manualTimer{at: c.now.Add(d), f: f})
}

// Advance moves the clock forward and runs the timers that came due.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	kept := c.timers[:0]
	for _, t := range c.timers {
		if t.at.After(c.now) {
			kept = append(kept, t)
		} else {
			due = append(due, t.f)
		}
	}
	c.timers = kept
	c.mu.Unlock()
	for _, f := range due {
		f()
	}
}

func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// gatedProvider wraps a synthetic image, counts tile requests and withholds
// tiles until opened.
type gatedProvider struct {
	*tiles.Synthetic
	open      atomic.Bool
	requests  atomic.Int64
	predicate tiles.RegionPredicate
}

func newGatedProvider(w, h int, open bool, opts ...tiles.SyntheticOption) *gatedProvider {
	p := &gatedProvider{Synthetic: tiles.NewSynthetic(w, h, opts...)}
	p.open.Store(open)
	return p
}

func (p *gatedProvider) Tile(req tiles.Request) (image.Image, bool) {
	p.requests.Add(1)
	if !p.open.Load() {
		return nil, false
	}
	return p.Synthetic.Tile(req)
}

func (p *gatedProvider) SetRegionPredicate(fn tiles.RegionPredicate) { p.predicate = fn }

func newTestRenderer(t *testing.T, opts ...RendererOption) *Renderer {
	t.Helper()
	opts = append([]RendererOption{WithClock(newManualClock())}, opts...)
	r := New(tiles.NewSynthetic(imageW, imageH), opts...)
	t.Cleanup(r.Close)
	return r
}

func newTarget() *surface.ImageSurface { return surface.NewImageSurface(testW, testH) }

func strokeColors(rec *surfacetest.Recorder) []color.Color {
	var out []color.Color
	for _, op := range rec.Ops {
		if op.Kind == surfacetest.OpStroke {
			out = append(out, op.Style.Color)
		}
	}
	return out
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateIdle, "idle"},
		{StateRepaintScheduled, "repaint-scheduled"},
		{StatePainting, "painting"},
		{State(9), "State(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestRepaintRequestsCoalesce(t *testing.T) {
	var calls int
	r := newTestRenderer(t, WithRepaintHandler(func() { calls++ }))
	if r.State() != StateIdle {
		t.Fatalf("new renderer state = %v", r.State())
	}

	r.RequestRepaint()
	r.RequestRepaint()
	r.RequestRepaint()
	if calls != 1 || r.State() != StateRepaintScheduled {
		t.Fatalf("calls = %d, state = %v; want 1, repaint-scheduled", calls, r.State())
	}

	r.Paint(newTarget(), testW, testH)
	if r.State() != StateIdle {
		t.Errorf("state after Paint = %v, want idle", r.State())
	}
	if calls != 1 {
		t.Errorf("Paint without new requests should not repaint, calls = %d", calls)
	}
}

func TestRequestDuringPaintReplays(t *testing.T) {
	clk := newManualClock()
	var calls int
	var r *Renderer
	var states []State
	hide := func(*objects.PathObject) bool {
		states = append(states, r.State())
		r.RequestRepaint()
		return false
	}
	h := objects.NewHierarchy()
	h.Add(objects.New(objects.KindAnnotation, roi.NewRectangle(1900, 1400, 200, 200, roi.DefaultPlane), nil))

	r = New(tiles.NewSynthetic(imageW, imageH),
		WithClock(clk), WithObjects(h),
		WithPolicy(policy.Policy{Hide: hide}),
		WithRepaintHandler(func() { calls++ }))
	defer r.Close()

	r.Paint(newTarget(), testW, testH)
	if len(states) != 1 || states[0] != StatePainting {
		t.Fatalf("states seen during paint = %v", states)
	}
	// The replayed request lands inside the throttle interval.
	if calls != 0 || clk.Pending() != 1 {
		t.Fatalf("calls = %d, pending timers = %d; want 0, 1", calls, clk.Pending())
	}
	clk.Advance(DefaultMinRepaintInterval)
	if calls != 1 || r.State() != StateRepaintScheduled {
		t.Errorf("after interval calls = %d, state = %v", calls, r.State())
	}
}

func TestRepaintThrottle(t *testing.T) {
	clk := newManualClock()
	var calls int
	r := newTestRenderer(t, WithClock(clk), WithRepaintHandler(func() { calls++ }))

	r.Paint(newTarget(), testW, testH)
	clk.Advance(5 * time.Millisecond)
	r.RequestRepaint()
	r.RequestRepaint()
	if calls != 0 || clk.Pending() != 1 {
		t.Fatalf("calls = %d, pending = %d; want a single deferred request", calls, clk.Pending())
	}
	clk.Advance(10 * time.Millisecond)
	if calls != 0 {
		t.Fatal("deferred request fired early")
	}
	clk.Advance(time.Millisecond)
	if calls != 1 {
		t.Errorf("calls = %d after the interval, want 1", calls)
	}
}

func TestRepaintThrottleDisabled(t *testing.T) {
	var calls int
	r := newTestRenderer(t, WithMinRepaintInterval(0), WithRepaintHandler(func() { calls++ }))
	r.Paint(newTarget(), testW, testH)
	r.RequestRepaint()
	if calls != 1 {
		t.Errorf("calls = %d, want immediate repaint", calls)
	}
}

func TestPaintReusesRaster(t *testing.T) {
	r := newTestRenderer(t)
	target := newTarget()

	res := r.Paint(target, testW, testH)
	if !res.Complete || !res.RasterRecomposited || res.Err != nil {
		t.Fatalf("first paint = %+v", res)
	}
	if res = r.Paint(target, testW, testH); res.RasterRecomposited {
		t.Error("unchanged view should reuse the raster")
	}
	if err := r.Pan(10, 0); err != nil {
		t.Fatal(err)
	}
	if res = r.Paint(target, testW, testH); !res.RasterRecomposited {
		t.Error("pan should recomposite the raster")
	}
	if res = r.Paint(target, testW/2, testH); !res.RasterRecomposited {
		t.Error("resize should recomposite the raster")
	}
}

func TestPaintDrawsOverlayOnRaster(t *testing.T) {
	h := objects.NewHierarchy()
	ann := objects.New(objects.KindAnnotation, roi.NewRectangle(1900, 1400, 200, 200, roi.DefaultPlane), nil)
	ann.Style = objects.Style{Color: color.RGBA{G: 255, A: 255}, HasColor: true}
	h.Add(ann)
	r := newTestRenderer(t, WithObjects(h))
	target := newTarget()

	res := r.Paint(target, testW, testH)
	if res.ObjectsDrawn != 1 {
		t.Fatalf("ObjectsDrawn = %d, want 1", res.ObjectsDrawn)
	}
	// Image (2000, 1400) lands at viewport (400, 200), on the top edge.
	if got := target.Image().RGBAAt(400, 200); got.G < 240 || got.R > 16 || got.B > 16 {
		t.Errorf("edge pixel = %v, want green", got)
	}
	if got := target.Image().RGBAAt(400, 300); got.R < 128 {
		t.Errorf("unfilled annotation interior = %v, want the raster", got)
	}
}

func TestOverlayOrder(t *testing.T) {
	tumor := objects.NewClass("Tumor", color.RGBA{B: 255, A: 255})
	h := objects.NewHierarchy()
	sel := objects.New(objects.KindAnnotation, roi.NewRectangle(2100, 1300, 50, 50, roi.DefaultPlane), nil)
	ann := objects.New(objects.KindAnnotation, roi.NewRectangle(1900, 1400, 200, 200, roi.DefaultPlane), nil)
	ann.Style = objects.Style{Color: color.RGBA{G: 255, A: 255}, HasColor: true}
	det := objects.New(objects.KindDetection, roi.NewRectangle(2000, 1500, 20, 20, roi.DefaultPlane), tumor)
	tma := objects.New(objects.KindTMACore, roi.NewEllipse(1700, 1300, 300, 300, roi.DefaultPlane), nil)
	h.Add(sel, ann, det, tma)

	s := display.Default()
	s.UseSelectionColor = true
	r := newTestRenderer(t, WithObjects(h), WithSettings(s))
	r.Selection().Set(sel)

	rec := surfacetest.New(testW, testH)
	res := r.Paint(rec, testW, testH)
	if res.ObjectsDrawn != 4 || res.ObjectsSkipped != 0 {
		t.Fatalf("result = %+v", res)
	}
	if rec.Ops[0].Kind != surfacetest.OpDrawImage {
		t.Fatalf("first op = %v, want the raster", rec.Ops[0].Kind)
	}
	want := []color.Color{
		color.NRGBA{R: 20, G: 20, B: 180, A: 255}, // TMA core
		color.NRGBA{B: 255, A: 255},               // detection
		color.NRGBA{G: 255, A: 255},               // annotation
		color.NRGBA{R: 255, G: 255, A: 255},       // selection
	}
	got := strokeColors(rec)
	if len(got) != len(want) {
		t.Fatalf("stroke colors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stroke %d color = %v, want %v", i, got[i], want[i])
		}
	}
	if last := rec.Ops[len(rec.Ops)-1]; len(last.Style.Dash) == 0 {
		t.Error("selection outline should be dashed")
	}
}

func TestSelectionOverridesClassHiding(t *testing.T) {
	tumor := objects.NewClass("Tumor", color.RGBA{B: 255, A: 255})
	h := objects.NewHierarchy()
	a := objects.New(objects.KindDetection, roi.NewRectangle(2000, 1500, 20, 20, roi.DefaultPlane), tumor)
	b := objects.New(objects.KindDetection, roi.NewRectangle(2050, 1500, 20, 20, roi.DefaultPlane), tumor)
	h.Add(a, b)

	s := display.Default()
	s.Classes = []string{"Tumor"}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	r := newTestRenderer(t, WithObjects(h), WithSettings(s))
	r.Selection().Set(b)

	rec := surfacetest.New(testW, testH)
	if res := r.Paint(rec, testW, testH); res.ObjectsDrawn != 1 {
		t.Errorf("ObjectsDrawn = %d, want only the selected object", res.ObjectsDrawn)
	}
}

func TestObjectPanicIsSkipped(t *testing.T) {
	h := objects.NewHierarchy()
	good := objects.New(objects.KindAnnotation, roi.NewRectangle(1900, 1400, 200, 200, roi.DefaultPlane), nil)
	bad := objects.New(objects.KindAnnotation, roi.NewRectangle(2000, 1300, 200, 200, roi.DefaultPlane), nil)
	bad.Name = "bad"
	h.Add(bad, good)
	p := policy.Policy{Hide: func(o *objects.PathObject) bool {
		if o.Name == "bad" {
			panic("broken measurement")
		}
		return false
	}}
	r := newTestRenderer(t, WithObjects(h), WithPolicy(p))

	rec := surfacetest.New(testW, testH)
	res := r.Paint(rec, testW, testH)
	if res.ObjectsSkipped != 1 || res.ObjectsDrawn != 1 {
		t.Errorf("result = %+v, want one drawn and one skipped", res)
	}
	if r.State() != StateIdle {
		t.Error("a failing object should not leave the renderer painting")
	}
}

func TestTransformErrorSkipsOverlays(t *testing.T) {
	h := objects.NewHierarchy()
	h.Add(objects.New(objects.KindAnnotation, roi.NewRectangle(1900, 1400, 200, 200, roi.DefaultPlane), nil))
	r := newTestRenderer(t, WithObjects(h))
	rec := surfacetest.New(testW, testH)
	r.Paint(rec, testW, testH)

	good := r.ViewState()
	bad := good
	bad.Downsample = 0
	if err := r.SetViewState(bad); err == nil {
		t.Fatal("zero downsample should be rejected")
	}
	if _, err := r.MapToImage(geom.Pt(1, 1)); err == nil {
		t.Error("MapToImage should fail for a degenerate view")
	}

	rec.Reset()
	res := r.Paint(rec, testW, testH)
	var te *transform.TransformError
	if !errors.As(res.Err, &te) {
		t.Fatalf("Err = %v, want a TransformError", res.Err)
	}
	if res.ObjectsDrawn != 0 || rec.Count(surfacetest.OpStroke) != 0 {
		t.Error("overlays should be skipped")
	}
	if rec.Count(surfacetest.OpDrawImage) != 1 {
		t.Error("the last good raster should still be shown")
	}

	if err := r.SetViewState(good); err != nil {
		t.Fatal(err)
	}
	rec.Reset()
	if res = r.Paint(rec, testW, testH); res.Err != nil || res.ObjectsDrawn != 1 {
		t.Errorf("after recovery result = %+v", res)
	}
}

func TestTileArrivedRecompositesMissingCells(t *testing.T) {
	p := newGatedProvider(imageW, imageH, false, tiles.WithThumbnailDownsample(0))
	var calls int
	r := New(p, WithClock(newManualClock()), WithMinRepaintInterval(0),
		WithRepaintHandler(func() { calls++ }))
	defer r.Close()
	target := newTarget()

	res := r.Paint(target, testW, testH)
	if res.Complete {
		t.Fatal("paint without tiles should be incomplete")
	}
	// Cells still waiting for tiles are retried on every pass.
	if res = r.Paint(target, testW, testH); !res.RasterRecomposited || res.Complete {
		t.Errorf("retry pass = %+v", res)
	}

	r.TileArrived(roi.Plane{Z: 1}, geom.R(1900, 1400, 100, 100))
	r.TileArrived(roi.DefaultPlane, geom.R(0, 0, 100, 100))
	if calls != 0 {
		t.Errorf("off-plane or invisible arrivals should not repaint, calls = %d", calls)
	}

	p.open.Store(true)
	r.TileArrived(roi.DefaultPlane, geom.R(1900, 1400, 100, 100))
	if calls != 1 {
		t.Errorf("calls = %d after a visible arrival, want 1", calls)
	}
	if res = r.Paint(target, testW, testH); !res.Complete || !res.RasterRecomposited {
		t.Errorf("after arrival = %+v", res)
	}
	if res = r.Paint(target, testW, testH); res.RasterRecomposited {
		t.Error("complete raster should be reused")
	}
}

func TestRequiresRegion(t *testing.T) {
	p := newGatedProvider(imageW, imageH, true)
	r := New(p, WithClock(newManualClock()))
	defer r.Close()
	if p.predicate == nil {
		t.Fatal("prefetch-aware provider should receive a region predicate")
	}
	r.SetViewportSize(testW, testH)

	tests := []struct {
		name   string
		plane  roi.Plane
		region geom.Rect
		want   bool
	}{
		{"center", roi.DefaultPlane, geom.R(1900, 1400, 10, 10), true},
		{"straddles edge", roi.DefaultPlane, geom.R(1500, 1500, 200, 10), true},
		{"outside", roi.DefaultPlane, geom.R(0, 0, 100, 100), false},
		{"other plane", roi.Plane{T: 2}, geom.R(1900, 1400, 10, 10), false},
	}
	for _, tt := range tests {
		if got := p.predicate(tt.plane, tt.region); got != tt.want {
			t.Errorf("%s: RequiresRegion = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSetDisplaySettings(t *testing.T) {
	r := newTestRenderer(t)
	target := newTarget()
	r.Paint(target, testW, testH)

	s := r.DisplaySettings()
	s.ShowAnnotations = false
	if err := r.SetDisplaySettings(s); err != nil {
		t.Fatal(err)
	}
	if res := r.Paint(target, testW, testH); res.RasterRecomposited {
		t.Error("overlay-only change should not recomposite the raster")
	}

	s.Raster.Invert = true
	if err := r.SetDisplaySettings(s); err != nil {
		t.Fatal(err)
	}
	if res := r.Paint(target, testW, testH); !res.RasterRecomposited {
		t.Error("raster change should recomposite the raster")
	}

	s.Raster.Channel = 7
	if err := r.SetDisplaySettings(s); !errors.Is(err, display.ErrInvalidSettings) {
		t.Errorf("invalid settings error = %v", err)
	}
	if r.DisplaySettings().Raster.Channel != -1 {
		t.Error("rejected settings should not be applied")
	}
}

func TestBackgroundColor(t *testing.T) {
	p := newGatedProvider(imageW, imageH, false, tiles.WithThumbnailDownsample(0))
	s := display.Default()
	s.Background = display.HexColor{RGBA: color.RGBA{R: 10, G: 20, B: 30, A: 255}}
	r := New(p, WithClock(newManualClock()), WithSettings(s))
	defer r.Close()
	target := newTarget()

	r.Paint(target, testW, testH)
	want := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	for _, pt := range []image.Point{{0, 0}, {400, 300}, {testW - 1, testH - 1}} {
		if got := target.Image().RGBAAt(pt.X, pt.Y); got != want {
			t.Errorf("pixel %v = %v, want background %v", pt, got, want)
		}
	}

	s.Background = display.HexColor{RGBA: color.RGBA{R: 200, G: 100, B: 50, A: 255}}
	if err := r.SetDisplaySettings(s); err != nil {
		t.Fatal(err)
	}
	if res := r.Paint(target, testW, testH); !res.RasterRecomposited {
		t.Error("background change should recomposite the raster")
	}
	if got, want := target.Image().RGBAAt(400, 300), s.Background.RGBA; got != want {
		t.Errorf("after change pixel = %v, want %v", got, want)
	}
}

func TestMarkImageChanged(t *testing.T) {
	r := newTestRenderer(t)
	target := newTarget()
	r.Paint(target, testW, testH)
	r.MarkImageChanged()
	if res := r.Paint(target, testW, testH); !res.RasterRecomposited {
		t.Error("MarkImageChanged should force a recomposite")
	}
}

func polygonRing(cx, cy, radius float64, n int) []geom.Point {
	pts := make([]geom.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = geom.Pt(cx+radius*math.Cos(a), cy+radius*math.Sin(a))
	}
	return pts
}

func TestInvalidationWaitsForNextPass(t *testing.T) {
	h := objects.NewHierarchy()
	first := objects.New(objects.KindAnnotation, roi.NewPolygon(polygonRing(1900, 1400, 80, 400), roi.DefaultPlane), nil)
	second := objects.New(objects.KindAnnotation, roi.NewPolygon(polygonRing(2100, 1600, 80, 400), roi.DefaultPlane), nil)
	first.Name, second.Name = "first", "second"
	h.Add(first, second)
	old := first.ROI()

	// Editing first while second is being painted happens mid-pass.
	var edited bool
	p := policy.Policy{Hide: func(o *objects.PathObject) bool {
		if o.Name == "second" && !edited {
			edited = true
			h.ReplaceROI(first, roi.NewPolygon(polygonRing(1950, 1400, 80, 400), roi.DefaultPlane))
		}
		return false
	}}
	r := newTestRenderer(t, WithObjects(h), WithPolicy(p))
	target := newTarget()

	r.Paint(target, testW, testH)
	if !edited {
		t.Fatal("edit did not run")
	}
	if _, ok := r.ShapeCache().Lookup(old, shapecache.TierNone); !ok {
		t.Error("cache entry was dropped during the pass that used it")
	}
	r.Paint(target, testW, testH)
	if _, ok := r.ShapeCache().Lookup(old, shapecache.TierNone); ok {
		t.Error("stale entry should be dropped at the start of the next pass")
	}
}

func TestVisibleImageRegion(t *testing.T) {
	r := newTestRenderer(t)
	r.SetViewportSize(testW, testH)

	region, err := r.VisibleImageRegion()
	if err != nil {
		t.Fatal(err)
	}
	rs, ok := region.(*geom.RectShape)
	if !ok {
		t.Fatalf("unrotated region is %T, want *geom.RectShape", region)
	}
	if rs.R != geom.R(1600, 1200, 800, 600) {
		t.Errorf("visible region = %v", rs.R)
	}

	if err := r.Rotate(math.Pi / 6); err != nil {
		t.Fatal(err)
	}
	region, err = r.VisibleImageRegion()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := region.(*geom.RectShape); ok {
		t.Error("rotated region should be a quadrilateral")
	}

	c, err := r.MapToViewport(geom.Pt(2000, 1500))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(c.X-400) > 1e-9 || math.Abs(c.Y-300) > 1e-9 {
		t.Errorf("image center maps to %v, want viewport center", c)
	}
}

func TestSetPlaneFiltersObjects(t *testing.T) {
	h := objects.NewHierarchy()
	h.Add(
		objects.New(objects.KindAnnotation, roi.NewRectangle(1900, 1400, 200, 200, roi.DefaultPlane), nil),
		objects.New(objects.KindAnnotation, roi.NewRectangle(1900, 1400, 200, 200, roi.Plane{Z: 3}), nil),
		objects.New(objects.KindAnnotation, roi.NewRectangle(1950, 1450, 20, 20, roi.Plane{Z: 3}), nil),
	)
	r := newTestRenderer(t, WithObjects(h))
	target := newTarget()
	if res := r.Paint(target, testW, testH); res.ObjectsDrawn != 1 {
		t.Errorf("plane 0 drew %d objects", res.ObjectsDrawn)
	}
	r.SetPlane(roi.Plane{Z: 3})
	res := r.Paint(target, testW, testH)
	if res.ObjectsDrawn != 2 || !res.RasterRecomposited {
		t.Errorf("plane 3 result = %+v", res)
	}
}
