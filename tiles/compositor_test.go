package tiles

import (
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/roi"
	"github.com/pathoview/viewport/surface"
	"github.com/pathoview/viewport/surface/surfacetest"
)

var (
	tileColor  = color.RGBA{0, 255, 0, 255}
	thumbColor = color.RGBA{255, 0, 0, 255}
)

// fakeProvider serves solid tiles and counts requests. Tiles for which
// withhold returns true are reported as not yet loaded.
type fakeProvider struct {
	meta     Metadata
	thumbDS  float64
	withhold func(Request) bool

	mu    sync.Mutex
	calls []Request
}

func newFakeProvider(thumbDS float64) *fakeProvider {
	return &fakeProvider{meta: testMeta(), thumbDS: thumbDS}
}

func (p *fakeProvider) Metadata() Metadata { return p.meta }

func (p *fakeProvider) Tile(req Request) (image.Image, bool) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()
	if p.withhold != nil && p.withhold(req) {
		return nil, false
	}
	ds := req.Downsample(p.meta)
	w := int(math.Ceil(float64(req.Rect.Dx()) / ds))
	h := int(math.Ceil(float64(req.Rect.Dy()) / ds))
	return solid(w, h, tileColor), true
}

func (p *fakeProvider) Thumbnail(roi.Plane) Thumbnail {
	if p.thumbDS == 0 {
		return Thumbnail{}
	}
	n := int(math.Ceil(1000 / p.thumbDS))
	return Thumbnail{Image: solid(n, n, thumbColor), Downsample: p.thumbDS}
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// composite renders a w x h viewport whose top-left corner shows image
// point (x, y) at downsample ds.
func composite(c *Compositor, w, h int, x, y, ds float64) (*surface.ImageSurface, Result) {
	dst := surface.NewImageSurface(w, h)
	m := geom.Scale(1/ds, 1/ds).Multiply(geom.Translate(-x, -y))
	inv, _ := m.Invert()
	return dst, c.Composite(dst, ClipRegion(inv, dst.Bounds()), m, ds, roi.DefaultPlane)
}

func near(a, b color.RGBA) bool {
	d := func(x, y uint8) bool { return math.Abs(float64(x)-float64(y)) < 8 }
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B)
}

func TestCompositeUsesThumbnailWhenFineEnough(t *testing.T) {
	p := newFakeProvider(62.5)
	c := NewCompositor(p)

	dst, res := composite(c, 10, 10, 0, 0, 100)
	if !res.Complete || !res.UsedThumbnail || res.Requested != 0 {
		t.Errorf("result = %+v, want complete thumbnail composite", res)
	}
	if p.Calls() != 0 {
		t.Errorf("provider got %d tile requests, want none", p.Calls())
	}
	if px := dst.Image().RGBAAt(5, 5); !near(px, thumbColor) {
		t.Errorf("pixel = %v, want thumbnail color", px)
	}
}

func TestCompositeTiles(t *testing.T) {
	p := newFakeProvider(62.5)
	c := NewCompositor(p)

	dst, res := composite(c, 150, 150, 200, 200, 1)
	if !res.Complete || res.UsedThumbnail || res.Requested != 4 || res.Missing != 0 {
		t.Errorf("result = %+v", res)
	}
	if p.Calls() != 4 {
		t.Errorf("tile requests = %d, want 4", p.Calls())
	}
	if px := dst.Image().RGBAAt(75, 75); !near(px, tileColor) {
		t.Errorf("pixel = %v, want tile color", px)
	}
}

func TestCompositeMissingTilesUnderlayThumbnail(t *testing.T) {
	p := newFakeProvider(62.5)
	p.withhold = func(r Request) bool { return r.Rect.Min.X >= 300 }
	c := NewCompositor(p)

	dst, res := composite(c, 150, 150, 200, 200, 1)
	if res.Complete || res.Missing != 2 || !res.UsedThumbnail {
		t.Errorf("result = %+v, want 2 missing with thumbnail underlay", res)
	}
	img := dst.Image()
	if px := img.RGBAAt(50, 50); !near(px, tileColor) {
		t.Errorf("loaded tile pixel = %v, want tile color", px)
	}
	if px := img.RGBAAt(120, 50); !near(px, thumbColor) {
		t.Errorf("missing tile pixel = %v, want thumbnail color", px)
	}
}

func TestCompositeWithoutThumbnailLeavesBackground(t *testing.T) {
	p := newFakeProvider(0)
	p.withhold = func(Request) bool { return true }
	c := NewCompositor(p)

	dst, res := composite(c, 50, 50, 0, 0, 1)
	if res.Complete || res.UsedThumbnail {
		t.Errorf("result = %+v", res)
	}
	if px := dst.Image().RGBAAt(10, 10); px != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("pixel = %v, want background", px)
	}
}

func TestPerTileTransformRule(t *testing.T) {
	tests := []struct {
		name      string
		transform DisplayTransform
		x, y      float64
		perTile   bool
	}{
		{"color adjustment inside image", Adjustment{Gamma: 1, Invert: true}, 200, 200, false},
		{"color adjustment past the edge", Adjustment{Gamma: 1, Invert: true}, -50, -50, true},
		{"raw channels inside image", ChannelView{Channel: 1}, 200, 200, true},
		{"no transform", nil, -50, -50, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompositor(newFakeProvider(0))
			c.SetDisplay(tt.transform, color.Black, surface.Nearest)
			_, res := composite(c, 100, 100, tt.x, tt.y, 1)
			if res.PerTileTransform != tt.perTile {
				t.Errorf("PerTileTransform = %v, want %v", res.PerTileTransform, tt.perTile)
			}
		})
	}
}

func TestTransformOverComposite(t *testing.T) {
	c := NewCompositor(newFakeProvider(0))
	c.SetDisplay(Adjustment{Gamma: 1, Invert: true}, color.Black, surface.Nearest)

	dst, _ := composite(c, 100, 100, 200, 200, 1)
	if px := dst.Image().RGBAAt(10, 10); !near(px, color.RGBA{255, 0, 255, 255}) {
		t.Errorf("pixel = %v, want inverted tile", px)
	}
}

func TestPerTileTransformKeepsBackground(t *testing.T) {
	c := NewCompositor(newFakeProvider(0))
	c.SetDisplay(Adjustment{Gamma: 1, Invert: true}, color.Black, surface.Nearest)

	dst, res := composite(c, 100, 100, -50, -50, 1)
	if !res.PerTileTransform {
		t.Fatal("expected per-tile transform")
	}
	img := dst.Image()
	if px := img.RGBAAt(10, 10); px != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("background pixel = %v, want untransformed black", px)
	}
	if px := img.RGBAAt(60, 60); !near(px, color.RGBA{255, 0, 255, 255}) {
		t.Errorf("tile pixel = %v, want inverted tile", px)
	}
}

func TestTransformedTilesAreCached(t *testing.T) {
	c := NewCompositor(newFakeProvider(0))
	c.SetDisplay(ChannelView{Channel: 1}, color.Black, surface.Nearest)

	composite(c, 100, 100, 200, 200, 1)
	first := c.CacheStats()
	composite(c, 100, 100, 210, 210, 1)
	second := c.CacheStats()
	if second.Hits <= first.Hits {
		t.Errorf("second composite hits = %d, want more than %d", second.Hits, first.Hits)
	}

	c.SetDisplay(ChannelView{Channel: 0}, color.Black, surface.Nearest)
	if c.CacheStats().Len != 0 {
		t.Error("changing the transform should drop cached tiles")
	}
}

func TestCompositeOnRecorder(t *testing.T) {
	c := NewCompositor(newFakeProvider(0))
	c.SetDisplay(Adjustment{Gamma: 1, Invert: true}, color.Black, surface.Bilinear)

	rec := surfacetest.New(100, 100)
	m := geom.Translate(-200, -200)
	inv, _ := m.Invert()
	res := c.Composite(rec, ClipRegion(inv, rec.Bounds()), m, 1, roi.DefaultPlane)

	if !res.PerTileTransform {
		t.Error("a surface without pixels needs per-tile transforms")
	}
	if rec.Count(surfacetest.OpClear) != 1 || rec.Count(surfacetest.OpDrawImage) != res.Requested {
		t.Errorf("ops = %v", rec.Ops)
	}
	for _, op := range rec.Ops {
		if op.Kind == surfacetest.OpDrawImage && op.Interp != surface.Bilinear {
			t.Errorf("interp = %v, want bilinear", op.Interp)
		}
	}
}

func TestSyntheticProvider(t *testing.T) {
	s := NewSynthetic(100000, 100000, WithThumbnailDownsample(32))
	m := s.Metadata()
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	if top := m.Levels[len(m.Levels)-1].Downsample; 100000/top > 1000 {
		t.Errorf("coarsest level %g too fine", top)
	}
	th := s.Thumbnail(roi.DefaultPlane)
	if th.Downsample != 32 || th.Image.Bounds().Dx() != 3125 {
		t.Errorf("thumbnail = %v at %g", th.Image.Bounds(), th.Downsample)
	}
	img, ok := s.Tile(Request{Level: 1, Rect: image.Rect(0, 0, 1024, 1000)})
	if !ok || img.Bounds() != image.Rect(0, 0, 256, 250) {
		t.Errorf("tile bounds = %v", img.Bounds())
	}
	if got, want := img.At(3, 4), Tissue(3.5*4, 4.5*4); got != want {
		t.Errorf("At(3,4) = %v, want %v", got, want)
	}
}
