package tiles

import (
	"image"
	"image/color"
	"math"

	"github.com/pathoview/viewport/roi"
)

// Pattern gives the color of the full-resolution image at (x, y).
type Pattern func(x, y float64) color.RGBA

// Procedural is an image whose pixels are computed on demand from a
// Pattern, sampled at pixel centers. Each pixel stands for a
// Downsample x Downsample block of the full-resolution image starting at
// Origin. It lets a huge pyramid be served without allocating it.
type Procedural struct {
	Rect       image.Rectangle
	Origin     image.Point
	Downsample float64
	Pattern    Pattern
}

func (p *Procedural) ColorModel() color.Model { return color.RGBAModel }
func (p *Procedural) Bounds() image.Rectangle { return p.Rect }

func (p *Procedural) At(x, y int) color.Color {
	fx := float64(p.Origin.X) + (float64(x-p.Rect.Min.X)+0.5)*p.Downsample
	fy := float64(p.Origin.Y) + (float64(y-p.Rect.Min.Y)+0.5)*p.Downsample
	return p.Pattern(fx, fy)
}

// Synthetic is a Provider serving a procedural image. Every tile is always
// available.
type Synthetic struct {
	meta      Metadata
	pattern   Pattern
	thumbnail float64
}

// SyntheticOption configures a Synthetic provider.
type SyntheticOption func(*Synthetic)

// WithPattern sets the pixel pattern.
func WithPattern(p Pattern) SyntheticOption {
	return func(s *Synthetic) { s.pattern = p }
}

// WithThumbnailDownsample sets the thumbnail downsample. Zero disables
// the thumbnail.
func WithThumbnailDownsample(ds float64) SyntheticOption {
	return func(s *Synthetic) { s.thumbnail = ds }
}

// WithLevels replaces the default pyramid levels.
func WithLevels(downsamples ...float64) SyntheticOption {
	return func(s *Synthetic) {
		s.meta.Levels = s.meta.Levels[:0]
		for _, ds := range downsamples {
			s.meta.Levels = append(s.meta.Levels, Level{Downsample: ds})
		}
	}
}

// NewSynthetic returns a provider for a width x height image with 256px
// tiles, power-of-four levels down to about 1000px, and a thumbnail no
// larger than 1024px.
func NewSynthetic(width, height int, opts ...SyntheticOption) *Synthetic {
	s := &Synthetic{
		meta: Metadata{
			Width: width, Height: height,
			TileWidth: 256, TileHeight: 256,
		},
		pattern:   Tissue,
		thumbnail: math.Max(1, float64(max(width, height))/1024),
	}
	for ds := 1.0; ; ds *= 4 {
		s.meta.Levels = append(s.meta.Levels, Level{Downsample: ds})
		if float64(max(width, height))/ds <= 1000 {
			break
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synthetic) Metadata() Metadata { return s.meta }

func (s *Synthetic) Tile(req Request) (image.Image, bool) {
	ds := req.Downsample(s.meta)
	w := int(math.Ceil(float64(req.Rect.Dx()) / ds))
	h := int(math.Ceil(float64(req.Rect.Dy()) / ds))
	return &Procedural{
		Rect:       image.Rect(0, 0, w, h),
		Origin:     req.Rect.Min,
		Downsample: ds,
		Pattern:    s.pattern,
	}, true
}

func (s *Synthetic) Thumbnail(roi.Plane) Thumbnail {
	if s.thumbnail <= 0 {
		return Thumbnail{}
	}
	w := int(math.Ceil(float64(s.meta.Width) / s.thumbnail))
	h := int(math.Ceil(float64(s.meta.Height) / s.thumbnail))
	return Thumbnail{
		Image: &Procedural{
			Rect:       image.Rect(0, 0, w, h),
			Downsample: s.thumbnail,
			Pattern:    s.pattern,
		},
		Downsample: s.thumbnail,
	}
}

// Tissue is a pattern of pink stained blobs on a pale background.
func Tissue(x, y float64) color.RGBA {
	v := math.Sin(x/1900)*math.Cos(y/2300) + 0.5*math.Sin((x+y)/700)
	if v < 0.2 {
		return color.RGBA{240, 236, 240, 255}
	}
	t := math.Min(1, (v-0.2)/1.3)
	return color.RGBA{
		R: uint8(230 - 60*t),
		G: uint8(170 - 120*t),
		B: uint8(200 - 40*t),
		A: 255,
	}
}
