package tiles

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/channel"
	"github.com/anthonynsimon/bild/effect"

	"github.com/pathoview/viewport/display"
)

// DisplayTransform maps raw pixels to displayed pixels.
type DisplayTransform interface {
	// Apply returns the transformed image. It must not modify img.
	Apply(img image.Image) image.Image

	// RequiresRawChannels reports whether the transform must see pixels as
	// the provider delivered them, which rules out transforming an
	// assembled composite.
	RequiresRawChannels() bool

	// Key identifies the transform's effect, for caching its output.
	Key() string
}

// Adjustment applies brightness, contrast, gamma and inversion, in that
// order. It works on displayed colors, so it can run over a composite.
type Adjustment struct {
	Brightness float64 // -1..1
	Contrast   float64 // -1..1
	Gamma      float64 // 1 is neutral
	Invert     bool
}

func (a Adjustment) Apply(img image.Image) image.Image {
	out := img
	if a.Brightness != 0 {
		out = adjust.Brightness(out, a.Brightness)
	}
	if a.Contrast != 0 {
		out = adjust.Contrast(out, a.Contrast)
	}
	if a.Gamma != 1 && a.Gamma > 0 {
		out = adjust.Gamma(out, a.Gamma)
	}
	if a.Invert {
		out = effect.Invert(out)
	}
	return out
}

func (a Adjustment) RequiresRawChannels() bool { return false }

func (a Adjustment) Key() string {
	return fmt.Sprintf("adjust(%g,%g,%g,%t)", a.Brightness, a.Contrast, a.Gamma, a.Invert)
}

// ChannelView shows a single channel as greyscale.
type ChannelView struct {
	Channel int // 0..3: red, green, blue, alpha
}

var channels = [...]channel.Channel{channel.Red, channel.Green, channel.Blue, channel.Alpha}

func (c ChannelView) Apply(img image.Image) image.Image {
	if c.Channel < 0 || c.Channel >= len(channels) {
		return img
	}
	return channel.Extract(img, channels[c.Channel])
}

func (c ChannelView) RequiresRawChannels() bool { return true }

func (c ChannelView) Key() string { return fmt.Sprintf("channel(%d)", c.Channel) }

// Chain applies transforms in order.
type Chain []DisplayTransform

func (c Chain) Apply(img image.Image) image.Image {
	for _, t := range c {
		img = t.Apply(img)
	}
	return img
}

func (c Chain) RequiresRawChannels() bool {
	for _, t := range c {
		if t.RequiresRawChannels() {
			return true
		}
	}
	return false
}

func (c Chain) Key() string {
	key := ""
	for i, t := range c {
		if i > 0 {
			key += "|"
		}
		key += t.Key()
	}
	return key
}

// TransformFor builds the transform for raster settings, or nil when the
// settings leave pixels unchanged.
func TransformFor(r display.RasterSettings) DisplayTransform {
	if r.IsIdentity() {
		return nil
	}
	var chain Chain
	if r.Channel >= 0 {
		chain = append(chain, ChannelView{Channel: r.Channel})
	}
	adj := Adjustment{Brightness: r.Brightness, Contrast: r.Contrast, Gamma: r.Gamma, Invert: r.Invert}
	if adj != (Adjustment{Gamma: 1}) {
		chain = append(chain, adj)
	}
	if len(chain) == 1 {
		return chain[0]
	}
	return chain
}
