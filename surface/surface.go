package surface

import (
	"image"
	"image/color"

	"github.com/pathoview/viewport/geom"
)

// Surface is the rendering target abstraction.
//
// All coordinates are device pixels. Rings are passed through unchanged:
// callers transform geometry before drawing.
//
// Surfaces are NOT thread-safe. Each surface should be used from a single
// goroutine, or external synchronization must be used.
type Surface interface {
	// Width returns the surface width in pixels.
	Width() int

	// Height returns the surface height in pixels.
	Height() int

	// Bounds returns the pixel rectangle the surface covers.
	Bounds() image.Rectangle

	// Clear fills the entire surface with the given color, replacing
	// whatever was there.
	Clear(c color.Color)

	// Fill fills the closed rings with the non-zero winding rule. Holes
	// must be wound opposite to their outer ring.
	Fill(rings [][]geom.Point, c color.Color)

	// Stroke outlines each ring. When closed is set every ring is closed
	// back to its first vertex.
	Stroke(rings [][]geom.Point, closed bool, style StrokeStyle)

	// FillRect fills an axis-aligned rectangle, blending over the contents.
	FillRect(r geom.Rect, c color.Color)

	// DrawImage draws img transformed by m, which maps img's pixel
	// coordinates to device coordinates.
	DrawImage(img image.Image, m geom.Matrix, interp Interpolation)
}

// ImageBacked is implemented by surfaces whose pixels live in memory.
type ImageBacked interface {
	Surface

	// Image returns the backing image. It is not a copy.
	Image() *image.RGBA
}
