// Package tiles composites pyramidal image tiles into a viewport.
//
// Pixels come from a Provider, which is never asked to block: a tile that
// is not ready is reported missing and the caller repaints once it
// arrives. When the provider's whole-image thumbnail is at least as fine
// as the requested downsample, the compositor draws the thumbnail and
// requests no tiles at all.
package tiles

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/roi"
)

// ErrInvalidMetadata is returned by Metadata.Validate.
var ErrInvalidMetadata = errors.New("tiles: invalid metadata")

// Level is one resolution of the image pyramid.
type Level struct {
	Downsample float64
}

// Metadata describes the pyramid a Provider serves.
type Metadata struct {
	Width, Height         int // full-resolution size in pixels
	TileWidth, TileHeight int // tile size in level pixels
	Levels                []Level
}

// Validate checks sizes and that levels are sorted by increasing
// downsample, starting at full resolution or coarser.
func (m Metadata) Validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidMetadata, m.Width, m.Height)
	}
	if m.TileWidth <= 0 || m.TileHeight <= 0 {
		return fmt.Errorf("%w: tile size %dx%d", ErrInvalidMetadata, m.TileWidth, m.TileHeight)
	}
	if len(m.Levels) == 0 {
		return fmt.Errorf("%w: no levels", ErrInvalidMetadata)
	}
	ok := sort.SliceIsSorted(m.Levels, func(i, j int) bool {
		return m.Levels[i].Downsample < m.Levels[j].Downsample
	})
	for _, l := range m.Levels {
		if l.Downsample < 1 || math.IsInf(l.Downsample, 0) || math.IsNaN(l.Downsample) {
			ok = false
		}
	}
	if !ok {
		return fmt.Errorf("%w: levels must be increasing downsamples >= 1", ErrInvalidMetadata)
	}
	return nil
}

// Bounds returns the full-resolution image rectangle.
func (m Metadata) Bounds() geom.Rect {
	return geom.R(0, 0, float64(m.Width), float64(m.Height))
}

// LevelSize returns the size in pixels of level i.
func (m Metadata) LevelSize(i int) (w, h int) {
	ds := m.Levels[i].Downsample
	return int(math.Ceil(float64(m.Width) / ds)), int(math.Ceil(float64(m.Height) / ds))
}

// Request identifies one tile. Rect is in full-resolution pixels.
type Request struct {
	Plane roi.Plane
	Level int
	Rect  image.Rectangle
}

// Downsample returns the downsample of the requested level in m.
func (r Request) Downsample(m Metadata) float64 { return m.Levels[r.Level].Downsample }

// Bounds returns Rect as a geom.Rect.
func (r Request) Bounds() geom.Rect {
	return geom.R(float64(r.Rect.Min.X), float64(r.Rect.Min.Y), float64(r.Rect.Dx()), float64(r.Rect.Dy()))
}

func (r Request) String() string {
	return fmt.Sprintf("tile(z=%d t=%d level=%d %v)", r.Plane.Z, r.Plane.T, r.Level, r.Rect)
}

// Thumbnail is a low-resolution rendering of a whole plane.
type Thumbnail struct {
	Image      image.Image
	Downsample float64
}

// Provider supplies decoded pixels.
//
// Tile must not block on I/O: if the tile is not in memory it returns
// false, starts loading it, and the caller is told about its arrival out
// of band. Thumbnail is expected to be available once an image is open;
// a zero Thumbnail means none is.
type Provider interface {
	Metadata() Metadata
	Tile(req Request) (image.Image, bool)
	Thumbnail(plane roi.Plane) Thumbnail
}

// RegionPredicate reports whether an image-space region on a plane is
// needed by the current view.
type RegionPredicate func(plane roi.Plane, region geom.Rect) bool

// PrefetchAware is implemented by providers that prioritise loading by
// what is visible.
type PrefetchAware interface {
	SetRegionPredicate(p RegionPredicate)
}
