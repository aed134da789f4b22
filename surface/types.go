package surface

import "image/color"

// Interpolation selects how rasters are resampled by DrawImage.
type Interpolation uint8

const (
	// Nearest picks the closest source pixel.
	Nearest Interpolation = iota

	// Bilinear blends the four closest source pixels.
	Bilinear
)

// String returns the interpolation name.
func (i Interpolation) String() string {
	switch i {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	default:
		return "unknown"
	}
}

// StrokeStyle defines how outlines are drawn.
type StrokeStyle struct {
	// Color is the stroke color.
	Color color.Color

	// Width is the line width in device pixels. Widths below MinWidth are
	// drawn at MinWidth.
	Width float64

	// Dash alternates on and off lengths in device pixels. An empty or
	// all-zero pattern draws a solid line.
	Dash []float64

	// DashOffset shifts the start of the dash pattern.
	DashOffset float64
}

// MinWidth is the thinnest line a surface draws.
const MinWidth = 0.5

// IsDashed reports whether the style draws a dashed line.
func (s StrokeStyle) IsDashed() bool {
	for _, l := range s.Dash {
		if l > 0 {
			return true
		}
	}
	return false
}
