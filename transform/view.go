// Package transform maps between image pixel space and viewport pixel
// space for a view centered on an image point, at a given downsample and
// rotation.
package transform

import (
	"errors"
	"fmt"
	"math"

	"github.com/pathoview/viewport/geom"
)

var (
	// ErrNotInvertible is returned when the forward matrix has no inverse.
	ErrNotInvertible = errors.New("transform: matrix not invertible")

	// ErrInvalidViewState is returned for a non-positive or non-finite
	// downsample, or non-finite center or rotation.
	ErrInvalidViewState = errors.New("transform: invalid view state")
)

// TransformError reports a degenerate view transform. It is fatal to the
// frame being painted but never to the renderer.
type TransformError struct {
	Op    string
	State ViewState
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform: %s: %v (center=%.2f,%.2f downsample=%g rotation=%g)",
		e.Op, e.Err, e.State.CenterX, e.State.CenterY, e.State.Downsample, e.State.Rotation)
}

func (e *TransformError) Unwrap() error { return e.Err }

// ViewState is the navigation state of a viewport.
type ViewState struct {
	CenterX, CenterY float64 // image-space point shown at the viewport center
	Downsample       float64 // image pixels per viewport pixel
	Rotation         float64 // radians
}

// Center returns the center as a point.
func (s ViewState) Center() geom.Point {
	return geom.Pt(s.CenterX, s.CenterY)
}

// Validate reports whether the state can produce an invertible transform.
func (s ViewState) Validate() error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	if !finite(s.CenterX) || !finite(s.CenterY) || !finite(s.Rotation) ||
		!finite(s.Downsample) || s.Downsample <= 0 {
		return ErrInvalidViewState
	}
	return nil
}

// View holds a forward (image to viewport) matrix and its inverse. Both
// are recomputed together by Set so they are always consistent.
//
// A View is not safe for concurrent mutation; the renderer confines it to
// the painting goroutine.
type View struct {
	state         ViewState
	width, height int
	forward       geom.Matrix
	inverse       geom.Matrix
	err           error
}

// New returns a View for the given state and viewport size.
func New(state ViewState, width, height int) (*View, error) {
	v := &View{}
	return v, v.Set(state, width, height)
}

// Set recomputes the transform as: translate to the viewport center,
// scale by 1/downsample, rotate, then translate by -center. A degenerate
// state leaves the View in an error state in which mapping functions
// return a TransformError.
func (v *View) Set(state ViewState, width, height int) error {
	v.state = state
	v.width, v.height = width, height

	if err := state.Validate(); err != nil {
		v.fail("set", err)
		return v.err
	}

	scale := 1 / state.Downsample
	m := geom.Translate(float64(width)/2, float64(height)/2).
		Multiply(geom.Scale(scale, scale))
	if state.Rotation != 0 {
		m = m.Multiply(geom.Rotate(state.Rotation))
	}
	m = m.Multiply(geom.Translate(-state.CenterX, -state.CenterY))

	inv, ok := m.Invert()
	if !ok {
		v.fail("invert", ErrNotInvertible)
		return v.err
	}
	v.forward, v.inverse, v.err = m, inv, nil
	return nil
}

func (v *View) fail(op string, err error) {
	v.forward, v.inverse = geom.Identity(), geom.Identity()
	v.err = &TransformError{Op: op, State: v.state, Err: err}
}

// Err returns the TransformError for a degenerate state, or nil.
func (v *View) Err() error { return v.err }

// State returns the current view state.
func (v *View) State() ViewState { return v.state }

// Size returns the viewport size in pixels.
func (v *View) Size() (width, height int) { return v.width, v.height }

// Forward returns the image-to-viewport matrix.
func (v *View) Forward() (geom.Matrix, error) { return v.forward, v.err }

// Inverse returns the viewport-to-image matrix.
func (v *View) Inverse() (geom.Matrix, error) { return v.inverse, v.err }

// MapToImage converts a viewport point to image coordinates.
func (v *View) MapToImage(p geom.Point) (geom.Point, error) {
	if v.err != nil {
		return geom.Point{}, v.err
	}
	return v.inverse.TransformPoint(p), nil
}

// MapToViewport converts an image point to viewport coordinates.
func (v *View) MapToViewport(p geom.Point) (geom.Point, error) {
	if v.err != nil {
		return geom.Point{}, v.err
	}
	return v.forward.TransformPoint(p), nil
}

// VisibleImageRegion returns the image-space region covered by the
// viewport: a *geom.RectShape when rotation is exactly zero, otherwise a
// *geom.PolyShape quadrilateral.
func (v *View) VisibleImageRegion() (geom.Shape, error) {
	if v.err != nil {
		return nil, v.err
	}
	s := v.state
	if s.Rotation == 0 {
		w := float64(v.width) * s.Downsample
		h := float64(v.height) * s.Downsample
		return &geom.RectShape{R: geom.R(s.CenterX-w/2, s.CenterY-h/2, w, h)}, nil
	}
	viewport := geom.R(0, 0, float64(v.width), float64(v.height)).Corners()
	quad := make([]geom.Point, len(viewport))
	for i, c := range viewport {
		quad[i] = v.inverse.TransformPoint(c)
	}
	return geom.NewPolyShape([][]geom.Point{quad}, false), nil
}

// VisibleBounds returns the bounding box of VisibleImageRegion.
func (v *View) VisibleBounds() (geom.Rect, error) {
	region, err := v.VisibleImageRegion()
	if err != nil {
		return geom.Rect{}, err
	}
	return region.Bounds(), nil
}
