package transform

import (
	"math"

	"github.com/pathoview/viewport/geom"
)

// Pan returns the state shifted so that content moves by (dx, dy) viewport
// pixels. Rotation is taken into account, so dragging right always moves
// the image right on screen.
func Pan(s ViewState, dx, dy float64) ViewState {
	d := geom.Pt(-dx*s.Downsample, -dy*s.Downsample)
	if s.Rotation != 0 {
		d = geom.Rotate(-s.Rotation).TransformVector(d)
	}
	s.CenterX += d.X
	s.CenterY += d.Y
	return s
}

// ZoomAbout returns the state with the downsample multiplied by factor
// while keeping the image point under the viewport point p fixed.
func ZoomAbout(v *View, p geom.Point, factor float64) (ViewState, error) {
	s := v.State()
	anchor, err := v.MapToImage(p)
	if err != nil {
		return s, err
	}
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return s, &TransformError{Op: "zoom", State: s, Err: ErrInvalidViewState}
	}
	c := s.Center()
	c = anchor.Add(c.Sub(anchor).Mul(factor))
	s.CenterX, s.CenterY = c.X, c.Y
	s.Downsample *= factor
	return s, nil
}

// RotateBy returns the state rotated by angle radians, normalised to
// [-pi, pi).
func RotateBy(s ViewState, angle float64) ViewState {
	r := math.Mod(s.Rotation+angle+math.Pi, 2*math.Pi)
	if r < 0 {
		r += 2 * math.Pi
	}
	s.Rotation = r - math.Pi
	return s
}
