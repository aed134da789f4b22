package viewport

import (
	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/roi"
	"github.com/pathoview/viewport/transform"
)

// SetViewState moves the view. A degenerate state is kept and reported:
// the next frames paint without overlays until a valid state is set. The
// raster is recomposited on the next Paint; object caches are unaffected.
func (r *Renderer) SetViewState(s transform.ViewState) error {
	if s == r.view.State() && r.view.Err() == nil {
		return nil
	}
	w, h := r.view.Size()
	err := r.view.Set(s, w, h)
	r.publish()
	r.RequestRepaint()
	return err
}

// ViewState returns the current view state.
func (r *Renderer) ViewState() transform.ViewState { return r.view.State() }

// SetViewportSize sets the viewport size ahead of the first Paint, so that
// visibility queries are answered correctly. Paint resizes automatically.
func (r *Renderer) SetViewportSize(width, height int) {
	if w, h := r.view.Size(); w != width || h != height {
		r.resize(width, height)
		r.RequestRepaint()
	}
}

// Pan moves the image by (dx, dy) viewport pixels.
func (r *Renderer) Pan(dx, dy float64) error {
	return r.SetViewState(transform.Pan(r.view.State(), dx, dy))
}

// ZoomAbout multiplies the downsample by factor, keeping the image point
// under viewport point p in place.
func (r *Renderer) ZoomAbout(p geom.Point, factor float64) error {
	s, err := transform.ZoomAbout(&r.view, p, factor)
	if err != nil {
		return err
	}
	return r.SetViewState(s)
}

// Rotate rotates the view by angle radians about its center.
func (r *Renderer) Rotate(angle float64) error {
	return r.SetViewState(transform.RotateBy(r.view.State(), angle))
}

// MapToImage converts a viewport point to image coordinates.
func (r *Renderer) MapToImage(p geom.Point) (geom.Point, error) { return r.view.MapToImage(p) }

// MapToViewport converts an image point to viewport coordinates.
func (r *Renderer) MapToViewport(p geom.Point) (geom.Point, error) { return r.view.MapToViewport(p) }

// VisibleImageRegion returns the image-space region in view: a
// *geom.RectShape without rotation, otherwise a quadrilateral.
func (r *Renderer) VisibleImageRegion() (geom.Shape, error) {
	return r.view.VisibleImageRegion()
}

// Plane returns the image plane being drawn.
func (r *Renderer) Plane() roi.Plane { return r.plane }

// SetPlane switches to another z-slice or time point.
func (r *Renderer) SetPlane(p roi.Plane) {
	if p == r.plane {
		return
	}
	r.plane = p
	r.publish()
	r.RequestRepaint()
}
