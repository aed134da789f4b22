package viewport

import (
	"github.com/pathoview/viewport/display"
	"github.com/pathoview/viewport/objects"
	"github.com/pathoview/viewport/roi"
	"github.com/pathoview/viewport/surface"
	"github.com/pathoview/viewport/tiles"
)

// DisplaySettings returns the current display settings.
func (r *Renderer) DisplaySettings() display.Settings { return r.settings }

// SetDisplaySettings validates and applies s. A change that affects raster
// pixels marks the whole image changed; other changes only repaint
// overlays.
func (r *Renderer) SetDisplaySettings(s display.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	rasterChanged := !display.RasterEqual(r.settings, s)
	r.settings = s
	if rasterChanged {
		r.applyRasterSettings()
		r.MarkImageChanged()
		return nil
	}
	r.RequestRepaint()
	return nil
}

func (r *Renderer) applyRasterSettings() {
	s := r.settings
	r.compositor.SetDisplay(tiles.TransformFor(s.Raster), s.Background.RGBA, interpolation(s.Interpolation))
}

func interpolation(i display.Interpolation) surface.Interpolation {
	if i == display.Nearest {
		return surface.Nearest
	}
	return surface.Bilinear
}

// MarkImageChanged forces the next Paint to recomposite the whole raster,
// for example after the provider's pixels or color settings changed.
func (r *Renderer) MarkImageChanged() {
	r.mu.Lock()
	r.imageDirty = true
	r.mu.Unlock()
	r.compositor.DropTransformed()
	r.RequestRepaint()
}

// InvalidateObjectCache drops cached geometry for regions, or for every
// region if none are given. The invalidation takes effect at the start of
// the next Paint, never during one in progress.
func (r *Renderer) InvalidateObjectCache(regions ...*roi.Region) {
	r.mu.Lock()
	if len(regions) == 0 {
		r.pendingAll, r.pending = true, nil
	} else if !r.pendingAll {
		r.pending = append(r.pending, regions...)
	}
	r.mu.Unlock()
	r.RequestRepaint()
}

func (r *Renderer) onHierarchyChange(ev objects.ChangeEvent) {
	switch {
	case ev.Kind == objects.ChangeAdded || ev.Kind == objects.ChangeClassification:
		// Nothing cached is stale.
		r.RequestRepaint()
	case ev.Kind == objects.ChangeStructure && len(ev.Regions) == 0:
		r.InvalidateObjectCache()
	case len(ev.Regions) > 0:
		r.InvalidateObjectCache(ev.Regions...)
	default:
		r.RequestRepaint()
	}
}
