// Package viewport renders a window onto a very large pyramidal image
// together with its vector overlays.
//
// # Overview
//
// A Renderer draws one viewport: raster tiles chosen from the image
// pyramid for the current downsample, then annotations and detections on
// top. It is built for images far larger than memory, with millions of
// overlay objects, so every stage avoids work proportional to the image:
//
//   - tiles are requested only for the visible region, and a whole-image
//     thumbnail replaces them when it is fine enough
//   - object outlines are simplified per downsample tier and cached by
//     region identity, so panning never recomputes them
//   - huge multi-polygon areas are cropped to the visible region
//   - tiny objects collapse to filled rectangles or centroid markers
//
// # Quick Start
//
//	import "github.com/pathoview/viewport"
//
//	r := viewport.New(provider, viewport.WithObjects(hierarchy))
//	r.SetViewState(transform.ViewState{CenterX: 50000, CenterY: 50000, Downsample: 32})
//
//	s := surface.NewImageSurface(800, 600)
//	res := r.Paint(s, 800, 600)
//	if !res.Complete {
//	    // Tiles are loading; TileArrived will request a repaint.
//	}
//
// # Repainting
//
// Paint never blocks on I/O. Missing tiles are reported through
// PaintResult.Complete and filled in by later frames once the provider
// calls TileArrived. RequestRepaint throttles and coalesces requests and
// hands them to the function set with WithRepaintHandler.
//
// # Architecture
//
// The library is organized into:
//   - Public API: Renderer, options, logging
//   - Geometry: geom, roi, transform
//   - Caches: cache, shapecache, cropcache
//   - Model: objects, display, policy
//   - Raster: tiles, surface
//   - Internal: vlog (logging), cache (byte-bounded LRU), dirty (cell bitmap)
//
// # Coordinate System
//
// Image coordinates are full-resolution pixels and viewport coordinates are
// screen pixels, both with the origin at the top-left and Y increasing
// down. Rotation is in radians.
package viewport

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
