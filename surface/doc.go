// Package surface provides the paint target the viewport renderer draws on.
//
// Surface decouples the renderer from the pixels it produces. Geometry
// arrives already flattened into device-space rings, so a surface only has
// to scan-convert polygons, expand strokes and blit rasters:
//
//   - ImageSurface: CPU rendering to *image.RGBA using golang.org/x/image/vector
//     for coverage and golang.org/x/image/draw for affine raster blits
//
// # Usage
//
//	s := surface.NewImageSurface(800, 600)
//	s.Clear(color.Black)
//	s.Fill(rings, color.NRGBA{R: 255, A: 64})
//	s.Stroke(rings, true, surface.StrokeStyle{Color: color.NRGBA{R: 255, A: 255}, Width: 2})
//	png.Encode(w, s.Image())
//
// # Sub-surfaces
//
// Sub returns a surface backed by a rectangle of its parent that keeps the
// parent's coordinate space. The renderer uses it to recomposite only the
// dirty cells of a viewport without translating any geometry.
package surface
