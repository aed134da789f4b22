// Package dirty tracks which cells of a viewport need recompositing, using
// a lock-free atomic bitmap so tile arrivals on provider goroutines can
// mark cells while the paint loop reads them.
package dirty

import (
	"image"
	"math/bits"
	"sync/atomic"
)

// DefaultCellSize is the default cell edge length in viewport pixels.
const DefaultCellSize = 64

// Grid divides a width x height viewport into square cells and keeps one
// dirty bit per cell. All methods are safe for concurrent use.
type Grid struct {
	// words packs one bit per cell; bit index = cy*cellsX + cx.
	words []atomic.Uint64

	width, height  int
	cell           int
	cellsX, cellsY int
}

// New creates a grid for a viewport of the given size. All cells start
// clean. It returns nil for a non-positive size; cellSize <= 0 selects
// DefaultCellSize.
func New(width, height, cellSize int) *Grid {
	if width <= 0 || height <= 0 {
		return nil
	}
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	cx := (width + cellSize - 1) / cellSize
	cy := (height + cellSize - 1) / cellSize
	return &Grid{
		words:  make([]atomic.Uint64, (cx*cy+63)/64),
		width:  width,
		height: height,
		cell:   cellSize,
		cellsX: cx,
		cellsY: cy,
	}
}

// Size returns the viewport size the grid covers.
func (g *Grid) Size() (width, height int) { return g.width, g.height }

// Cells returns the grid dimensions in cells.
func (g *Grid) Cells() (x, y int) { return g.cellsX, g.cellsY }

// Mark marks one cell dirty. Out-of-range cells are ignored.
func (g *Grid) Mark(cx, cy int) {
	if cx < 0 || cx >= g.cellsX || cy < 0 || cy >= g.cellsY {
		return
	}
	idx := cy*g.cellsX + cx
	g.words[idx/64].Or(1 << (idx & 63))
}

// MarkRect marks every cell intersecting r, in viewport pixels.
func (g *Grid) MarkRect(r image.Rectangle) {
	r = r.Intersect(image.Rect(0, 0, g.width, g.height))
	if r.Empty() {
		return
	}
	x0, y0 := r.Min.X/g.cell, r.Min.Y/g.cell
	x1, y1 := (r.Max.X-1)/g.cell, (r.Max.Y-1)/g.cell
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			g.Mark(cx, cy)
		}
	}
}

// MarkAll marks every cell dirty.
func (g *Grid) MarkAll() {
	total := g.cellsX * g.cellsY
	full := total / 64
	for i := 0; i < full; i++ {
		g.words[i].Store(^uint64(0))
	}
	if rem := total % 64; rem > 0 {
		g.words[full].Store(uint64(1)<<rem - 1)
	}
}

// Merge marks every cell that is dirty in o. Both grids must have the
// same cell layout; otherwise Merge marks everything.
func (g *Grid) Merge(o *Grid) {
	if o == nil {
		return
	}
	if o.cellsX != g.cellsX || o.cellsY != g.cellsY {
		g.MarkAll()
		return
	}
	for i := range o.words {
		if w := o.words[i].Load(); w != 0 {
			g.words[i].Or(w)
		}
	}
}

// Clear marks every cell clean.
func (g *Grid) Clear() {
	for i := range g.words {
		g.words[i].Store(0)
	}
}

// IsDirty reports whether a cell is dirty.
func (g *Grid) IsDirty(cx, cy int) bool {
	if cx < 0 || cx >= g.cellsX || cy < 0 || cy >= g.cellsY {
		return false
	}
	idx := cy*g.cellsX + cx
	return g.words[idx/64].Load()&(1<<(idx&63)) != 0
}

// IsEmpty reports whether no cell is dirty.
func (g *Grid) IsEmpty() bool {
	for i := range g.words {
		if g.words[i].Load() != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of dirty cells.
func (g *Grid) Count() int {
	n := 0
	for i := range g.words {
		n += bits.OnesCount64(g.words[i].Load())
	}
	return n
}

// TakeRects clears the grid and returns the dirty area as viewport pixel
// rectangles. Runs of dirty cells within a row are merged, and each
// rectangle is clipped to the viewport.
func (g *Grid) TakeRects() []image.Rectangle {
	snapshot := make([]uint64, len(g.words))
	for i := range g.words {
		snapshot[i] = g.words[i].Swap(0)
	}
	dirty := func(cx, cy int) bool {
		idx := cy*g.cellsX + cx
		return snapshot[idx/64]&(1<<(idx&63)) != 0
	}

	bounds := image.Rect(0, 0, g.width, g.height)
	var out []image.Rectangle
	for cy := 0; cy < g.cellsY; cy++ {
		for cx := 0; cx < g.cellsX; {
			if !dirty(cx, cy) {
				cx++
				continue
			}
			start := cx
			for cx < g.cellsX && dirty(cx, cy) {
				cx++
			}
			r := image.Rect(start*g.cell, cy*g.cell, cx*g.cell, (cy+1)*g.cell)
			out = append(out, r.Intersect(bounds))
		}
	}
	return out
}
