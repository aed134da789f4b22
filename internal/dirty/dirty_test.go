package dirty

import (
	"image"
	"reflect"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name           string
		w, h, cell     int
		wantNil        bool
		cellsX, cellsY int
	}{
		{"exact", 128, 64, 64, false, 2, 1},
		{"partial cells", 800, 600, 64, false, 13, 10},
		{"default cell", 100, 100, 0, false, 2, 2},
		{"zero width", 0, 10, 64, true, 0, 0},
		{"negative height", 10, -1, 64, true, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.w, tt.h, tt.cell)
			if (g == nil) != tt.wantNil {
				t.Fatalf("New(%d, %d, %d) nil = %v", tt.w, tt.h, tt.cell, g == nil)
			}
			if g == nil {
				return
			}
			if x, y := g.Cells(); x != tt.cellsX || y != tt.cellsY {
				t.Errorf("Cells() = %d,%d, want %d,%d", x, y, tt.cellsX, tt.cellsY)
			}
			if !g.IsEmpty() {
				t.Error("new grid should be clean")
			}
		})
	}
}

func TestMarkRect(t *testing.T) {
	g := New(256, 256, 64)
	g.MarkRect(image.Rect(60, 10, 70, 20))
	if !g.IsDirty(0, 0) || !g.IsDirty(1, 0) || g.Count() != 2 {
		t.Errorf("straddling rect should mark two cells, count %d", g.Count())
	}

	g.Clear()
	g.MarkRect(image.Rect(-100, -100, 1, 1))
	if !g.IsDirty(0, 0) || g.Count() != 1 {
		t.Error("rect clipped to the viewport should mark the corner cell")
	}

	g.Clear()
	g.MarkRect(image.Rect(300, 300, 400, 400))
	if !g.IsEmpty() {
		t.Error("rect outside the viewport should mark nothing")
	}
}

func TestMarkAll(t *testing.T) {
	g := New(800, 600, 64) // 130 cells, spans three words
	g.MarkAll()
	if g.Count() != 130 {
		t.Errorf("Count() = %d, want 130", g.Count())
	}
	if !g.IsDirty(12, 9) {
		t.Error("last cell should be dirty")
	}
}

func TestTakeRectsMergesRuns(t *testing.T) {
	g := New(200, 130, 64) // 4 x 3 cells, last row and column partial
	g.Mark(0, 0)
	g.Mark(1, 0)
	g.Mark(3, 0)
	g.Mark(2, 2)
	g.Mark(3, 2)

	got := g.TakeRects()
	want := []image.Rectangle{
		image.Rect(0, 0, 128, 64),
		image.Rect(192, 0, 200, 64),
		image.Rect(128, 128, 200, 130),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TakeRects() = %v, want %v", got, want)
	}
	if !g.IsEmpty() {
		t.Error("TakeRects should clear the grid")
	}
	if r := g.TakeRects(); len(r) != 0 {
		t.Errorf("second TakeRects = %v, want none", r)
	}
}

func TestConcurrentMark(t *testing.T) {
	g := New(1024, 1024, 32)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for cy := w; cy < 32; cy += 8 {
				for cx := 0; cx < 32; cx++ {
					g.Mark(cx, cy)
				}
			}
		}(w)
	}
	wg.Wait()
	if g.Count() != 32*32 {
		t.Errorf("Count() = %d, want %d", g.Count(), 32*32)
	}
}

func TestMerge(t *testing.T) {
	g := New(256, 256, 64)
	o := New(256, 256, 64)
	o.Mark(1, 2)
	o.Mark(3, 3)
	g.Mark(0, 0)
	g.Merge(o)
	if g.Count() != 3 || !g.IsDirty(1, 2) || !g.IsDirty(3, 3) {
		t.Errorf("after Merge count = %d", g.Count())
	}
	if o.Count() != 2 {
		t.Error("Merge should not modify its argument")
	}

	g.Clear()
	g.Merge(New(100, 100, 64))
	if g.Count() != 16 {
		t.Errorf("mismatched Merge count = %d, want all 16 cells", g.Count())
	}
}
