package main

import (
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/objects"
	"github.com/pathoview/viewport/roi"
)

var (
	tumor  = objects.NewClass("Tumor", color.RGBA{R: 200, G: 0, B: 0, A: 255})
	stroma = objects.NewClass("Stroma", color.RGBA{R: 150, G: 200, B: 0, A: 255})
	immune = objects.NewClass("Immune cells", color.RGBA{R: 160, G: 90, B: 160, A: 255})
	region = objects.NewClass("Region*", color.RGBA{R: 0, G: 0, B: 180, A: 255})
)

// buildScene generates a reproducible set of objects on a w x h slide:
// a TMA grid, a large tissue outline, a few annotations and n cells.
func buildScene(w, h, n int) *objects.Hierarchy {
	rng := rand.New(rand.NewPCG(1, 2))
	hier := objects.NewHierarchy()
	fw, fh := float64(w), float64(h)

	// TMA cores along the top edge.
	core := fw / 40
	for i := 0; i < 8; i++ {
		for j := 0; j < 2; j++ {
			x := fw*0.1 + float64(i)*core*1.5
			y := fh*0.05 + float64(j)*core*1.5
			o := objects.New(objects.KindTMACore, roi.NewEllipse(x, y, core, core, roi.DefaultPlane), nil)
			o.Name = string(rune('A'+j)) + "-" + string(rune('1'+i))
			hier.Add(o)
		}
	}

	// A two-piece tissue outline with a long, wobbly boundary.
	tissue := roi.NewArea([][]geom.Point{
		blob(rng, fw*0.35, fh*0.55, fw*0.2, 12000),
		blob(rng, fw*0.7, fh*0.55, fw*0.15, 8000),
	}, roi.DefaultPlane)
	hier.Add(objects.New(objects.KindAnnotation, tissue, region))

	tumorArea := objects.New(objects.KindAnnotation,
		roi.NewPolygon(blob(rng, fw*0.4, fh*0.5, fw*0.05, 3000), roi.DefaultPlane), tumor)
	tumorArea.Name = "Tumor core"
	ruler := objects.New(objects.KindAnnotation,
		roi.NewLine(fw*0.3, fh*0.8, fw*0.45, fh*0.8, roi.DefaultPlane), nil)
	ruler.Style.Arrowheads = objects.ArrowBoth
	hier.Add(tumorArea, ruler)

	var seeds []geom.Point
	for i := 0; i < 200; i++ {
		seeds = append(seeds, geom.Pt(fw*(0.3+0.4*rng.Float64()), fh*(0.4+0.3*rng.Float64())))
	}
	hier.Add(objects.New(objects.KindAnnotation, roi.NewPoints(seeds, roi.DefaultPlane), immune))

	classes := []*objects.Class{tumor, stroma, immune, tumor.Derive("Positive", color.RGBA{R: 230, G: 120, A: 255})}
	cells := make([]*objects.PathObject, 0, n)
	for i := 0; i < n; i++ {
		cx := fw * (0.2 + 0.6*rng.Float64())
		cy := fh * (0.35 + 0.4*rng.Float64())
		r := 6 + 6*rng.Float64()
		c := objects.NewCell(
			roi.NewPolygon(blob(rng, cx, cy, r, 24), roi.DefaultPlane),
			roi.NewEllipse(cx-r/2, cy-r/2, r, r, roi.DefaultPlane),
			classes[rng.IntN(len(classes))],
		)
		c.Measurements = map[string]float64{"Nucleus: Area": math.Pi * r * r / 4}
		cells = append(cells, c)
	}
	hier.Add(cells...)
	return hier
}

// blob returns n points around (cx, cy) at a radius perturbed by a few
// low-frequency harmonics.
func blob(rng *rand.Rand, cx, cy, radius float64, n int) []geom.Point {
	var amp, phase [4]float64
	for k := range amp {
		amp[k] = 0.08 * rng.Float64()
		phase[k] = 2 * math.Pi * rng.Float64()
	}
	pts := make([]geom.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		r := 1.0
		for k := range amp {
			r += amp[k] * math.Sin(float64(k+2)*a+phase[k])
		}
		pts[i] = geom.Pt(cx+radius*r*math.Cos(a), cy+radius*r*math.Sin(a))
	}
	return pts
}
