package display

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// HexColor is an opaque color written as "#rrggbb" or "#rgb" in
// configuration files.
type HexColor struct {
	color.RGBA
}

func (h HexColor) MarshalText() ([]byte, error) {
	c, _ := colorful.MakeColor(h.RGBA)
	return []byte(c.Hex()), nil
}

func (h *HexColor) UnmarshalText(b []byte) error {
	c, err := colorful.Hex(string(b))
	if err != nil {
		return fmt.Errorf("%w: color %q: %v", ErrInvalidSettings, b, err)
	}
	r, g, bl := c.RGB255()
	h.RGBA = color.RGBA{R: r, G: g, B: bl, A: 255}
	return nil
}

// Colormap maps [0, 1] onto a sequence of colors interpolated in CIE-Lab.
type Colormap struct {
	name  string
	stops []colorful.Color
}

func mustColormap(name string, hexes ...string) *Colormap {
	cm := &Colormap{name: name, stops: make([]colorful.Color, len(hexes))}
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(fmt.Sprintf("display: colormap %s: %v", name, err))
		}
		cm.stops[i] = c
	}
	return cm
}

var colormaps = map[string]*Colormap{
	"viridis": mustColormap("viridis",
		"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
		"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"),
	"magma": mustColormap("magma",
		"#000004", "#180f3d", "#440f76", "#721f81", "#9e2f7f",
		"#cd4071", "#f1605d", "#fd9668", "#feca8d", "#fcfdbf"),
	"jet": mustColormap("jet",
		"#00007f", "#0000ff", "#007fff", "#00ffff", "#7fff7f",
		"#ffff00", "#ff7f00", "#ff0000", "#7f0000"),
	"gray": mustColormap("gray", "#000000", "#ffffff"),
}

// LookupColormap returns a named colormap.
func LookupColormap(name string) (*Colormap, bool) {
	cm, ok := colormaps[name]
	return cm, ok
}

// ColormapNames returns the known colormap names, sorted.
func ColormapNames() []string {
	names := make([]string, 0, len(colormaps))
	for n := range colormaps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Name returns the colormap name.
func (cm *Colormap) Name() string { return cm.name }

// At returns the color at t, clamped to [0, 1].
func (cm *Colormap) At(t float64) color.RGBA {
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(cm.stops)-1)
	i := int(pos)
	if i >= len(cm.stops)-1 {
		i = len(cm.stops) - 2
	}
	c := cm.stops[i].BlendLab(cm.stops[i+1], pos-float64(i)).Clamped()
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// MeasurementMapper colors objects by one of their measurements.
type MeasurementMapper struct {
	Measurement string  `yaml:"measurement" toml:"measurement"`
	Min         float64 `yaml:"min" toml:"min"`
	Max         float64 `yaml:"max" toml:"max"`
	Colormap    string  `yaml:"colormap" toml:"colormap"`
}

func (m *MeasurementMapper) validate() error {
	if m.Measurement == "" {
		return fmt.Errorf("%w: mapper has no measurement", ErrInvalidSettings)
	}
	if _, ok := colormaps[m.Colormap]; !ok {
		return fmt.Errorf("%w: unknown colormap %q (want one of %v)", ErrInvalidSettings, m.Colormap, ColormapNames())
	}
	if !(m.Max > m.Min) || math.IsInf(m.Max-m.Min, 0) {
		return fmt.Errorf("%w: mapper range [%g, %g]", ErrInvalidSettings, m.Min, m.Max)
	}
	return nil
}

// Valid reports whether the mapper can produce colors.
func (m *MeasurementMapper) Valid() bool {
	return m != nil && m.validate() == nil
}

// ColorFor maps a measurement value to a color. NaN maps to ok == false so
// callers can fall back to the class color.
func (m *MeasurementMapper) ColorFor(v float64) (c color.RGBA, ok bool) {
	if !m.Valid() || math.IsNaN(v) {
		return color.RGBA{}, false
	}
	return colormaps[m.Colormap].At((v - m.Min) / (m.Max - m.Min)), true
}
