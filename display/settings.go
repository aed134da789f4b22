// Package display holds the user-facing display configuration consumed by
// the renderer: overlay visibility, fill and stroke rules, raster
// adjustments and the optional measurement color mapper.
//
// Settings can be decoded from YAML or TOML and watched for changes on
// disk.
package display

import (
	"errors"
	"fmt"
	"image/color"
	"math"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("display: invalid settings")

// CellDisplayMode selects which parts of a cell are drawn.
type CellDisplayMode uint8

const (
	CellBoundaries CellDisplayMode = iota
	CellNuclei
	CellBoth
	CellCentroids
)

var cellModeNames = [...]string{"boundaries", "nuclei", "both", "centroids"}

func (m CellDisplayMode) String() string {
	if int(m) < len(cellModeNames) {
		return cellModeNames[m]
	}
	return fmt.Sprintf("CellDisplayMode(%d)", uint8(m))
}

func (m CellDisplayMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *CellDisplayMode) UnmarshalText(b []byte) error {
	v, err := parseEnum(string(b), cellModeNames[:])
	*m = CellDisplayMode(v)
	return err
}

// ClassVisibility decides how Settings.Classes is interpreted.
type ClassVisibility uint8

const (
	// HideListed hides objects whose class is listed.
	HideListed ClassVisibility = iota
	// ShowListed hides objects whose class is not listed.
	ShowListed
)

var visibilityNames = [...]string{"hide-listed", "show-listed"}

func (v ClassVisibility) String() string {
	if int(v) < len(visibilityNames) {
		return visibilityNames[v]
	}
	return fmt.Sprintf("ClassVisibility(%d)", uint8(v))
}

func (v ClassVisibility) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *ClassVisibility) UnmarshalText(b []byte) error {
	n, err := parseEnum(string(b), visibilityNames[:])
	*v = ClassVisibility(n)
	return err
}

// Interpolation selects the raster resampling filter.
type Interpolation uint8

const (
	Nearest Interpolation = iota
	Bilinear
)

var interpNames = [...]string{"nearest", "bilinear"}

func (i Interpolation) String() string {
	if int(i) < len(interpNames) {
		return interpNames[i]
	}
	return fmt.Sprintf("Interpolation(%d)", uint8(i))
}

func (i Interpolation) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (i *Interpolation) UnmarshalText(b []byte) error {
	n, err := parseEnum(string(b), interpNames[:])
	*i = Interpolation(n)
	return err
}

func parseEnum(s string, names []string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown value %q (want one of %v)", ErrInvalidSettings, s, names)
}

// RasterSettings are the adjustments applied to image pixels. Any change
// to them invalidates the composited raster.
type RasterSettings struct {
	Brightness float64 `yaml:"brightness" toml:"brightness"` // -1..1
	Contrast   float64 `yaml:"contrast" toml:"contrast"`     // -1..1
	Gamma      float64 `yaml:"gamma" toml:"gamma"`           // > 0, 1 is neutral
	Invert     bool    `yaml:"invert" toml:"invert"`
	Channel    int     `yaml:"channel" toml:"channel"` // -1 shows all channels, 0..3 is R, G, B, A
}

// IsIdentity reports whether the adjustments leave pixels unchanged.
func (r RasterSettings) IsIdentity() bool {
	return r.Brightness == 0 && r.Contrast == 0 && r.Gamma == 1 && !r.Invert && r.Channel < 0
}

// Settings is the flat display configuration.
type Settings struct {
	ShowAnnotations bool `yaml:"show_annotations" toml:"show_annotations"`
	ShowDetections  bool `yaml:"show_detections" toml:"show_detections"`
	ShowTMAGrid     bool `yaml:"show_tma_grid" toml:"show_tma_grid"`
	FillAnnotations bool `yaml:"fill_annotations" toml:"fill_annotations"`
	FillDetections  bool `yaml:"fill_detections" toml:"fill_detections"`

	CellDisplay     CellDisplayMode `yaml:"cell_display" toml:"cell_display"`
	ClassVisibility ClassVisibility `yaml:"class_visibility" toml:"class_visibility"`
	Classes         []string        `yaml:"classes" toml:"classes"`

	// AnnotationStrokeWidth is in screen pixels; DetectionStrokeWidth is in
	// image pixels so dense detections thin out as the view zooms out.
	AnnotationStrokeWidth float64 `yaml:"annotation_stroke_width" toml:"annotation_stroke_width"`
	DetectionStrokeWidth  float64 `yaml:"detection_stroke_width" toml:"detection_stroke_width"`

	Opacity           float64  `yaml:"opacity" toml:"opacity"`
	UseSelectionColor bool     `yaml:"use_selection_color" toml:"use_selection_color"`
	SelectionColor    HexColor `yaml:"selection_color" toml:"selection_color"`
	PointRadius       float64  `yaml:"point_radius" toml:"point_radius"`

	Interpolation Interpolation  `yaml:"interpolation" toml:"interpolation"`
	Raster        RasterSettings `yaml:"raster" toml:"raster"`
	Background    HexColor       `yaml:"background" toml:"background"`

	Mapper *MeasurementMapper `yaml:"mapper,omitempty" toml:"mapper,omitempty"`

	filter classFilter
}

// Default returns the settings used when no configuration is given.
func Default() Settings {
	s := Settings{
		ShowAnnotations:       true,
		ShowDetections:        true,
		ShowTMAGrid:           true,
		FillAnnotations:       false,
		FillDetections:        true,
		CellDisplay:           CellBoth,
		ClassVisibility:       HideListed,
		AnnotationStrokeWidth: 2,
		DetectionStrokeWidth:  2,
		Opacity:               1,
		SelectionColor:        HexColor{color.RGBA{R: 255, G: 255, A: 255}},
		PointRadius:           5,
		Interpolation:         Bilinear,
		Raster:                RasterSettings{Gamma: 1, Channel: -1},
		Background:            HexColor{color.RGBA{A: 255}},
	}
	s.filter = newClassFilter(nil)
	return s
}

// Validate checks ranges and prepares the class filter. Decode and Load
// call it; callers building Settings by hand should too.
func (s *Settings) Validate() error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	switch {
	case !finite(s.Opacity) || s.Opacity < 0 || s.Opacity > 1:
		return fmt.Errorf("%w: opacity %g outside [0, 1]", ErrInvalidSettings, s.Opacity)
	case !finite(s.AnnotationStrokeWidth) || s.AnnotationStrokeWidth <= 0:
		return fmt.Errorf("%w: annotation stroke width %g", ErrInvalidSettings, s.AnnotationStrokeWidth)
	case !finite(s.DetectionStrokeWidth) || s.DetectionStrokeWidth <= 0:
		return fmt.Errorf("%w: detection stroke width %g", ErrInvalidSettings, s.DetectionStrokeWidth)
	case !finite(s.PointRadius) || s.PointRadius <= 0:
		return fmt.Errorf("%w: point radius %g", ErrInvalidSettings, s.PointRadius)
	case int(s.CellDisplay) >= len(cellModeNames):
		return fmt.Errorf("%w: cell display %v", ErrInvalidSettings, s.CellDisplay)
	}

	r := s.Raster
	switch {
	case !finite(r.Brightness) || r.Brightness < -1 || r.Brightness > 1:
		return fmt.Errorf("%w: brightness %g outside [-1, 1]", ErrInvalidSettings, r.Brightness)
	case !finite(r.Contrast) || r.Contrast < -1 || r.Contrast > 1:
		return fmt.Errorf("%w: contrast %g outside [-1, 1]", ErrInvalidSettings, r.Contrast)
	case !finite(r.Gamma) || r.Gamma <= 0:
		return fmt.Errorf("%w: gamma %g", ErrInvalidSettings, r.Gamma)
	case r.Channel < -1 || r.Channel > 3:
		return fmt.Errorf("%w: channel %d outside [-1, 3]", ErrInvalidSettings, r.Channel)
	}

	if s.Mapper != nil {
		if err := s.Mapper.validate(); err != nil {
			return err
		}
	}
	s.filter = newClassFilter(s.Classes)
	return nil
}

// ClassHidden reports whether objects of the named class are hidden by the
// class visibility list. Names compare case-insensitively; a derived class
// such as "Tumor: Positive" also matches a listed base class "tumor".
func (s *Settings) ClassHidden(class string, baseClass string) bool {
	f := s.filter
	if f.names == nil {
		f = newClassFilter(s.Classes)
	}
	listed := f.contains(class) || (baseClass != "" && f.contains(baseClass))
	if s.ClassVisibility == ShowListed {
		return !listed
	}
	return listed
}

// RasterEqual reports whether a and b render the raster identically.
func RasterEqual(a, b Settings) bool {
	return a.Raster == b.Raster && a.Background == b.Background && a.Interpolation == b.Interpolation
}
