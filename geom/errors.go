package geom

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerate reports geometry that collapses to nothing drawable,
	// such as a polygon with zero area.
	ErrDegenerate = errors.New("geom: degenerate geometry")

	// ErrNonFinite reports a NaN or infinite coordinate.
	ErrNonFinite = errors.New("geom: non-finite coordinate")
)

// GeometryError describes malformed region geometry found while
// simplifying or cropping. Callers recover from it by falling back to the
// unprocessed shape.
type GeometryError struct {
	Op  string
	Err error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geom: %s: %v", e.Op, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }
