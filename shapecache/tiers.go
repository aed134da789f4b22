package shapecache

import "fmt"

// Tier buckets a continuous downsample into a cache partition that shares
// one simplification tolerance.
type Tier uint8

const (
	// TierNone holds unsimplified geometry (downsample <= 10).
	TierNone Tier = iota
	// Tier10 covers 10 < downsample <= 20.
	Tier10
	// Tier20 covers 20 < downsample <= 50.
	Tier20
	// Tier50 covers downsample > 50.
	Tier50

	numTiers
)

// breakpoints are the exclusive lower bounds of the simplifying tiers.
var breakpoints = [numTiers]float64{0, 10, 20, 50}

// MinSimplifyVertices is the vertex count below which a region is never
// simplified, whatever the downsample.
const MinSimplifyVertices = 250

// TierForDownsample returns the tier covering downsample.
func TierForDownsample(downsample float64) Tier {
	for t := numTiers - 1; t > TierNone; t-- {
		if downsample > breakpoints[t] {
			return t
		}
	}
	return TierNone
}

// Tolerance returns the maximum vertex deviation, in image pixels, allowed
// for shapes in this tier: half a screen pixel at the tier's lowest
// downsample, and less at any higher one.
func (t Tier) Tolerance() float64 {
	if t == TierNone || t >= numTiers {
		return 0
	}
	return breakpoints[t] / 2
}

func (t Tier) String() string {
	if t == TierNone {
		return "none"
	}
	if t < numTiers {
		return fmt.Sprintf(">%gx", breakpoints[t])
	}
	return fmt.Sprintf("Tier(%d)", uint8(t))
}
