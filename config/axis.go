package config

import (
	"errors"
	"fmt"
	"sort"
)

// Axis describes the binning of one histogram axis: either Bins equal bins
// over [Min, Max), or explicit ascending Edges.
type Axis struct {
	Title string    `toml:"title"`
	Bins  int       `toml:"bins"`
	Min   float64   `toml:"min"`
	Max   float64   `toml:"max"`
	Edges []float64 `toml:"edges"`
}

// Validate checks that exactly one binning form is given and that it is
// well formed.
func (a Axis) Validate() error {
	if len(a.Edges) > 0 {
		if a.Bins != 0 {
			return errors.New("bins and edges are exclusive")
		}
		if len(a.Edges) < 2 {
			return errors.New("edges need at least two values")
		}
		for i := 1; i < len(a.Edges); i++ {
			if a.Edges[i] <= a.Edges[i-1] {
				return fmt.Errorf("edges must be strictly ascending at %d", i)
			}
		}
		return nil
	}
	if a.Bins < 1 {
		return fmt.Errorf("bins must be positive, got %d", a.Bins)
	}
	if a.Max <= a.Min {
		return fmt.Errorf("max %g must exceed min %g", a.Max, a.Min)
	}
	return nil
}

// NumBins returns the number of bins.
func (a Axis) NumBins() int {
	if len(a.Edges) > 0 {
		return len(a.Edges) - 1
	}
	return a.Bins
}

// Range returns the lower and upper edge of bin b.
func (a Axis) Range(b int) (lo, hi float64) {
	if len(a.Edges) > 0 {
		return a.Edges[b], a.Edges[b+1]
	}
	width := (a.Max - a.Min) / float64(a.Bins)
	return a.Min + float64(b)*width, a.Min + float64(b+1)*width
}

// Bin returns the bin holding x. Values outside the axis, and NaN, are not
// in any bin.
func (a Axis) Bin(x float64) (int, bool) {
	if len(a.Edges) > 0 {
		if !(x >= a.Edges[0]) || x >= a.Edges[len(a.Edges)-1] {
			return 0, false
		}
		// first edge above x closes the bin
		return sort.Search(len(a.Edges), func(i int) bool { return a.Edges[i] > x }) - 1, true
	}
	if !(x >= a.Min) || x >= a.Max {
		return 0, false
	}
	b := int((x - a.Min) / (a.Max - a.Min) * float64(a.Bins))
	if b >= a.Bins {
		b = a.Bins - 1
	}
	return b, true
}
