package geomodelgrids

import (
	"fmt"
	"sort"
)

// Direction is the declared sort order of a Variable indexer's coordinate
// vector (§3 Indexing invariant).
type Direction int

const (
	// Ascending coordinates increase with index.
	Ascending Direction = iota
	// Descending coordinates decrease with index.
	Descending
)

// indexTolerance is the floating-point slack used when deciding whether a
// query coordinate sits exactly on an endpoint of a Variable indexer's
// range (§4.2: "points within a floating-point tolerance of either
// endpoint resolve to the endpoint index").
const indexTolerance = 1.0e-6

// Indexing converts an axis coordinate to a real-valued fractional grid
// index (§4.2). It replaces the original's virtual dispatch with a tagged
// union matched in IndexOf, per the REDESIGN FLAGS note on avoiding
// heap-allocated polymorphism for this hot path.
type Indexing struct {
	uniform  bool
	step     float64  // valid when uniform
	coords   []float64 // valid when !uniform; always stored ascending internally
	dir      Direction
}

// NewUniformIndexing builds an indexer for a constant grid spacing. A
// non-positive step is rejected at construction (§4.2).
func NewUniformIndexing(step float64) (*Indexing, error) {
	if step <= 0.0 {
		return nil, fmt.Errorf("%w: non-positive resolution (%g) for uniform indexing", ErrInvalidArgument, step)
	}
	return &Indexing{uniform: true, step: step}, nil
}

// NewVariableIndexing builds an indexer from an explicit coordinate
// vector. coords is copied and always stored in ascending order
// internally, regardless of dir, which only changes how IndexOf maps a
// query coordinate onto the caller's declared index convention (index 0
// at the smallest coordinate for Ascending, at the largest for
// Descending). An empty vector is rejected (§4.2).
func NewVariableIndexing(coords []float64, dir Direction) (*Indexing, error) {
	if len(coords) == 0 {
		return nil, fmt.Errorf("%w: empty coordinate array for variable indexing", ErrInvalidArgument)
	}

	sorted := append([]float64(nil), coords...)
	sort.Float64s(sorted)

	return &Indexing{uniform: false, coords: sorted, dir: dir}, nil
}

// IndexOf returns the fractional index of x, following §4.2's rules.
// Out-of-range inputs are not an error here. A uniform indexer returns an
// index outside [0, N-1] for them; a variable indexer returns 0 or N-1 for
// any input at or beyond either end of its coordinate range (within
// indexTolerance). Deciding whether an out-of-range point yields no-data is
// the caller's (Block/Surface) responsibility.
func (idx *Indexing) IndexOf(x float64) float64 {
	if idx.uniform {
		return x / idx.step
	}
	return idx.variableIndex(x)
}

// variableIndex implements both the ascending and descending cases by
// normalizing to an ascending binary search (idx.coords is always stored
// ascending), then mapping the result back to the caller's declared
// direction.
func (idx *Indexing) variableIndex(x float64) float64 {
	n := len(idx.coords)

	ascendingIndex := func(v float64) float64 {
		if v <= idx.coords[0]+indexTolerance {
			return 0
		}
		if v >= idx.coords[n-1]-indexTolerance {
			return float64(n - 1)
		}

		// Largest i such that coords[i] <= v.
		i := sort.Search(n, func(i int) bool { return idx.coords[i] > v }) - 1
		if i < 0 {
			i = 0
		}
		if i >= n-1 {
			return float64(n - 1)
		}
		return float64(i) + (v-idx.coords[i])/(idx.coords[i+1]-idx.coords[i])
	}

	if idx.dir == Ascending {
		return ascendingIndex(x)
	}

	// Descending: index 0 corresponds to the largest stored coordinate.
	// idx.coords is stored ascending, so descending index i maps to
	// ascending position (n-1-i); invert around that.
	return float64(n-1) - ascendingIndex(x)
}
