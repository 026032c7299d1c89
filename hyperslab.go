package geomodelgrids

import (
	"fmt"
	"math"

	"github.com/geomodelgrids/goquery/container"
)

// slabTolerance absorbs floating point noise when deciding which cell of
// the paged-in hyperslab a fractional index falls into (§4.5).
const slabTolerance = 1.0e-12

// Hyperslab pages a window of a block or surface dataset into memory around
// the most recently queried point and interpolates within it, re-fetching
// from the container only when the query point leaves the current window
// (§4.5). spaceDim is 2 for a surface (x, y) and 3 for a block (x, y, z);
// the dataset itself carries one extra trailing "values" axis.
type Hyperslab struct {
	adapter  container.Adapter
	path     string
	spaceDim int
	numValues int

	slabDims []uint64 // length spaceDim+1, requested paging window
	dimsAll  []uint64 // length spaceDim+1, full dataset extent

	origin []uint64  // nil until the first slab is paged in
	values []float64 // flattened row-major slab contents
}

// NewHyperslab builds a pager over the dataset at path. slabDims gives the
// desired window extent along each spatial axis only (length spaceDim); the
// values axis is always paged in full. Each entry is clamped to the
// dataset's own extent, so a slab can never be requested larger than the
// data it pages (§4.5).
func NewHyperslab(adapter container.Adapter, path string, spaceDim int, slabDims []uint64) (*Hyperslab, error) {
	if spaceDim != 2 && spaceDim != 3 {
		return nil, fmt.Errorf("%w: hyperslab spaceDim must be 2 or 3, got %d", ErrInvalidArgument, spaceDim)
	}
	if len(slabDims) != spaceDim {
		return nil, fmt.Errorf("%w: hyperslab slabDims has length %d, want %d", ErrInvalidArgument, len(slabDims), spaceDim)
	}

	dimsAll, err := adapter.DatasetDims(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading dims of %q: %v", ErrBadMetadata, path, err)
	}
	if len(dimsAll) != spaceDim+1 {
		return nil, fmt.Errorf("%w: dataset %q has rank %d, want %d", ErrBadMetadata, path, len(dimsAll), spaceDim+1)
	}

	dims := make([]uint64, spaceDim+1)
	for i := 0; i < spaceDim; i++ {
		dims[i] = minUint64(slabDims[i], dimsAll[i])
	}
	dims[spaceDim] = dimsAll[spaceDim]

	return &Hyperslab{
		adapter:   adapter,
		path:      path,
		spaceDim:  spaceDim,
		numValues: int(dimsAll[spaceDim]),
		slabDims:  dims,
		dimsAll:   dimsAll,
	}, nil
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// Interpolate returns the bilinear (spaceDim==2) or trilinear (spaceDim==3)
// interpolated values at the fractional grid index indexFloat, paging in a
// new slab first if needed. Per §4.5, a 3-D interpolation poisons its
// result with NODATA_VALUE if any of its eight contributing corners is
// (within noDataFraction of) NODATA_VALUE; a 2-D interpolation checks only
// its single nearest corner for the same condition, the degenerate form
// the resolution of the no-data contagion question settled on.
func (h *Hyperslab) Interpolate(indexFloat []float64) ([]float64, error) {
	if err := h.getSlab(indexFloat); err != nil {
		return nil, err
	}
	if h.spaceDim == 3 {
		return h.interpolate3D(indexFloat), nil
	}
	return h.interpolate2D(indexFloat), nil
}

// Nearest returns the values of the grid node nearest indexFloat, used for
// categorical fields where interpolation is meaningless (§4.5 supplemented
// kernel).
func (h *Hyperslab) Nearest(indexFloat []float64) ([]float64, error) {
	if err := h.getSlab(indexFloat); err != nil {
		return nil, err
	}
	if h.spaceDim == 3 {
		return h.nearest3D(indexFloat), nil
	}
	return h.nearest2D(indexFloat), nil
}

// getSlab re-centers and re-reads the paged window if indexFloat has moved
// outside the currently loaded slab, implementing the recentering rule of
// §4.5: o_k = clamp(floor(i_k - (d_k-1)/2), 0, D_k - d_k).
func (h *Hyperslab) getSlab(indexFloat []float64) error {
	needsNewSlab := h.origin == nil
	if !needsNewSlab {
		for i := 0; i < h.spaceDim; i++ {
			if indexFloat[i]-float64(h.origin[i]) < 0.0 || indexFloat[i] >= float64(h.origin[i])+float64(h.slabDims[i])-1.0 {
				needsNewSlab = true
				break
			}
		}
	}
	if !needsNewSlab {
		return nil
	}

	origin := make([]uint64, h.spaceDim+1)
	for i := 0; i < h.spaceDim; i++ {
		d := h.slabDims[i]
		var idx uint64
		if indexFloat[i] >= float64(d-1)/2.0 {
			idx = uint64(math.Floor(indexFloat[i] - float64(d-1)/2.0))
		}
		max := h.dimsAll[i] - d
		if idx > max {
			idx = max
		}
		origin[i] = idx
	}
	origin[h.spaceDim] = 0

	values, err := h.adapter.ReadHyperslab(h.path, origin, h.slabDims)
	if err != nil {
		return fmt.Errorf("%w: paging hyperslab for %q: %v", ErrIO, h.path, err)
	}

	h.origin = origin
	h.values = values
	return nil
}

// cellCorner computes, for the axis-local fractional coordinate within the
// currently loaded slab, the floor index of the cell containing it (clamped
// to stay inside the slab) and the fractional offset from that floor.
func cellCorner(indexSlab float64, tolerance float64) (int, float64) {
	d := math.Max(0.0, math.Floor(indexSlab-tolerance))
	return int(d), indexSlab - d
}

func (h *Hyperslab) interpolate2D(indexFloat []float64) []float64 {
	d1 := h.slabDims[1]
	indexSlab := [2]float64{indexFloat[0] - float64(h.origin[0]), indexFloat[1] - float64(h.origin[1])}

	i0, x0 := cellCorner(indexSlab[0], slabTolerance)
	i1, x1 := cellCorner(indexSlab[1], slabTolerance)

	wts := [2][2]float64{
		{(1 - x0) * (1 - x1), (1 - x0) * x1},
		{x0 * (1 - x1), x0 * x1},
	}

	stride0 := d1 * h.slabDims[2]
	stride1 := h.slabDims[2]
	idx := [2][2]uint64{
		{uint64(i0)*stride0 + uint64(i1)*stride1, uint64(i0)*stride0 + uint64(i1+1)*stride1},
		{uint64(i0+1)*stride0 + uint64(i1)*stride1, uint64(i0+1)*stride0 + uint64(i1+1)*stride1},
	}

	out := make([]float64, h.numValues)
	nearestIsNoData := isNoData(h.values[h.nearestCornerOffset2D(x0, x1, idx)])
	for v := 0; v < h.numValues; v++ {
		var sum float64
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				sum += wts[i][j] * h.values[idx[i][j]+uint64(v)]
			}
		}
		if nearestIsNoData {
			out[v] = NODATA_VALUE
		} else {
			out[v] = sum
		}
	}
	return out
}

// nearestCornerOffset2D picks whichever of the four surrounding corners the
// fractional cell offsets (x0, x1) are closest to, used only for the
// single-corner no-data check in interpolate2D.
func (h *Hyperslab) nearestCornerOffset2D(x0, x1 float64, idx [2][2]uint64) uint64 {
	i := 0
	if x0 >= 0.5 {
		i = 1
	}
	j := 0
	if x1 >= 0.5 {
		j = 1
	}
	return idx[i][j]
}

func (h *Hyperslab) interpolate3D(indexFloat []float64) []float64 {
	d1, d2 := h.slabDims[1], h.slabDims[2]
	indexSlab := [3]float64{
		indexFloat[0] - float64(h.origin[0]),
		indexFloat[1] - float64(h.origin[1]),
		indexFloat[2] - float64(h.origin[2]),
	}

	i0, x0 := cellCorner(indexSlab[0], slabTolerance)
	i1, x1 := cellCorner(indexSlab[1], slabTolerance)
	i2, x2 := cellCorner(indexSlab[2], slabTolerance)

	wts := [2][2][2]float64{
		{
			{(1 - x0) * (1 - x1) * (1 - x2), (1 - x0) * (1 - x1) * x2},
			{(1 - x0) * x1 * (1 - x2), (1 - x0) * x1 * x2},
		},
		{
			{x0 * (1 - x1) * (1 - x2), x0 * (1 - x1) * x2},
			{x0 * x1 * (1 - x2), x0 * x1 * x2},
		},
	}

	stride0 := d1 * d2 * h.slabDims[3]
	stride1 := d2 * h.slabDims[3]
	stride2 := h.slabDims[3]
	var idx [2][2][2]uint64
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				idx[i][j][k] = uint64(i0+i)*stride0 + uint64(i1+j)*stride1 + uint64(i2+k)*stride2
			}
		}
	}

	out := make([]float64, h.numValues)
	for v := 0; v < h.numValues; v++ {
		var sum float64
		hasNoData := false
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				for k := 0; k < 2; k++ {
					val := h.values[idx[i][j][k]+uint64(v)]
					if isNoData(val) {
						hasNoData = true
					}
					sum += wts[i][j][k] * val
				}
			}
		}
		if hasNoData {
			out[v] = NODATA_VALUE
		} else {
			out[v] = sum
		}
	}
	return out
}

func (h *Hyperslab) nearest2D(indexFloat []float64) []float64 {
	indexSlab := [2]float64{indexFloat[0] - float64(h.origin[0]), indexFloat[1] - float64(h.origin[1])}
	i0 := uint64(math.Round(indexSlab[0]))
	i1 := uint64(math.Round(indexSlab[1]))

	stride0 := h.slabDims[1] * h.slabDims[2]
	stride1 := h.slabDims[2]
	base := i0*stride0 + i1*stride1

	out := make([]float64, h.numValues)
	for v := 0; v < h.numValues; v++ {
		val := h.values[base+uint64(v)]
		if isNoData(val) {
			out[v] = NODATA_VALUE
		} else {
			out[v] = val
		}
	}
	return out
}

func (h *Hyperslab) nearest3D(indexFloat []float64) []float64 {
	indexSlab := [3]float64{
		indexFloat[0] - float64(h.origin[0]),
		indexFloat[1] - float64(h.origin[1]),
		indexFloat[2] - float64(h.origin[2]),
	}
	i0 := uint64(math.Round(indexSlab[0]))
	i1 := uint64(math.Round(indexSlab[1]))
	i2 := uint64(math.Round(indexSlab[2]))

	stride0 := h.slabDims[1] * h.slabDims[2] * h.slabDims[3]
	stride1 := h.slabDims[2] * h.slabDims[3]
	stride2 := h.slabDims[3]
	base := i0*stride0 + i1*stride1 + i2*stride2

	out := make([]float64, h.numValues)
	for v := 0; v < h.numValues; v++ {
		val := h.values[base+uint64(v)]
		if isNoData(val) {
			out[v] = NODATA_VALUE
		} else {
			out[v] = val
		}
	}
	return out
}

// isNoData reports whether val is within noDataFraction of NODATA_VALUE
// (§4.5, §6.3).
func isNoData(val float64) bool {
	return math.Abs(1.0-val/NODATA_VALUE) < noDataFraction
}
