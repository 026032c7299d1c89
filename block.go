package geomodelgrids

import (
	"fmt"
	"sort"

	"github.com/geomodelgrids/goquery/container"
)

// Block is one rectangular, uniformly or variably gridded sub-volume of a
// model's 3-D domain (§4.4). Multiple blocks stack vertically to cover a
// model's full depth at different resolutions; Model picks the one
// whose top/bottom elevations contain a query point.
type Block struct {
	name string

	resolutionX, resolutionY, resolutionZ float64
	coordinatesX, coordinatesY, coordinatesZ []float64

	zTop float64
	dims [3]uint64 // x, y, z grid point counts
	numValues int

	indexingX, indexingY, indexingZ *Indexing

	hyperslabDims [4]uint64 // x, y, z, values
	hyperslab     *Hyperslab
}

// NewBlock constructs an unloaded block named name. Call LoadMetadata
// before querying.
func NewBlock(name string) *Block {
	return &Block{
		name:          name,
		hyperslabDims: [4]uint64{defaultBlockSlabXY, defaultBlockSlabXY, 0, 0},
	}
}

// Name returns the block's name, matching the dataset name under the
// container's "blocks" group.
func (b *Block) Name() string { return b.name }

// ZTop returns the block's top elevation in model-local coordinates (§4.4).
func (b *Block) ZTop() float64 { return b.zTop }

// ZBottom returns the block's bottom elevation, derived from either its
// uniform z resolution and point count or its explicit z coordinates
// (§4.4).
func (b *Block) ZBottom() float64 {
	if b.resolutionZ > 0.0 {
		return b.zTop - b.resolutionZ*float64(b.dims[2]-1)
	}
	if len(b.coordinatesZ) > 0 {
		return b.coordinatesZ[b.dims[2]-1]
	}
	return 0.0
}

// NumValues returns the number of data values stored at each grid point.
func (b *Block) NumValues() int { return b.numValues }

// SetHyperslabDims overrides the default x/y paging window (§4.4). z and
// values default to the block's full extent regardless.
func (b *Block) SetHyperslabDims(x, y uint64) {
	b.hyperslabDims[0] = x
	b.hyperslabDims[1] = y
}

func (b *Block) path() string {
	return "blocks/" + b.name
}

// LoadMetadata reads the block's resolution-or-coordinate attributes, its
// dataset shape, and builds its axis indexers, mirroring the
// resolution-or-coordinates fallback in the original's loadMetadata (§4.4).
func (b *Block) LoadMetadata(adapter container.Adapter) error {
	p := b.path()

	var err error
	if b.resolutionX, b.coordinatesX, err = loadAxis(adapter, p, "x", Ascending); err != nil {
		return err
	}
	if b.resolutionY, b.coordinatesY, err = loadAxis(adapter, p, "y", Ascending); err != nil {
		return err
	}
	if b.resolutionZ, b.coordinatesZ, err = loadAxis(adapter, p, "z", Descending); err != nil {
		return err
	}

	if adapter.HasAttribute(p, "z_resolution") {
		if !adapter.HasAttribute(p, "z_top") {
			return fmt.Errorf("%w: block %q is missing required attribute z_top", ErrBadMetadata, b.name)
		}
		if b.zTop, err = adapter.ReadAttributeFloat64(p, "z_top"); err != nil {
			return fmt.Errorf("%w: block %q z_top: %v", ErrBadMetadata, b.name, err)
		}
	} else if len(b.coordinatesZ) > 0 {
		b.zTop = b.coordinatesZ[0]
	}

	dims, err := adapter.DatasetDims(p)
	if err != nil {
		return fmt.Errorf("%w: reading dataset shape for block %q: %v", ErrBadMetadata, b.name, err)
	}
	if len(dims) != 4 {
		return fmt.Errorf("%w: block %q dataset has rank %d, want 4", ErrBadMetadata, b.name, len(dims))
	}
	copy(b.dims[:], dims[:3])
	b.numValues = int(dims[3])

	if b.hyperslabDims[2] == 0 {
		b.hyperslabDims[2] = dims[2]
	}
	if b.hyperslabDims[3] == 0 {
		b.hyperslabDims[3] = dims[3]
	}

	if len(b.coordinatesX) > 0 && uint64(len(b.coordinatesX)) != b.dims[0] {
		return fmt.Errorf("%w: block %q x dimension (%d) does not match number of x coordinates (%d)", ErrBadMetadata, b.name, b.dims[0], len(b.coordinatesX))
	}
	if len(b.coordinatesY) > 0 && uint64(len(b.coordinatesY)) != b.dims[1] {
		return fmt.Errorf("%w: block %q y dimension (%d) does not match number of y coordinates (%d)", ErrBadMetadata, b.name, b.dims[1], len(b.coordinatesY))
	}
	if len(b.coordinatesZ) > 0 && uint64(len(b.coordinatesZ)) != b.dims[2] {
		return fmt.Errorf("%w: block %q z dimension (%d) does not match number of z coordinates (%d)", ErrBadMetadata, b.name, b.dims[2], len(b.coordinatesZ))
	}

	if b.indexingX, err = newAxisIndexing(b.resolutionX, b.coordinatesX, Ascending); err != nil {
		return err
	}
	if b.indexingY, err = newAxisIndexing(b.resolutionY, b.coordinatesY, Ascending); err != nil {
		return err
	}
	if b.indexingZ, err = newAxisIndexing(b.resolutionZ, b.coordinatesZ, Descending); err != nil {
		return err
	}

	return nil
}

// loadAxis reads either a "<axis>_resolution" scalar or an
// "<axis>_coordinates" array attribute, sorting coordinates into dir order
// the way the original's IndexingVariable::less/greater comparators do.
func loadAxis(adapter container.Adapter, groupPath, axis string, dir Direction) (resolution float64, coords []float64, err error) {
	resAttr, coordAttr := axis+"_resolution", axis+"_coordinates"

	if adapter.HasAttribute(groupPath, resAttr) {
		resolution, err = adapter.ReadAttributeFloat64(groupPath, resAttr)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %s/%s: %v", ErrBadMetadata, groupPath, resAttr, err)
		}
		return resolution, nil, nil
	}

	if adapter.HasAttribute(groupPath, coordAttr) {
		coords, err = adapter.ReadAttributeFloat64Array(groupPath, coordAttr)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %s/%s: %v", ErrBadMetadata, groupPath, coordAttr, err)
		}
		sortCoordinates(coords, dir)
		return 0, coords, nil
	}

	return 0, nil, fmt.Errorf("%w: %s missing required attribute %s or %s", ErrBadMetadata, groupPath, resAttr, coordAttr)
}

func newAxisIndexing(resolution float64, coords []float64, dir Direction) (*Indexing, error) {
	if len(coords) == 0 {
		return NewUniformIndexing(resolution)
	}
	return NewVariableIndexing(coords, dir)
}

// OpenQuery prepares the block's hyperslab pager. Call before Query and
// CloseQuery when done (§4.4, §5: lifecycle mirrors the container's own
// open/close discipline).
func (b *Block) OpenQuery(adapter container.Adapter) error {
	hs, err := NewHyperslab(adapter, b.path(), 3, b.hyperslabDims[:3])
	if err != nil {
		return err
	}
	b.hyperslab = hs
	return nil
}

// CloseQuery releases the block's hyperslab pager.
func (b *Block) CloseQuery() {
	b.hyperslab = nil
}

// Query interpolates the block's stored values at model-local coordinates
// (xm, ym, zm). x and y are measured from the model's horizontal origin;
// zm is a non-positive elevation (§4.4).
func (b *Block) Query(xm, ym, zm float64) ([]float64, error) {
	if b.hyperslab == nil {
		return nil, fmt.Errorf("%w: block %q queried before OpenQuery", ErrInvalidArgument, b.name)
	}

	index := []float64{
		b.indexingX.IndexOf(xm),
		b.indexingY.IndexOf(ym),
		b.zIndex(zm),
	}
	return b.hyperslab.Interpolate(index)
}

// QueryNearest is the supplemented nearest-node counterpart to Query, for
// categorical fields where interpolating across grid points is meaningless.
func (b *Block) QueryNearest(xm, ym, zm float64) ([]float64, error) {
	if b.hyperslab == nil {
		return nil, fmt.Errorf("%w: block %q queried before OpenQuery", ErrInvalidArgument, b.name)
	}

	index := []float64{
		b.indexingX.IndexOf(xm),
		b.indexingY.IndexOf(ym),
		b.zIndex(zm),
	}
	return b.hyperslab.Nearest(index)
}

// zIndex converts a model-local elevation zm into the argument the block's
// z indexer expects. A uniform indexer has no notion of the block's top
// elevation, so it is stepped by depth-below-top (zTop - zm). A variable
// indexer is built directly from the block's own z_coordinates and
// already operates on raw elevation values (indexing_test.go's
// TestVariableIndexingDescending), the same convention x and y always use.
func (b *Block) zIndex(zm float64) float64 {
	if len(b.coordinatesZ) > 0 {
		return b.indexingZ.IndexOf(zm)
	}
	return b.indexingZ.IndexOf(b.zTop - zm)
}

// sortCoordinates sorts coords ascending or descending in place, matching
// the original's IndexingVariable::less/greater comparators.
func sortCoordinates(coords []float64, dir Direction) {
	sort.Slice(coords, func(i, j int) bool {
		if dir == Ascending {
			return coords[i] < coords[j]
		}
		return coords[i] > coords[j]
	})
}

// compareBlocksDescending orders blocks by zTop descending, the original's
// Block::compare tie-break for picking which block owns a shared boundary
// elevation (the shallower block wins, §4.6/§8).
func compareBlocksDescending(a, b *Block) bool {
	return a.zTop > b.zTop
}
