package geomodelgrids

import (
	"fmt"

	"github.com/geomodelgrids/goquery/container"
)

// Surface is a 2-D elevation grid, uniformly spaced in x and y, used for a
// model's top and optional topography/bathymetry elevation datasets (§4.3).
type Surface struct {
	name string

	resolutionHoriz float64
	dims [2]uint64

	hyperslabDims [3]uint64 // x, y, values(=1)
	hyperslab     *Hyperslab
}

// NewSurface constructs an unloaded surface named name.
func NewSurface(name string) *Surface {
	return &Surface{
		name:          name,
		hyperslabDims: [3]uint64{defaultSurfaceSlab, defaultSurfaceSlab, 1},
	}
}

// Name returns the surface's dataset name.
func (s *Surface) Name() string { return s.name }

// ResolutionHoriz returns the surface's uniform horizontal grid spacing.
func (s *Surface) ResolutionHoriz() float64 { return s.resolutionHoriz }

// SetHyperslabDims overrides the default paging window.
func (s *Surface) SetHyperslabDims(x, y uint64) {
	s.hyperslabDims[0] = x
	s.hyperslabDims[1] = y
}

func (s *Surface) path() string {
	return "surfaces/" + s.name
}

// LoadMetadata reads the surface's resolution attribute and dataset shape
// (§4.3).
func (s *Surface) LoadMetadata(adapter container.Adapter) error {
	p := s.path()

	if !adapter.HasAttribute(p, "resolution_horiz") {
		return fmt.Errorf("%w: surface %q missing required attribute resolution_horiz", ErrBadMetadata, s.name)
	}
	res, err := adapter.ReadAttributeFloat64(p, "resolution_horiz")
	if err != nil {
		return fmt.Errorf("%w: surface %q resolution_horiz: %v", ErrBadMetadata, s.name, err)
	}
	s.resolutionHoriz = res

	dims, err := adapter.DatasetDims(p)
	if err != nil {
		return fmt.Errorf("%w: reading dataset shape for surface %q: %v", ErrBadMetadata, s.name, err)
	}
	if len(dims) != 3 {
		return fmt.Errorf("%w: surface %q dataset has rank %d, want 3", ErrBadMetadata, s.name, len(dims))
	}
	copy(s.dims[:], dims[:2])

	return nil
}

// OpenQuery prepares the surface's hyperslab pager.
func (s *Surface) OpenQuery(adapter container.Adapter) error {
	hs, err := NewHyperslab(adapter, s.path(), 2, s.hyperslabDims[:2])
	if err != nil {
		return err
	}
	s.hyperslab = hs
	return nil
}

// CloseQuery releases the surface's hyperslab pager.
func (s *Surface) CloseQuery() {
	s.hyperslab = nil
}

// Query interpolates the surface's elevation at model-local (x, y). A
// point outside the surface's footprint returns NODATA_VALUE rather than
// an error, matching the original's query() (§4.3).
func (s *Surface) Query(x, y float64) (float64, error) {
	if s.hyperslab == nil {
		return 0, fmt.Errorf("%w: surface %q queried before OpenQuery", ErrInvalidArgument, s.name)
	}

	index := []float64{x / s.resolutionHoriz, y / s.resolutionHoriz}
	if index[0] < 0 || index[0] > float64(s.dims[0]-1) || index[1] < 0 || index[1] > float64(s.dims[1]-1) {
		return NODATA_VALUE, nil
	}

	values, err := s.hyperslab.Interpolate(index)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

// QueryNearest is the supplemented nearest-node counterpart to Query.
func (s *Surface) QueryNearest(x, y float64) (float64, error) {
	if s.hyperslab == nil {
		return 0, fmt.Errorf("%w: surface %q queried before OpenQuery", ErrInvalidArgument, s.name)
	}

	index := []float64{x / s.resolutionHoriz, y / s.resolutionHoriz}
	if index[0] < 0 || index[0] > float64(s.dims[0]-1) || index[1] < 0 || index[1] > float64(s.dims[1]-1) {
		return NODATA_VALUE, nil
	}

	values, err := s.hyperslab.Nearest(index)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}
