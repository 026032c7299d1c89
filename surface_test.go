package geomodelgrids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func flatSurfaceFixture(elev float64) *fakeAdapter {
	a := newFakeAdapter()
	a.setFloat("surfaces/top_surface", "resolution_horiz", 1000.0)
	dims := uint64(5)
	values := make([]float64, dims*dims)
	for i := range values {
		values[i] = elev
	}
	a.setDataset("surfaces/top_surface", []uint64{dims, dims, 1}, values)
	return a
}

func TestSurfaceLoadMetadataAndQuery(t *testing.T) {
	a := flatSurfaceFixture(123.5)
	s := NewSurface("top_surface")
	require.NoError(t, s.LoadMetadata(a))
	require.Equal(t, 1000.0, s.ResolutionHoriz())

	require.NoError(t, s.OpenQuery(a))
	defer s.CloseQuery()

	v, err := s.Query(2500.0, 1500.0)
	require.NoError(t, err)
	require.InDelta(t, 123.5, v, 1e-9)
}

func TestSurfaceQueryOutsideFootprintReturnsNoData(t *testing.T) {
	a := flatSurfaceFixture(10.0)
	s := NewSurface("top_surface")
	require.NoError(t, s.LoadMetadata(a))
	require.NoError(t, s.OpenQuery(a))
	defer s.CloseQuery()

	v, err := s.Query(-1.0, 0.0)
	require.NoError(t, err)
	require.Equal(t, NODATA_VALUE, v)

	v, err = s.Query(0.0, 10000.0)
	require.NoError(t, err)
	require.Equal(t, NODATA_VALUE, v)
}

func TestSurfaceLoadMetadataMissingResolutionFails(t *testing.T) {
	a := newFakeAdapter()
	a.setDataset("surfaces/top_surface", []uint64{2, 2, 1}, make([]float64, 4))
	s := NewSurface("top_surface")
	require.ErrorIs(t, s.LoadMetadata(a), ErrBadMetadata)
}
