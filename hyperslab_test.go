package geomodelgrids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// a 4x4 surface-shaped dataset (values axis length 1) with a single linear
// field f(x, y) = 10*x + y, plus a no-data corner at (3, 3).
func surfaceDataset() *fakeAdapter {
	a := newFakeAdapter()
	dims := []uint64{4, 4, 1}
	values := make([]float64, 4*4)
	for x := uint64(0); x < 4; x++ {
		for y := uint64(0); y < 4; y++ {
			values[x*4+y] = 10*float64(x) + float64(y)
		}
	}
	values[3*4+3] = NODATA_VALUE
	a.setDataset("surfaces/s", dims, values)
	return a
}

func TestHyperslabInterpolate2DLinear(t *testing.T) {
	a := surfaceDataset()
	hs, err := NewHyperslab(a, "surfaces/s", 2, []uint64{4, 4})
	require.NoError(t, err)

	out, err := hs.Interpolate([]float64{1.5, 2.25})
	require.NoError(t, err)
	require.InDelta(t, 10*1.5+2.25, out[0], 1e-9)
}

func TestHyperslabInterpolate2DNoDataNearestCornerOnly(t *testing.T) {
	a := surfaceDataset()
	hs, err := NewHyperslab(a, "surfaces/s", 2, []uint64{4, 4})
	require.NoError(t, err)

	// Nearest corner to (2.6, 2.6) is (3, 3), which is no-data.
	out, err := hs.Interpolate([]float64{2.6, 2.6})
	require.NoError(t, err)
	require.Equal(t, NODATA_VALUE, out[0])

	// Nearest corner to (2.1, 2.1) is (2, 2), which is not no-data, even
	// though (3, 3) still contributes a weighted (but unchecked) term.
	out, err = hs.Interpolate([]float64{2.1, 2.1})
	require.NoError(t, err)
	require.NotEqual(t, NODATA_VALUE, out[0])
}

func TestHyperslabNearest2D(t *testing.T) {
	a := surfaceDataset()
	hs, err := NewHyperslab(a, "surfaces/s", 2, []uint64{4, 4})
	require.NoError(t, err)

	out, err := hs.Nearest([]float64{1.4, 2.6})
	require.NoError(t, err)
	require.Equal(t, 10*1.0+3.0, out[0])
}

// a 3x3x3 block-shaped dataset with a single linear field
// f(x, y, z) = x + 2y + 3z, one value per node, and a no-data corner.
func blockDataset() *fakeAdapter {
	a := newFakeAdapter()
	dims := []uint64{3, 3, 3, 1}
	values := make([]float64, 3*3*3)
	for x := uint64(0); x < 3; x++ {
		for y := uint64(0); y < 3; y++ {
			for z := uint64(0); z < 3; z++ {
				values[(x*3+y)*3+z] = float64(x) + 2*float64(y) + 3*float64(z)
			}
		}
	}
	values[(2*3+2)*3+2] = NODATA_VALUE
	a.setDataset("blocks/b", dims, values)
	return a
}

func TestHyperslabInterpolate3DLinear(t *testing.T) {
	a := blockDataset()
	hs, err := NewHyperslab(a, "blocks/b", 3, []uint64{3, 3, 3})
	require.NoError(t, err)

	out, err := hs.Interpolate([]float64{0.5, 1.0, 1.5})
	require.NoError(t, err)
	require.InDelta(t, 0.5+2*1.0+3*1.5, out[0], 1e-9)
}

func TestHyperslabInterpolate3DNoDataContagion(t *testing.T) {
	a := blockDataset()
	hs, err := NewHyperslab(a, "blocks/b", 3, []uint64{3, 3, 3})
	require.NoError(t, err)

	// Any of the 8 surrounding corners includes (2,2,2), which is no-data,
	// so the whole cell poisons even though the query point is nearer
	// another corner.
	out, err := hs.Interpolate([]float64{1.1, 1.1, 1.1})
	require.NoError(t, err)
	require.Equal(t, NODATA_VALUE, out[0])
}

func TestHyperslabRecentersOnSlabBoundaryCrossing(t *testing.T) {
	a := newFakeAdapter()
	dims := []uint64{10, 10, 1}
	values := make([]float64, 100)
	for x := uint64(0); x < 10; x++ {
		for y := uint64(0); y < 10; y++ {
			values[x*10+y] = 10*float64(x) + float64(y)
		}
	}
	a.setDataset("surfaces/s", dims, values)

	hs, err := NewHyperslab(a, "surfaces/s", 2, []uint64{4, 4})
	require.NoError(t, err)

	out, err := hs.Interpolate([]float64{1.0, 1.0})
	require.NoError(t, err)
	require.InDelta(t, 11.0, out[0], 1e-9)

	// Far outside the first paged-in window; getSlab must re-center.
	out, err = hs.Interpolate([]float64{8.0, 8.0})
	require.NoError(t, err)
	require.InDelta(t, 88.0, out[0], 1e-9)
}
