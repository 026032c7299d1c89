package geomodelgrids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestModel builds a Model over a fake adapter without going through
// OpenModel (which requires a real TileDB container), then runs the same
// LoadMetadata/Initialize lifecycle a caller would.
func newTestModel(t *testing.T, a *fakeAdapter) *Model {
	t.Helper()
	m := &Model{adapter: a, uri: "fixture"}
	require.NoError(t, m.LoadMetadata("EPSG:3857"))
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Finalize() })
	return m
}

func TestModelOneBlockFlatTopScenario(t *testing.T) {
	m := newTestModel(t, planeBlockFixture())

	x, y, z := 18100.0, 8300.0, -10.0
	contains, err := m.Contains(x, y, z)
	require.NoError(t, err)
	require.True(t, contains)

	out, err := m.Query(x, y, z)
	require.NoError(t, err)

	wantOne := 2000 + 1.0*x + 0.4*y - 0.5*z
	wantTwo := -1200 + 2.1*x - 0.9*y + 0.3*z
	require.InDelta(t, wantOne, out[0], 2e-5*wantOne)
	require.InDelta(t, wantTwo, out[1], 2e-5*wantTwo)
}

func TestModelContainsRejectsOutsideFootprint(t *testing.T) {
	m := newTestModel(t, planeBlockFixture())

	contains, err := m.Contains(-100.0, 15000.0, -10.0)
	require.NoError(t, err)
	require.False(t, contains)
}

func TestModelQueryTopElevationWithoutTopSurfaceIsNoData(t *testing.T) {
	m := newTestModel(t, planeBlockFixture())

	elev, err := m.QueryTopElevation(1000.0, 1000.0)
	require.NoError(t, err)
	require.Equal(t, NODATA_VALUE, elev)
}

func TestModelQueryTopElevationWithTopSurface(t *testing.T) {
	a := withTopSurface(planeBlockFixture(), 42.0)
	m := newTestModel(t, a)

	elev, err := m.QueryTopElevation(12000.0, 6000.0)
	require.NoError(t, err)
	require.InDelta(t, 42.0, elev, 1e-9)
}

func TestModelRejectsMismatchedValueUnitLengths(t *testing.T) {
	a := planeBlockFixture()
	a.setStringArray("", "data_units", []string{"m"})
	m := &Model{adapter: a, uri: "fixture"}
	require.ErrorIs(t, m.LoadMetadata("EPSG:3857"), ErrBadMetadata)
}

func TestModelRejectsUnrecognizedDataLayout(t *testing.T) {
	a := planeBlockFixture()
	a.setString("", "data_layout", "bogus")
	m := &Model{adapter: a, uri: "fixture"}
	require.ErrorIs(t, m.LoadMetadata("EPSG:3857"), ErrBadMetadata)
}
