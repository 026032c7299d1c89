package geomodelgrids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestQueryEngine wires already-constructed, already-initialized Models
// into a QueryEngine, mirroring Initialize's table-building and state
// transition without routing through OpenModel (which requires a real
// TileDB container).
func newTestQueryEngine(t *testing.T, models []*Model, valueNames []string) *QueryEngine {
	t.Helper()
	tables, err := buildValueTables(models, valueNames)
	require.NoError(t, err)

	q := NewQueryEngine()
	q.models = models
	q.valueNames = valueNames
	q.tables = tables
	q.state = stateInitialized
	t.Cleanup(func() { _ = q.Finalize() })
	return q
}

func TestQueryEngineOneBlockFlatTop(t *testing.T) {
	m := newTestModel(t, planeBlockFixture())
	q := newTestQueryEngine(t, []*Model{m}, []string{"one", "two"})

	x, y, z := 18100.0, 8300.0, -10.0
	out := make([]float64, 2)
	status, err := q.Query(out, x, y, z)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	wantOne := 2000 + 1.0*x + 0.4*y - 0.5*z
	wantTwo := -1200 + 2.1*x - 0.9*y + 0.3*z
	require.InDelta(t, wantOne, out[0], 2e-5*wantOne)
	require.InDelta(t, wantTwo, out[1], 2e-5*wantTwo)
}

func TestQueryEngineValueOrderSwap(t *testing.T) {
	m1 := newTestModel(t, planeBlockFixture())
	m2 := newTestModel(t, planeBlockFixture())

	x, y, z := 18100.0, 8300.0, -10.0

	qNormal := newTestQueryEngine(t, []*Model{m1}, []string{"one", "two"})
	outNormal := make([]float64, 2)
	_, err := qNormal.Query(outNormal, x, y, z)
	require.NoError(t, err)

	qSwapped := newTestQueryEngine(t, []*Model{m2}, []string{"two", "one"})
	outSwapped := make([]float64, 2)
	_, err = qSwapped.Query(outSwapped, x, y, z)
	require.NoError(t, err)

	require.InDelta(t, outNormal[0], outSwapped[1], 1e-6)
	require.InDelta(t, outNormal[1], outSwapped[0], 1e-6)
}

func TestQueryEngineOutsideDomainReturnsWarningAndNoData(t *testing.T) {
	m := newTestModel(t, planeBlockFixture())
	q := newTestQueryEngine(t, []*Model{m}, []string{"one", "two"})

	out := make([]float64, 2)
	status, err := q.Query(out, -500.0, 15000.0, -10.0)
	require.NoError(t, err)
	require.Equal(t, StatusWarning, status)
	require.Equal(t, NODATA_VALUE, out[0])
	require.Equal(t, NODATA_VALUE, out[1])
	require.NotEmpty(t, q.ErrorHandler().Message())
}

func TestQueryEngineSquashTopSurfaceRoundTrip(t *testing.T) {
	squashMinElev := -4999.0

	squashed := withTopSurface(planeBlockFixture(), 50.0)
	unsquashed := withTopSurface(planeBlockFixture(), 50.0)

	mSquashed := newTestModel(t, squashed)
	mUnsquashed := newTestModel(t, unsquashed)

	x, y := 12000.0, 6000.0
	depth := -8.0

	qSquashed := newTestQueryEngine(t, []*Model{mSquashed}, []string{"one", "two"})
	require.NoError(t, qSquashed.SetSquashing(SquashTopSurface))
	require.NoError(t, qSquashed.SetSquashMinElev(squashMinElev))

	qUnsquashed := newTestQueryEngine(t, []*Model{mUnsquashed}, []string{"one", "two"})

	outSquashed := make([]float64, 2)
	_, err := qSquashed.Query(outSquashed, x, y, depth)
	require.NoError(t, err)

	// §8 scenario 4: querying at depth z with squash on must equal
	// querying at the absolute elevation S(x, y) + z with squash off.
	outUnsquashed := make([]float64, 2)
	_, err = qUnsquashed.Query(outUnsquashed, x, y, 50.0+depth)
	require.NoError(t, err)

	require.InDelta(t, outUnsquashed[0], outSquashed[0], 1e-6)
	require.InDelta(t, outUnsquashed[1], outSquashed[1], 1e-6)
}

func TestQueryEngineBoreholeColumn(t *testing.T) {
	a := withTopSurface(planeBlockFixture(), 0.0)
	m := newTestModel(t, a)
	q := newTestQueryEngine(t, []*Model{m}, []string{"one"})

	x, y := 12000.0, 6000.0
	rows, err := q.QueryColumn(x, y, 0.0-1e-6, -5000.0, -1000.0)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	for _, row := range rows {
		require.NotEqual(t, NODATA_VALUE, row[0])
	}
}

func TestQueryEngineRejectsMismatchedOutputLength(t *testing.T) {
	m := newTestModel(t, planeBlockFixture())
	q := newTestQueryEngine(t, []*Model{m}, []string{"one", "two"})

	_, err := q.Query(make([]float64, 1), 0, 0, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBuildValueTablesFailsOnInconsistentUnits(t *testing.T) {
	a1 := planeBlockFixture()
	a2 := planeBlockFixture()
	a2.setStringArray("", "data_units", []string{"m", "feet"})

	m1 := newTestModel(t, a1)
	m2 := newTestModel(t, a2)

	_, err := buildValueTables([]*Model{m1, m2}, []string{"one", "two"})
	require.ErrorIs(t, err, ErrInconsistentUnits)
}

func TestBuildValueTablesFailsWhenValueNotInAnyModel(t *testing.T) {
	m := newTestModel(t, planeBlockFixture())

	_, err := buildValueTables([]*Model{m}, []string{"three"})
	require.ErrorIs(t, err, ErrValueNotInAnyModel)
}
