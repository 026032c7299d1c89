package geomodelgrids

import (
	"fmt"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
)

// SquashMode selects which surface, if any, the caller's z is measured
// relative to above the squash threshold (§3, §4.6, GLOSSARY "Squash").
type SquashMode int

const (
	// SquashNone disables squashing; z is always an absolute elevation.
	SquashNone SquashMode = iota
	// SquashTopSurface measures z as depth below the model's top surface.
	SquashTopSurface
	// SquashTopobathy measures z as depth below the topography/bathymetry
	// surface.
	SquashTopobathy
)

type engineState int

const (
	stateConstructed engineState = iota
	stateInitialized
	stateFinalized
)

// absentValue marks a requested value index the owning model does not
// provide (§3: "per-model index table mapping each requested value index
// to the model's native value index, or sentinel 'absent'").
const absentValue = -1

// QueryEngine is the top-level entry point: it owns an ordered list of
// Models, drives CRS transform and squash, and remaps each model's native
// value vector into the caller's requested order (§3, §4.7). A QueryEngine
// moves through constructed -> initialized -> finalized and is not safe
// for concurrent use by more than one goroutine at a time, though distinct
// QueryEngines sharing no Model may run concurrently (§5).
type QueryEngine struct {
	state engineState

	models     []*Model
	valueNames []string
	tables     [][]int // tables[model][requestedValue] = native index or absentValue

	squashMode    SquashMode
	squashMinElev float64

	errHandler *ErrorHandler
}

// NewQueryEngine constructs an engine in the "constructed" state.
func NewQueryEngine() *QueryEngine {
	return &QueryEngine{errHandler: NewErrorHandler()}
}

// ErrorHandler returns the engine's attached error handler.
func (q *QueryEngine) ErrorHandler() *ErrorHandler { return q.errHandler }

// SetSquashing selects the squash mode. Allowed in the constructed or
// initialized state (§4.7).
func (q *QueryEngine) SetSquashing(mode SquashMode) error {
	if q.state == stateFinalized {
		return fmt.Errorf("%w: SetSquashing called on a finalized QueryEngine", ErrInvalidArgument)
	}
	q.squashMode = mode
	return nil
}

// SetSquashMinElev sets z_s, the elevation above which squash re-inflation
// applies (§4.6).
func (q *QueryEngine) SetSquashMinElev(z float64) error {
	if q.state == stateFinalized {
		return fmt.Errorf("%w: SetSquashMinElev called on a finalized QueryEngine", ErrInvalidArgument)
	}
	q.squashMinElev = z
	return nil
}

// Initialize opens every model at modelPaths, loads its metadata against
// inputCRS, and builds the per-model value-index tables for valueNames.
// Fails with ErrValueNotInAnyModel if any requested name matches no model,
// or ErrInconsistentUnits if two models disagree on a shared value's units
// (§4.7, §7).
func (q *QueryEngine) Initialize(modelPaths []string, valueNames []string, inputCRS string) error {
	if q.state != stateConstructed && q.state != stateFinalized {
		return fmt.Errorf("%w: Initialize called while already initialized", ErrInvalidArgument)
	}

	models := make([]*Model, 0, len(modelPaths))
	for _, path := range modelPaths {
		model, err := OpenModel(path, "")
		if err != nil {
			return err
		}
		if err := model.LoadMetadata(inputCRS); err != nil {
			return err
		}
		if err := model.Initialize(); err != nil {
			return err
		}
		models = append(models, model)
	}

	tables, err := buildValueTables(models, valueNames)
	if err != nil {
		return err
	}

	q.models = models
	q.valueNames = valueNames
	q.tables = tables
	q.state = stateInitialized
	q.errHandler.resetOK()
	return nil
}

// buildValueTables matches each requested value name against each model's
// native names case-insensitively, erroring if a name is unmatched
// everywhere or matched to conflicting units across models (§4.7, §7).
func buildValueTables(models []*Model, valueNames []string) ([][]int, error) {
	foldCase := cases.Fold()
	folded := lo.Map(valueNames, func(name string, _ int) string { return foldCase.String(name) })

	tables := make([][]int, len(models))
	resolvedUnits := make([]string, len(valueNames))
	haveUnit := make([]bool, len(valueNames))
	foundAnywhere := make([]bool, len(valueNames))

	for mi, model := range models {
		nativeFolded := lo.Map(model.ValueNames(), func(name string, _ int) string { return foldCase.String(name) })

		table := make([]int, len(valueNames))
		for vi, want := range folded {
			idx := lo.IndexOf(nativeFolded, want)
			table[vi] = idx
			if idx == absentValue {
				continue
			}

			foundAnywhere[vi] = true
			unit := model.ValueUnits()[idx]
			if !haveUnit[vi] {
				resolvedUnits[vi] = unit
				haveUnit[vi] = true
			} else if resolvedUnits[vi] != unit {
				return nil, fmt.Errorf("%w: value %q has units %q in one model and %q in another", ErrInconsistentUnits, valueNames[vi], resolvedUnits[vi], unit)
			}
		}
		tables[mi] = table
	}

	for vi, found := range foundAnywhere {
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrValueNotInAnyModel, valueNames[vi])
		}
	}

	return tables, nil
}

// Finalize releases every owned model and returns the engine to a state
// from which Initialize may be called again (§4.7).
func (q *QueryEngine) Finalize() error {
	var firstErr error
	for _, model := range q.models {
		if err := model.Finalize(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	q.models = nil
	q.tables = nil
	q.state = stateFinalized
	return firstErr
}

// squashSurfaceFor returns the surface Model.ToModelXYZ should use for
// vertical stretching under the engine's current squash mode, or nil for
// SquashNone (which falls back to the model's own top surface inside
// ToModelXYZ, matching §4.6's "squash is still applied for coordinate
// normalization" note).
func squashSurfaceFor(model *Model, mode SquashMode) *Surface {
	switch mode {
	case SquashTopobathy:
		return model.TopobathySurface()
	default:
		return nil
	}
}

// remapZ applies §4.6's squash re-inflation: when squashing is active and
// z is strictly above the squash threshold, the caller's depth-relative z
// is converted back to an absolute elevation by adding the chosen
// surface's elevation at (x, y). The strict ">" (not ">=") is the explicit
// resolution of the boundary-value open question.
func (q *QueryEngine) remapZ(model *Model, x, y, z float64) (float64, error) {
	if q.squashMode == SquashNone || z <= q.squashMinElev {
		return z, nil
	}

	var (
		s   float64
		err error
	)
	switch q.squashMode {
	case SquashTopobathy:
		s, err = model.QueryTopobathyElevation(x, y)
	default:
		s, err = model.QueryTopElevation(x, y)
	}
	if err != nil {
		return 0, err
	}
	if s == NODATA_VALUE {
		return z, nil
	}
	return z + s, nil
}

// Query evaluates every requested value at (x, y, z) in the caller's input
// CRS, trying models in order and stopping at the first that contains the
// (possibly squash-remapped) point (§4.7). out must have the same length
// as the value names passed to Initialize; entries the winning model
// doesn't provide are left untouched. When no model contains the point,
// every entry of out is set to NODATA_VALUE and StatusWarning is returned.
func (q *QueryEngine) Query(out []float64, x, y, z float64) (Status, error) {
	if q.state != stateInitialized {
		return StatusError, fmt.Errorf("%w: Query called before Initialize or after Finalize", ErrInvalidArgument)
	}
	if len(out) != len(q.valueNames) {
		return StatusError, fmt.Errorf("%w: Query output buffer has length %d, want %d", ErrInvalidArgument, len(out), len(q.valueNames))
	}

	q.errHandler.resetOK()

	for mi, model := range q.models {
		zRemapped, err := q.remapZ(model, x, y, z)
		if err != nil {
			q.errHandler.setError(err.Error())
			return StatusError, err
		}

		xm, ym, zm, err := model.ToModelXYZ(x, y, zRemapped, squashSurfaceFor(model, q.squashMode))
		if err != nil {
			q.errHandler.setError(err.Error())
			return StatusError, err
		}
		if !model.ContainsXYZ(xm, ym, zm) {
			continue
		}

		native, err := model.QueryXYZ(xm, ym, zm)
		if err != nil {
			q.errHandler.setError(err.Error())
			return StatusError, err
		}

		table := q.tables[mi]
		for vi, idx := range table {
			if idx != absentValue {
				out[vi] = native[idx]
			}
		}
		return StatusOK, nil
	}

	for i := range out {
		out[i] = NODATA_VALUE
	}
	q.errHandler.setWarning(errPointOutsideDomain.Error())
	return StatusWarning, nil
}

// QueryTopElevation returns the top-surface elevation at (x, y), trying
// models in order and returning the first non-no-data result, or
// NODATA_VALUE if no model's top surface covers the point (§6.2).
func (q *QueryEngine) QueryTopElevation(x, y float64) (float64, error) {
	return q.queryElevation(x, y, (*Model).QueryTopElevation)
}

// QueryTopobathyElevation is the symmetric counterpart for the
// topography/bathymetry surface.
func (q *QueryEngine) QueryTopobathyElevation(x, y float64) (float64, error) {
	return q.queryElevation(x, y, (*Model).QueryTopobathyElevation)
}

func (q *QueryEngine) queryElevation(x, y float64, fn func(*Model, float64, float64) (float64, error)) (float64, error) {
	if q.state != stateInitialized {
		return 0, fmt.Errorf("%w: elevation query called before Initialize or after Finalize", ErrInvalidArgument)
	}
	for _, model := range q.models {
		elev, err := fn(model, x, y)
		if err != nil {
			return 0, err
		}
		if elev != NODATA_VALUE {
			return elev, nil
		}
	}
	return NODATA_VALUE, nil
}

// QueryColumn sweeps z from top to bottom at a fixed (x, y), sampling
// every stepZ meters (stepZ must be negative, moving downward) down to and
// including bottomZ. It is a supplemented borehole-style convenience built
// on repeated Query calls, useful for the same depth-column sweeps the
// original command-line borehole tool produced (§8 scenario 6).
func (q *QueryEngine) QueryColumn(x, y, topZ, bottomZ, stepZ float64) ([][]float64, error) {
	if stepZ >= 0 {
		return nil, fmt.Errorf("%w: QueryColumn stepZ must be negative, got %g", ErrInvalidArgument, stepZ)
	}

	var rows [][]float64
	for z := topZ; z >= bottomZ; z += stepZ {
		out := make([]float64, len(q.valueNames))
		if _, err := q.Query(out, x, y, z); err != nil {
			return nil, err
		}
		rows = append(rows, out)
	}
	return rows, nil
}
