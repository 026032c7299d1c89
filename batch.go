package geomodelgrids

import (
	"context"
	"fmt"
	"runtime"

	"github.com/alitto/pond"
)

// Point is one input coordinate to a batch query (§5).
type Point struct {
	X, Y, Z float64
}

// Result is one batch query's output row: the interpolated values in the
// caller's requested order, plus the status the engine returned for this
// point.
type Result struct {
	Values []float64
	Status Status
}

// BatchQuery evaluates points against a freshly-initialized QueryEngine per
// worker, fanning the work across a bounded pool the way the teacher's
// convert_gsf_list spreads GSF conversions across a pond pool (cmd/main.go).
// A process may hold several independent Query objects (§5), so each
// worker gets its own QueryEngine rather than sharing one across
// goroutines; modelPaths, valueNames and inputCRS are passed to
// Initialize on every worker's private engine. workers <= 0 defaults to
// 2*NumCPU, matching the teacher's fixed pool sizing.
func BatchQuery(ctx context.Context, modelPaths []string, valueNames []string, inputCRS string, mode SquashMode, squashMinElev float64, points []Point, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	results := make([]Result, len(points))
	errs := make([]error, len(points))

	pool := pond.New(workers, 0, pond.MinWorkers(workers), pond.Context(ctx))

	engines := make(chan *QueryEngine, workers)
	newEngine := func() (*QueryEngine, error) {
		q := NewQueryEngine()
		if err := q.SetSquashing(mode); err != nil {
			return nil, err
		}
		if err := q.SetSquashMinElev(squashMinElev); err != nil {
			return nil, err
		}
		if err := q.Initialize(modelPaths, valueNames, inputCRS); err != nil {
			return nil, err
		}
		return q, nil
	}

	for i := range points {
		idx := i
		pt := points[i]
		pool.Submit(func() {
			var q *QueryEngine
			select {
			case q = <-engines:
			default:
				var err error
				q, err = newEngine()
				if err != nil {
					errs[idx] = err
					return
				}
			}
			defer func() {
				select {
				case engines <- q:
				default:
					q.Finalize()
				}
			}()

			out := make([]float64, len(valueNames))
			status, err := q.Query(out, pt.X, pt.Y, pt.Z)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx] = Result{Values: out, Status: status}
		})
	}

	pool.StopAndWait()
	close(engines)
	for q := range engines {
		q.Finalize()
	}

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("batch query point %d: %w", i, err)
		}
	}
	return results, nil
}
