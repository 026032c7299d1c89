package geomodelgrids

import (
	"github.com/geomodelgrids/goquery/container"
)

// fakeDataset is a dense, row-major array fixture for fakeAdapter.
type fakeDataset struct {
	dims   []uint64
	values []float64
}

// fakeAdapter is an in-memory container.Adapter used to build fixtures
// without a real TileDB container, the way a hand-rolled struct stands in
// for a database connection in table-driven tests.
type fakeAdapter struct {
	strings      map[string]map[string]string
	stringArrays map[string]map[string][]string
	floats       map[string]map[string]float64
	floatArrays  map[string]map[string][]float64
	datasets     map[string]*fakeDataset
	groups       map[string][]string
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		strings:      map[string]map[string]string{},
		stringArrays: map[string]map[string][]string{},
		floats:       map[string]map[string]float64{},
		floatArrays:  map[string]map[string][]float64{},
		datasets:     map[string]*fakeDataset{},
		groups:       map[string][]string{},
	}
}

func (a *fakeAdapter) setString(path, name, v string) {
	if a.strings[path] == nil {
		a.strings[path] = map[string]string{}
	}
	a.strings[path][name] = v
}

func (a *fakeAdapter) setStringArray(path, name string, v []string) {
	if a.stringArrays[path] == nil {
		a.stringArrays[path] = map[string][]string{}
	}
	a.stringArrays[path][name] = v
}

func (a *fakeAdapter) setFloat(path, name string, v float64) {
	if a.floats[path] == nil {
		a.floats[path] = map[string]float64{}
	}
	a.floats[path][name] = v
}

func (a *fakeAdapter) setFloatArray(path, name string, v []float64) {
	if a.floatArrays[path] == nil {
		a.floatArrays[path] = map[string][]float64{}
	}
	a.floatArrays[path][name] = v
}

func (a *fakeAdapter) setDataset(path string, dims []uint64, values []float64) {
	a.datasets[path] = &fakeDataset{dims: dims, values: values}
}

func (a *fakeAdapter) setGroup(groupPath string, names []string) {
	a.groups[groupPath] = names
}

func (a *fakeAdapter) HasAttribute(path, name string) bool {
	if _, ok := a.strings[path][name]; ok {
		return true
	}
	if _, ok := a.stringArrays[path][name]; ok {
		return true
	}
	if _, ok := a.floats[path][name]; ok {
		return true
	}
	if _, ok := a.floatArrays[path][name]; ok {
		return true
	}
	return false
}

func (a *fakeAdapter) HasDataset(path string) bool {
	_, ok := a.datasets[path]
	return ok
}

func (a *fakeAdapter) ReadAttributeString(path, name string) (string, error) {
	if v, ok := a.strings[path][name]; ok {
		return v, nil
	}
	return "", container.ErrNotFound
}

func (a *fakeAdapter) ReadAttributeStringArray(path, name string) ([]string, error) {
	if v, ok := a.stringArrays[path][name]; ok {
		return v, nil
	}
	return nil, container.ErrNotFound
}

func (a *fakeAdapter) ReadAttributeFloat64(path, name string) (float64, error) {
	if v, ok := a.floats[path][name]; ok {
		return v, nil
	}
	return 0, container.ErrNotFound
}

func (a *fakeAdapter) ReadAttributeFloat64Array(path, name string) ([]float64, error) {
	if v, ok := a.floatArrays[path][name]; ok {
		return v, nil
	}
	return nil, container.ErrNotFound
}

func (a *fakeAdapter) GroupDatasets(groupPath string) ([]string, error) {
	if v, ok := a.groups[groupPath]; ok {
		return v, nil
	}
	return nil, container.ErrNotFound
}

func (a *fakeAdapter) DatasetDims(path string) ([]uint64, error) {
	ds, ok := a.datasets[path]
	if !ok {
		return nil, container.ErrNotFound
	}
	return ds.dims, nil
}

func (a *fakeAdapter) ReadHyperslab(path string, origin, dims []uint64) ([]float64, error) {
	ds, ok := a.datasets[path]
	if !ok {
		return nil, container.ErrNotFound
	}
	full := ds.dims

	strides := make([]uint64, len(full))
	strides[len(full)-1] = 1
	for i := len(full) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * full[i+1]
	}

	total := uint64(1)
	for _, d := range dims {
		total *= d
	}
	out := make([]float64, 0, total)

	var walk func(axis int, idx []uint64)
	walk = func(axis int, idx []uint64) {
		if axis == len(dims) {
			offset := uint64(0)
			for i, v := range idx {
				offset += v * strides[i]
			}
			out = append(out, ds.values[offset])
			return
		}
		for i := uint64(0); i < dims[axis]; i++ {
			idx[axis] = origin[axis] + i
			walk(axis+1, idx)
		}
	}
	walk(0, make([]uint64, len(dims)))

	return out, nil
}

func (a *fakeAdapter) Close() error { return nil }

// planeBlockFixture builds a one-block model fixture on a flat 30km x 30km
// footprint whose stored values follow linear formulas in (x, y, z), so
// bilinear/trilinear interpolation reproduces the formula exactly at any
// point strictly inside the grid.
func planeBlockFixture() *fakeAdapter {
	a := newFakeAdapter()

	a.setString("", "title", "fixture model")
	a.setString("", "id", "fixture")
	a.setString("", "description", "single flat block fixture")
	a.setStringArray("", "data_values", []string{"one", "two"})
	a.setStringArray("", "data_units", []string{"m", "m"})
	a.setString("", "data_layout", LayoutVertex)
	a.setString("", "crs", "EPSG:3857")
	a.setFloat("", "origin_x", 0.0)
	a.setFloat("", "origin_y", 0.0)
	a.setFloat("", "y_azimuth", 0.0)
	a.setFloat("", "dim_x", 30000.0)
	a.setFloat("", "dim_y", 30000.0)
	a.setFloat("", "dim_z", 5000.0)

	a.setGroup("blocks", []string{"block0"})

	nx, ny, nz := uint64(4), uint64(4), uint64(3)
	a.setFloat("blocks/block0", "x_resolution", 10000.0)
	a.setFloat("blocks/block0", "y_resolution", 10000.0)
	a.setFloat("blocks/block0", "z_resolution", 2500.0)
	a.setFloat("blocks/block0", "z_top", 0.0)

	values := make([]float64, nx*ny*nz*2)
	for ix := uint64(0); ix < nx; ix++ {
		x := float64(ix) * 10000.0
		for iy := uint64(0); iy < ny; iy++ {
			y := float64(iy) * 10000.0
			for iz := uint64(0); iz < nz; iz++ {
				z := 0.0 - float64(iz)*2500.0
				one := 2000 + 1.0*x + 0.4*y - 0.5*z
				two := -1200 + 2.1*x - 0.9*y + 0.3*z
				base := ((ix*ny+iy)*nz + iz) * 2
				values[base] = one
				values[base+1] = two
			}
		}
	}
	a.setDataset("blocks/block0", []uint64{nx, ny, nz, 2}, values)

	return a
}

// withTopSurface adds a flat top surface at elevation elev over the same
// 30km x 30km footprint.
func withTopSurface(a *fakeAdapter, elev float64) *fakeAdapter {
	a.setFloat("surfaces/top_surface", "resolution_horiz", 10000.0)
	dims := uint64(4)
	values := make([]float64, dims*dims)
	for i := range values {
		values[i] = elev
	}
	a.setDataset("surfaces/top_surface", []uint64{dims, dims, 1}, values)
	return a
}

// withTopobathySurface adds a flat topography/bathymetry surface at
// elevation elev over the same footprint.
func withTopobathySurface(a *fakeAdapter, elev float64) *fakeAdapter {
	a.setFloat("surfaces/topography_bathymetry", "resolution_horiz", 10000.0)
	dims := uint64(4)
	values := make([]float64, dims*dims)
	for i := range values {
		values[i] = elev
	}
	a.setDataset("surfaces/topography_bathymetry", []uint64{dims, dims, 1}, values)
	return a
}
