// Package container defines the narrow, read-only interface the
// geomodelgrids domain types use to pull metadata and bulk array data out
// of a self-describing binary container. Writing, editing in place, and
// schema creation are explicitly out of scope; every method here is a
// read.
package container

import "errors"

// ErrNotFound is returned when a requested attribute or dataset does not
// exist in the container.
var ErrNotFound = errors.New("container: attribute or dataset not found")

// ErrIO wraps any error surfaced by the underlying storage backend so
// callers can distinguish a corrupt/missing container from a semantic
// metadata problem.
var ErrIO = errors.New("container: io failure")

// Adapter is implemented by concrete container backends (TileDB, in-memory
// fixtures for tests, …). Model, Block, and Surface depend only on this
// interface, never on a specific storage technology.
type Adapter interface {
	// HasAttribute reports whether the group or dataset at path carries
	// the named attribute.
	HasAttribute(path, name string) bool

	// HasDataset reports whether a dataset (array) exists at path.
	HasDataset(path string) bool

	// ReadAttributeString reads a scalar string attribute.
	ReadAttributeString(path, name string) (string, error)

	// ReadAttributeStringArray reads a string-array attribute.
	ReadAttributeStringArray(path, name string) ([]string, error)

	// ReadAttributeFloat64 reads a scalar double attribute.
	ReadAttributeFloat64(path, name string) (float64, error)

	// ReadAttributeFloat64Array reads a double-array attribute (e.g.
	// explicit axis coordinates).
	ReadAttributeFloat64Array(path, name string) ([]float64, error)

	// GroupDatasets lists the dataset names directly under a group, e.g.
	// "blocks" or "surfaces".
	GroupDatasets(groupPath string) ([]string, error)

	// DatasetDims returns the shape of a dataset.
	DatasetDims(path string) ([]uint64, error)

	// ReadHyperslab reads a contiguous sub-region of a dataset, flattened
	// in row-major order. len(origin) == len(dims) == rank of the
	// dataset.
	ReadHyperslab(path string, origin, dims []uint64) ([]float64, error)

	// Close releases any resources (file handles, contexts) held by the
	// adapter.
	Close() error
}
