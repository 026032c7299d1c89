package container

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// TileDB backs a container with a TileDB group: one dense array per block
// dataset, one per surface dataset, and root/group metadata holding the
// scalar and string-array attributes §6.1 requires. Arrays are opened
// lazily and cached for the lifetime of the adapter; everything is opened
// read-only.
type TileDB struct {
	ctx    *tiledb.Context
	config *tiledb.Config
	root   *tiledb.Group
	uri    string
	arrays map[string]*tiledb.Array
}

var _ Adapter = (*TileDB)(nil)

// Open opens the TileDB group at uri using configURI (empty for the
// default TileDB configuration), mirroring the config-path convention the
// teacher's WriteJson/FindGsf helpers use.
func Open(uri, configURI string) (*TileDB, error) {
	var (
		config *tiledb.Config
		err    error
	)

	if configURI == "" {
		config, err = tiledb.NewConfig()
	} else {
		config, err = tiledb.LoadConfig(configURI)
	}
	if err != nil {
		return nil, errors.Join(ErrIO, err)
	}

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		config.Free()
		return nil, errors.Join(ErrIO, err)
	}

	grp, err := tiledb.NewGroup(ctx, uri)
	if err != nil {
		ctx.Free()
		config.Free()
		return nil, errors.Join(ErrIO, err)
	}

	if err := grp.Open(tiledb.TILEDB_READ); err != nil {
		grp.Free()
		ctx.Free()
		config.Free()
		return nil, errors.Join(ErrIO, fmt.Errorf("opening container %q: %w", uri, err))
	}

	return &TileDB{
		ctx:    ctx,
		config: config,
		root:   grp,
		uri:    uri,
		arrays: make(map[string]*tiledb.Array),
	}, nil
}

// Close releases every opened array plus the group, context, and config.
func (t *TileDB) Close() error {
	var firstErr error
	for _, arr := range t.arrays {
		if err := arr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		arr.Free()
	}
	t.arrays = nil

	if t.root != nil {
		_ = t.root.Close()
		t.root.Free()
		t.root = nil
	}
	if t.ctx != nil {
		t.ctx.Free()
		t.ctx = nil
	}
	if t.config != nil {
		t.config.Free()
		t.config = nil
	}
	return firstErr
}

// arrayURI maps a logical container path ("blocks/upper-crust",
// "surfaces/top_surface") to the array member's URI within the group.
func (t *TileDB) arrayURI(p string) string {
	return path.Join(t.uri, p)
}

func (t *TileDB) array(p string) (*tiledb.Array, error) {
	if arr, ok := t.arrays[p]; ok {
		return arr, nil
	}

	arr, err := tiledb.NewArray(t.ctx, t.arrayURI(p))
	if err != nil {
		return nil, errors.Join(ErrIO, err)
	}
	if err := arr.Open(tiledb.TILEDB_READ); err != nil {
		arr.Free()
		return nil, errors.Join(ErrIO, err)
	}

	t.arrays[p] = arr
	return arr, nil
}

// HasAttribute reports whether the root group (path == "" or "/") or a
// named array carries a metadata key.
func (t *TileDB) HasAttribute(p, name string) bool {
	_, _, _, err := t.getMetadata(p, name)
	return err == nil
}

func (t *TileDB) getMetadata(p, name string) (tiledb.Datatype, uint32, interface{}, error) {
	if isRoot(p) {
		return t.root.GetMetadata(name)
	}
	arr, err := t.array(p)
	if err != nil {
		return 0, 0, nil, err
	}
	return arr.GetMetadata(name)
}

func isRoot(p string) bool {
	return p == "" || p == "/"
}

// HasDataset reports whether an array member exists at the given path.
func (t *TileDB) HasDataset(p string) bool {
	_, err := t.array(p)
	return err == nil
}

// ReadAttributeString reads a UTF-8 string-valued metadata key.
func (t *TileDB) ReadAttributeString(p, name string) (string, error) {
	dtype, _, value, err := t.getMetadata(p, name)
	if err != nil {
		return "", errors.Join(ErrNotFound, err)
	}
	if dtype != tiledb.TILEDB_STRING_UTF8 && dtype != tiledb.TILEDB_CHAR {
		return "", fmt.Errorf("%w: attribute %q/%q is not a string (got %v)", ErrIO, p, name, dtype)
	}
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// ReadAttributeStringArray reads a metadata key holding a JSON-encoded
// array of strings. The teacher's TileDB helpers never needed array-typed
// string metadata (GSF attributes are scalar), so multi-valued string
// attributes (keywords, authors, references, data_values, data_units) are
// stored JSON-encoded, the same way the "auxiliary" attribute holds JSON
// text.
func (t *TileDB) ReadAttributeStringArray(p, name string) ([]string, error) {
	raw, err := t.ReadAttributeString(p, name)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: attribute %q/%q is not a JSON string array: %v", ErrIO, p, name, err)
	}
	return out, nil
}

// ReadAttributeFloat64 reads a scalar double-valued metadata key.
func (t *TileDB) ReadAttributeFloat64(p, name string) (float64, error) {
	dtype, _, value, err := t.getMetadata(p, name)
	if err != nil {
		return 0, errors.Join(ErrNotFound, err)
	}
	if dtype != tiledb.TILEDB_FLOAT64 {
		return 0, fmt.Errorf("%w: attribute %q/%q is not float64 (got %v)", ErrIO, p, name, dtype)
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case []float64:
		if len(v) != 1 {
			return 0, fmt.Errorf("%w: attribute %q/%q is not scalar", ErrIO, p, name)
		}
		return v[0], nil
	default:
		return 0, fmt.Errorf("%w: unexpected type %T for attribute %q/%q", ErrIO, v, p, name)
	}
}

// ReadAttributeFloat64Array reads a double-array metadata key (explicit
// axis coordinates, resolution pairs, etc.).
func (t *TileDB) ReadAttributeFloat64Array(p, name string) ([]float64, error) {
	dtype, _, value, err := t.getMetadata(p, name)
	if err != nil {
		return nil, errors.Join(ErrNotFound, err)
	}
	if dtype != tiledb.TILEDB_FLOAT64 {
		return nil, fmt.Errorf("%w: attribute %q/%q is not float64 (got %v)", ErrIO, p, name, dtype)
	}
	switch v := value.(type) {
	case []float64:
		return v, nil
	case float64:
		return []float64{v}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected type %T for attribute %q/%q", ErrIO, v, p, name)
	}
}

// GroupDatasets lists array member names directly beneath groupPath
// ("blocks" or "surfaces").
func (t *TileDB) GroupDatasets(groupPath string) ([]string, error) {
	sub, err := tiledb.NewGroup(t.ctx, path.Join(t.uri, groupPath))
	if err != nil {
		return nil, errors.Join(ErrIO, err)
	}
	defer sub.Free()
	if err := sub.Open(tiledb.TILEDB_READ); err != nil {
		return nil, errors.Join(ErrIO, err)
	}
	defer sub.Close()

	count, err := sub.GetMemberCount()
	if err != nil {
		return nil, errors.Join(ErrIO, err)
	}

	names := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		name, _, _, err := sub.GetMemberFromIndex(i)
		if err != nil {
			return nil, errors.Join(ErrIO, err)
		}
		names = append(names, strings.TrimSuffix(path.Base(name), path.Ext(name)))
	}
	return names, nil
}

// DatasetDims returns an array's dense domain extents, one entry per
// dimension, in declaration order.
func (t *TileDB) DatasetDims(p string) ([]uint64, error) {
	arr, err := t.array(p)
	if err != nil {
		return nil, err
	}

	schema, err := arr.Schema()
	if err != nil {
		return nil, errors.Join(ErrIO, err)
	}
	defer schema.Free()

	domain, err := schema.Domain()
	if err != nil {
		return nil, errors.Join(ErrIO, err)
	}
	defer domain.Free()

	ndim, err := domain.NDim()
	if err != nil {
		return nil, errors.Join(ErrIO, err)
	}

	dims := make([]uint64, ndim)
	for i := uint(0); i < ndim; i++ {
		dim, err := domain.DimensionFromIndex(uint(i))
		if err != nil {
			return nil, errors.Join(ErrIO, err)
		}
		lo, hi, err := dim.Domain()
		if err != nil {
			dim.Free()
			return nil, errors.Join(ErrIO, err)
		}
		dims[i] = uint64(hi.(uint64)-lo.(uint64)) + 1
		dim.Free()
	}
	return dims, nil
}

// ReadHyperslab reads the dense sub-region [origin, origin+dims) of the
// named array, flattened in row-major order over a single "value"
// attribute.
func (t *TileDB) ReadHyperslab(p string, origin, dims []uint64) ([]float64, error) {
	arr, err := t.array(p)
	if err != nil {
		return nil, err
	}

	subarray, err := arr.NewSubarray()
	if err != nil {
		return nil, errors.Join(ErrIO, err)
	}
	defer subarray.Free()

	total := uint64(1)
	for i := range origin {
		if err := subarray.AddRange(uint32(i), tiledb.MakeRange(origin[i], origin[i]+dims[i]-1)); err != nil {
			return nil, errors.Join(ErrIO, err)
		}
		total *= dims[i]
	}

	query, err := tiledb.NewQuery(t.ctx, arr)
	if err != nil {
		return nil, errors.Join(ErrIO, err)
	}
	defer query.Free()

	if err := query.SetSubarray(subarray); err != nil {
		return nil, errors.Join(ErrIO, err)
	}
	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, errors.Join(ErrIO, err)
	}

	buffer := make([]float64, total)
	if _, err := query.SetDataBuffer("value", buffer); err != nil {
		return nil, errors.Join(ErrIO, err)
	}
	if err := query.Submit(); err != nil {
		return nil, errors.Join(ErrIO, err)
	}

	return buffer, nil
}
