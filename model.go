package geomodelgrids

import (
	"fmt"
	"math"
	"sort"

	"github.com/geomodelgrids/goquery/container"
)

// Data layout tags recorded on a model (§3).
const (
	LayoutVertex = "vertex"
	LayoutCell   = "cell"
)

// Model is one opened container: its descriptive metadata, CRS, extents,
// optional top and topography/bathymetry surfaces, and ordered blocks
// (§3, §4.6). Model exclusively owns its Surfaces, Blocks, and CRS
// transformer, breaking the cyclic back-references the original structure
// used.
type Model struct {
	adapter container.Adapter
	uri     string

	Info *ModelInfo

	valueNames []string
	valueUnits []string
	dataLayout string

	crs              string
	originX, originY float64
	yAzimuth         float64
	lx, ly, lz       float64

	topSurface       *Surface
	topobathySurface *Surface
	blocks           []*Block

	transformer *CRSTransformer
}

// OpenModel opens the container at uri (configURI may be empty) but does
// not yet load metadata; call LoadMetadata next.
func OpenModel(uri, configURI string) (*Model, error) {
	adapter, err := container.Open(uri, configURI)
	if err != nil {
		return nil, fmt.Errorf("%w: opening model %q: %v", ErrIO, uri, err)
	}
	return &Model{adapter: adapter, uri: uri}, nil
}

// ValueNames returns the model's native, declared-order value names.
func (m *Model) ValueNames() []string { return m.valueNames }

// ValueUnits returns the units matching ValueNames, one-to-one.
func (m *Model) ValueUnits() []string { return m.valueUnits }

// Extents returns the model's (Lx, Ly, Lz) footprint and depth.
func (m *Model) Extents() (lx, ly, lz float64) { return m.lx, m.ly, m.lz }

// Blocks returns the model's blocks in descending-zTop order.
func (m *Model) Blocks() []*Block { return m.blocks }

// TopSurface returns the model's top surface, or nil if it has none.
func (m *Model) TopSurface() *Surface { return m.topSurface }

// TopobathySurface returns the model's topography/bathymetry surface, or
// nil if it has none.
func (m *Model) TopobathySurface() *Surface { return m.topobathySurface }

// LoadMetadata reads the model's descriptive attributes, value names and
// units, CRS, origin, azimuth, and extents; instantiates its surfaces and
// blocks (sorted by descending zTop); and compiles the CRS transformer
// from inputCRS to the model's own CRS (§4.6).
func (m *Model) LoadMetadata(inputCRS string) error {
	info, err := loadModelInfo(m.adapter)
	if err != nil {
		return err
	}
	m.Info = info

	if m.valueNames, err = m.adapter.ReadAttributeStringArray("", "data_values"); err != nil {
		return fmt.Errorf("%w: model %q root attribute \"data_values\": %v", ErrBadMetadata, m.uri, err)
	}
	if m.valueUnits, err = m.adapter.ReadAttributeStringArray("", "data_units"); err != nil {
		return fmt.Errorf("%w: model %q root attribute \"data_units\": %v", ErrBadMetadata, m.uri, err)
	}
	if len(m.valueNames) != len(m.valueUnits) {
		return fmt.Errorf("%w: model %q has %d value names but %d value units", ErrBadMetadata, m.uri, len(m.valueNames), len(m.valueUnits))
	}

	if m.dataLayout, err = m.adapter.ReadAttributeString("", "data_layout"); err != nil {
		return fmt.Errorf("%w: model %q root attribute \"data_layout\": %v", ErrBadMetadata, m.uri, err)
	}
	if m.dataLayout != LayoutVertex && m.dataLayout != LayoutCell {
		return fmt.Errorf("%w: model %q has unrecognized data_layout %q", ErrBadMetadata, m.uri, m.dataLayout)
	}

	if m.crs, err = m.adapter.ReadAttributeString("", "crs"); err != nil {
		return fmt.Errorf("%w: model %q root attribute \"crs\": %v", ErrBadMetadata, m.uri, err)
	}
	if m.originX, err = m.adapter.ReadAttributeFloat64("", "origin_x"); err != nil {
		return fmt.Errorf("%w: model %q root attribute \"origin_x\": %v", ErrBadMetadata, m.uri, err)
	}
	if m.originY, err = m.adapter.ReadAttributeFloat64("", "origin_y"); err != nil {
		return fmt.Errorf("%w: model %q root attribute \"origin_y\": %v", ErrBadMetadata, m.uri, err)
	}
	if m.yAzimuth, err = m.adapter.ReadAttributeFloat64("", "y_azimuth"); err != nil {
		return fmt.Errorf("%w: model %q root attribute \"y_azimuth\": %v", ErrBadMetadata, m.uri, err)
	}
	if m.lx, err = m.adapter.ReadAttributeFloat64("", "dim_x"); err != nil {
		return fmt.Errorf("%w: model %q root attribute \"dim_x\": %v", ErrBadMetadata, m.uri, err)
	}
	if m.ly, err = m.adapter.ReadAttributeFloat64("", "dim_y"); err != nil {
		return fmt.Errorf("%w: model %q root attribute \"dim_y\": %v", ErrBadMetadata, m.uri, err)
	}
	if m.lz, err = m.adapter.ReadAttributeFloat64("", "dim_z"); err != nil {
		return fmt.Errorf("%w: model %q root attribute \"dim_z\": %v", ErrBadMetadata, m.uri, err)
	}

	if m.adapter.HasDataset("surfaces/top_surface") {
		m.topSurface = NewSurface("top_surface")
		if err := m.topSurface.LoadMetadata(m.adapter); err != nil {
			return err
		}
	}
	if m.adapter.HasDataset("surfaces/topography_bathymetry") {
		m.topobathySurface = NewSurface("topography_bathymetry")
		if err := m.topobathySurface.LoadMetadata(m.adapter); err != nil {
			return err
		}
	}

	blockNames, err := m.adapter.GroupDatasets("blocks")
	if err != nil {
		return fmt.Errorf("%w: model %q listing blocks: %v", ErrBadMetadata, m.uri, err)
	}
	if len(blockNames) == 0 {
		return fmt.Errorf("%w: model %q has no blocks", ErrBadMetadata, m.uri)
	}

	blocks := make([]*Block, len(blockNames))
	for i, name := range blockNames {
		blocks[i] = NewBlock(name)
		if err := blocks[i].LoadMetadata(m.adapter); err != nil {
			return err
		}
		if blocks[i].NumValues() != len(m.valueNames) {
			return fmt.Errorf("%w: model %q block %q has %d values per node, model declares %d value names", ErrBadMetadata, m.uri, name, blocks[i].NumValues(), len(m.valueNames))
		}
	}
	sortBlocksDescending(blocks)
	m.blocks = blocks

	transformer, err := NewCRSTransformer(inputCRS, m.crs)
	if err != nil {
		return err
	}
	m.transformer = transformer

	return nil
}

func sortBlocksDescending(blocks []*Block) {
	sort.Slice(blocks, func(i, j int) bool {
		return compareBlocksDescending(blocks[i], blocks[j])
	})
}

// Initialize opens paging state on every surface and block (§4.6).
func (m *Model) Initialize() error {
	if m.topSurface != nil {
		if err := m.topSurface.OpenQuery(m.adapter); err != nil {
			return err
		}
	}
	if m.topobathySurface != nil {
		if err := m.topobathySurface.OpenQuery(m.adapter); err != nil {
			return err
		}
	}
	for _, b := range m.blocks {
		if err := b.OpenQuery(m.adapter); err != nil {
			return err
		}
	}
	return nil
}

// Finalize releases paging state and the underlying container handle.
func (m *Model) Finalize() error {
	if m.topSurface != nil {
		m.topSurface.CloseQuery()
	}
	if m.topobathySurface != nil {
		m.topobathySurface.CloseQuery()
	}
	for _, b := range m.blocks {
		b.CloseQuery()
	}
	if m.adapter != nil {
		return m.adapter.Close()
	}
	return nil
}

// toModelXY transforms (xIn, yIn) into the model's horizontal local frame:
// project to the model CRS, translate by the origin, rotate by −θ (§4.6,
// GLOSSARY "Model coordinates").
func (m *Model) toModelXY(xIn, yIn float64) (xm, ym float64) {
	xProj, yProj, _ := m.transformer.Transform(xIn, yIn, nullZ)

	yazimuthRad := m.yAzimuth * math.Pi / 180.0
	cosAz, sinAz := math.Cos(yazimuthRad), math.Sin(yazimuthRad)
	xRel := xProj - m.originX
	yRel := yProj - m.originY

	xm = xRel*cosAz - yRel*sinAz
	ym = xRel*sinAz + yRel*cosAz
	return xm, ym
}

// ToModelXYZ implements §4.6's to-model-xyz: transforms the horizontal
// position, then stretches z so that the squashSurface's elevation (the
// top surface when squashSurface is nil) maps to 0 and the model bottom
// maps to −Lz.
func (m *Model) ToModelXYZ(xIn, yIn, zIn float64, squashSurface *Surface) (xm, ym, zm float64, err error) {
	xm, ym = m.toModelXY(xIn, yIn)

	surf := squashSurface
	if surf == nil {
		surf = m.topSurface
	}

	s := 0.0
	if surf != nil {
		s, err = surf.Query(xm, ym)
		if err != nil {
			return 0, 0, 0, err
		}
	}

	zm = (-m.lz) * (s - zIn) / (s - (-m.lz))
	return xm, ym, zm, nil
}

// FootprintCorners returns the model's four horizontal footprint corners
// in the model's own CRS, inverting toModelXY's origin-translate and
// azimuth-rotate step. It backs the "summary" command's footprint report,
// the destination of NewGeoToXYAxisOrder's axis normalization (§4.1,
// §6.1).
func (m *Model) FootprintCorners() [4][2]float64 {
	yazimuthRad := m.yAzimuth * math.Pi / 180.0
	cosAz, sinAz := math.Cos(yazimuthRad), math.Sin(yazimuthRad)

	corners := [4][2]float64{{0, 0}, {m.lx, 0}, {0, m.ly}, {m.lx, m.ly}}
	for i, c := range corners {
		xm, ym := c[0], c[1]
		xRel := xm*cosAz + ym*sinAz
		yRel := -xm*sinAz + ym*cosAz
		corners[i] = [2]float64{xRel + m.originX, yRel + m.originY}
	}
	return corners
}

// Contains reports whether (xIn, yIn, zIn) maps into the model's extents,
// within TOLERANCE, stretching z against the model's own top surface
// (§4.6). Callers that need a specific squash surface (the QueryEngine,
// when squashing against topography/bathymetry) should use ToModelXYZ
// plus ContainsXYZ directly instead.
func (m *Model) Contains(xIn, yIn, zIn float64) (bool, error) {
	xm, ym, zm, err := m.ToModelXYZ(xIn, yIn, zIn, nil)
	if err != nil {
		return false, err
	}
	return m.ContainsXYZ(xm, ym, zm), nil
}

// ContainsXYZ reports whether already-computed model coordinates fall
// within the model's extents, within TOLERANCE (§4.6).
func (m *Model) ContainsXYZ(xm, ym, zm float64) bool {
	return xm >= -TOLERANCE && xm <= m.lx+TOLERANCE &&
		ym >= -TOLERANCE && ym <= m.ly+TOLERANCE &&
		zm >= -m.lz-TOLERANCE && zm <= TOLERANCE
}

// QueryTopElevation interpolates the top surface at (xIn, yIn), returning
// NODATA_VALUE if the model has no top surface (§4.6).
func (m *Model) QueryTopElevation(xIn, yIn float64) (float64, error) {
	if m.topSurface == nil {
		return NODATA_VALUE, nil
	}
	xm, ym := m.toModelXY(xIn, yIn)
	return m.topSurface.Query(xm, ym)
}

// QueryTopobathyElevation is the symmetric counterpart for the
// topography/bathymetry surface.
func (m *Model) QueryTopobathyElevation(xIn, yIn float64) (float64, error) {
	if m.topobathySurface == nil {
		return NODATA_VALUE, nil
	}
	xm, ym := m.toModelXY(xIn, yIn)
	return m.topobathySurface.Query(xm, ym)
}

// Query converts (xIn, yIn, zIn) to model coordinates against the model's
// own top surface, selects the unique block whose vertical span contains
// zm, and interpolates its values (§4.6). The caller must have already
// confirmed Contains. Callers needing a specific squash surface should use
// ToModelXYZ plus QueryXYZ directly instead.
func (m *Model) Query(xIn, yIn, zIn float64) ([]float64, error) {
	xm, ym, zm, err := m.ToModelXYZ(xIn, yIn, zIn, nil)
	if err != nil {
		return nil, err
	}
	return m.QueryXYZ(xm, ym, zm)
}

// QueryXYZ selects the unique block whose vertical span contains zm and
// interpolates its values at already-computed model coordinates (§4.6).
func (m *Model) QueryXYZ(xm, ym, zm float64) ([]float64, error) {
	block := m.findBlock(zm)
	if block == nil {
		return nil, fmt.Errorf("%w: no block in model %q contains elevation %g", ErrBadMetadata, m.uri, zm)
	}
	return block.Query(xm, ym, zm)
}

// ModelSummary is a read-only digest of a model's descriptive metadata and
// structure, returned by Summary for the "summary" command (§6.1).
type ModelSummary struct {
	Info *ModelInfo

	ValueNames []string
	ValueUnits []string
	DataLayout string

	CRS                 string
	Lx, Ly, Lz          float64
	HasTopSurface       bool
	HasTopobathySurface bool
	Blocks              []BlockSummary
}

// BlockSummary is one block's name and vertical span, as reported by
// Model.Summary.
type BlockSummary struct {
	Name          string
	ZTop, ZBottom float64
}

// Summary returns a read-only digest of the model, requiring only that
// LoadMetadata has already run (no OpenQuery/Initialize needed). It backs
// the "summary" CLI command without duplicating a standalone "info" tool
// (§6.1).
func (m *Model) Summary() ModelSummary {
	blocks := make([]BlockSummary, len(m.blocks))
	for i, b := range m.blocks {
		blocks[i] = BlockSummary{Name: b.Name(), ZTop: b.ZTop(), ZBottom: b.ZBottom()}
	}
	return ModelSummary{
		Info:                m.Info,
		ValueNames:          m.valueNames,
		ValueUnits:          m.valueUnits,
		DataLayout:          m.dataLayout,
		CRS:                 m.crs,
		Lx:                  m.lx,
		Ly:                  m.ly,
		Lz:                  m.lz,
		HasTopSurface:       m.topSurface != nil,
		HasTopobathySurface: m.topobathySurface != nil,
		Blocks:              blocks,
	}
}

// findBlock returns the first block (in descending-zTop order) whose
// vertical span contains zm; ties on a shared boundary resolve to the
// shallower block because it is visited first (§4.4, §8).
func (m *Model) findBlock(zm float64) *Block {
	for _, b := range m.blocks {
		if zm <= b.ZTop() && zm >= b.ZBottom() {
			return b
		}
	}
	return nil
}
