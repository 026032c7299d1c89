package geomodelgrids

// NODATA_VALUE is returned for any requested value whose point falls
// outside every model. It propagates through a block (3-D) interpolation
// whenever any of the eight contributing grid nodes is itself no-data, and
// through a surface (2-D) interpolation when the nearest grid node is
// (§4.5, §6.3).
const NODATA_VALUE = -1.0e+20

// TOLERANCE is the containment slack, in model-CRS units, applied when
// deciding whether a point's model-local coordinates lie within a model's
// extents (§4.6, §6.3).
const TOLERANCE = 1.0e-4

// noDataFraction is the relative-difference threshold used to recognize a
// value as NODATA_VALUE despite floating point round trips through the
// container (§4.5: "within 0.1% of the no-data sentinel").
const noDataFraction = 1.0e-3

// defaultSurfaceSlab is the default 2-D hyperslab size for surfaces
// (§4.3).
const defaultSurfaceSlab = 128

// defaultBlockSlabXY is the default x/y hyperslab extent for blocks; the
// z and value axes default to the full dataset extent (§4.4).
const defaultBlockSlabXY = 64
