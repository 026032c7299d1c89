package geomodelgrids

import (
	"fmt"
	"math"
	"strings"

	proj "github.com/twpayne/go-proj/v10"
)

// CRSTransformer wraps a compiled PROJ transformation pipeline between two
// coordinate reference systems (§4.1). Construction may fail if either CRS
// string is not recognized; after that, Transform/InverseTransform never
// fail per point — an unrepresentable point comes back as +Inf, which
// callers surface as "point outside domain".
type CRSTransformer struct {
	src, dest string
	pj        *proj.PJ
}

// nullZ is the sentinel meaning "ignore z" for Transform/InverseTransform,
// matching §4.1 ("z is optional (may be a null sentinel meaning
// 'ignore')").
const nullZ = math.MaxFloat64

// NewCRSTransformer compiles a transformation from src to dest. Both
// accept any form PROJ itself accepts: EPSG code ("EPSG:4326"), WKT, or a
// proj-string.
func NewCRSTransformer(src, dest string) (*CRSTransformer, error) {
	ctx := proj.NewContext()
	pj, err := ctx.NewCRSToCRS(src, dest, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating CRS transform %q -> %q: %v", ErrInvalidArgument, src, dest, err)
	}
	normalized, err := pj.NormalizeForVisualization()
	if err == nil {
		pj.Destroy()
		pj = normalized
	}
	return &CRSTransformer{src: src, dest: dest, pj: pj}, nil
}

// NewGeoToXYAxisOrder builds a transformer from geoCRS to the same CRS
// with axis order forced to (x, y). The "summary" command uses it to report
// a model's footprint in (x, y) order even when the reporting CRS declares
// lat/lon order (§4.1).
func NewGeoToXYAxisOrder(geoCRS string) (*CRSTransformer, error) {
	return NewCRSTransformer(geoCRS, geoCRS)
}

// Destroy releases the underlying PROJ handle.
func (c *CRSTransformer) Destroy() {
	if c.pj != nil {
		c.pj.Destroy()
		c.pj = nil
	}
}

// Transform maps (x, y, z) from the source CRS to the destination CRS. z
// may be nullZ to indicate "no z coordinate"; the returned z is nullZ in
// that case too. A point PROJ cannot transform comes back as +Inf in
// every component rather than an error, per §4.1.
func (c *CRSTransformer) Transform(x, y, z float64) (float64, float64, float64) {
	return c.trans(x, y, z, false)
}

// InverseTransform is the inverse of Transform.
func (c *CRSTransformer) InverseTransform(x, y, z float64) (float64, float64, float64) {
	return c.trans(x, y, z, true)
}

func (c *CRSTransformer) trans(x, y, z float64, inverse bool) (float64, float64, float64) {
	coord := proj.Coord{0: x, 1: y}
	if z != nullZ {
		coord[2] = z
	}

	var (
		out proj.Coord
		err error
	)
	if inverse {
		out, err = c.pj.Inverse(coord)
	} else {
		out, err = c.pj.Forward(coord)
	}
	if err != nil {
		return math.Inf(1), math.Inf(1), math.Inf(1)
	}

	outZ := nullZ
	if z != nullZ {
		outZ = out[2]
	}
	return out[0], out[1], outZ
}

// Units returns the textual unit names for the x, y, and z axes of crs,
// classifying crs as geographic or projected via isGeographic and
// reporting the PROJ convention for each case (degrees for a geographic
// CRS, meters for a projected one). z falls back to "meter (assumed)"
// since geomodelgrids containers always store elevation in meters
// regardless of the horizontal CRS (§4.1).
func Units(crs string) (x, y, z string, err error) {
	ctx := proj.NewContext()
	pj, perr := ctx.NewCRS(crs)
	if perr != nil {
		return "", "", "", fmt.Errorf("%w: %q: %v", ErrInvalidArgument, crs, perr)
	}
	defer pj.Destroy()

	info := pj.Info()
	if isGeographic(info.Description) {
		return "degree", "degree", "meter (assumed)", nil
	}
	return "meter", "meter", "meter (assumed)", nil
}

// isGeographic applies the same heuristic PROJ's own CLI tools use when
// summarizing a CRS: geographic (lon/lat) coordinate systems carry
// "geographic" or "longitude/latitude" in their PROJ description, whereas
// projected systems describe a specific projection by name.
func isGeographic(description string) bool {
	for _, needle := range []string{"Geographic", "geographic", "longlat", "lon/lat", "latitude"} {
		if strings.Contains(description, needle) {
			return true
		}
	}
	return false
}
