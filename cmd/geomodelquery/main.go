package main

import (
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	geomodelgrids "github.com/geomodelgrids/goquery"
)

func splitFlag(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func squashModeFromFlag(name string) (geomodelgrids.SquashMode, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return geomodelgrids.SquashNone, nil
	case "top", "top-surface":
		return geomodelgrids.SquashTopSurface, nil
	case "topobathy", "topography-bathymetry":
		return geomodelgrids.SquashTopobathy, nil
	default:
		return geomodelgrids.SquashNone, cli.Exit("unrecognized --squash value: "+name, 1)
	}
}

// point runs a single-point query against one or more models and prints
// the resulting values as JSON.
func point(cCtx *cli.Context) error {
	modelURIs := splitFlag(cCtx.String("models"))
	if len(modelURIs) == 0 {
		return cli.Exit("--models is required", 1)
	}
	values := splitFlag(cCtx.String("values"))
	if len(values) == 0 {
		return cli.Exit("--values is required", 1)
	}

	mode, err := squashModeFromFlag(cCtx.String("squash"))
	if err != nil {
		return err
	}

	q := geomodelgrids.NewQueryEngine()
	if err := q.SetSquashing(mode); err != nil {
		return err
	}
	if err := q.SetSquashMinElev(cCtx.Float64("squash-min-elev")); err != nil {
		return err
	}
	if err := q.Initialize(modelURIs, values, cCtx.String("input-crs")); err != nil {
		return err
	}
	defer q.Finalize()

	out := make([]float64, len(values))
	status, err := q.Query(out, cCtx.Float64("x"), cCtx.Float64("y"), cCtx.Float64("z"))
	if err != nil {
		return err
	}
	if status == geomodelgrids.StatusWarning {
		log.Println("warning:", q.ErrorHandler().Message())
	}

	row := make(map[string]float64, len(values))
	for i, name := range values {
		row[name] = out[i]
	}
	jsn, err := geomodelgrids.JsonIndentDumps(row)
	if err != nil {
		return err
	}
	log.Println(jsn)
	return nil
}

// summaryReport extends ModelSummary with the CRS unit names and the
// model's footprint, normalized to a consistent (x, y) axis order in the
// caller's requested reporting CRS (§4.1, §6.1).
type summaryReport struct {
	geomodelgrids.ModelSummary
	CRSUnitsX, CRSUnitsY, CRSUnitsZ string
	FootprintMinX, FootprintMinY    float64
	FootprintMaxX, FootprintMaxY    float64
}

// summary prints a model's descriptive metadata, block layout, CRS units,
// and footprint bounding box as JSON, without opening its paging state
// (§6.1). The footprint is reported in --input-crs with a consistent
// (x, y) axis order via NewGeoToXYAxisOrder, the way the "info"-style
// report normalizes a reporting CRS's axis convention (§4.1).
func summary(cCtx *cli.Context) error {
	modelURI := cCtx.String("model")
	if modelURI == "" {
		return cli.Exit("--model is required", 1)
	}
	inputCRS := cCtx.String("input-crs")

	model, err := geomodelgrids.OpenModel(modelURI, cCtx.String("config-uri"))
	if err != nil {
		return err
	}
	if err := model.LoadMetadata(inputCRS); err != nil {
		return err
	}
	defer model.Finalize()

	report, err := buildSummaryReport(model, inputCRS)
	if err != nil {
		return err
	}

	jsn, err := geomodelgrids.JsonIndentDumps(report)
	if err != nil {
		return err
	}

	if out := cCtx.String("outfile-uri"); out != "" {
		_, err := geomodelgrids.WriteJson(out, cCtx.String("config-uri"), report)
		return err
	}
	log.Println(jsn)
	return nil
}

// buildSummaryReport computes the CRS unit names for the model's native
// CRS and the model's footprint bounding box reprojected into reportCRS
// with a normalized axis order.
func buildSummaryReport(model *geomodelgrids.Model, reportCRS string) (summaryReport, error) {
	modelSummary := model.Summary()

	ux, uy, uz, err := geomodelgrids.Units(modelSummary.CRS)
	if err != nil {
		return summaryReport{}, err
	}

	toReportCRS, err := geomodelgrids.NewCRSTransformer(modelSummary.CRS, reportCRS)
	if err != nil {
		return summaryReport{}, err
	}
	defer toReportCRS.Destroy()

	axisOrder, err := geomodelgrids.NewGeoToXYAxisOrder(reportCRS)
	if err != nil {
		return summaryReport{}, err
	}
	defer axisOrder.Destroy()

	var minX, minY, maxX, maxY float64
	for i, corner := range model.FootprintCorners() {
		x, y, _ := toReportCRS.Transform(corner[0], corner[1], 0)
		x, y, _ = axisOrder.Transform(x, y, 0)
		if i == 0 {
			minX, maxX, minY, maxY = x, x, y, y
			continue
		}
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}

	return summaryReport{
		ModelSummary:  modelSummary,
		CRSUnitsX:     ux,
		CRSUnitsY:     uy,
		CRSUnitsZ:     uz,
		FootprintMinX: minX,
		FootprintMinY: minY,
		FootprintMaxX: maxX,
		FootprintMaxY: maxY,
	}, nil
}

func main() {
	app := &cli.App{
		Name:  "geomodelquery",
		Usage: "query point values and model metadata from geomodelgrids containers",
		Commands: []*cli.Command{
			&cli.Command{
				Name:  "point",
				Usage: "query one or more values at a single point",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "models",
						Usage: "comma-separated list of model URIs, in query order.",
					},
					&cli.StringFlag{
						Name:  "values",
						Usage: "comma-separated list of value names to query.",
					},
					&cli.StringFlag{
						Name:  "input-crs",
						Usage: "CRS of the query point (PROJ string, EPSG code, or WKT).",
						Value: "EPSG:4326",
					},
					&cli.Float64Flag{
						Name:  "x",
						Usage: "query point x coordinate.",
					},
					&cli.Float64Flag{
						Name:  "y",
						Usage: "query point y coordinate.",
					},
					&cli.Float64Flag{
						Name:  "z",
						Usage: "query point z coordinate (elevation, or depth if --squash is set).",
					},
					&cli.StringFlag{
						Name:  "squash",
						Usage: "vertical datum: none, top-surface, or topography-bathymetry.",
						Value: "none",
					},
					&cli.Float64Flag{
						Name:  "squash-min-elev",
						Usage: "elevation above which squashed z is re-inflated to an absolute elevation.",
					},
				},
				Action: point,
			},
			&cli.Command{
				Name:  "summary",
				Usage: "print a model's descriptive metadata and block layout",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "model",
						Usage: "URI or pathname of the model to summarize.",
					},
					&cli.StringFlag{
						Name:  "config-uri",
						Usage: "URI or pathname to a TileDB config file.",
					},
					&cli.StringFlag{
						Name:  "input-crs",
						Usage: "CRS to report the model's extents in.",
						Value: "EPSG:4326",
					},
					&cli.StringFlag{
						Name:  "outfile-uri",
						Usage: "write the summary to this URI instead of the log output (stderr).",
					},
				},
				Action: summary,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
