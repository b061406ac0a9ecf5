package loader

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth-cli/internal/model"
)

// PolygonSchema locates the attributes of the boundary shapefile.
type PolygonSchema struct {
	CodeField string
	NameField string // optional
	Encoding  string // DBF text encoding; empty reads the .cpg sidecar
}

// LoadPolygons reads every polygon feature of the shapefile at shpPath.
// Null or non-polygon shapes and records without a code are skipped.
func LoadPolygons(shpPath string, schema PolygonSchema) ([]model.PolygonRecord, error) {
	if len(shpPath) < 4 || !strings.EqualFold(shpPath[len(shpPath)-4:], ".shp") {
		return nil, eris.Errorf("loader: %s is not a .shp file", shpPath)
	}
	// go-shp swaps the last three characters for the sidecar extension.
	if _, err := os.Stat(shpPath[:len(shpPath)-3] + "dbf"); err != nil {
		return nil, eris.Wrapf(err, "loader: attribute table for %s", shpPath)
	}

	crs, err := ReadCRS(shpPath)
	if err != nil {
		return nil, err
	}
	dec, err := newTextDecoder(shpPath, schema.Encoding)
	if err != nil {
		return nil, err
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	codeIdx := fieldIndex(reader, schema.CodeField)
	if codeIdx < 0 {
		return nil, eris.Errorf("loader: code field %q not found in %s", schema.CodeField, shpPath)
	}
	nameIdx := -1
	if schema.NameField != "" {
		if nameIdx = fieldIndex(reader, schema.NameField); nameIdx < 0 {
			zap.L().Warn("loader: name field not found, names left blank",
				zap.String("field", schema.NameField),
			)
		}
	}

	var (
		records             []model.PolygonRecord
		noCode, badGeometry int
	)
	for reader.Next() {
		_, shape := reader.Shape()

		code := attribute(reader, codeIdx, dec)
		if code == "" {
			noCode++
			continue
		}
		mp, ok := shapeToMultiPolygon(shape)
		if !ok {
			badGeometry++
			continue
		}

		rec := model.PolygonRecord{Code: code, Geometry: mp.SetSRID(crs.EPSG), CRS: crs}
		if nameIdx >= 0 {
			rec.Name = attribute(reader, nameIdx, dec)
		}
		records = append(records, rec)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "loader: read shapefile %s", shpPath)
	}

	if noCode > 0 || badGeometry > 0 {
		zap.L().Warn("loader: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("no_code", noCode),
			zap.Int("null_or_unsupported", badGeometry),
		)
	}
	zap.L().Info("loaded polygons",
		zap.String("path", shpPath),
		zap.Int("records", len(records)),
		zap.Stringer("crs", crs),
	)
	return records, nil
}

func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimSpace(strings.TrimRight(f.String(), "\x00")), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

// attribute reads field idx of the current record as trimmed UTF-8.
func attribute(reader *shp.Reader, idx int, dec textDecoder) string {
	return strings.TrimSpace(strings.TrimRight(dec.decode(reader.Attribute(idx)), "\x00"))
}

// shapeToMultiPolygon converts polygon shapes (Z and M variants keep only
// X and Y). It reports false for null, empty or non-polygon shapes.
func shapeToMultiPolygon(s shp.Shape) (*geom.MultiPolygon, bool) {
	var (
		parts  []int32
		points []shp.Point
	)
	switch shape := s.(type) {
	case *shp.Polygon:
		parts, points = shape.Parts, shape.Points
	case *shp.PolygonZ:
		parts, points = shape.Parts, shape.Points
	case *shp.PolygonM:
		parts, points = shape.Parts, shape.Points
	default:
		return nil, false
	}

	polys := assemblePolygons(splitRings(parts, points))
	if len(polys) == 0 {
		return nil, false
	}
	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(polys)
	if err != nil {
		return nil, false
	}
	return mp, true
}

// splitRings cuts the flat point list at each part offset. Rings with fewer
// than four points cannot close and are dropped.
func splitRings(parts []int32, points []shp.Point) [][]geom.Coord {
	rings := make([][]geom.Coord, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || end-start < 4 {
			continue
		}
		ring := make([]geom.Coord, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, geom.Coord{p.X, p.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}

// assemblePolygons groups rings into polygons. Shapefile outer rings are
// clockwise and holes counter-clockwise; a hole belongs to the most recent
// outer ring. A counter-clockwise ring with no preceding outer ring is
// treated as an outer ring.
func assemblePolygons(rings [][]geom.Coord) [][][]geom.Coord {
	var polys [][][]geom.Coord
	for _, ring := range rings {
		flat := make([]float64, 0, 2*len(ring))
		for _, c := range ring {
			flat = append(flat, c[0], c[1])
		}
		if xy.IsRingCounterClockwise(geom.XY, flat) && len(polys) > 0 {
			last := len(polys) - 1
			polys[last] = append(polys[last], ring)
			continue
		}
		polys = append(polys, [][]geom.Coord{ring})
	}
	return polys
}
