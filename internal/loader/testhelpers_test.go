package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// testFeature is one polygon record for writeTestShapefile. Each ring is a
// closed list of points.
type testFeature struct {
	code  string
	name  string
	rings [][]shp.Point
}

func square(x0, y0, size float64, clockwise bool) []shp.Point {
	if clockwise {
		return []shp.Point{{X: x0, Y: y0}, {X: x0, Y: y0 + size}, {X: x0 + size, Y: y0 + size}, {X: x0 + size, Y: y0}, {X: x0, Y: y0}}
	}
	return []shp.Point{{X: x0, Y: y0}, {X: x0 + size, Y: y0}, {X: x0 + size, Y: y0 + size}, {X: x0, Y: y0 + size}, {X: x0, Y: y0}}
}

// writeTestShapefile writes a polygon shapefile with MSOA11CD/MSOA11NM
// attributes plus any sidecars given as extension → content.
func writeTestShapefile(t *testing.T, features []testFeature, sidecars map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "msoa.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("MSOA11CD", 12),
		shp.StringField("MSOA11NM", 40),
	}))
	for _, f := range features {
		poly := shp.Polygon(*shp.NewPolyLine(f.rings))
		row := int(w.Write(&poly))
		require.NoError(t, w.WriteAttribute(row, 0, f.code))
		require.NoError(t, w.WriteAttribute(row, 1, f.name))
	}
	w.Close()

	// go-shp v0.1.1 names the attribute table "<base>dbf".
	require.NoError(t, os.Rename(filepath.Join(dir, "msoadbf"), filepath.Join(dir, "msoa.dbf")))

	for ext, content := range sidecars {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "msoa"+ext), []byte(content), 0o644))
	}
	return path
}
