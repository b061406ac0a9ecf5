package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// writeFixtures writes a CSV area table and a three-polygon lon/lat
// shapefile into dir.
func writeFixtures(t *testing.T, dir string) (string, string) {
	t.Helper()

	csvPath := filepath.Join(dir, "obesity.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("MSOA,Value\nE02000001,12.5\nE02000002,3\nE02000009,8\n"), 0o644))

	shpPath := filepath.Join(dir, "msoa.shp")
	w, err := shp.Create(shpPath, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("MSOA11CD", 12), shp.StringField("MSOA11NM", 30)}))
	for i, code := range []string{"E02000001", "E02000002", "E02000003"} {
		x, y := -0.1+float64(i)*0.02, 51.5
		ring := []shp.Point{{X: x, Y: y}, {X: x, Y: y + 0.01}, {X: x + 0.01, Y: y + 0.01}, {X: x + 0.01, Y: y}, {X: x, Y: y}}
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{ring}))
		row := int(w.Write(&poly))
		require.NoError(t, w.WriteAttribute(row, 0, code))
		require.NoError(t, w.WriteAttribute(row, 1, "Area "+code[len(code)-1:]))
	}
	w.Close()
	// go-shp v0.1.1 names the attribute table "<base>dbf".
	require.NoError(t, os.Rename(filepath.Join(dir, "msoadbf"), filepath.Join(dir, "msoa.dbf")))
	return csvPath, shpPath
}

// setupCommandEnv points the configuration at fresh fixtures through the
// environment and runs from an empty working directory.
func setupCommandEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	csvPath, shpPath := writeFixtures(t, dir)

	t.Chdir(t.TempDir())
	t.Setenv("CHOROPLETH_TABULAR_SOURCE", csvPath)
	t.Setenv("CHOROPLETH_BOUNDARY_SOURCE", shpPath)
	t.Setenv("CHOROPLETH_FETCH_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("CHOROPLETH_LOG_LEVEL", "error")
	return dir
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}
