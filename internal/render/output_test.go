package render

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/choropleth-cli/internal/choropleth"
)

func testSpec(t *testing.T) *MapSpec {
	t.Helper()
	spec, err := NewBuilder("Obesity </title> map").
		BuildID("build-42").
		Layer("obesity", testFeatures(), colorOf).
		Legend("Obese (%)", []choropleth.LegendEntry{{Label: "0 – 10", Color: "#ffffcc", Count: 1}}).
		Build()
	require.NoError(t, err)
	return spec
}

func TestWriteGeoJSON(t *testing.T) {
	spec := testSpec(t)

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, spec.Layers[0]))

	var doc struct {
		Type     string    `json:"type"`
		BBox     []float64 `json:"bbox"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
			Geometry   struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	assert.Len(t, doc.BBox, 4)
	require.Len(t, doc.Features, 2)
	assert.Equal(t, "E02000001", doc.Features[0].ID)
	assert.Equal(t, "MultiPolygon", doc.Features[0].Geometry.Type)
	assert.Equal(t, "#ff0000", doc.Features[0].Properties["fill"])
	assert.Nil(t, doc.Features[1].Properties["value"])
}

func TestWriteGeoJSON_NoFeatures(t *testing.T) {
	err := WriteGeoJSON(&bytes.Buffer{}, LayerSpec{Name: "empty"})
	require.Error(t, err)
}

func TestWriteHTML(t *testing.T) {
	spec := testSpec(t)

	var linked bytes.Buffer
	require.NoError(t, WriteHTML(&linked, spec, false))
	page := linked.String()
	assert.Contains(t, page, "leaflet.js")
	assert.Contains(t, page, "features.geojson")
	assert.NotContains(t, page, "E02000001")
	assert.NotContains(t, page, "</title> map")

	var inline bytes.Buffer
	require.NoError(t, WriteHTML(&inline, spec, true))
	assert.Contains(t, inline.String(), "E02000001")
	assert.Contains(t, inline.String(), "build-42")
}

func TestWriteDir(t *testing.T) {
	spec := testSpec(t)
	dir := filepath.Join(t.TempDir(), "out")

	require.NoError(t, WriteDir(dir, spec))

	for _, name := range []string{IndexFile, "features.geojson", LegendFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	data, err := os.ReadFile(filepath.Join(dir, LegendFile))
	require.NoError(t, err)
	var legend LegendSpec
	require.NoError(t, json.Unmarshal(data, &legend))
	assert.Equal(t, "Obese (%)", legend.Title)
	require.Len(t, legend.Entries, 1)
	assert.Equal(t, 1, legend.Entries[0].Count)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "."), "temp file left behind: %s", e.Name())
	}

	// Rewriting replaces the files in place.
	require.NoError(t, WriteDir(dir, spec))
}
