package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/choropleth-cli/internal/choropleth"
	"github.com/sells-group/choropleth-cli/internal/model"
)

func lonLatSquare(lon, lat, size float64) *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{lon, lat}, {lon + size, lat}, {lon + size, lat + size}, {lon, lat + size}, {lon, lat},
	}}}).SetSRID(4326)
}

func testFeatures() []model.JoinedFeature {
	return []model.JoinedFeature{
		{Code: "E02000001", Name: "City of London 001", Value: model.Float(12.5), Geometry: lonLatSquare(-0.1, 51.5, 0.01), Matched: true, Bin: 1},
		{Code: "E02000002", Name: "Barking 001", Geometry: lonLatSquare(0.1, 51.5, 0.01), Bin: model.NoData},
	}
}

func colorOf(b model.Bin) string {
	if b == model.NoData {
		return "#d9d9d9"
	}
	return "#ff0000"
}

func TestBuilder_Build(t *testing.T) {
	legend := []choropleth.LegendEntry{{Label: "0 – 10", Color: "#ffffcc"}, {Label: choropleth.NoDataLabel, Color: "#d9d9d9"}}

	spec, err := NewBuilder("Obesity").
		BuildID("b-1").
		Tiles("https://tiles.example.com/{z}/{x}/{y}.png", "Example").
		View(11).
		Popup(nil, "Obese (%)").
		Layer("obesity", testFeatures(), colorOf).
		Legend("Obesity (%)", legend).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "b-1", spec.BuildID)
	assert.Equal(t, "Obesity", spec.Title)
	assert.Equal(t, 11, spec.Zoom)
	assert.Equal(t, "Example", spec.Tiles.Attribution)
	assert.Equal(t, "Obesity (%)", spec.Legend.Title)
	assert.Len(t, spec.Legend.Entries, 2)

	// Equal areas: the center is the midpoint of the two centroids.
	assert.InDelta(t, 51.505, spec.Center[0], 1e-9)
	assert.InDelta(t, 0.005, spec.Center[1], 1e-9)
	assert.InDelta(t, -0.1, spec.Bounds[0], 1e-9)
	assert.InDelta(t, 0.11, spec.Bounds[2], 1e-9)

	require.Len(t, spec.Layers, 1)
	layer := spec.Layers[0]
	assert.Equal(t, "features.geojson", layer.File)
	require.Len(t, layer.Features.Features, 2)

	props := layer.Features.Features[0].Properties
	assert.Equal(t, "E02000001", props["code"])
	assert.Equal(t, 12.5, props["value"])
	assert.Equal(t, 1, props["bin"])
	assert.Equal(t, "#ff0000", props["fill"])
	assert.Equal(t, "<strong>City of London 001</strong> (E02000001)<br>Obese (%): 12.5", props["popup"])

	props = layer.Features.Features[1].Properties
	assert.Nil(t, props["value"])
	assert.Equal(t, -1, props["bin"])
	assert.Equal(t, "#d9d9d9", props["fill"])
	assert.Contains(t, props["popup"], "No data")
}

func TestBuilder_Defaults(t *testing.T) {
	spec, err := NewBuilder("t").Layer("l", testFeatures(), colorOf).Build()
	require.NoError(t, err)
	assert.Equal(t, DefaultZoom, spec.Zoom)
	assert.Equal(t, DefaultTiles, spec.Tiles)
	assert.Equal(t, DefaultStyle(), spec.Style)
}

func TestBuilder_PopupEscapesHTML(t *testing.T) {
	features := testFeatures()[:1]
	features[0].Name = "<script>x</script>"

	spec, err := NewBuilder("t").Layer("l", features, colorOf).Build()
	require.NoError(t, err)
	popup := spec.Layers[0].Features.Features[0].Properties["popup"].(string)
	assert.NotContains(t, popup, "<script>")
	assert.Contains(t, popup, "&lt;script&gt;")
}

func TestBuilder_Errors(t *testing.T) {
	projected := testFeatures()
	projected[0].Geometry = geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{530000, 180000}, {530100, 180000}, {530100, 180100}, {530000, 180000},
	}}})
	tagged := testFeatures()
	tagged[0].Geometry = lonLatSquare(0, 51, 0.1).SetSRID(27700)
	missing := testFeatures()
	missing[1].Geometry = nil

	badPopup, err := ParsePopup("{{.Missing}}")
	require.NoError(t, err)

	tests := []struct {
		name string
		b    *Builder
		want string
	}{
		{"no layers", NewBuilder("t"), "no layers"},
		{"projected coordinates", NewBuilder("t").Layer("l", projected, colorOf), "not longitude/latitude"},
		{"foreign srid", NewBuilder("t").Layer("l", tagged, colorOf), "SRID 27700"},
		{"nil geometry", NewBuilder("t").Layer("l", missing, colorOf), "has no geometry"},
		{"nil color func", NewBuilder("t").Layer("l", testFeatures(), nil).Layer("m", testFeatures(), colorOf), "no color function"},
		{"zoom", NewBuilder("t").View(30).Layer("l", testFeatures(), colorOf), "zoom 30"},
		{"opacity", NewBuilder("t").Style(Style{FillOpacity: 2}).Layer("l", testFeatures(), colorOf), "opacity"},
		{"popup field", NewBuilder("t").Popup(badPopup, "").Layer("l", testFeatures(), colorOf), "render: popup"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuilder_MultipleLayerFiles(t *testing.T) {
	spec, err := NewBuilder("t").
		Layer("a", testFeatures(), colorOf).
		Layer("b", testFeatures(), colorOf).
		Build()
	require.NoError(t, err)
	require.Len(t, spec.Layers, 2)
	assert.Equal(t, "features.geojson", spec.Layers[0].File)
	assert.Equal(t, "features-1.geojson", spec.Layers[1].File)
}

func TestParsePopup(t *testing.T) {
	_, err := ParsePopup("{{.Name")
	require.Error(t, err)

	p, err := ParsePopup("{{.Code}} is bin {{.Bin}} in {{.Color}}")
	require.NoError(t, err)
	out, err := p.Render(PopupData{Code: "E1", Bin: model.NoData, Color: "#d9d9d9"})
	require.NoError(t, err)
	assert.Equal(t, "E1 is bin no-data in #d9d9d9", out)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "No data", FormatValue(nil))
	assert.Equal(t, "12.5", FormatValue(model.Float(12.5)))
	assert.Equal(t, "3", FormatValue(model.Float(3)))
}
