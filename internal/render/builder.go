package render

import (
	"errors"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/choropleth-cli/internal/choropleth"
	"github.com/sells-group/choropleth-cli/internal/model"
)

// DefaultZoom is the initial zoom level when none is configured.
const DefaultZoom = 10

// MapSpec is everything the Leaflet page needs to draw the map.
type MapSpec struct {
	BuildID string      `json:"build_id,omitempty"`
	Title   string      `json:"title"`
	Center  [2]float64  `json:"center"` // lat, lng
	Zoom    int         `json:"zoom"`
	Bounds  [4]float64  `json:"bounds"` // min lng, min lat, max lng, max lat
	Tiles   Tiles       `json:"tiles"`
	Style   Style       `json:"style"`
	Legend  LegendSpec  `json:"legend"`
	Layers  []LayerSpec `json:"layers"`
}

// LegendSpec is the legend control content.
type LegendSpec struct {
	Title   string                   `json:"title"`
	Entries []choropleth.LegendEntry `json:"entries"`
}

// LayerSpec is one GeoJSON overlay.
type LayerSpec struct {
	Name     string                     `json:"name"`
	File     string                     `json:"file"`
	Features *geojson.FeatureCollection `json:"-"`
}

type pendingLayer struct {
	name     string
	features []model.JoinedFeature
	colorOf  func(model.Bin) string
}

// Builder accumulates map configuration. Invalid settings are recorded
// and returned together by Build.
type Builder struct {
	buildID string
	title   string
	label   string
	zoom    int
	tiles   Tiles
	style   Style
	popup   *Popup
	legend  LegendSpec
	layers  []pendingLayer
	errs    []error
}

// NewBuilder starts a map with default tiles, style and popup.
func NewBuilder(title string) *Builder {
	popup, _ := ParsePopup("")
	return &Builder{
		title: title,
		zoom:  DefaultZoom,
		tiles: DefaultTiles,
		style: DefaultStyle(),
		popup: popup,
	}
}

// BuildID stamps the map with an identifier.
func (b *Builder) BuildID(id string) *Builder {
	b.buildID = id
	return b
}

// Tiles sets the basemap. An empty url keeps the default.
func (b *Builder) Tiles(url, attribution string) *Builder {
	if url != "" {
		b.tiles = Tiles{URL: url, Attribution: attribution}
	}
	return b
}

// View sets the initial zoom level.
func (b *Builder) View(zoom int) *Builder {
	if zoom < 0 || zoom > 22 {
		b.errs = append(b.errs, eris.Errorf("render: zoom %d out of range 0-22", zoom))
		return b
	}
	b.zoom = zoom
	return b
}

// Style sets the feature style.
func (b *Builder) Style(s Style) *Builder {
	if s.FillOpacity < 0 || s.FillOpacity > 1 || s.LineOpacity < 0 || s.LineOpacity > 1 {
		b.errs = append(b.errs, eris.New("render: opacity must be between 0 and 1"))
		return b
	}
	b.style = s
	return b
}

// Popup sets the popup template and the label shown next to values.
func (b *Builder) Popup(p *Popup, valueLabel string) *Builder {
	if p != nil {
		b.popup = p
	}
	b.label = valueLabel
	return b
}

// Layer adds classified features colored by colorOf.
func (b *Builder) Layer(name string, features []model.JoinedFeature, colorOf func(model.Bin) string) *Builder {
	if colorOf == nil {
		b.errs = append(b.errs, eris.Errorf("render: layer %q has no color function", name))
		return b
	}
	b.layers = append(b.layers, pendingLayer{name: name, features: features, colorOf: colorOf})
	return b
}

// Legend sets the legend title and entries.
func (b *Builder) Legend(title string, entries []choropleth.LegendEntry) *Builder {
	b.legend = LegendSpec{Title: title, Entries: entries}
	return b
}

// Build assembles the MapSpec. It fails if any earlier call failed, if no
// layer was added, or if a geometry is not WGS 84 longitude/latitude.
func (b *Builder) Build() (*MapSpec, error) {
	if len(b.layers) == 0 {
		b.errs = append(b.errs, eris.New("render: map has no layers"))
	}

	spec := &MapSpec{
		BuildID: b.buildID,
		Title:   b.title,
		Zoom:    b.zoom,
		Tiles:   b.tiles,
		Style:   b.style,
		Legend:  b.legend,
	}

	all := geom.NewBounds(geom.XY)
	var cx, cy, area float64
	for i, l := range b.layers {
		fc, err := b.collection(l)
		if err != nil {
			b.errs = append(b.errs, err)
			continue
		}
		for _, f := range l.features {
			all.Extend(f.Geometry)
			a := math.Abs(f.Geometry.Area())
			if a > 0 {
				c := xy.MultiPolygonCentroid(f.Geometry)
				cx += c[0] * a
				cy += c[1] * a
				area += a
			}
		}
		spec.Layers = append(spec.Layers, LayerSpec{Name: l.name, File: layerFile(i), Features: fc})
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}

	if !all.IsEmpty() {
		spec.Bounds = [4]float64{all.Min(0), all.Min(1), all.Max(0), all.Max(1)}
		spec.Center = [2]float64{(all.Min(1) + all.Max(1)) / 2, (all.Min(0) + all.Max(0)) / 2}
	}
	if area > 0 {
		spec.Center = [2]float64{cy / area, cx / area}
	}
	return spec, nil
}

func (b *Builder) collection(l pendingLayer) (*geojson.FeatureCollection, error) {
	bounds := geom.NewBounds(geom.XY)
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(l.features))}
	for _, f := range l.features {
		if f.Geometry == nil {
			return nil, eris.Errorf("render: layer %q feature %s has no geometry", l.name, f.Code)
		}
		if err := checkWGS84(f.Geometry); err != nil {
			return nil, eris.Wrapf(err, "render: layer %q feature %s", l.name, f.Code)
		}

		color := l.colorOf(f.Bin)
		popup, err := b.popup.Render(PopupData{
			Code:      f.Code,
			Name:      f.Name,
			Label:     b.label,
			Value:     f.Value,
			ValueText: FormatValue(f.Value),
			Bin:       f.Bin,
			Color:     color,
		})
		if err != nil {
			return nil, err
		}

		var value any
		if f.Value != nil {
			value = *f.Value
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       f.Code,
			Geometry: f.Geometry,
			Properties: map[string]any{
				"code":  f.Code,
				"name":  f.Name,
				"value": value,
				"bin":   int(f.Bin),
				"fill":  color,
				"popup": popup,
			},
		})
		bounds.Extend(f.Geometry)
	}
	if len(fc.Features) > 0 {
		fc.BBox = bounds
	}
	return fc, nil
}

// checkWGS84 rejects geometries tagged with another SRID or whose
// coordinates fall outside longitude/latitude range.
func checkWGS84(g *geom.MultiPolygon) error {
	if srid := g.SRID(); srid != 0 && srid != 4326 {
		return eris.Errorf("geometry has SRID %d, want 4326", srid)
	}
	b := g.Bounds()
	if b.IsEmpty() {
		return nil
	}
	if b.Min(0) < -180 || b.Max(0) > 180 || b.Min(1) < -90 || b.Max(1) > 90 ||
		math.IsNaN(b.Min(0)) || math.IsNaN(b.Min(1)) {
		return eris.New("coordinates are not longitude/latitude")
	}
	return nil
}

// layerFile names the GeoJSON file a layer is written to and served from.
func layerFile(i int) string {
	if i == 0 {
		return "features.geojson"
	}
	return "features-" + strconv.Itoa(i) + ".geojson"
}
