package render

import (
	"bytes"
	"encoding/json"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// Output file names written by WriteDir and served by the map server.
const (
	IndexFile  = "index.html"
	LegendFile = "legend.json"
)

// WriteGeoJSON writes one layer as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, layer LayerSpec) error {
	if layer.Features == nil {
		return eris.Errorf("render: layer %q has no features", layer.Name)
	}
	if err := json.NewEncoder(w).Encode(layer.Features); err != nil {
		return eris.Wrapf(err, "render: encode layer %q", layer.Name)
	}
	return nil
}

// WriteLegend writes the legend as JSON.
func WriteLegend(w io.Writer, spec *MapSpec) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(spec.Legend), "render: encode legend")
}

type pageData struct {
	Title  string
	Config *MapSpec
	Files  []string
	Inline []*geojson.FeatureCollection
}

// WriteHTML writes the Leaflet page. With inline set the features are
// embedded in the page; otherwise the page loads each layer's file
// relative to its own URL.
func WriteHTML(w io.Writer, spec *MapSpec, inline bool) error {
	data := pageData{Title: spec.Title, Config: spec}
	for _, l := range spec.Layers {
		if inline {
			data.Inline = append(data.Inline, l.Features)
		} else {
			data.Files = append(data.Files, l.File)
		}
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return eris.Wrap(err, "render: execute page template")
	}
	return nil
}

// WriteDir writes index.html, one GeoJSON file per layer and legend.json
// into dir, creating it if needed. Each file is replaced atomically.
func WriteDir(dir string, spec *MapSpec) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "render: create %s", dir)
	}

	var page bytes.Buffer
	if err := WriteHTML(&page, spec, false); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(dir, IndexFile), page.Bytes()); err != nil {
		return err
	}

	for _, l := range spec.Layers {
		var buf bytes.Buffer
		if err := WriteGeoJSON(&buf, l); err != nil {
			return err
		}
		if err := writeFileAtomic(filepath.Join(dir, l.File), buf.Bytes()); err != nil {
			return err
		}
	}

	var legend bytes.Buffer
	if err := WriteLegend(&legend, spec); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(dir, LegendFile), legend.Bytes()); err != nil {
		return err
	}

	zap.L().Info("wrote map",
		zap.String("dir", dir),
		zap.String("build_id", spec.BuildID),
		zap.Int("layers", len(spec.Layers)),
	)
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrapf(err, "render: create temp for %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "render: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "render: close %s", path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return eris.Wrapf(err, "render: chmod %s", path)
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "render: rename %s", path)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css" crossorigin="">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js" crossorigin=""></script>
<style>
html, body, #map { height: 100%; margin: 0; }
.legend { background: #fff; padding: 6px 10px; font: 12px/1.4 sans-serif; border-radius: 4px; box-shadow: 0 0 6px rgba(0,0,0,.3); }
.legend h4 { margin: 0 0 4px; font-size: 13px; }
.legend i { display: inline-block; width: 14px; height: 14px; margin-right: 6px; vertical-align: middle; opacity: .8; }
</style>
</head>
<body>
<div id="map"></div>
<script>
const cfg = {{.Config}};
const files = {{.Files}};
const inline = {{.Inline}};

const map = L.map("map").setView(cfg.center, cfg.zoom);
L.tileLayer(cfg.tiles.url, { attribution: cfg.tiles.attribution, maxZoom: 19 }).addTo(map);

function featureStyle(f) {
  return {
    color: cfg.style.color,
    weight: cfg.style.weight,
    opacity: cfg.style.opacity,
    fillColor: f.properties.fill,
    fillOpacity: cfg.style.fillOpacity,
  };
}

function addLayer(data) {
  const layer = L.geoJSON(data, {
    style: featureStyle,
    onEachFeature: function (f, l) {
      l.bindPopup(f.properties.popup);
      l.on({
        mouseover: function (e) { e.target.setStyle(cfg.style.highlight); e.target.bringToFront(); },
        mouseout: function (e) { layer.resetStyle(e.target); },
      });
    },
  }).addTo(map);
}

(inline || []).forEach(addLayer);
(files || []).forEach(function (file) {
  fetch(file).then(function (r) { return r.json(); }).then(addLayer);
});

const legend = L.control({ position: "bottomright" });
legend.onAdd = function () {
  const div = L.DomUtil.create("div", "legend");
  const h = document.createElement("h4");
  h.textContent = cfg.legend.title;
  div.appendChild(h);
  (cfg.legend.entries || []).forEach(function (e) {
    const row = document.createElement("div");
    const swatch = document.createElement("i");
    swatch.style.background = e.color;
    row.appendChild(swatch);
    row.appendChild(document.createTextNode(e.label));
    div.appendChild(row);
  });
  return div;
};
legend.addTo(map);
</script>
</body>
</html>
`))
