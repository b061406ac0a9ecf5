// Package render turns classified features into what the browser map
// consumes: a GeoJSON layer with fill colors and popups, a legend, and a
// Leaflet page.
package render

// Style is the Leaflet path style applied to every feature.
type Style struct {
	BorderColor string    `json:"color" yaml:"border_color"`
	Weight      float64   `json:"weight" yaml:"weight"`
	LineOpacity float64   `json:"opacity" yaml:"line_opacity"`
	FillOpacity float64   `json:"fillOpacity" yaml:"fill_opacity"`
	Highlight   Highlight `json:"highlight" yaml:"highlight"`
}

// Highlight is the style applied while the pointer is over a feature.
type Highlight struct {
	Color       string  `json:"color" yaml:"color"`
	Weight      float64 `json:"weight" yaml:"weight"`
	FillOpacity float64 `json:"fillOpacity" yaml:"fill_opacity"`
}

// DefaultStyle is a thin grey outline with a translucent fill.
func DefaultStyle() Style {
	return Style{
		BorderColor: "#000000",
		Weight:      1,
		LineOpacity: 0.2,
		FillOpacity: 0.7,
		Highlight: Highlight{
			Color:       "#666666",
			Weight:      3,
			FillOpacity: 0.9,
		},
	}
}

// Tiles is the basemap tile layer.
type Tiles struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// DefaultTiles is the OpenStreetMap standard layer.
var DefaultTiles = Tiles{
	URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
	Attribution: "&copy; OpenStreetMap contributors",
}
