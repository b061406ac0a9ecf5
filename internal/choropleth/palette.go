package choropleth

import (
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"

	"github.com/sells-group/choropleth-cli/internal/model"
)

// DefaultNoDataColor fills features without a value.
const DefaultNoDataColor = "#d9d9d9"

// ramps holds ColorBrewer 9-class sequential schemes (and viridis) used as
// interpolation stops, light to dark.
var ramps = map[string][]string{
	"YlOrRd":  {"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#bd0026", "#800026"},
	"YlOrBr":  {"#ffffe5", "#fff7bc", "#fee391", "#fec44f", "#fe9929", "#ec7014", "#cc4c02", "#993404", "#662506"},
	"OrRd":    {"#fff7ec", "#fee8c8", "#fdd49e", "#fdbb84", "#fc8d59", "#ef6548", "#d7301f", "#b30000", "#7f0000"},
	"Reds":    {"#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#a50f15", "#67000d"},
	"Blues":   {"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5", "#08519c", "#08306b"},
	"Greens":  {"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b"},
	"Purples": {"#fcfbfd", "#efedf5", "#dadaeb", "#bcbddc", "#9e9ac8", "#807dba", "#6a51a3", "#54278f", "#3f007d"},
	"YlGnBu":  {"#ffffd9", "#edf8b1", "#c7e9b4", "#7fcdbb", "#41b6c4", "#1d91c0", "#225ea8", "#253494", "#081d58"},
	"RdPu":    {"#fff7f3", "#fde0dd", "#fcc5c0", "#fa9fb5", "#f768a1", "#dd3497", "#ae017e", "#7a0177", "#49006a"},
	"Viridis": {"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#fde725"},
}

// PaletteNames lists the available ramps in sorted order.
func PaletteNames() []string {
	names := make([]string, 0, len(ramps))
	for name := range ramps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Palette maps bins to display colors, with one reserved no-data color.
type Palette struct {
	Name   string   `json:"name" yaml:"name"`
	Colors []string `json:"colors" yaml:"colors"`
	NoData string   `json:"no_data" yaml:"no_data"`
}

// NewPalette samples bins colors from the named ramp. Ramp names match
// case-insensitively. An empty noData uses DefaultNoDataColor.
func NewPalette(name string, bins int, noData string) (Palette, error) {
	if bins < 1 {
		return Palette{}, eris.Errorf("choropleth: palette needs at least 1 bin, got %d", bins)
	}
	key, stops, ok := lookupRamp(name)
	if !ok {
		return Palette{}, eris.Errorf("choropleth: unknown palette %q (available: %s)", name, strings.Join(PaletteNames(), ", "))
	}
	if noData == "" {
		noData = DefaultNoDataColor
	}
	if _, err := colorful.Hex(noData); err != nil {
		return Palette{}, eris.Wrapf(err, "choropleth: invalid no-data color %q", noData)
	}

	colors, err := sampleRamp(stops, bins)
	if err != nil {
		return Palette{}, err
	}
	return Palette{Name: key, Colors: colors, NoData: noData}, nil
}

// Size is the number of colors including the reserved no-data color.
func (p Palette) Size() int { return len(p.Colors) + 1 }

// ColorOf returns the fill color for bin. NoData and bins outside the palette
// get the no-data color.
func (p Palette) ColorOf(bin model.Bin) string {
	if bin < 0 || int(bin) >= len(p.Colors) {
		return p.NoData
	}
	return p.Colors[bin]
}

func lookupRamp(name string) (string, []string, bool) {
	if stops, ok := ramps[name]; ok {
		return name, stops, true
	}
	for key, stops := range ramps {
		if strings.EqualFold(key, name) {
			return key, stops, true
		}
	}
	return "", nil, false
}

// sampleRamp picks n evenly spaced colors along the ramp, blending adjacent
// stops in CIE-Lab space.
func sampleRamp(stops []string, n int) ([]string, error) {
	parsed := make([]colorful.Color, len(stops))
	for i, s := range stops {
		c, err := colorful.Hex(s)
		if err != nil {
			return nil, eris.Wrapf(err, "choropleth: parse ramp color %q", s)
		}
		parsed[i] = c
	}

	if n == 1 {
		return []string{parsed[len(parsed)/2].Hex()}, nil
	}

	out := make([]string, n)
	span := float64(len(parsed) - 1)
	for i := range n {
		pos := float64(i) / float64(n-1) * span
		lo := int(pos)
		if lo >= len(parsed)-1 {
			out[i] = parsed[len(parsed)-1].Hex()
			continue
		}
		t := pos - float64(lo)
		out[i] = parsed[lo].BlendLab(parsed[lo+1], t).Clamped().Hex()
	}
	return out, nil
}
