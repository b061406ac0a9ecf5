package choropleth

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sells-group/choropleth-cli/internal/model"
)

// NoDataLabel is the legend label for features without a value.
const NoDataLabel = "No data"

// LegendEntry is one swatch of the map legend.
type LegendEntry struct {
	Label string `json:"label" yaml:"label"`
	Color string `json:"color" yaml:"color"`
	Count int    `json:"count" yaml:"count"`
}

// Legend builds one entry per bin plus a trailing no-data entry. counts may
// be nil; otherwise it is indexed like Classifier.Counts. A classifier
// without breaks yields only the no-data entry.
func Legend(c *Classifier, p Palette, counts []int) []LegendEntry {
	bins := c.Bins()
	entries := make([]LegendEntry, 0, bins+1)
	for i := range len(c.Breaks) - 1 {
		entries = append(entries, LegendEntry{
			Label: fmt.Sprintf("%s – %s", formatBreak(c.Breaks[i]), formatBreak(c.Breaks[i+1])),
			Color: p.ColorOf(model.Bin(i)),
			Count: countAt(counts, i),
		})
	}
	entries = append(entries, LegendEntry{
		Label: NoDataLabel,
		Color: p.NoData,
		Count: countAt(counts, bins),
	})
	return entries
}

// formatBreak rounds to two decimals so computed quantiles stay readable.
func formatBreak(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func countAt(counts []int, i int) int {
	if i < len(counts) {
		return counts[i]
	}
	return 0
}
