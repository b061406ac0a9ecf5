package choropleth

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/choropleth-cli/internal/model"
)

// Mode selects how breaks are obtained and how boundary ties resolve.
type Mode string

// Classification modes.
const (
	ModeFixed    Mode = "fixed"    // caller-supplied breaks; ties go to the upper bin
	ModeQuantile Mode = "quantile" // equal-count breaks; ties go to the lower bin
)

// ParseMode converts a config string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFixed:
		return ModeFixed, nil
	case ModeQuantile:
		return ModeQuantile, nil
	default:
		return "", eris.Errorf("choropleth: unknown classification mode %q", s)
	}
}

// ValidateBreaks checks that breaks has at least two finite, strictly ascending values.
func ValidateBreaks(breaks []float64) error {
	if len(breaks) < 2 {
		return eris.Errorf("choropleth: need at least 2 breaks, got %d", len(breaks))
	}
	for i, b := range breaks {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return eris.Errorf("choropleth: break %d is not finite", i)
		}
		if i > 0 && b <= breaks[i-1] {
			return eris.Errorf("choropleth: breaks must be strictly ascending (%g after %g)", b, breaks[i-1])
		}
	}
	return nil
}

// Classify returns the bin of value relative to breaks. Bins number
// len(breaks)-1. In fixed mode bin i holds breaks[i] <= v < breaks[i+1] and
// the last bin is closed; in quantile mode bin i holds breaks[i] < v <=
// breaks[i+1] and the first bin is closed. Values outside the breaks clamp to
// the nearest bin. nil and NaN yield model.NoData. With fewer than two breaks
// every value falls in bin 0.
func Classify(value *float64, breaks []float64, mode Mode) model.Bin {
	if value == nil || math.IsNaN(*value) {
		return model.NoData
	}
	last := len(breaks) - 2
	if last < 0 {
		return 0
	}

	v := *value
	var idx int
	if mode == ModeQuantile {
		idx = sort.SearchFloat64s(breaks, v) - 1
	} else {
		idx = sort.Search(len(breaks), func(i int) bool { return breaks[i] > v }) - 1
	}

	switch {
	case idx < 0:
		return 0
	case idx > last:
		return model.Bin(last)
	default:
		return model.Bin(idx)
	}
}

// Classifier binds a mode to its breaks.
type Classifier struct {
	Mode   Mode      `json:"mode" yaml:"mode"`
	Breaks []float64 `json:"breaks" yaml:"breaks"`
}

// NewFixed builds a classifier from caller-supplied breaks.
func NewFixed(breaks []float64) (*Classifier, error) {
	if err := ValidateBreaks(breaks); err != nil {
		return nil, err
	}
	return &Classifier{Mode: ModeFixed, Breaks: append([]float64(nil), breaks...)}, nil
}

// NewQuantile computes equal-count breaks for the given number of bins from values.
func NewQuantile(values []*float64, bins int) (*Classifier, error) {
	breaks, err := QuantileBreaks(values, bins)
	if err != nil {
		return nil, err
	}
	return &Classifier{Mode: ModeQuantile, Breaks: breaks}, nil
}

// Bins returns the number of color classes, excluding no-data.
func (c *Classifier) Bins() int {
	if len(c.Breaks) < 2 {
		return 1
	}
	return len(c.Breaks) - 1
}

// Classify assigns the bin for a single value.
func (c *Classifier) Classify(value *float64) model.Bin {
	return Classify(value, c.Breaks, c.Mode)
}

// ClassifyAll returns a copy of features with Bin set. The input is not modified.
func (c *Classifier) ClassifyAll(features []model.JoinedFeature) []model.JoinedFeature {
	out := make([]model.JoinedFeature, len(features))
	for i, f := range features {
		f.Bin = c.Classify(f.Value)
		out[i] = f
	}
	return out
}

// Counts returns how many features fall in each bin; index Bins() holds no-data.
func (c *Classifier) Counts(features []model.JoinedFeature) []int {
	counts := make([]int, c.Bins()+1)
	for _, f := range features {
		if f.Bin == model.NoData || int(f.Bin) >= c.Bins() {
			counts[c.Bins()]++
			continue
		}
		counts[f.Bin]++
	}
	return counts
}
