package choropleth

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// QuantileBreaks returns bins+1 equal-count breakpoints over the non-nil,
// non-NaN values, interpolating linearly between order statistics. Repeated
// breakpoints (heavy ties) collapse, so the result may describe fewer bins.
func QuantileBreaks(values []*float64, bins int) ([]float64, error) {
	if bins < 1 {
		return nil, eris.Errorf("choropleth: quantile bins must be >= 1, got %d", bins)
	}

	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if v == nil || math.IsNaN(*v) {
			continue
		}
		sorted = append(sorted, *v)
	}
	if len(sorted) == 0 {
		return nil, eris.New("choropleth: no values to compute quantile breaks")
	}
	sort.Float64s(sorted)

	breaks := make([]float64, 0, bins+1)
	for i := 0; i <= bins; i++ {
		q := quantile(sorted, float64(i)/float64(bins))
		if len(breaks) > 0 && q <= breaks[len(breaks)-1] {
			continue
		}
		breaks = append(breaks, q)
	}

	if len(breaks) < bins+1 {
		zap.L().Debug("choropleth: collapsed duplicate quantile breaks",
			zap.Int("requested_bins", bins),
			zap.Int("bins", max(len(breaks)-1, 1)),
		)
	}
	if len(breaks) == 1 {
		// Every value is identical; widen to a single closed bin.
		breaks = append(breaks, breaks[0])
	}

	return breaks, nil
}

func quantile(sorted []float64, q float64) float64 {
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
